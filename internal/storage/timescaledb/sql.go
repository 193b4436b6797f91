package timescaledb

const createTableSQL = `
CREATE TABLE IF NOT EXISTS dive_samples (
    time timestamp WITH TIME ZONE NOT NULL,
    session_id text NOT NULL,
    sensor text NULL,
    elapsed float8 NOT NULL,
    pressure float4 NULL,
    depth float4 NULL,
    temperature float4 NULL,
    ndl int2 NULL,
    unlimited boolean NOT NULL DEFAULT false,
    ceiling float4 NULL,
    vertical_rate float4 NULL
);`

const createSessionIndexSQL = `CREATE INDEX IF NOT EXISTS dive_samples_session_idx ON dive_samples (session_id, time DESC);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('dive_samples', 'time', if_not_exists => true);`

const create1mViewSQL = `CREATE MATERIALIZED VIEW IF NOT EXISTS dive_samples_1m
WITH (timescaledb.continuous, timescaledb.materialized_only = false)
AS
SELECT
    time_bucket('1 minute', time) as bucket,
    session_id,
    avg(depth) as depth,
    max(depth) as max_depth,
    avg(temperature) as temperature,
    min(temperature) as min_temperature,
    min(ndl) as min_ndl,
    max(ceiling) as max_ceiling,
    max(vertical_rate) as max_descent_rate,
    min(vertical_rate) as max_ascent_rate
FROM dive_samples
GROUP BY bucket, session_id
WITH NO DATA;`

const addAggregationPolicy1mSQL = `SELECT add_continuous_aggregate_policy('dive_samples_1m', INTERVAL '1 month', INTERVAL '1 minute', INTERVAL '1 minute', if_not_exists => true);`

const addRetentionPolicySQL = `SELECT add_retention_policy('dive_samples', INTERVAL '10 years', if_not_exists => true);`
