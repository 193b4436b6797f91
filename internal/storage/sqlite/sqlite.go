// Package sqlite keeps a dive logbook in a local SQLite file: one row per
// session plus every processed sample.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/haldane/internal/storage"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrDiveNotFound is returned when a session ID has no logbook entry.
var ErrDiveNotFound = errors.New("dive not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Dive summarises one logged session.
type Dive struct {
	ID          string    `json:"id" msgpack:"id"`
	Sensor      string    `json:"sensor" msgpack:"sensor"`
	StartedAt   time.Time `json:"started_at" msgpack:"started_at"`
	EndedAt     time.Time `json:"ended_at" msgpack:"ended_at"`
	Duration    float64   `json:"duration_minutes" msgpack:"duration_minutes"`
	MaxDepth    float64   `json:"max_depth_m" msgpack:"max_depth_m"`
	MinNDL      int       `json:"min_ndl_minutes" msgpack:"min_ndl_minutes"`
	SampleCount int       `json:"sample_count" msgpack:"sample_count"`
}

// Storage is the SQLite logbook backend.
type Storage struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New opens (creating if needed) the logbook at path.
func New(path string, logger *zap.SugaredLogger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open logbook %s: %w", path, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping logbook %s: %w", path, err)
	}
	steps, err := migrate.Load(migrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate.NewMigrator(db, steps, "logbook_migrations", logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate logbook schema: %w", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

// StartStorageEngine creates a goroutine loop to receive readings and write
// them to the logbook
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Reading {
	s.logger.Info("starting SQLite logbook storage engine...")
	return storage.StartProcessor(ctx, wg, s.StoreReading, "SQLite logbook", s.logger)
}

// StoreReading appends a sample and folds it into its dive summary.
func (s *Storage) StoreReading(r types.Reading) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := r.Timestamp.UnixNano()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dives (id, sensor, started_at, ended_at, duration, max_depth, min_ndl, sample_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			sensor = excluded.sensor,
			ended_at = excluded.ended_at,
			duration = MAX(dives.duration, excluded.duration),
			max_depth = MAX(dives.max_depth, excluded.max_depth),
			min_ndl = MIN(dives.min_ndl, excluded.min_ndl),
			sample_count = dives.sample_count + 1`,
		r.SessionID, r.SensorName, ts, ts, r.Elapsed, r.Depth, r.NDL)
	if err != nil {
		return fmt.Errorf("failed to update dive %s: %w", r.SessionID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO samples (session_id, time, sensor, elapsed, pressure, depth, temperature, ndl, unlimited, ceiling, vertical_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, ts, r.SensorName, r.Elapsed, r.Pressure, r.Depth, r.Temperature, r.NDL, r.Unlimited, r.Ceiling, r.VerticalRate)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	return tx.Commit()
}

// ListDives returns every logged dive, newest first.
func (s *Storage) ListDives(ctx context.Context) ([]Dive, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(sensor, ''), started_at, ended_at, duration, max_depth, min_ndl, sample_count
		FROM dives ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dives: %w", err)
	}
	defer rows.Close()

	var dives []Dive
	for rows.Next() {
		var d Dive
		var started, ended int64
		if err := rows.Scan(&d.ID, &d.Sensor, &started, &ended, &d.Duration, &d.MaxDepth, &d.MinNDL, &d.SampleCount); err != nil {
			return nil, fmt.Errorf("failed to scan dive: %w", err)
		}
		d.StartedAt = time.Unix(0, started).UTC()
		d.EndedAt = time.Unix(0, ended).UTC()
		dives = append(dives, d)
	}
	return dives, rows.Err()
}

// Samples returns the samples of one dive in elapsed order.
func (s *Storage) Samples(ctx context.Context, id string) ([]types.Reading, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM dives WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDiveNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up dive %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, time, COALESCE(sensor, ''), elapsed, pressure, depth, temperature, ndl, unlimited, ceiling, vertical_rate
		FROM samples WHERE session_id = ? ORDER BY elapsed`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples of %s: %w", id, err)
	}
	defer rows.Close()

	var out []types.Reading
	for rows.Next() {
		var r types.Reading
		var ts int64
		if err := rows.Scan(&r.SessionID, &ts, &r.SensorName, &r.Elapsed, &r.Pressure, &r.Depth,
			&r.Temperature, &r.NDL, &r.Unlimited, &r.Ceiling, &r.VerticalRate); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// CheckHealth pings the logbook database.
func (s *Storage) CheckHealth(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the logbook database.
func (s *Storage) Close() error {
	return s.db.Close()
}
