package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dive_settings (
	id                INTEGER PRIMARY KEY CHECK (id = 1),
	model             TEXT,
	fallback_to_dummy INTEGER NOT NULL DEFAULT 0,
	rate_window       INTEGER
);
CREATE TABLE IF NOT EXISTS devices (
	name                  TEXT PRIMARY KEY,
	role                  TEXT NOT NULL,
	type                  TEXT NOT NULL,
	enabled               INTEGER NOT NULL DEFAULT 1,
	serial_device         TEXT,
	baud                  INTEGER,
	i2c_bus               TEXT,
	i2c_address           INTEGER,
	oversample            INTEGER,
	interval              TEXT,
	max_duration          TEXT,
	profile_bottom_depth  REAL,
	profile_bottom_time   REAL,
	profile_descent_rate  REAL,
	profile_ascent_rate   REAL,
	profile_water_temp    REAL,
	profile_time_compress REAL
);
CREATE TABLE IF NOT EXISTS storage_configs (
	backend_type      TEXT PRIMARY KEY,
	path              TEXT,
	connection_string TEXT,
	broker            TEXT,
	client_id         TEXT,
	username          TEXT,
	password          TEXT,
	topic_prefix      TEXT,
	qos               INTEGER
);
CREATE TABLE IF NOT EXISTS controller_configs (
	type        TEXT PRIMARY KEY,
	listen_addr TEXT,
	port        INTEGER
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create configuration schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	dive, err := s.getDiveSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load dive settings: %w", err)
	}
	config.Dive = *dive

	devices, err := s.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	config.Devices = devices

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (s *SQLiteProvider) getDiveSettings() (*DiveData, error) {
	var dive DiveData
	var model sql.NullString
	var rateWindow sql.NullInt64

	err := s.db.QueryRow(`SELECT model, fallback_to_dummy, rate_window FROM dive_settings WHERE id = 1`).
		Scan(&model, &dive.FallbackToDummy, &rateWindow)
	if err == sql.ErrNoRows {
		return &dive, nil
	}
	if err != nil {
		return nil, err
	}

	dive.Model = model.String
	dive.RateWindow = int(rateWindow.Int64)
	return &dive, nil
}

const deviceColumns = `name, role, type, enabled, serial_device, baud, i2c_bus, i2c_address,
	oversample, interval, max_duration, profile_bottom_depth, profile_bottom_time,
	profile_descent_rate, profile_ascent_rate, profile_water_temp, profile_time_compress`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (DeviceData, error) {
	var device DeviceData
	var serialDevice, i2cBus, interval, maxDuration sql.NullString
	var baud, i2cAddress, oversample sql.NullInt64
	var depth, bottomTime, descent, ascent, waterTemp, compress sql.NullFloat64

	err := row.Scan(
		&device.Name, &device.Role, &device.Type, &device.Enabled,
		&serialDevice, &baud, &i2cBus, &i2cAddress, &oversample,
		&interval, &maxDuration, &depth, &bottomTime, &descent,
		&ascent, &waterTemp, &compress,
	)
	if err != nil {
		return device, err
	}

	// NULL columns collapse to zero values
	device.SerialDevice = serialDevice.String
	device.Baud = int(baud.Int64)
	device.I2CBus = i2cBus.String
	device.I2CAddress = uint16(i2cAddress.Int64)
	device.Oversample = int(oversample.Int64)
	device.Interval = interval.String
	device.MaxDuration = maxDuration.String
	device.Profile = ProfileData{
		BottomDepth:  depth.Float64,
		BottomTime:   bottomTime.Float64,
		DescentRate:  descent.Float64,
		AscentRate:   ascent.Float64,
		WaterTemp:    waterTemp.Float64,
		TimeCompress: compress.Float64,
	}
	return device, nil
}

// GetDevices returns device configurations from the database
func (s *SQLiteProvider) GetDevices() ([]DeviceData, error) {
	rows, err := s.db.Query(`SELECT ` + deviceColumns + ` FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []DeviceData
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// GetDevice returns a single device by name
func (s *SQLiteProvider) GetDevice(name string) (*DeviceData, error) {
	device, err := scanDevice(s.db.QueryRow(`SELECT `+deviceColumns+` FROM devices WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device [%s] not found in configuration", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device %s: %w", name, err)
	}
	return &device, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	rows, err := s.db.Query(`
		SELECT backend_type, path, connection_string, broker, client_id,
		       username, password, topic_prefix, qos
		FROM storage_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var path, connStr, broker, clientID, username, password, prefix sql.NullString
		var qos sql.NullInt64

		if err := rows.Scan(&backendType, &path, &connStr, &broker, &clientID,
			&username, &password, &prefix, &qos); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "sqlite":
			storage.SQLite = &SQLiteData{Path: path.String}
		case "timescaledb":
			storage.TimescaleDB = &TimescaleDBData{ConnectionString: connStr.String}
		case "mqtt":
			storage.MQTT = &MQTTData{
				Broker:      broker.String,
				ClientID:    clientID.String,
				Username:    username.String,
				Password:    password.String,
				TopicPrefix: prefix.String,
				QoS:         byte(qos.Int64),
			}
		default:
			return nil, fmt.Errorf("unknown storage backend type %q", backendType)
		}
	}
	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	rows, err := s.db.Query(`SELECT type, listen_addr, port FROM controller_configs ORDER BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controller ControllerData
		var listenAddr sql.NullString
		var port sql.NullInt64

		if err := rows.Scan(&controller.Type, &listenAddr, &port); err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		switch controller.Type {
		case "rest":
			controller.RESTServer = &RESTServerData{
				ListenAddr: listenAddr.String,
				Port:       int(port.Int64),
			}
		default:
			return nil, fmt.Errorf("unknown controller type %q", controller.Type)
		}
		controllers = append(controllers, controller)
	}
	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite supports write operations
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"dive_settings", "devices", "storage_configs", "controller_configs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO dive_settings (id, model, fallback_to_dummy, rate_window) VALUES (1, ?, ?, ?)`,
		configData.Dive.Model, configData.Dive.FallbackToDummy, configData.Dive.RateWindow); err != nil {
		return fmt.Errorf("failed to insert dive settings: %w", err)
	}

	for _, device := range configData.Devices {
		if err := s.insertDevice(tx, &device); err != nil {
			return fmt.Errorf("failed to insert device %s: %w", device.Name, err)
		}
	}

	if err := s.insertStorageConfigs(tx, &configData.Storage); err != nil {
		return fmt.Errorf("failed to insert storage configs: %w", err)
	}

	for _, controller := range configData.Controllers {
		if controller.RESTServer == nil {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO controller_configs (type, listen_addr, port) VALUES (?, ?, ?)`,
			controller.Type, nullString(controller.RESTServer.ListenAddr), controller.RESTServer.Port); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", controller.Type, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) insertDevice(tx *sql.Tx, device *DeviceData) error {
	_, err := tx.Exec(`INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.Name, device.Role, device.Type, device.Enabled,
		nullString(device.SerialDevice), device.Baud, nullString(device.I2CBus),
		device.I2CAddress, device.Oversample, nullString(device.Interval),
		nullString(device.MaxDuration), device.Profile.BottomDepth,
		device.Profile.BottomTime, device.Profile.DescentRate,
		device.Profile.AscentRate, device.Profile.WaterTemp,
		device.Profile.TimeCompress,
	)
	return err
}

func (s *SQLiteProvider) insertStorageConfigs(tx *sql.Tx, storage *StorageData) error {
	const query = `INSERT INTO storage_configs (backend_type, path, connection_string, broker,
		client_id, username, password, topic_prefix, qos) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if storage.SQLite != nil {
		if _, err := tx.Exec(query, "sqlite", storage.SQLite.Path, nil, nil, nil, nil, nil, nil, nil); err != nil {
			return err
		}
	}
	if storage.TimescaleDB != nil {
		if _, err := tx.Exec(query, "timescaledb", nil, storage.TimescaleDB.ConnectionString, nil, nil, nil, nil, nil, nil); err != nil {
			return err
		}
	}
	if m := storage.MQTT; m != nil {
		if _, err := tx.Exec(query, "mqtt", nil, nil, m.Broker, nullString(m.ClientID),
			nullString(m.Username), nullString(m.Password), nullString(m.TopicPrefix), m.QoS); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
