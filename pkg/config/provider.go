package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDevices() ([]DeviceData, error)
	GetDevice(name string) (*DeviceData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// Device roles. Every enabled device fills exactly one role in the dive loop.
const (
	RoleSensor  = "sensor"
	RoleTimer   = "timer"
	RoleDisplay = "display"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Dive        DiveData         `json:"dive" yaml:"dive"`
	Devices     []DeviceData     `json:"devices" yaml:"devices"`
	Storage     StorageData      `json:"storage,omitempty" yaml:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty" yaml:"controllers,omitempty"`
}

// DiveData holds settings for the sampling loop and decompression model
type DiveData struct {
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	FallbackToDummy bool   `json:"fallback_to_dummy,omitempty" yaml:"fallback_to_dummy,omitempty"`
	RateWindow      int    `json:"rate_window,omitempty" yaml:"rate_window,omitempty"`
}

// DeviceData holds configuration for a sensor, timer or display
type DeviceData struct {
	Name         string      `json:"name" yaml:"name"`
	Role         string      `json:"role" yaml:"role"`
	Type         string      `json:"type" yaml:"type"`
	Enabled      bool        `json:"enabled" yaml:"enabled"`
	SerialDevice string      `json:"serial_device,omitempty" yaml:"serial_device,omitempty"`
	Baud         int         `json:"baud,omitempty" yaml:"baud,omitempty"`
	I2CBus       string      `json:"i2c_bus,omitempty" yaml:"i2c_bus,omitempty"`
	I2CAddress   uint16      `json:"i2c_address,omitempty" yaml:"i2c_address,omitempty"`
	Oversample   int         `json:"oversample,omitempty" yaml:"oversample,omitempty"`
	Interval     string      `json:"interval,omitempty" yaml:"interval,omitempty"`
	MaxDuration  string      `json:"max_duration,omitempty" yaml:"max_duration,omitempty"`
	Profile      ProfileData `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// ProfileData describes the square dive profile replayed by the dummy sensor.
// Depths are in metres, rates in metres per minute, times in minutes.
type ProfileData struct {
	BottomDepth  float64 `json:"bottom_depth,omitempty" yaml:"bottom_depth,omitempty"`
	BottomTime   float64 `json:"bottom_time,omitempty" yaml:"bottom_time,omitempty"`
	DescentRate  float64 `json:"descent_rate,omitempty" yaml:"descent_rate,omitempty"`
	AscentRate   float64 `json:"ascent_rate,omitempty" yaml:"ascent_rate,omitempty"`
	WaterTemp    float64 `json:"water_temp,omitempty" yaml:"water_temp,omitempty"`
	TimeCompress float64 `json:"time_compress,omitempty" yaml:"time_compress,omitempty"`
}

// StorageData holds the configuration for various storage backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty" yaml:"timescaledb,omitempty"`
	MQTT        *MQTTData        `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty" yaml:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty" yaml:"rest,omitempty"`
}

// Storage backend configuration structs
type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

type MQTTData struct {
	Broker      string `json:"broker" yaml:"broker"`
	ClientID    string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	TopicPrefix string `json:"topic_prefix,omitempty" yaml:"topic_prefix,omitempty"`
	QoS         byte   `json:"qos,omitempty" yaml:"qos,omitempty"`
}

// Controller configuration structs
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// ApplyDefaults fills in unset values in place.
func (c *ConfigData) ApplyDefaults() {
	if c.Dive.Model == "" {
		c.Dive.Model = "Buhlmann"
	}
	if c.Dive.RateWindow == 0 {
		c.Dive.RateWindow = 10
	}

	for i := range c.Devices {
		d := &c.Devices[i]
		switch d.Role {
		case RoleSensor:
			if d.Oversample == 0 {
				d.Oversample = 1
			}
			if d.I2CAddress == 0 {
				d.I2CAddress = 0x77
			}
		case RoleTimer:
			if d.Interval == "" {
				d.Interval = "1s"
			}
		case RoleDisplay:
			if d.Baud == 0 {
				d.Baud = 9600
			}
		}
	}

	if c.Storage.MQTT != nil && c.Storage.MQTT.TopicPrefix == "" {
		c.Storage.MQTT.TopicPrefix = "haldane"
	}

	for i := range c.Controllers {
		rc := c.Controllers[i].RESTServer
		if rc == nil {
			continue
		}
		if rc.ListenAddr == "" {
			rc.ListenAddr = "0.0.0.0"
		}
		if rc.Port == 0 {
			rc.Port = 8080
		}
	}
}

// Validate checks that exactly one enabled device fills each role, that
// intervals are positive and that max durations are not negative.
func (c *ConfigData) Validate() error {
	for _, role := range []string{RoleSensor, RoleTimer, RoleDisplay} {
		n := 0
		for _, d := range c.Devices {
			if d.Enabled && d.Role == role {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("expected exactly one enabled %s device, found %d", role, n)
		}
	}

	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device with role %q has no name", d.Role)
		}
		if d.Interval != "" {
			interval, err := time.ParseDuration(d.Interval)
			if err != nil {
				return fmt.Errorf("device [%s]: invalid interval %q: %w", d.Name, d.Interval, err)
			}
			if interval <= 0 {
				return fmt.Errorf("device [%s]: interval must be positive, got %q", d.Name, d.Interval)
			}
		}
		if d.MaxDuration != "" {
			maxDuration, err := time.ParseDuration(d.MaxDuration)
			if err != nil {
				return fmt.Errorf("device [%s]: invalid max duration %q: %w", d.Name, d.MaxDuration, err)
			}
			if maxDuration < 0 {
				return fmt.Errorf("device [%s]: max duration must not be negative, got %q", d.Name, d.MaxDuration)
			}
		}
	}
	return nil
}

// DeviceForRole returns the enabled device filling role.
func (c *ConfigData) DeviceForRole(role string) (*DeviceData, error) {
	for i := range c.Devices {
		if c.Devices[i].Enabled && c.Devices[i].Role == role {
			return &c.Devices[i], nil
		}
	}
	return nil, fmt.Errorf("no enabled %s device configured", role)
}

// RESTServer returns the REST controller configuration, or nil when none is configured.
func (c *ConfigData) RESTServer() *RESTServerData {
	for _, con := range c.Controllers {
		if con.Type == "rest" && con.RESTServer != nil {
			return con.RESTServer
		}
	}
	return nil
}

func findDevice(devices []DeviceData, name string) (*DeviceData, error) {
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device [%s] not found in configuration", name)
}
