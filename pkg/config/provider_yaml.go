package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{}
	if err := yaml.UnmarshalStrict(cfgFile, config); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", y.filename, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func (y *YAMLProvider) loaded() (*ConfigData, error) {
	if y.config == nil {
		return y.LoadConfig()
	}
	return y.config, nil
}

// GetDevices returns device configurations
func (y *YAMLProvider) GetDevices() ([]DeviceData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return cfg.Devices, nil
}

// GetDevice returns a single device by name
func (y *YAMLProvider) GetDevice(name string) (*DeviceData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return findDevice(cfg.Devices, name)
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.Storage, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return cfg.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
