package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/haldane/internal/app"
	"github.com/chrissnell/haldane/internal/constants"
	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/log"
	"github.com/chrissnell/haldane/internal/sensor"
	"github.com/chrissnell/haldane/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	logFile := flag.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	probe := flag.Bool("probe", false, "Read one sample from the configured sensor and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("haldane %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.InitWithFile(*debug, log.FileConfig{Path: *logFile}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	if *probe {
		if err := probeSensor(provider); err != nil {
			log.Errorf("Sensor probe failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Create and run the application
	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}

	if _, err := provider.LoadConfig(); err != nil {
		provider.Close()
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return provider, nil
}

// probeSensor resets the configured sensor and logs a single reading.
func probeSensor(provider config.ConfigProvider) error {
	cfgData, err := provider.LoadConfig()
	if err != nil {
		return err
	}
	dev, err := cfgData.DeviceForRole(config.RoleSensor)
	if err != nil {
		return err
	}

	src, err := sensor.New(*dev, log.Named("sensor"))
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	p, err := src.Pressure()
	if err != nil {
		return fmt.Errorf("pressure: %w", err)
	}
	temp, err := src.Temperature()
	if err != nil {
		return fmt.Errorf("temperature: %w", err)
	}

	log.Infow("sensor probe",
		"sensor", dev.Name,
		"type", dev.Type,
		"pressure_bar", p,
		"depth_m", deco.PressureToDepth(p),
		"temperature_c", temp,
	)
	return nil
}
