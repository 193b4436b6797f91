package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/haldane/internal/storage"
	"github.com/chrissnell/haldane/internal/storage/mqtt"
	"github.com/chrissnell/haldane/internal/storage/sqlite"
	"github.com/chrissnell/haldane/internal/storage/timescaledb"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// HealthChecker is implemented by storage backends that can report whether
// they are reachable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines            []StorageEngine
	ReadingDistributor chan types.Reading
	// Logbook is the SQLite backend when one is configured, for queries.
	Logbook   *sqlite.Storage
	logger    *zap.SugaredLogger
	closeOnce sync.Once
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing readings to the engine
type StorageEngine struct {
	Name   string
	Engine storage.StorageEngineInterface
	C      chan<- types.Reading
}

// NewStorageManager creates a StorageManager object, populated with all configured StorageEngines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c *config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{
		ReadingDistributor: make(chan types.Reading, 20),
		logger:             logger,
	}

	if c.SQLite != nil && c.SQLite.Path != "" {
		logbook, err := sqlite.New(c.SQLite.Path, logger.Named("sqlite"))
		if err != nil {
			return s, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
		s.Logbook = logbook
		s.AddEngine(ctx, wg, "sqlite", logbook)
	}

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		ts, err := timescaledb.New(ctx, c.TimescaleDB, logger.Named("timescaledb"))
		if err != nil {
			return s, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "timescaledb", ts)
	}

	if c.MQTT != nil && c.MQTT.Broker != "" {
		m, err := mqtt.New(c.MQTT, logger.Named("mqtt"))
		if err != nil {
			return s, fmt.Errorf("could not add MQTT storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "mqtt", m)
	}

	// Start our reading distributor to distribute received readings to storage
	// backends
	wg.Add(1)
	go s.startReadingDistributor(ctx, wg)

	return s, nil
}

// GetReadingDistributor returns the reading distributor channel
func (s *StorageManager) GetReadingDistributor() chan types.Reading {
	return s.ReadingDistributor
}

// AddEngine starts engine and adds it to the fan-out list. It must be called
// before the distributor starts.
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, name string, engine storage.StorageEngineInterface) {
	s.Engines = append(s.Engines, StorageEngine{
		Name:   name,
		Engine: engine,
		C:      engine.StartStorageEngine(ctx, wg),
	})
}

// CheckHealth returns the health of every engine that can report it, keyed
// by engine name. A nil value means healthy.
func (s *StorageManager) CheckHealth(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for _, e := range s.Engines {
		if hc, ok := e.Engine.(HealthChecker); ok {
			out[e.Name] = hc.CheckHealth(ctx)
		}
	}
	return out
}

// Close releases the logbook handle. Call it only after every engine and
// controller goroutine has exited.
func (s *StorageManager) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.Logbook != nil {
			err = s.Logbook.Close()
		}
	})
	return err
}

// startReadingDistributor receives readings from the dive loop and fans them
// out to the various storage backends
func (s *StorageManager) startReadingDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	readingCount := 0
	for {
		select {
		case r := <-s.ReadingDistributor:
			readingCount++
			for _, e := range s.Engines {
				select {
				case e.C <- r:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			s.logger.Debugf("reading distributor stopped after %d readings", readingCount)
			return
		}
	}
}
