// Package timescaledb stores dive samples in a TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/haldane/internal/log"
	"github.com/chrissnell/haldane/internal/storage"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
	logger          *zap.SugaredLogger
}

// StartStorageEngine creates a goroutine loop to receive readings and send
// them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Reading {
	t.logger.Info("starting TimescaleDB storage engine...")
	return storage.StartProcessor(ctx, wg, t.StoreReading, "TimescaleDB", t.logger)
}

// StoreReading stores a reading value in TimescaleDB
func (t *Storage) StoreReading(r types.Reading) error {
	if err := t.TimescaleDBConn.Create(&r).Error; err != nil {
		return fmt.Errorf("could not store reading: %w", err)
	}
	return nil
}

// CheckHealth pings the database and runs a trivial query.
func (t *Storage) CheckHealth(ctx context.Context) error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var result int
	if err := t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	return nil
}

// CreateConnection opens a GORM connection with its logger routed through zap.
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	return db, nil
}

// New sets up a new TimescaleDB storage backend and creates its schema.
func New(ctx context.Context, c *config.TimescaleDBData, logger *zap.SugaredLogger) (*Storage, error) {
	var err error
	t := Storage{logger: logger}

	logger.Info("connecting to TimescaleDB...")
	t.TimescaleDBConn, err = CreateConnection(c.ConnectionString)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		desc string
		sql  string
	}{
		{"TimescaleDB extension", createExtensionSQL},
		{"dive_samples table", createTableSQL},
		{"session index", createSessionIndexSQL},
		{"hypertable", createHypertableSQL},
		{"1m view", create1mViewSQL},
		{"1m aggregation policy", addAggregationPolicy1mSQL},
		{"retention policy", addRetentionPolicySQL},
	}
	for _, s := range steps {
		logger.Infof("creating %s...", s.desc)
		if err := t.TimescaleDBConn.WithContext(ctx).Exec(s.sql).Error; err != nil {
			return nil, fmt.Errorf("could not create %s: %w", s.desc, err)
		}
	}

	return &t, nil
}
