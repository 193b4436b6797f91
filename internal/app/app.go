// Package app wires configuration, the dive loop, storage and controllers
// into one running process.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/haldane/internal/controllers/restserver"
	"github.com/chrissnell/haldane/internal/managers"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until the dive session ends or a
// shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, &cfgData.Storage, a.logger.Named("storage"))
	// The logbook outlives every worker that writes to or reads from it.
	defer func() {
		cancel()
		wg.Wait()
		if err := storageManager.Close(); err != nil {
			a.logger.Errorf("error closing storage: %v", err)
		}
	}()
	if err != nil {
		return err
	}

	// Initialize the dive computer
	dm, err := managers.NewDiveManager(a.configProvider, storageManager.GetReadingDistributor(), a.logger)
	if err != nil {
		return err
	}

	deps := restserver.Deps{
		Status:    dm.Status(),
		Storage:   storageManager,
		ModelKind: dm.ModelKind(),
	}
	if storageManager.Logbook != nil {
		deps.Logbook = storageManager.Logbook
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfgData.Controllers, deps, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	dm.Start(ctx, &wg)
	a.logger.Infof("Dive session %s started", dm.SessionID())

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var runErr error
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	case runErr = <-dm.Done():
		if runErr != nil {
			a.logger.Errorf("dive session failed: %v", runErr)
		} else {
			a.logger.Info("dive session ended")
		}
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	if err := storageManager.Close(); err != nil {
		a.logger.Errorf("error closing storage: %v", err)
	}
	a.logger.Info("shutdown complete")

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
