package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/display"
	"github.com/chrissnell/haldane/internal/dive"
	"github.com/chrissnell/haldane/internal/sensor"
	"github.com/chrissnell/haldane/internal/timer"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// DiveManager builds the dive computer from configuration and runs its
// session loop.
type DiveManager struct {
	computer  *dive.Computer
	display   display.Display
	modelKind deco.Kind
	done      chan error
	logger    *zap.SugaredLogger
}

// NewDiveManager creates the sensor, timer, display and model described by
// the configuration and wires them to distributor.
func NewDiveManager(configProvider config.ConfigProvider, distributor chan<- types.Reading, logger *zap.SugaredLogger) (*DiveManager, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	sensorDev, err := cfgData.DeviceForRole(config.RoleSensor)
	if err != nil {
		return nil, err
	}
	timerDev, err := cfgData.DeviceForRole(config.RoleTimer)
	if err != nil {
		return nil, err
	}
	displayDev, err := cfgData.DeviceForRole(config.RoleDisplay)
	if err != nil {
		return nil, err
	}

	kind, err := deco.ParseKind(cfgData.Dive.Model)
	if err != nil {
		return nil, err
	}
	model, err := deco.New(kind, logger.Named("deco"))
	if err != nil {
		return nil, err
	}

	var fallback sensor.Source
	if cfgData.Dive.FallbackToDummy {
		fallback = sensor.NewDummy(sensorDev.Profile, logger.Named("dummy"))
	}

	logger.Infof("Initializing %s sensor [%s]", sensorDev.Type, sensorDev.Name)
	src, err := sensor.New(*sensorDev, logger.Named("sensor"))
	if err != nil {
		if fallback == nil {
			return nil, fmt.Errorf("error creating sensor [%s]: %w", sensorDev.Name, err)
		}
		logger.Errorf("sensor [%s] unavailable, starting on dummy profile: %v", sensorDev.Name, err)
		src, fallback = fallback, nil
	}

	tmr, err := timer.New(*timerDev)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("error creating timer [%s]: %w", timerDev.Name, err)
	}

	logger.Infof("Initializing %s display [%s]", displayDev.Type, displayDev.Name)
	disp, err := display.New(*displayDev, logger.Named("display"))
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("error creating display [%s]: %w", displayDev.Name, err)
	}

	computer := dive.NewComputer(src, tmr, disp, model, dive.Options{
		SensorName: sensorDev.Name,
		RateWindow: cfgData.Dive.RateWindow,
		Fallback:   fallback,
		Readings:   distributor,
	}, logger.Named("dive"))

	return &DiveManager{
		computer:  computer,
		display:   disp,
		modelKind: kind,
		done:      make(chan error, 1),
		logger:    logger,
	}, nil
}

// Start runs the session loop on its own goroutine. The loop's result is
// delivered on Done.
func (d *DiveManager) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := d.computer.Run(ctx)
		if cerr := d.display.Close(); cerr != nil {
			d.logger.Warnf("closing display: %v", cerr)
		}
		d.done <- err
	}()
}

// Done receives the session result once the loop has stopped.
func (d *DiveManager) Done() <-chan error {
	return d.done
}

// Status returns the live status of the session.
func (d *DiveManager) Status() *dive.Status {
	return d.computer.Status()
}

// SessionID returns the ID readings of this session are stored under.
func (d *DiveManager) SessionID() string {
	return d.computer.SessionID()
}

// ModelKind returns the configured decompression model.
func (d *DiveManager) ModelKind() deco.Kind {
	return d.modelKind
}
