// Package dive runs the sampling loop of a dive session: it reads the
// pressure sensor on every timer tick, feeds the decompression model, renders
// the result and publishes a reading to the storage backends.
package dive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/display"
	"github.com/chrissnell/haldane/internal/sensor"
	"github.com/chrissnell/haldane/internal/timer"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSensor wraps every sensor failure that ends a session.
var ErrSensor = errors.New("sensor failure")

// Options carries the optional parts of a Computer.
type Options struct {
	// SensorName is recorded on every reading.
	SensorName string
	// RateWindow is the number of samples used for the vertical rate fit.
	RateWindow int
	// Fallback replaces the sensor after its first failure. Nil aborts the
	// session on sensor errors instead.
	Fallback sensor.Source
	// Readings receives every processed sample. May be nil.
	Readings chan<- types.Reading
	// Status receives the latest sample. A fresh holder is created when nil.
	Status *Status
}

// Computer is a single dive session.
type Computer struct {
	source     sensor.Source
	sensorName string
	fallback   sensor.Source
	timer      timer.Timer
	display    display.Display
	model      deco.Model
	readings   chan<- types.Reading
	status     *Status
	rate       *rateWindow
	sessionID  string
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// NewComputer assembles a session from its collaborators.
func NewComputer(src sensor.Source, t timer.Timer, disp display.Display, model deco.Model, opts Options, logger *zap.SugaredLogger) *Computer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Status == nil {
		opts.Status = NewStatus()
	}
	if opts.SensorName == "" {
		opts.SensorName = "sensor"
	}

	return &Computer{
		source:     src,
		sensorName: opts.SensorName,
		fallback:   opts.Fallback,
		timer:      t,
		display:    disp,
		model:      model,
		readings:   opts.Readings,
		status:     opts.Status,
		rate:       newRateWindow(opts.RateWindow),
		sessionID:  uuid.NewString(),
		now:        time.Now,
		logger:     logger,
	}
}

// SessionID identifies this session in stored readings.
func (c *Computer) SessionID() string {
	return c.sessionID
}

// Status returns the live status holder.
func (c *Computer) Status() *Status {
	return c.status
}

// Run samples until the timer stops or ctx is cancelled. A nil return means
// the session ended normally.
func (c *Computer) Run(ctx context.Context) error {
	c.logger.Infof("starting dive session %s with sensor [%s]", c.sessionID, c.sensorName)

	if err := c.source.Reset(); err != nil {
		if err = c.degrade(err); err != nil {
			return err
		}
	}

	p, temp, err := c.sample()
	if err != nil {
		return err
	}

	c.model.Reset(p, 0)
	c.timer.Start()
	defer c.timer.Stop()

	c.status.setRunning(true)
	defer c.status.setRunning(false)

	if err := c.process(ctx, p, temp, 0); err != nil {
		return err
	}

	last := 0.0
	for c.timer.Wait(ctx) {
		elapsed := c.timer.Elapsed()
		if elapsed <= last {
			c.logger.Debugf("skipping sample: elapsed %.4f min has not advanced past %.4f", elapsed, last)
			continue
		}

		p, temp, err := c.sample()
		if err != nil {
			return err
		}

		if err := c.model.Update(p, elapsed); err != nil {
			return fmt.Errorf("updating model at %.2f min: %w", elapsed, err)
		}
		last = elapsed

		if err := c.process(ctx, p, temp, elapsed); err != nil {
			return err
		}
	}

	c.logger.Infof("dive session %s ended after %.1f min", c.sessionID, last)
	return nil
}

// sample reads the sensor, switching to the fallback source once if the
// primary fails.
func (c *Computer) sample() (p, temp float64, err error) {
	p, temp, err = c.read()
	if err == nil {
		return p, temp, nil
	}
	if err = c.degrade(err); err != nil {
		return 0, 0, err
	}
	return c.read()
}

func (c *Computer) read() (float64, float64, error) {
	p, err := c.source.Pressure()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reading pressure from [%s]: %v", ErrSensor, c.sensorName, err)
	}
	temp, err := c.source.Temperature()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reading temperature from [%s]: %v", ErrSensor, c.sensorName, err)
	}
	return p, temp, nil
}

func (c *Computer) degrade(cause error) error {
	if c.fallback == nil {
		if errors.Is(cause, ErrSensor) {
			return cause
		}
		return fmt.Errorf("%w: [%s]: %v", ErrSensor, c.sensorName, cause)
	}

	c.logger.Errorf("sensor [%s] failed, continuing on dummy profile: %v", c.sensorName, cause)
	if err := c.source.Close(); err != nil {
		c.logger.Warnf("closing failed sensor [%s]: %v", c.sensorName, err)
	}

	c.source = c.fallback
	c.fallback = nil
	c.sensorName = c.sensorName + "-dummy"
	if err := c.source.Reset(); err != nil {
		return fmt.Errorf("%w: resetting fallback source: %v", ErrSensor, err)
	}
	return nil
}

// process turns one accepted sample into a frame and a published reading.
func (c *Computer) process(ctx context.Context, p, temp, elapsed float64) error {
	depth := math.Max(0, deco.PressureToDepth(p))

	ndl, err := c.model.NDL()
	if err != nil {
		return fmt.Errorf("computing NDL: %w", err)
	}
	ceiling := c.model.Ceiling()

	c.rate.add(elapsed, depth)

	frame := display.Frame{
		NDL:         ndl,
		Elapsed:     elapsed,
		Depth:       depth,
		Temperature: temp,
		Ceiling:     ceiling,
	}
	if err := c.display.Render(frame); err != nil {
		c.logger.Warnf("display render failed: %v", err)
	}

	r := types.Reading{
		Timestamp:    c.now(),
		SessionID:    c.sessionID,
		SensorName:   c.sensorName,
		Elapsed:      elapsed,
		Pressure:     p,
		Depth:        depth,
		Temperature:  temp,
		NDL:          ndl,
		Unlimited:    deco.Unlimited(ndl),
		Ceiling:      ceiling,
		VerticalRate: c.rate.rate(),
	}
	c.status.update(r, c.model.Tissues())

	c.logger.Debugw("sample",
		"elapsed", elapsed,
		"depth", depth,
		"ndl", r.NDLString(),
		"ceiling", ceiling,
		"rate", r.VerticalRate,
	)

	if c.readings == nil {
		return nil
	}
	select {
	case c.readings <- r:
	case <-ctx.Done():
	}
	return nil
}
