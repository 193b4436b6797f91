// Package timer paces the dive loop's sampling.
package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/haldane/pkg/config"
)

// ErrUnsupportedVariant is returned for timer types this build does not know.
var ErrUnsupportedVariant = errors.New("unsupported timer type")

// Timer blocks between samples and reports elapsed session time.
type Timer interface {
	// Start marks the beginning of the session.
	Start()
	// Wait blocks until the next sample boundary. It returns false when the
	// session should end.
	Wait(ctx context.Context) bool
	// Elapsed returns minutes since Start.
	Elapsed() float64
	Stop()
}

// Kind selects a Timer implementation.
type Kind uint8

const (
	KindSleep Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindSleep:
		return "Sleep"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configured type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "sleep", "ticker":
		return KindSleep, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// New builds the timer described by dev.
func New(dev config.DeviceData) (Timer, error) {
	kind, err := ParseKind(dev.Type)
	if err != nil {
		return nil, fmt.Errorf("timer [%s]: %w", dev.Name, err)
	}

	interval := time.Second
	if dev.Interval != "" {
		if interval, err = time.ParseDuration(dev.Interval); err != nil {
			return nil, fmt.Errorf("timer [%s]: invalid interval: %w", dev.Name, err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("timer [%s]: interval must be positive, got %s", dev.Name, interval)
		}
	}
	var maxDuration time.Duration
	if dev.MaxDuration != "" {
		if maxDuration, err = time.ParseDuration(dev.MaxDuration); err != nil {
			return nil, fmt.Errorf("timer [%s]: invalid max duration: %w", dev.Name, err)
		}
		if maxDuration < 0 {
			return nil, fmt.Errorf("timer [%s]: max duration must not be negative, got %s", dev.Name, maxDuration)
		}
	}

	switch kind {
	case KindSleep:
		return NewSleep(interval, maxDuration), nil
	}
	return nil, fmt.Errorf("timer [%s]: %w: %v", dev.Name, ErrUnsupportedVariant, kind)
}

// Sleep ticks at a fixed interval using a time.Ticker.
type Sleep struct {
	interval    time.Duration
	maxDuration time.Duration
	now         func() time.Time
	start       time.Time
	ticker      *time.Ticker
}

// NewSleep creates a ticker-driven timer. The interval must be positive. A
// zero maxDuration runs until the context is cancelled.
func NewSleep(interval, maxDuration time.Duration) *Sleep {
	return &Sleep{
		interval:    interval,
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

func (s *Sleep) Start() {
	s.start = s.now()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker = time.NewTicker(s.interval)
}

func (s *Sleep) Wait(ctx context.Context) bool {
	if s.ticker == nil {
		s.Start()
	}

	select {
	case <-ctx.Done():
		return false
	case <-s.ticker.C:
	}

	if s.maxDuration > 0 && s.now().Sub(s.start) >= s.maxDuration {
		return false
	}
	return true
}

func (s *Sleep) Elapsed() float64 {
	return s.now().Sub(s.start).Minutes()
}

func (s *Sleep) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}
