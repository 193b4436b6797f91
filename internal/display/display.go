// Package display renders the dive state to the diver.
package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// ErrUnsupportedVariant is returned for display types this build does not know.
var ErrUnsupportedVariant = errors.New("unsupported display type")

// Frame is one screenful of dive information.
type Frame struct {
	NDL         int
	Elapsed     float64 // minutes
	Depth       float64 // metres
	Temperature float64 // °C
	Ceiling     float64 // metres, <= 0 when there is none
}

// NDLText renders the NDL, with the unlimited sentinel shown as "N/A".
func (f Frame) NDLText() string {
	if deco.Unlimited(f.NDL) {
		return "N/A"
	}
	return strconv.Itoa(f.NDL)
}

// Lines returns the frame as short text lines suitable for a character LCD.
func (f Frame) Lines() []string {
	lines := []string{
		fmt.Sprintf("Time:  %d min", int(f.Elapsed)),
		fmt.Sprintf("Depth: %.1f m", f.Depth),
		fmt.Sprintf("NDL:   %s min", f.NDLText()),
		fmt.Sprintf("Temp:  %.1f C", f.Temperature),
	}
	if f.Ceiling > 0 {
		lines = append(lines, fmt.Sprintf("Ceil:  %.1f m", f.Ceiling))
	}
	return lines
}

func (f Frame) String() string {
	return strings.Join(f.Lines(), "\n")
}

// Display shows frames. Callers treat Render as fire-and-forget and only log
// a returned error.
type Display interface {
	Render(f Frame) error
	Close() error
}

// Kind selects a Display implementation.
type Kind uint8

const (
	KindStdio Kind = iota + 1
	KindSerial
	KindDummy
)

func (k Kind) String() string {
	switch k {
	case KindStdio:
		return "Stdio"
	case KindSerial:
		return "Serial"
	case KindDummy:
		return "Dummy"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configured type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "stdio":
		return KindStdio, nil
	case "serial":
		return KindSerial, nil
	case "dummy":
		return KindDummy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// New opens the display described by dev.
func New(dev config.DeviceData, logger *zap.SugaredLogger) (Display, error) {
	kind, err := ParseKind(dev.Type)
	if err != nil {
		return nil, fmt.Errorf("display [%s]: %w", dev.Name, err)
	}

	switch kind {
	case KindStdio:
		return NewStdio(nil), nil
	case KindSerial:
		d, err := OpenSerial(dev.SerialDevice, dev.Baud, logger)
		if err != nil {
			return nil, fmt.Errorf("display [%s]: %w", dev.Name, err)
		}
		return d, nil
	case KindDummy:
		return NewDummy(logger), nil
	}
	return nil, fmt.Errorf("display [%s]: %w: %v", dev.Name, ErrUnsupportedVariant, kind)
}
