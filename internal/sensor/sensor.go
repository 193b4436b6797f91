// Package sensor provides the ambient pressure and temperature sources that
// feed the dive loop.
package sensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// ErrUnsupportedVariant is returned for sensor types this build does not know.
var ErrUnsupportedVariant = errors.New("unsupported sensor type")

// Source reads ambient conditions. Pressure is absolute, in bar; temperature
// is in degrees Celsius. Hardware errors are returned to the caller as-is.
type Source interface {
	Pressure() (float64, error)
	Temperature() (float64, error)
	Reset() error
	Close() error
}

// Kind selects a Source implementation.
type Kind uint8

const (
	KindMS5803 Kind = iota + 1
	KindDummy
)

func (k Kind) String() string {
	switch k {
	case KindMS5803:
		return "MS5803-14B"
	case KindDummy:
		return "Dummy"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configured type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "ms5803-14b", "ms5803-14ba", "ms5803":
		return KindMS5803, nil
	case "dummy":
		return KindDummy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// New opens the source described by dev. Sources configured with an
// oversample count above one are wrapped in an averaging reader.
func New(dev config.DeviceData, logger *zap.SugaredLogger) (Source, error) {
	kind, err := ParseKind(dev.Type)
	if err != nil {
		return nil, fmt.Errorf("sensor [%s]: %w", dev.Name, err)
	}

	var src Source
	switch kind {
	case KindMS5803:
		src, err = OpenMS5803(dev.I2CBus, dev.I2CAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("sensor [%s]: %w", dev.Name, err)
		}
	case KindDummy:
		src = NewDummy(dev.Profile, logger)
	}

	if dev.Oversample > 1 {
		src = NewAveraging(src, dev.Oversample)
	}
	return src, nil
}
