package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

// lcdWidth is the column count of the 20x4 character LCD.
const lcdWidth = 20

// Serial writes frames as plain text lines to a serial character LCD.
type Serial struct {
	mu     sync.Mutex
	rwc    io.ReadWriteCloser
	logger *zap.SugaredLogger
}

// OpenSerial opens device at baud.
func OpenSerial(device string, baud int, logger *zap.SugaredLogger) (*Serial, error) {
	if device == "" {
		return nil, fmt.Errorf("serial display requires a serial device")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	sc := &serial.Config{Name: device, Baud: baud}
	logger.Debugf("attempting to open serial port %s at %d baud", device, baud)
	rwc, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return NewSerial(rwc, logger), nil
}

// NewSerial wraps an already open port.
func NewSerial(rwc io.ReadWriteCloser, logger *zap.SugaredLogger) *Serial {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Serial{rwc: rwc, logger: logger}
}

func (s *Serial) Render(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, line := range f.Lines() {
		if len(line) > lcdWidth {
			line = line[:lcdWidth]
		}
		b.WriteString(fmt.Sprintf("%-*s\r\n", lcdWidth, line))
	}

	if _, err := io.WriteString(s.rwc, b.String()); err != nil {
		return fmt.Errorf("writing to serial display: %w", err)
	}
	return nil
}

func (s *Serial) Close() error {
	return s.rwc.Close()
}
