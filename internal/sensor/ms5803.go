package sensor

// The MS5803-14BA conversion follows the first-order compensation in the
// Measurement Specialties datasheet (DA5803-14BA).

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultMS5803Address is the I²C address with CSB pulled low.
	DefaultMS5803Address = 0x77

	cmdReset     = 0x1E
	cmdConvertD1 = 0x48 // pressure, OSR 4096
	cmdConvertD2 = 0x58 // temperature, OSR 4096
	cmdADCRead   = 0x00
	cmdPROMRead  = 0xA0

	conversionTime = 10 * time.Millisecond
)

// MS5803 is a driver for the MS5803-14BA pressure sensor.
type MS5803 struct {
	mu     sync.Mutex
	dev    i2c.Dev
	prom   [7]uint16
	sleep  func(time.Duration)
	logger *zap.SugaredLogger
}

// NewMS5803 resets the sensor on bus and loads its calibration PROM.
func NewMS5803(bus i2c.Bus, addr uint16, logger *zap.SugaredLogger) (*MS5803, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if addr == 0 {
		addr = DefaultMS5803Address
	}

	m := &MS5803{
		dev:    i2c.Dev{Bus: bus, Addr: addr},
		sleep:  time.Sleep,
		logger: logger,
	}

	if err := m.Reset(); err != nil {
		return nil, err
	}
	for i := 1; i <= 6; i++ {
		c, err := m.readPROM(i)
		if err != nil {
			return nil, err
		}
		m.prom[i] = c
	}
	return m, nil
}

// Reset issues the reset sequence, which reloads the PROM into the sensor's
// internal register.
func (m *MS5803) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dev.Tx([]byte{cmdReset}, nil); err != nil {
		return fmt.Errorf("ms5803: reset: %w", err)
	}
	m.sleep(conversionTime)
	return nil
}

func (m *MS5803) readPROM(i int) (uint16, error) {
	cmd := byte(cmdPROMRead + i<<1)
	var b [2]byte
	if err := m.dev.Tx([]byte{cmd}, b[:]); err != nil {
		return 0, fmt.Errorf("ms5803: read PROM C%d: %w", i, err)
	}
	c := uint16(b[0])<<8 | uint16(b[1])
	m.logger.Debugf("CMD(%#04x) -> C%d = %d", cmd, i, c)
	return c, nil
}

// readADC starts a conversion and reads the 24 bit result.
func (m *MS5803) readADC(convert byte) (uint32, error) {
	if err := m.dev.Tx([]byte{convert}, nil); err != nil {
		return 0, fmt.Errorf("ms5803: start conversion %#04x: %w", convert, err)
	}
	m.sleep(conversionTime)

	var b [3]byte
	if err := m.dev.Tx([]byte{cmdADCRead}, b[:]); err != nil {
		return 0, fmt.Errorf("ms5803: read ADC: %w", err)
	}
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	m.logger.Debugf("CMD(%#04x) -> D = %d", convert, v)
	return v, nil
}

// Sense reads pressure and temperature into e.
func (m *MS5803) Sense(e *physic.Env) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d1, err := m.readADC(cmdConvertD1)
	if err != nil {
		return err
	}
	d2, err := m.readADC(cmdConvertD2)
	if err != nil {
		return err
	}

	temp, pres := compensate(m.prom, d1, d2)
	// temp is in 0.01 °C, pres in 0.1 mbar
	e.Temperature = physic.Temperature(temp)*10*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(pres) * 10 * physic.Pascal
	return nil
}

func compensate(c [7]uint16, d1, d2 uint32) (temp, pres int64) {
	dT := int64(d2) - int64(c[5])*256
	temp = 2000 + dT*int64(c[6])/8388608
	off := int64(c[2])*65536 + int64(c[4])*dT/128
	sens := int64(c[1])*32768 + int64(c[3])*dT/256
	pres = (int64(d1)*sens/2097152 - off) / 32768
	return temp, pres
}

// ms5803Source adapts the driver to Source and owns the bus.
type ms5803Source struct {
	*MS5803
	bus i2c.BusCloser
}

// OpenMS5803 initializes the host drivers, opens the named I²C bus ("" for
// the first available) and attaches an MS5803.
func OpenMS5803(busName string, addr uint16, logger *zap.SugaredLogger) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ms5803: host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("ms5803: open I²C bus %q: %w", busName, err)
	}

	dev, err := NewMS5803(bus, addr, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}
	dev.logger.Infof("MS5803 attached on I²C bus %q at %#02x", busName, dev.dev.Addr)
	return &ms5803Source{MS5803: dev, bus: bus}, nil
}

func (s *ms5803Source) Pressure() (float64, error) {
	var e physic.Env
	if err := s.Sense(&e); err != nil {
		return 0, err
	}
	return PressureToBar(e.Pressure), nil
}

func (s *ms5803Source) Temperature() (float64, error) {
	var e physic.Env
	if err := s.Sense(&e); err != nil {
		return 0, err
	}
	return TemperatureToCelsius(e.Temperature), nil
}

func (s *ms5803Source) Close() error {
	return s.bus.Close()
}

// PressureToBar converts a periph pressure to bar.
func PressureToBar(p physic.Pressure) float64 {
	return float64(p) / float64(100*physic.KiloPascal)
}

// TemperatureToCelsius converts a periph temperature to degrees Celsius.
func TemperatureToCelsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}
