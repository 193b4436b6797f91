package deco

import (
	"fmt"
	"math"
)

const (
	// WaterVaporPressure is the alveolar water vapour pressure in bar.
	WaterVaporPressure = 0.0567
	// InspiredN2Fraction is the nitrogen fraction of breathing air.
	InspiredN2Fraction = 0.79
	// AtmosphericPressure is the surface pressure in bar.
	AtmosphericPressure = 1.013
	// MetresPerBar converts a pressure difference to seawater depth.
	MetresPerBar = 10.0
)

// Compartment tracks the inert gas loading of a single tissue half-time.
type Compartment struct {
	HalfTime float64 // minutes
	A        float64 // Bühlmann a coefficient (bar)
	B        float64 // Bühlmann b coefficient

	k           float64
	pressure    float64 // inert gas loading, bar
	lastAmbient float64
	lastTime    float64
}

// NewCompartment builds a compartment for the given half-time and Bühlmann
// coefficients. The half-time must be positive.
func NewCompartment(halfTime, a, b float64) Compartment {
	return Compartment{
		HalfTime: halfTime,
		A:        a,
		B:        b,
		k:        math.Ln2 / halfTime,
	}
}

// AlveolarPressure returns the inspired inert gas pressure for an ambient pressure.
func AlveolarPressure(pamb float64) float64 {
	return (pamb - WaterVaporPressure) * InspiredN2Fraction
}

// PressureToDepth converts an absolute pressure to depth below the surface.
func PressureToDepth(p float64) float64 {
	return (p - AtmosphericPressure) * MetresPerBar
}

// schreiner solves gas loading after t minutes starting from po, with
// inspired pressure pio and inspired pressure rate r.
func schreiner(pio, r, t, k, po float64) float64 {
	return pio + r*(t-1/k) - (pio-po-r/k)*math.Exp(-k*t)
}

// Reset saturates the compartment at pamb and sets its clock to now.
func (c *Compartment) Reset(pamb, now float64) {
	c.pressure = AlveolarPressure(pamb)
	c.lastAmbient = pamb
	c.lastTime = now
}

// Update advances the loading to now, assuming ambient pressure changed
// linearly from the previous sample to pamb. The inspired pressure term is
// taken at pamb, so only constant-pressure updates split exactly.
func (c *Compartment) Update(pamb, now float64) error {
	dt := now - c.lastTime
	if dt <= 0 {
		return fmt.Errorf("compartment %g min: %w (previous %g, current %g)", c.HalfTime, ErrNonIncreasingTime, c.lastTime, now)
	}

	r := (pamb - c.lastAmbient) * InspiredN2Fraction / dt
	c.pressure = schreiner(AlveolarPressure(pamb), r, dt, c.k, c.pressure)
	c.lastAmbient = pamb
	c.lastTime = now
	return nil
}

// AscentCeiling returns the ceiling depth after staying projected minutes at
// the last ambient pressure. Zero or negative means no ceiling.
func (c *Compartment) AscentCeiling(projected float64) float64 {
	p := schreiner(AlveolarPressure(c.lastAmbient), 0, projected, c.k, c.pressure)
	return ceilingDepth(p, c.A, c.B)
}

// ceilingDepth applies the Bühlmann tolerated ambient pressure (p - a) * b.
func ceilingDepth(loading, a, b float64) float64 {
	return PressureToDepth((loading - a) * b)
}

// Loading returns the current inert gas pressure in bar.
func (c *Compartment) Loading() float64 {
	return c.pressure
}

// DecayConstant returns ln(2) / half-time.
func (c *Compartment) DecayConstant() float64 {
	return c.k
}
