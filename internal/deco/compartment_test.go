package deco

import (
	"errors"
	"math"
	"testing"
)

func TestCompartmentResetCeiling(t *testing.T) {
	for _, row := range zhl16 {
		for _, pamb := range []float64{AtmosphericPressure, 2.0, 3.5, 5.2} {
			c := NewCompartment(row[0], row[1], row[2])
			c.Reset(pamb, 0)

			want := ((AlveolarPressure(pamb)-row[1])*row[2] - AtmosphericPressure) * MetresPerBar
			got := c.AscentCeiling(0)
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("half-time %g at %.3f bar: expected ceiling %.6f, got %.6f", row[0], pamb, want, got)
			}
		}
	}
}

func TestCompartmentDecayConstant(t *testing.T) {
	c := NewCompartment(4, 1.2599, 0.5050)
	if math.Abs(c.DecayConstant()-math.Ln2/4) > 1e-15 {
		t.Errorf("expected k=%v, got %v", math.Ln2/4, c.DecayConstant())
	}
}

func TestCompartmentUpdateAdditivity(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		end   float64
	}{
		{name: "surface", start: AtmosphericPressure, end: AtmosphericPressure},
		{name: "25 m after descent", start: AtmosphericPressure, end: 3.5},
		{name: "20 m", start: 3.0, end: 3.0},
		{name: "ascent to 10 m", start: 5.0, end: 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, row := range zhl16 {
				once := NewCompartment(row[0], row[1], row[2])
				twice := NewCompartment(row[0], row[1], row[2])
				once.Reset(tt.start, 0)
				twice.Reset(tt.start, 0)

				// reach the segment depth, then hold it for 10 minutes
				for _, c := range []*Compartment{&once, &twice} {
					if err := c.Update(tt.end, 1); err != nil {
						t.Fatal(err)
					}
				}
				if err := once.Update(tt.end, 11); err != nil {
					t.Fatal(err)
				}
				if err := twice.Update(tt.end, 6); err != nil {
					t.Fatal(err)
				}
				if err := twice.Update(tt.end, 11); err != nil {
					t.Fatal(err)
				}

				if math.Abs(once.Loading()-twice.Loading()) > 1e-6 {
					t.Errorf("half-time %g: single step %.9f, two steps %.9f", row[0], once.Loading(), twice.Loading())
				}
			}
		})
	}
}

func TestCompartmentUpdateUsesCurrentAmbient(t *testing.T) {
	c := NewCompartment(4, 1.2599, 0.5050)
	c.Reset(AtmosphericPressure, 0)
	if err := c.Update(3.5, 10); err != nil {
		t.Fatal(err)
	}

	k := math.Ln2 / 4
	pio := AlveolarPressure(3.5)
	r := (3.5 - AtmosphericPressure) * InspiredN2Fraction / 10
	po := AlveolarPressure(AtmosphericPressure)
	want := pio + r*(10-1/k) - (pio-po-r/k)*math.Exp(-k*10)
	if math.Abs(c.Loading()-want) > 1e-12 {
		t.Errorf("expected loading %.9f, got %.9f", want, c.Loading())
	}
}

func TestCompartmentConstantPressureStaysSaturated(t *testing.T) {
	c := NewCompartment(27, 0.6667, 0.8125)
	c.Reset(2.5, 0)
	if err := c.Update(2.5, 30); err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.Loading()-AlveolarPressure(2.5)) > 1e-12 {
		t.Errorf("expected loading to stay at %.6f, got %.6f", AlveolarPressure(2.5), c.Loading())
	}
}

func TestCompartmentApproachesSaturation(t *testing.T) {
	c := NewCompartment(4, 1.2599, 0.5050)
	c.Reset(AtmosphericPressure, 0)
	if err := c.Update(4.0, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Update(4.0, 200); err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.Loading()-AlveolarPressure(4.0)) > 1e-6 {
		t.Errorf("expected saturation at %.6f, got %.6f", AlveolarPressure(4.0), c.Loading())
	}
}

func TestCompartmentRejectsNonIncreasingTime(t *testing.T) {
	for _, now := range []float64{5, 4} {
		c := NewCompartment(8, 1.0, 0.6514)
		c.Reset(AtmosphericPressure, 5)
		before := c

		err := c.Update(3.0, now)
		if !errors.Is(err, ErrNonIncreasingTime) {
			t.Fatalf("t=%g: expected ErrNonIncreasingTime, got %v", now, err)
		}
		if c != before {
			t.Errorf("t=%g: compartment mutated by rejected update", now)
		}
	}
}

func TestAscentCeilingIsPure(t *testing.T) {
	c := NewCompartment(12.5, 0.8618, 0.7222)
	c.Reset(AtmosphericPressure, 0)
	if err := c.Update(4.0, 2); err != nil {
		t.Fatal(err)
	}
	before := c
	for i := 0; i < 50; i++ {
		c.AscentCeiling(float64(i))
	}
	if c != before {
		t.Error("AscentCeiling mutated compartment state")
	}
}

func TestPressureToDepth(t *testing.T) {
	if d := PressureToDepth(AtmosphericPressure); d != 0 {
		t.Errorf("expected surface depth 0, got %v", d)
	}
	if d := PressureToDepth(3.013); math.Abs(d-20) > 1e-9 {
		t.Errorf("expected 20 m, got %v", d)
	}
}
