package sensor

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Averaging oversamples an underlying source and reports the mean, which
// smooths ADC noise on the pressure channel.
type Averaging struct {
	Source
	n int
}

// NewAveraging wraps src so that each Pressure call averages n readings.
func NewAveraging(src Source, n int) *Averaging {
	if n < 1 {
		n = 1
	}
	return &Averaging{Source: src, n: n}
}

func (a *Averaging) Pressure() (float64, error) {
	readings := make([]float64, a.n)
	for i := range readings {
		p, err := a.Source.Pressure()
		if err != nil {
			return 0, fmt.Errorf("oversample %d/%d: %w", i+1, a.n, err)
		}
		readings[i] = p
	}
	return stat.Mean(readings, nil), nil
}
