package dive

import "gonum.org/v1/gonum/stat"

// rateWindow fits a line through the last n (elapsed, depth) points. The
// slope is the vertical rate in metres per minute, positive when descending.
type rateWindow struct {
	n      int
	times  []float64
	depths []float64
}

func newRateWindow(n int) *rateWindow {
	if n < 2 {
		n = 2
	}
	return &rateWindow{n: n}
}

func (w *rateWindow) add(elapsed, depth float64) {
	w.times = append(w.times, elapsed)
	w.depths = append(w.depths, depth)
	if len(w.times) > w.n {
		w.times = w.times[1:]
		w.depths = w.depths[1:]
	}
}

func (w *rateWindow) rate() float64 {
	if len(w.times) < 2 {
		return 0
	}
	_, beta := stat.LinearRegression(w.times, w.depths, nil, false)
	return beta
}
