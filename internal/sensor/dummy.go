package sensor

import (
	"math"
	"sync"
	"time"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/pkg/config"
	"go.uber.org/zap"
)

// Dummy replays a square dive profile against the wall clock: descend at a
// fixed rate, hold the bottom depth, then ascend to the surface.
type Dummy struct {
	mu      sync.Mutex
	profile config.ProfileData
	now     func() time.Time
	start   time.Time
	logger  *zap.SugaredLogger
}

// NewDummy creates a dummy source. Zero profile fields take defaults of an
// 18 m, 30 minute dive at 20 °C.
func NewDummy(profile config.ProfileData, logger *zap.SugaredLogger) *Dummy {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if profile.BottomDepth == 0 {
		profile.BottomDepth = 18
	}
	if profile.BottomTime == 0 {
		profile.BottomTime = 30
	}
	if profile.DescentRate == 0 {
		profile.DescentRate = 18
	}
	if profile.AscentRate == 0 {
		profile.AscentRate = 9
	}
	if profile.WaterTemp == 0 {
		profile.WaterTemp = 20
	}
	if profile.TimeCompress == 0 {
		profile.TimeCompress = 1
	}

	d := &Dummy{
		profile: profile,
		now:     time.Now,
		logger:  logger,
	}
	d.start = d.now()
	return d
}

// DepthAt returns the profile depth in metres after elapsed minutes.
func (d *Dummy) DepthAt(elapsed float64) float64 {
	p := d.profile
	descent := p.BottomDepth / p.DescentRate
	switch {
	case elapsed <= 0:
		return 0
	case elapsed < descent:
		return p.DescentRate * elapsed
	case elapsed < descent+p.BottomTime:
		return p.BottomDepth
	default:
		return math.Max(0, p.BottomDepth-p.AscentRate*(elapsed-descent-p.BottomTime))
	}
}

func (d *Dummy) elapsed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now().Sub(d.start).Minutes() * d.profile.TimeCompress
}

// Pressure returns the absolute pressure at the current profile depth.
func (d *Dummy) Pressure() (float64, error) {
	depth := d.DepthAt(d.elapsed())
	return deco.AtmosphericPressure + depth/deco.MetresPerBar, nil
}

// Temperature returns the configured water temperature.
func (d *Dummy) Temperature() (float64, error) {
	return d.profile.WaterTemp, nil
}

// Reset restarts the profile at the surface.
func (d *Dummy) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.start = d.now()
	d.logger.Debugf("dummy profile restarted: %.1f m for %.0f min", d.profile.BottomDepth, d.profile.BottomTime)
	return nil
}

func (d *Dummy) Close() error {
	return nil
}
