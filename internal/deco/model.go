package deco

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// MaxNDL caps the NDL search in minutes.
	MaxNDL = 99
	// NoLimit is reported when no ceiling forms within MaxNDL minutes.
	NoLimit = MaxNDL
)

// Unlimited reports whether an NDL value is the "no limit" sentinel.
func Unlimited(ndl int) bool {
	return ndl >= NoLimit
}

// State describes where the model is in its lifecycle.
type State uint8

const (
	Uninitialized State = iota
	Baseline
	Tracking
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Baseline:
		return "baseline"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Tissue is a point-in-time copy of one compartment's state.
type Tissue struct {
	HalfTime float64 `json:"half_time" msgpack:"half_time"`
	Loading  float64 `json:"loading" msgpack:"loading"`
	Ceiling  float64 `json:"ceiling" msgpack:"ceiling"`
}

// Model is a decompression model driven by ambient pressure samples.
type Model interface {
	Reset(pamb, now float64)
	Update(pamb, now float64) error
	NDL() (int, error)
	Ceiling() float64
	Tissues() []Tissue
	State() State
}

// Kind selects a decompression model implementation.
type Kind uint8

const (
	KindBuhlmann Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindBuhlmann:
		return "Buhlmann"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "buhlmann", "bühlmann", "zhl16", "zh-l16":
		return KindBuhlmann, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// New constructs the model of the given kind.
func New(kind Kind, logger *zap.SugaredLogger) (Model, error) {
	switch kind {
	case KindBuhlmann:
		return NewBuhlmann(logger), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedVariant, kind)
	}
}

// Buhlmann is the ZH-L16 model with 16 nitrogen compartments.
type Buhlmann struct {
	compartments [NumCompartments]Compartment
	state        State
	lastTime     float64
	logger       *zap.SugaredLogger
}

// NewBuhlmann builds a model from the ZH-L16 table. A nil logger disables
// debug output.
func NewBuhlmann(logger *zap.SugaredLogger) *Buhlmann {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := &Buhlmann{logger: logger}
	for i, row := range zhl16 {
		m.compartments[i] = NewCompartment(row[0], row[1], row[2])
		logger.Debugw("compartment initialized", "half_time", row[0], "k", m.compartments[i].DecayConstant())
	}
	return m
}

// Reset saturates every compartment at pamb and restarts the clock at now.
func (m *Buhlmann) Reset(pamb, now float64) {
	for i := range m.compartments {
		m.compartments[i].Reset(pamb, now)
	}
	m.lastTime = now
	m.state = Baseline
	m.logger.Debugf("model reset at %.4f bar, t=%.3f min, initial loading %.4f bar", pamb, now, AlveolarPressure(pamb))
}

// Update advances every compartment to now. The time must be strictly after
// the previous Reset or Update; otherwise no compartment is touched.
func (m *Buhlmann) Update(pamb, now float64) error {
	if m.state == Uninitialized {
		return ErrNotInitialized
	}
	if now <= m.lastTime {
		return fmt.Errorf("%w (previous %g min, current %g min)", ErrNonIncreasingTime, m.lastTime, now)
	}

	for i := range m.compartments {
		if err := m.compartments[i].Update(pamb, now); err != nil {
			return err
		}
	}
	m.lastTime = now
	m.state = Tracking
	return nil
}

// maxCeiling returns the deepest ceiling over all compartments after
// projected minutes at the current depth.
func (m *Buhlmann) maxCeiling(projected float64) float64 {
	deepest := m.compartments[0].AscentCeiling(projected)
	for i := 1; i < len(m.compartments); i++ {
		if c := m.compartments[i].AscentCeiling(projected); c > deepest {
			deepest = c
		}
	}
	return deepest
}

// NDL returns the minutes that can still be spent at the current depth
// before a ceiling forms. The search steps one minute at a time and stops at
// the first minute with a ceiling, so a non-monotonic ceiling reports its
// first crossing. NoLimit is returned when no ceiling forms within MaxNDL.
func (m *Buhlmann) NDL() (int, error) {
	if m.state == Uninitialized {
		return 0, ErrNotInitialized
	}

	for t := 1; t <= MaxNDL; t++ {
		if ceiling := m.maxCeiling(float64(t)); ceiling > 0 {
			m.logger.Debugf("ceiling %.4f m forms at t+%d min, ndl=%d", ceiling, t, t-1)
			return t - 1, nil
		}
	}
	m.logger.Debugf("no ceiling within %d min", MaxNDL)
	return NoLimit, nil
}

// Ceiling returns the current ascent ceiling depth. Zero or negative means
// a direct ascent to the surface is allowed.
func (m *Buhlmann) Ceiling() float64 {
	return m.maxCeiling(0)
}

// Tissues returns a snapshot of every compartment in table order.
func (m *Buhlmann) Tissues() []Tissue {
	tissues := make([]Tissue, len(m.compartments))
	for i := range m.compartments {
		c := &m.compartments[i]
		tissues[i] = Tissue{
			HalfTime: c.HalfTime,
			Loading:  c.Loading(),
			Ceiling:  c.AscentCeiling(0),
		}
	}
	return tissues
}

// State returns the model's lifecycle state.
func (m *Buhlmann) State() State {
	return m.state
}
