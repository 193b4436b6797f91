package deco

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTrackedModel(t *testing.T, samples ...[2]float64) *Buhlmann {
	t.Helper()
	m := NewBuhlmann(nil)
	m.Reset(AtmosphericPressure, 0)
	for _, s := range samples {
		if err := m.Update(s[0], s[1]); err != nil {
			t.Fatalf("update(%v, %v): %v", s[0], s[1], err)
		}
	}
	return m
}

func mustNDL(t *testing.T, m Model) int {
	t.Helper()
	ndl, err := m.NDL()
	if err != nil {
		t.Fatal(err)
	}
	return ndl
}

func TestNewBuhlmannTable(t *testing.T) {
	m := NewBuhlmann(nil)
	if len(m.compartments) != 16 {
		t.Fatalf("expected 16 compartments, got %d", len(m.compartments))
	}
	for i := 1; i < len(m.compartments); i++ {
		if m.compartments[i].HalfTime <= m.compartments[i-1].HalfTime {
			t.Errorf("compartment %d out of order: %g after %g", i, m.compartments[i].HalfTime, m.compartments[i-1].HalfTime)
		}
	}
	if m.compartments[0].HalfTime != 4 || m.compartments[15].HalfTime != 635 {
		t.Errorf("unexpected half-time range %g..%g", m.compartments[0].HalfTime, m.compartments[15].HalfTime)
	}
}

func TestNDLSurfaceIsUnlimited(t *testing.T) {
	m := newTrackedModel(t)
	if ndl := mustNDL(t, m); ndl != NoLimit {
		t.Errorf("expected NoLimit at the surface, got %d", ndl)
	}
	if !Unlimited(mustNDL(t, m)) {
		t.Error("expected Unlimited to report true for surface NDL")
	}
}

func TestNDLNoPressureChange(t *testing.T) {
	m := newTrackedModel(t, [2]float64{AtmosphericPressure, 5})
	if ndl := mustNDL(t, m); ndl < NoLimit {
		t.Errorf("expected NDL >= %d after a no-op sample, got %d", NoLimit, ndl)
	}
}

func TestNDLRegression(t *testing.T) {
	tests := []struct {
		name     string
		samples  [][2]float64
		expected int
	}{
		{
			// descent to ~25 m over 10 minutes; already at the limit
			name:     "25 m after 10 minutes",
			samples:  [][2]float64{{3.5, 10}},
			expected: 0,
		},
		{
			name:     "25 m held for 9 minutes",
			samples:  [][2]float64{{3.5, 1}, {3.5, 10}},
			expected: 15,
		},
		{
			name:     "20 m held for 29 minutes",
			samples:  [][2]float64{{3.0, 1}, {3.0, 30}},
			expected: 17,
		},
		{
			name:     "36 m after a fast descent",
			samples:  [][2]float64{{1.013/10*36 + 1.013, 0.1}},
			expected: 11,
		},
		{
			name:     "30 m held past the limit",
			samples:  [][2]float64{{4.0, 1}, {4.0, 20}},
			expected: 0,
		},
		{
			name:     "15 m for 30 minutes",
			samples:  [][2]float64{{2.5, 1}, {2.5, 30}},
			expected: 88,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTrackedModel(t, tt.samples...)
			if ndl := mustNDL(t, m); ndl != tt.expected {
				t.Errorf("expected NDL %d, got %d", tt.expected, ndl)
			}
		})
	}
}

func TestNDLNonIncreasingWithDepth(t *testing.T) {
	prev := NoLimit
	for _, pamb := range []float64{1.5, 2.0, 2.5, 3.0, 3.5, 4.0, 4.6, 5.0} {
		m := newTrackedModel(t, [2]float64{pamb, 1}, [2]float64{pamb, 10})
		ndl := mustNDL(t, m)
		if ndl > prev {
			t.Errorf("NDL increased with depth: %.1f bar gave %d after %d", pamb, ndl, prev)
		}
		prev = ndl
	}
}

func TestNDLNonIncreasingWithTime(t *testing.T) {
	m := newTrackedModel(t, [2]float64{3.5, 1})
	prev := mustNDL(t, m)
	for now := 2.0; now <= 40; now++ {
		if err := m.Update(3.5, now); err != nil {
			t.Fatal(err)
		}
		ndl := mustNDL(t, m)
		if ndl > prev {
			t.Errorf("NDL increased from %d to %d at t=%g", prev, ndl, now)
		}
		prev = ndl
	}
}

func TestNDLDoesNotMutateState(t *testing.T) {
	m := newTrackedModel(t, [2]float64{3.5, 10})
	before := m.Tissues()
	for i := 0; i < 3; i++ {
		mustNDL(t, m)
	}
	after := m.Tissues()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("compartment %d changed after NDL: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestNDLLogsOneLinePerSearch(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewBuhlmann(zap.New(core).Sugar())
	m.Reset(AtmosphericPressure, 0)
	for _, s := range [][2]float64{{2.5, 1}, {2.5, 30}} {
		if err := m.Update(s[0], s[1]); err != nil {
			t.Fatal(err)
		}
	}

	logs.TakeAll()
	if ndl := mustNDL(t, m); ndl != 88 {
		t.Fatalf("expected NDL 88, got %d", ndl)
	}
	entries := logs.TakeAll()
	if len(entries) != 1 {
		t.Fatalf("expected one log line for the search, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Message, "t+89 min") {
		t.Errorf("expected the crossing minute in %q", entries[0].Message)
	}

	m.Reset(AtmosphericPressure, 0)
	logs.TakeAll()
	mustNDL(t, m)
	if n := logs.Len(); n != 1 {
		t.Errorf("expected one log line for an unlimited search, got %d", n)
	}
}

func TestModelLifecycle(t *testing.T) {
	m := NewBuhlmann(nil)
	if m.State() != Uninitialized {
		t.Fatalf("expected uninitialized, got %v", m.State())
	}
	if _, err := m.NDL(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from NDL, got %v", err)
	}
	if err := m.Update(2.0, 1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Update, got %v", err)
	}

	m.Reset(AtmosphericPressure, 0)
	if m.State() != Baseline {
		t.Errorf("expected baseline, got %v", m.State())
	}
	if err := m.Update(2.0, 1); err != nil {
		t.Fatal(err)
	}
	if m.State() != Tracking {
		t.Errorf("expected tracking, got %v", m.State())
	}

	m.Reset(AtmosphericPressure, 0)
	if m.State() != Baseline {
		t.Errorf("expected baseline after second reset, got %v", m.State())
	}
}

func TestModelRejectsNonIncreasingTime(t *testing.T) {
	m := newTrackedModel(t, [2]float64{3.0, 5})
	before := m.Tissues()

	for _, now := range []float64{5, 3} {
		if err := m.Update(3.5, now); !errors.Is(err, ErrNonIncreasingTime) {
			t.Errorf("t=%g: expected ErrNonIncreasingTime, got %v", now, err)
		}
	}
	after := m.Tissues()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("compartment %d mutated by rejected update", i)
		}
	}
}

func TestCeiling(t *testing.T) {
	m := newTrackedModel(t)
	if c := m.Ceiling(); c > 0 {
		t.Errorf("expected no ceiling at the surface, got %.3f m", c)
	}

	m = newTrackedModel(t, [2]float64{4.0, 1}, [2]float64{4.0, 40})
	if c := m.Ceiling(); c <= 0 {
		t.Errorf("expected a ceiling after 40 minutes at 30 m, got %.3f m", c)
	}
}

func TestNewKind(t *testing.T) {
	m, err := New(KindBuhlmann, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*Buhlmann); !ok {
		t.Errorf("expected *Buhlmann, got %T", m)
	}

	if _, err := New(Kind(42), nil); !errors.Is(err, ErrUnsupportedVariant) {
		t.Errorf("expected ErrUnsupportedVariant, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr bool
	}{
		{name: "canonical", input: "Buhlmann", want: KindBuhlmann},
		{name: "lower case", input: "buhlmann", want: KindBuhlmann},
		{name: "table name", input: "ZH-L16", want: KindBuhlmann},
		{name: "unknown", input: "VPM-B", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedVariant) {
					t.Errorf("expected ErrUnsupportedVariant, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
