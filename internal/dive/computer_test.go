package dive

import (
	"context"
	"errors"
	"testing"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/display"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	pressures []float64
	failAt    int // index of the first failing read, -1 for never
	reads     int
	resets    int
	closed    bool
}

func newScriptedSource(pressures ...float64) *scriptedSource {
	return &scriptedSource{pressures: pressures, failAt: -1}
}

func (s *scriptedSource) Pressure() (float64, error) {
	if s.failAt >= 0 && s.reads >= s.failAt {
		return 0, errors.New("i2c: nack")
	}
	p := s.pressures[len(s.pressures)-1]
	if s.reads < len(s.pressures) {
		p = s.pressures[s.reads]
	}
	s.reads++
	return p, nil
}

func (s *scriptedSource) Temperature() (float64, error) { return 19.5, nil }
func (s *scriptedSource) Reset() error                  { s.resets++; return nil }
func (s *scriptedSource) Close() error                  { s.closed = true; return nil }

type scriptedTimer struct {
	elapsed []float64
	i       int
	started bool
	stopped bool
}

func (t *scriptedTimer) Start() { t.started = true }
func (t *scriptedTimer) Stop()  { t.stopped = true }

func (t *scriptedTimer) Wait(ctx context.Context) bool {
	if ctx.Err() != nil || t.i >= len(t.elapsed) {
		return false
	}
	t.i++
	return true
}

func (t *scriptedTimer) Elapsed() float64 {
	if t.i == 0 {
		return 0
	}
	return t.elapsed[t.i-1]
}

type recordingDisplay struct {
	frames []display.Frame
	err    error
}

func (d *recordingDisplay) Render(f display.Frame) error {
	d.frames = append(d.frames, f)
	return d.err
}

func (d *recordingDisplay) Close() error { return nil }

func drain(ch chan types.Reading) []types.Reading {
	var out []types.Reading
	for {
		select {
		case r := <-ch:
			out = append(out, r)
		default:
			return out
		}
	}
}

func TestRunSquareProfile(t *testing.T) {
	src := newScriptedSource(1.013, 3.5)
	tmr := &scriptedTimer{elapsed: []float64{10}}
	disp := &recordingDisplay{}
	readings := make(chan types.Reading, 10)

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{SensorName: "ms5803", Readings: readings}, nil)
	require.NoError(t, c.Run(context.Background()))

	assert.True(t, tmr.started)
	assert.True(t, tmr.stopped)
	assert.Equal(t, 1, src.resets)

	require.Len(t, disp.frames, 2)
	assert.Equal(t, deco.NoLimit, disp.frames[0].NDL)
	assert.Equal(t, 0, disp.frames[1].NDL)
	assert.InDelta(t, 24.87, disp.frames[1].Depth, 1e-9)
	assert.InDelta(t, 19.5, disp.frames[1].Temperature, 1e-9)

	got := drain(readings)
	require.Len(t, got, 2)
	assert.True(t, got[0].Unlimited)
	assert.Equal(t, "N/A", got[0].NDLString())
	assert.Equal(t, 0, got[1].NDL)
	assert.False(t, got[1].Unlimited)
	assert.Equal(t, c.SessionID(), got[1].SessionID)
	assert.Equal(t, "ms5803", got[1].SensorName)

	latest, ok := c.Status().Latest()
	require.True(t, ok)
	assert.Equal(t, got[1], latest)
	assert.Len(t, c.Status().Tissues(), deco.NumCompartments)
	assert.False(t, c.Status().Running())
}

func TestRunSkipsNonAdvancingSamples(t *testing.T) {
	src := newScriptedSource(1.013, 2.0, 2.0)
	tmr := &scriptedTimer{elapsed: []float64{1, 1, 0.5, 2}}
	disp := &recordingDisplay{}

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{}, nil)
	require.NoError(t, c.Run(context.Background()))

	// initial read plus the samples at 1 and 2 minutes
	assert.Equal(t, 3, src.reads)
	require.Len(t, disp.frames, 3)
	assert.Equal(t, 2.0, disp.frames[2].Elapsed)
}

func TestRunClampsDepthAtSurface(t *testing.T) {
	src := newScriptedSource(0.98, 0.95)
	tmr := &scriptedTimer{elapsed: []float64{1}}
	disp := &recordingDisplay{}

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{}, nil)
	require.NoError(t, c.Run(context.Background()))

	for _, f := range disp.frames {
		assert.Equal(t, 0.0, f.Depth)
	}
}

func TestRunSensorErrorAborts(t *testing.T) {
	src := newScriptedSource(1.013, 2.0)
	src.failAt = 2
	tmr := &scriptedTimer{elapsed: []float64{1, 2, 3}}

	c := NewComputer(src, tmr, &recordingDisplay{}, deco.NewBuhlmann(nil), Options{}, nil)
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSensor)
	assert.Equal(t, deco.Tracking, c.model.State())
}

func TestRunSensorErrorFallsBack(t *testing.T) {
	src := newScriptedSource(1.013)
	src.failAt = 1
	fallback := newScriptedSource(1.5)
	tmr := &scriptedTimer{elapsed: []float64{1, 2, 3}}
	disp := &recordingDisplay{}

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{SensorName: "ms5803", Fallback: fallback}, nil)
	require.NoError(t, c.Run(context.Background()))

	assert.True(t, src.closed)
	assert.Equal(t, 1, fallback.resets)
	assert.Equal(t, 3, fallback.reads)
	require.Len(t, disp.frames, 4)

	latest, ok := c.Status().Latest()
	require.True(t, ok)
	assert.Equal(t, "ms5803-dummy", latest.SensorName)
	assert.InDelta(t, 4.87, latest.Depth, 1e-9)
}

func TestRunDisplayErrorIsNotFatal(t *testing.T) {
	src := newScriptedSource(1.013, 2.0)
	tmr := &scriptedTimer{elapsed: []float64{1, 2}}
	disp := &recordingDisplay{err: errors.New("serial: write timeout")}

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{}, nil)
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, disp.frames, 3)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newScriptedSource(1.013)
	tmr := &scriptedTimer{elapsed: []float64{1, 2}}
	disp := &recordingDisplay{}

	c := NewComputer(src, tmr, disp, deco.NewBuhlmann(nil), Options{}, nil)
	require.NoError(t, c.Run(ctx))
	assert.Len(t, disp.frames, 1)
}

func TestVerticalRate(t *testing.T) {
	// 1 m/min descent: 0.1 bar per minute
	src := newScriptedSource(1.013, 1.113, 1.213, 1.313)
	tmr := &scriptedTimer{elapsed: []float64{1, 2, 3}}
	readings := make(chan types.Reading, 10)

	c := NewComputer(src, tmr, &recordingDisplay{}, deco.NewBuhlmann(nil), Options{RateWindow: 3, Readings: readings}, nil)
	require.NoError(t, c.Run(context.Background()))

	got := drain(readings)
	require.Len(t, got, 4)
	assert.Equal(t, 0.0, got[0].VerticalRate)
	assert.InDelta(t, 1.0, got[3].VerticalRate, 1e-9)
}

func TestRateWindowAscent(t *testing.T) {
	w := newRateWindow(4)
	for i, d := range []float64{30, 30, 20, 11, 2} {
		w.add(float64(i), d)
	}
	// window holds the last four points: 30, 20, 11, 2 -> slope -9.3
	assert.InDelta(t, -9.3, w.rate(), 1e-9)
}
