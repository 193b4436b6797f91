package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "logbook.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func reading(session string, start time.Time, elapsed, depth float64, ndl int) types.Reading {
	return types.Reading{
		Timestamp:   start.Add(time.Duration(elapsed * float64(time.Minute))),
		SessionID:   session,
		SensorName:  "ms5803",
		Elapsed:     elapsed,
		Pressure:    deco.AtmosphericPressure + depth/deco.MetresPerBar,
		Depth:       depth,
		Temperature: 18,
		NDL:         ndl,
		Unlimited:   deco.Unlimited(ndl),
	}
}

func TestStoreAndQuery(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	start := time.Date(2026, 7, 4, 9, 30, 0, 0, time.UTC)
	profile := []types.Reading{
		reading("dive-a", start, 0, 0, deco.NoLimit),
		reading("dive-a", start, 1, 18, 55),
		reading("dive-a", start, 10, 24.87, 21),
		reading("dive-a", start, 12, 5, 30),
	}
	for _, r := range profile {
		require.NoError(t, s.StoreReading(r))
	}

	later := start.Add(3 * time.Hour)
	require.NoError(t, s.StoreReading(reading("dive-b", later, 0, 0, deco.NoLimit)))

	dives, err := s.ListDives(ctx)
	require.NoError(t, err)
	require.Len(t, dives, 2)

	assert.Equal(t, "dive-b", dives[0].ID)
	a := dives[1]
	assert.Equal(t, "dive-a", a.ID)
	assert.Equal(t, "ms5803", a.Sensor)
	assert.Equal(t, 4, a.SampleCount)
	assert.InDelta(t, 24.87, a.MaxDepth, 1e-9)
	assert.Equal(t, 21, a.MinNDL)
	assert.Equal(t, 12.0, a.Duration)
	assert.True(t, a.StartedAt.Equal(start))
	assert.True(t, a.EndedAt.Equal(start.Add(12*time.Minute)))

	samples, err := s.Samples(ctx, "dive-a")
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.True(t, samples[0].Unlimited)
	assert.Equal(t, 21, samples[2].NDL)
	assert.True(t, samples[2].Timestamp.Equal(profile[2].Timestamp))
}

func TestSamplesUnknownDive(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Samples(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrDiveNotFound)
}

func TestStorageEngine(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	ch := s.StartStorageEngine(ctx, &wg)
	ch <- reading("dive-c", time.Now().UTC(), 0, 0, deco.NoLimit)
	ch <- reading("dive-c", time.Now().UTC(), 1, 3, deco.NoLimit)

	require.Eventually(t, func() bool {
		samples, err := s.Samples(context.Background(), "dive-c")
		return err == nil && len(samples) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	require.NoError(t, s.CheckHealth(context.Background()))
}
