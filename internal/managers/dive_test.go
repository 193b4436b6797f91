package managers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) config.ConfigProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return config.NewYAMLProvider(path)
}

const simulatedDive = `
dive:
  model: Buhlmann
  fallback_to_dummy: true
devices:
  - name: pressure
    role: sensor
    type: %s
    enabled: true
    i2c_bus: /dev/no-such-i2c-bus
    profile:
      bottom_depth: 30
      time_compress: 600
  - name: clock
    role: timer
    type: sleep
    enabled: true
    interval: 10ms
    max_duration: 100ms
  - name: screen
    role: display
    type: Dummy
    enabled: true
`

func runDive(t *testing.T, sensorType string) (*DiveManager, []types.Reading) {
	t.Helper()
	provider := writeConfig(t, fmt.Sprintf(simulatedDive, sensorType))

	readings := make(chan types.Reading, 100)
	dm, err := NewDiveManager(provider, readings, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, deco.KindBuhlmann, dm.ModelKind())

	var wg sync.WaitGroup
	dm.Start(context.Background(), &wg)

	select {
	case err := <-dm.Done():
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dive session did not end")
	}
	wg.Wait()

	close(readings)
	var got []types.Reading
	for r := range readings {
		got = append(got, r)
	}
	return dm, got
}

func TestDiveManagerSimulatedSession(t *testing.T) {
	dm, got := runDive(t, "Dummy")

	require.NotEmpty(t, got)
	for _, r := range got {
		assert.Equal(t, dm.SessionID(), r.SessionID)
	}
	latest, ok := dm.Status().Latest()
	require.True(t, ok)
	assert.Greater(t, latest.Elapsed, 0.0)
	assert.False(t, dm.Status().Running())
}

func TestDiveManagerFallsBackWhenSensorMissing(t *testing.T) {
	_, got := runDive(t, "MS5803-14B")
	require.NotEmpty(t, got)
	assert.Equal(t, "pressure", got[0].SensorName)
}

func TestDiveManagerRejectsUnknownModel(t *testing.T) {
	provider := writeConfig(t, `
dive:
  model: VPM-B
devices:
  - {name: p, role: sensor, type: Dummy, enabled: true}
  - {name: c, role: timer, type: sleep, enabled: true}
  - {name: s, role: display, type: Dummy, enabled: true}
`)
	_, err := NewDiveManager(provider, nil, zap.NewNop().Sugar())
	assert.ErrorIs(t, err, deco.ErrUnsupportedVariant)
}
