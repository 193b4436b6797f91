package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/haldane/internal/storage/sqlite"
	"github.com/chrissnell/haldane/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunSimulatedSessionToLogbook(t *testing.T) {
	dir := t.TempDir()
	logbook := filepath.Join(dir, "logbook.db")
	cfg := fmt.Sprintf(`
devices:
  - {name: sim, role: sensor, type: Dummy, enabled: true}
  - {name: tick, role: timer, type: sleep, enabled: true, interval: 10ms, max_duration: 80ms}
  - {name: screen, role: display, type: Dummy, enabled: true}
storage:
  sqlite:
    path: %s
`, logbook)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := New(config.NewYAMLProvider(path), zap.NewNop().Sugar())
	require.NoError(t, a.Run(ctx))

	s, err := sqlite.New(logbook, nil)
	require.NoError(t, err)
	defer s.Close()

	dives, err := s.ListDives(context.Background())
	require.NoError(t, err)
	require.Len(t, dives, 1)
	assert.Positive(t, dives[0].SampleCount)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("devices: []\n"), 0o600))

	a := New(config.NewYAMLProvider(path), zap.NewNop().Sugar())
	assert.Error(t, a.Run(context.Background()))
}

func TestRunRejectsZeroTimerInterval(t *testing.T) {
	dir := t.TempDir()
	cfg := `
devices:
  - {name: sim, role: sensor, type: Dummy, enabled: true}
  - {name: tick, role: timer, type: sleep, enabled: true, interval: 0s}
  - {name: screen, role: display, type: Dummy, enabled: true}
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	a := New(config.NewYAMLProvider(path), zap.NewNop().Sugar())
	require.NotPanics(t, func() {
		assert.ErrorContains(t, a.Run(context.Background()), "interval must be positive")
	})
}
