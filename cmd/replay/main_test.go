package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehicletracker/vehicletracker/internal/config"
)

func TestReplay_StaticRouteRunsToFinish(t *testing.T) {
	cfg, err := config.FromEnv(func(key string) (string, bool) {
		env := map[string]string{"ROUTE_PROVIDER": "static", "TICK_INTERVAL_MS": "5"}
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- replay(cfg, zerolog.New(&buf)) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
	}
	assert.Contains(t, buf.String(), `"state":"finished"`)
}

func TestReplay_UnknownOption(t *testing.T) {
	cfg, err := config.FromEnv(func(key string) (string, bool) {
		if key == "INITIAL_OPTION" {
			return "someday", true
		}
		return "", false
	})
	require.NoError(t, err)

	assert.Error(t, replay(cfg, zerolog.Nop()))
}
