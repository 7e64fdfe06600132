package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PluginIDs returns the ids of plugins in order.
func PluginIDs(plugins []plugin.Plugin) []string {
	ids := make([]string, len(plugins))
	for i, p := range plugins {
		ids[i] = p.ID()
	}
	return ids
}

// AssertPluginIDs asserts the plugins have exactly the given ids, in order.
func AssertPluginIDs(t testing.TB, plugins []plugin.Plugin, expected ...string) {
	t.Helper()
	if len(expected) == 0 {
		assert.Empty(t, plugins)
		return
	}
	assert.Equal(t, expected, PluginIDs(plugins))
}

// AssertPhase asserts a registered plugin is in the given phase.
func AssertPhase(t testing.TB, reg *plugin.Registry, id string, phase plugin.Phase) {
	t.Helper()

	state, ok := reg.PluginState(id)
	require.True(t, ok, "plugin %q is not registered", id)
	assert.Equal(t, phase, state.Phase, "phase of plugin %q", id)
}

// AssertFileContains asserts that a file contains the expected string.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertEventually asserts that a condition becomes true within a timeout.
// waitFor and tick are in milliseconds.
func AssertEventually(t testing.TB, condition func() bool, waitForMs, tickMs int, msgAndArgs ...interface{}) {
	t.Helper()

	waitFor := time.Duration(waitForMs) * time.Millisecond
	tick := time.Duration(tickMs) * time.Millisecond

	assert.Eventually(t, condition, waitFor, tick, msgAndArgs...)
}
