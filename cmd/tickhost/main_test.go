package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcore/host/link"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		scenarioPath = ""
		verbose = false
	})
	return rootCmd.Execute()
}

func TestSimulateRunsScenario(t *testing.T) {
	require.NoError(t, execute(t, "simulate", "--scenario", "../../sim/testdata/shutdown.json"))
}

func TestSimulateRequiresScenario(t *testing.T) {
	assert.ErrorContains(t, execute(t, "simulate"), "--scenario is required")
}

func TestSimulateBadScenario(t *testing.T) {
	assert.ErrorContains(t, execute(t, "simulate", "--scenario", "testdata/none.yaml"), "read scenario")
}

func TestMonitorOpenFails(t *testing.T) {
	err := execute(t, "monitor", "--device", "/nonexistent/tickhost-port")
	assert.ErrorContains(t, err, "/nonexistent/tickhost-port")
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "shutdown", reportName(link.Shutdown{}))
	assert.Equal(t, "counter_state", reportName(link.CounterState{}))
	assert.Equal(t, "debug_echo", reportName(link.Other{Message: link.Message{Name: "debug_echo"}}))
}
