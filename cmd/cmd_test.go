package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "routing:\n  provider: straight\ncalllog:\n  backend: none\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAssessCommand(t *testing.T) {
	out, err := execute(t, "assess", "-c", writeConfig(t), "--category", "Medical", "-d", "critical cardiac arrest")
	require.NoError(t, err)
	var got model.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, model.SeverityHigh, got.Severity)
	assert.Equal(t, 4, got.Requirements["ambulances"])
}

func TestDispatchCommand(t *testing.T) {
	out, err := execute(t, "dispatch", "-c", writeConfig(t), "--category", "Police", "-d", "minor theft", "--lat", "25.2150", "--lon", "55.2810")
	require.NoError(t, err)
	var got struct {
		Vehicle    model.Vehicle `json:"vehicle"`
		ETAMinutes int           `json:"eta_minutes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "POL-003", got.Vehicle.ID)
	assert.Equal(t, model.StatusDispatched, got.Vehicle.Status)
}

func TestFleetLs(t *testing.T) {
	out, err := execute(t, "fleet", "ls", "-c", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "AMB-001")
	assert.Contains(t, out, "FIRE-002")
	assert.Contains(t, out, "POL-003")
}

func TestInvalidCategory(t *testing.T) {
	_, err := execute(t, "assess", "-c", writeConfig(t), "--category", "Flood")
	assert.ErrorIs(t, err, model.ErrInvalidCategory)
}
