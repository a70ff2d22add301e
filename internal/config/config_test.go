package config

import (
	"os"
	"path/filepath"
	"testing"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default("/state/root")
	assert.Equal(t, "/state/root/workspaces", cfg.WorkspacesPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Minimal(t *testing.T) {
	path := writeConfigFile(t, `
workspaces_path: /state/workspaces
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/state/workspaces", cfg.WorkspacesPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FullShape(t *testing.T) {
	path := writeConfigFile(t, `
workspaces_path: /state/workspaces
shared_workspaces:
  docs:
    path: /state/shared/docs
    description: shared docs
orchestrators:
  team-a:
    shared_access: [docs]
channel_profiles:
  slack-main:
    channel: slack
    orchestrator_id: team-a
channels:
  slack:
    enabled: true
monitoring:
  heartbeat_interval: 30
log:
  level: debug
  format: text
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Monitoring.HeartbeatIntervalSeconds)
	assert.Contains(t, cfg.SharedWorkspaces, "docs")
	assert.Contains(t, cfg.ChannelProfiles, "slack-main")
}

func TestLoad_UnknownKeyFailsFast(t *testing.T) {
	path := writeConfigFile(t, `
workspaces_path: /state/workspaces
bogus_key: true
`)
	_, err := Load(path)
	require.Error(t, err)
	var cie *direrrors.ConfigInvalidError
	require.ErrorAs(t, err, &cie)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	var cie *direrrors.ConfigInvalidError
	require.ErrorAs(t, err, &cie)
}

func TestValidate_SharedAccessUnknownWorkspace(t *testing.T) {
	cfg := Default("/state")
	cfg.Orchestrators = map[string]OrchestratorRef{
		"team-a": {SharedAccess: []string{"missing"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shared workspace")
}

func TestValidate_ChannelProfileUnknownOrchestrator(t *testing.T) {
	cfg := Default("/state")
	cfg.ChannelProfiles = map[string]ChannelProfile{
		"p1": {Channel: "slack", OrchestratorID: "nope"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown orchestrator")
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default("/state")
	cfg.Log.Level = "chatty"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a recognized level")
}

func TestValidate_NegativeHeartbeat(t *testing.T) {
	cfg := Default("/state")
	cfg.Monitoring.HeartbeatIntervalSeconds = -1
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_BadOTLPProtocol(t *testing.T) {
	cfg := Default("/state")
	cfg.Monitoring.OTLPProtocol = "carrier-pigeon"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otlp_protocol")
}

func TestLoad_MonitoringOTLPFields(t *testing.T) {
	path := writeConfigFile(t, `
workspaces_path: /state/workspaces
monitoring:
  metrics_addr: "127.0.0.1:9090"
  otlp_endpoint: "collector:4317"
  otlp_protocol: grpc
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Monitoring.MetricsAddr)
	assert.Equal(t, "collector:4317", cfg.Monitoring.OTLPEndpoint)
	assert.Equal(t, "grpc", cfg.Monitoring.OTLPProtocol)
}
