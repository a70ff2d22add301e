// Package config loads and validates DireClaw's two configuration
// documents: the global settings file (config.yaml) and the per-orchestrator
// definition (orchestrator.yaml), per spec §6's "Config shape" sections.
// Grounded on the teacher's internal/config/config.go Load/Default/Validate
// shape (YAML unmarshal, applyDefaults, Validate returning a joined error
// list), generalized to DireClaw's own schema instead of the teacher's
// controller/provider/workspace config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SharedWorkspace names a logical shared workspace directory orchestrators
// may be granted access to.
type SharedWorkspace struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// OrchestratorRef is the global registry's per-orchestrator entry.
type OrchestratorRef struct {
	PrivateWorkspace string   `yaml:"private_workspace,omitempty"`
	SharedAccess     []string `yaml:"shared_access,omitempty"`
}

// ChannelProfile binds a channel adapter instance to an orchestrator.
type ChannelProfile struct {
	Channel        string `yaml:"channel"`
	OrchestratorID string `yaml:"orchestrator_id"`
	// Extra carries channel-specific fields (e.g. Slack workspace id) that
	// the core does not interpret.
	Extra map[string]any `yaml:",inline"`
}

// ChannelAdapterConfig configures a single channel adapter (e.g. "slack").
type ChannelAdapterConfig struct {
	Enabled bool           `yaml:"enabled"`
	Extra   map[string]any `yaml:",inline"`
}

// MonitoringConfig configures the optional heartbeat worker and the
// telemetry surface (Prometheus metrics + OpenTelemetry tracing).
type MonitoringConfig struct {
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval,omitempty"`

	// MetricsAddr is the listen address for the supervisor's /metrics
	// endpoint (e.g. "127.0.0.1:9090"). Empty disables the listener; the
	// Prometheus registry is still populated either way.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// OTLPEndpoint, when set, adds an OTLP span exporter alongside the
	// default stdout exporter. Empty means stdout-only.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// OTLPProtocol selects the OTLP transport: "grpc" (default) or "http".
	OTLPProtocol string `yaml:"otlp_protocol,omitempty"`

	// OTLPInsecure disables TLS on the OTLP exporter, for talking to a
	// local collector over plaintext.
	OTLPInsecure bool `yaml:"otlp_insecure,omitempty"`
}

// Config is the global settings document (config.yaml).
type Config struct {
	WorkspacesPath   string                        `yaml:"workspaces_path"`
	SharedWorkspaces map[string]SharedWorkspace     `yaml:"shared_workspaces,omitempty"`
	Orchestrators    map[string]OrchestratorRef     `yaml:"orchestrators,omitempty"`
	ChannelProfiles  map[string]ChannelProfile      `yaml:"channel_profiles,omitempty"`
	Channels         map[string]ChannelAdapterConfig `yaml:"channels,omitempty"`
	Monitoring       MonitoringConfig                `yaml:"monitoring,omitempty"`
	AuthSync         *AuthSyncConfig                 `yaml:"auth_sync,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`
}

// AuthSyncConfig configures 1Password-backed credential sync. DireClaw's
// core only validates its shape; the sync itself is an external collaborator.
type AuthSyncConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig mirrors internal/log.Config's file-facing shape. Load fills
// its defaults and Validate checks the level; cmd/direclawd builds its
// logger from DIRECLAW_* env vars alone and does not read these fields.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns a Config with the minimal sensible defaults: an empty
// workspaces path rooted under the state root, and info/json logging.
func Default(stateRoot string) *Config {
	return &Config{
		WorkspacesPath: stateRoot + "/workspaces",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and validates the global config at path. Unknown/invalid keys
// fail fast via yaml.v3's KnownFields-equivalent strict decode.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: "config.yaml", Reason: "read failed", Cause: err}
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &direrrors.ConfigInvalidError{Key: "config.yaml", Reason: "parse failed", Cause: err}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save atomically writes the config back to path, re-validating first so
// a caller (e.g. `channel_profile.set_orchestrator`) can never persist an
// invalid document.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal config.yaml: %w", err)
	}
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.ConfigInvalidError{Key: "config.yaml", Reason: "write failed", Cause: err}
	}
	return nil
}

// OrchestratorRoot resolves the filesystem root for orchestrator id,
// delegating to the package-level OrchestratorRoot with this Config's
// registry entry.
func (c *Config) OrchestratorRoot(id string) string {
	return OrchestratorRoot(c.WorkspacesPath, c.Orchestrators[id].PrivateWorkspace, id)
}

// OrchestratorConfigPath resolves <orchestrator_root>/orchestrator.yaml for id.
func (c *Config) OrchestratorConfigPath(id string) string {
	return filepath.Join(c.OrchestratorRoot(id), "orchestrator.yaml")
}

// Validate checks the global config against spec §6's shape requirements.
func (c *Config) Validate() error {
	var errs []string

	if c.WorkspacesPath == "" {
		errs = append(errs, "workspaces_path must be set")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if c.Log.Level != "" && !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is not a recognized level", c.Log.Level))
	}

	for id, ref := range c.Orchestrators {
		for _, name := range ref.SharedAccess {
			if _, ok := c.SharedWorkspaces[name]; !ok {
				errs = append(errs, fmt.Sprintf("orchestrators[%s].shared_access references unknown shared workspace %q", id, name))
			}
		}
	}

	for id, profile := range c.ChannelProfiles {
		if profile.Channel == "" {
			errs = append(errs, fmt.Sprintf("channel_profiles[%s].channel is required", id))
		}
		if profile.OrchestratorID == "" {
			errs = append(errs, fmt.Sprintf("channel_profiles[%s].orchestrator_id is required", id))
		} else if _, ok := c.Orchestrators[profile.OrchestratorID]; !ok {
			errs = append(errs, fmt.Sprintf("channel_profiles[%s].orchestrator_id references unknown orchestrator %q", id, profile.OrchestratorID))
		}
	}

	if c.Monitoring.HeartbeatIntervalSeconds < 0 {
		errs = append(errs, "monitoring.heartbeat_interval must be >= 0")
	}
	if p := c.Monitoring.OTLPProtocol; p != "" && p != "grpc" && p != "http" {
		errs = append(errs, fmt.Sprintf("monitoring.otlp_protocol %q must be \"grpc\" or \"http\"", p))
	}

	if len(errs) > 0 {
		return &direrrors.ConfigInvalidError{Key: "config.yaml", Reason: strings.Join(errs, "; ")}
	}
	return nil
}
