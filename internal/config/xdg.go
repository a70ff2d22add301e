package config

import (
	"os"
	"path/filepath"
)

// DefaultStateRoot returns the default DireClaw state root, anchored at
// $HOME per spec §6 ("Filesystem layout ... default ~/.direclaw").
func DefaultStateRoot() string {
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".direclaw")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".direclaw")
	}
	return filepath.Join(home, ".direclaw")
}

// GlobalConfigPath returns <state_root>/config.yaml.
func GlobalConfigPath(stateRoot string) string {
	return filepath.Join(stateRoot, "config.yaml")
}

// OrchestratorRegistryPath returns <state_root>/config-orchestrators.yaml.
func OrchestratorRegistryPath(stateRoot string) string {
	return filepath.Join(stateRoot, "config-orchestrators.yaml")
}

// RuntimeStatePath returns <state_root>/daemon/runtime.json.
func RuntimeStatePath(stateRoot string) string {
	return filepath.Join(stateRoot, "daemon", "runtime.json")
}

// SupervisorLockPath returns <state_root>/daemon/supervisor.lock.
func SupervisorLockPath(stateRoot string) string {
	return filepath.Join(stateRoot, "daemon", "supervisor.lock")
}

// RuntimeLogPath returns <state_root>/logs/runtime.log.
func RuntimeLogPath(stateRoot string) string {
	return filepath.Join(stateRoot, "logs", "runtime.log")
}

// SecurityLogPath returns <state_root>/logs/security.log.
func SecurityLogPath(stateRoot string) string {
	return filepath.Join(stateRoot, "logs", "security.log")
}

// ControlSocketPath returns <state_root>/control/control.sock, the unix
// socket the control-plane server binds and the CLI client dials.
func ControlSocketPath(stateRoot string) string {
	return filepath.Join(stateRoot, "control", "control.sock")
}

// AgentResetFlagPath returns the one-shot reset flag file for agentID
// under orchestratorRoot. Its presence tells the provider runner (spec
// §4.6) to omit the resume/-c switch on that agent's next invocation;
// the runner deletes it after a successful attempt.
func AgentResetFlagPath(orchestratorRoot, agentID string) string {
	return filepath.Join(orchestratorRoot, "agents", agentID, "reset.flag")
}

// OrchestratorRoot resolves an orchestrator's private runtime root: its
// configured PrivateWorkspace if set, else <workspaces_path>/<id>.
func OrchestratorRoot(workspacesPath, privateWorkspace, orchestratorID string) string {
	if privateWorkspace != "" {
		return privateWorkspace
	}
	return filepath.Join(workspacesPath, orchestratorID)
}
