// Package doctorcmd implements `direclaw doctor`: a read-only health
// check over config validity, orchestrator documents, and daemon
// liveness. Grounded on the teacher's internal/commands/diagnostics
// doctor.go (DoctorResult struct, recommendations list, overall-healthy
// gate), swapping its provider-health-check loop for DireClaw's own
// config/orchestrator/daemon checks.
package doctorcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/lifecycle"
)

// Result is the JSON-shaped health report.
type Result struct {
	StateRoot          string   `json:"stateRoot"`
	ConfigPath         string   `json:"configPath"`
	ConfigExists       bool     `json:"configExists"`
	ConfigValid        bool     `json:"configValid"`
	ConfigError        string   `json:"configError,omitempty"`
	OrchestratorIssues []string `json:"orchestratorIssues,omitempty"`
	DaemonRunning      bool     `json:"daemonRunning"`
	Recommendations    []string `json:"recommendations"`
	Healthy            bool     `json:"healthy"`
}

// NewCommand builds `direclaw doctor`.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check DireClaw's configuration and daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := run(shared.StateRoot())
			if err := shared.PrintResult(result, func() { printText(result) }); err != nil {
				return err
			}
			if !result.Healthy {
				return fmt.Errorf("doctor found issues; see recommendations")
			}
			return nil
		},
	}
}

func run(stateRoot string) Result {
	result := Result{StateRoot: stateRoot, Healthy: true}

	result.ConfigPath = config.GlobalConfigPath(stateRoot)
	if _, err := os.Stat(result.ConfigPath); err == nil {
		result.ConfigExists = true
	} else {
		result.Healthy = false
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("no config found at %s; create it by hand", result.ConfigPath))
	}

	var cfg *config.Config
	if result.ConfigExists {
		var err error
		cfg, err = config.Load(result.ConfigPath)
		if err != nil {
			result.ConfigError = err.Error()
			result.Healthy = false
			result.Recommendations = append(result.Recommendations, "fix config.yaml: "+err.Error())
		} else {
			result.ConfigValid = true
		}
	}

	if cfg != nil {
		if len(cfg.Orchestrators) == 0 {
			result.Healthy = false
			result.Recommendations = append(result.Recommendations, "no orchestrators registered; run `direclaw orchestrator add`")
		}
		for id := range cfg.Orchestrators {
			ocPath := cfg.OrchestratorConfigPath(id)
			if _, err := config.LoadOrchestrator(ocPath); err != nil {
				issue := fmt.Sprintf("orchestrator %s: %s", id, err.Error())
				result.OrchestratorIssues = append(result.OrchestratorIssues, issue)
				result.Healthy = false
				result.Recommendations = append(result.Recommendations, "fix "+ocPath)
			}
		}
	}

	if pid, err := lifecycle.NewPIDFileManager(config.SupervisorLockPath(stateRoot)).Read(); err == nil {
		result.DaemonRunning = lifecycle.IsProcessRunning(pid)
	}
	if !result.DaemonRunning {
		result.Recommendations = append(result.Recommendations, "direclawd is not running; start it with `direclaw start`")
	}

	return result
}

func printText(r Result) {
	fmt.Println("DireClaw Health Check")
	fmt.Printf("state root: %s\n", r.StateRoot)
	fmt.Printf("config: %s (exists=%v valid=%v)\n", r.ConfigPath, r.ConfigExists, r.ConfigValid)
	if r.ConfigError != "" {
		fmt.Printf("  error: %s\n", r.ConfigError)
	}
	for _, issue := range r.OrchestratorIssues {
		fmt.Println("  issue:", issue)
	}
	fmt.Printf("daemon running: %v\n", r.DaemonRunning)
	if len(r.Recommendations) > 0 {
		fmt.Println("recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Println("  -", rec)
		}
	}
	if r.Healthy {
		fmt.Println("overall: healthy")
	} else {
		fmt.Println("overall: issues found")
	}
}
