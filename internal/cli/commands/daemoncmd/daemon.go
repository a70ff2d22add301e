// Package daemoncmd implements the `direclaw start|stop|restart|status|logs`
// verbs: spawning/signaling the direclawd supervisor process and reading
// its persisted runtime state. Grounded on the teacher's
// internal/commands/daemon (serve.go's cobra shape) combined with
// internal/lifecycle's pre-existing PID-file/process/spawn primitives,
// which the teacher's serve command doesn't use (it runs in the
// foreground) but internal/lifecycle's own doc comments describe as
// built for exactly this detached-daemon use case.
package daemoncmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/direclaw/direclaw/internal/cli/shared"
	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/lifecycle"
	"github.com/direclaw/direclaw/internal/supervisor"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

const gracefulShutdownTimeout = 15 * time.Second

// daemonBinary resolves the direclawd binary path: a sibling of the
// running direclaw executable, falling back to $PATH.
func daemonBinary() (string, error) {
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "direclawd")
		if _, statErr := os.Stat(sibling); statErr == nil {
			return sibling, nil
		}
	}
	return exec.LookPath("direclawd")
}

func readPID(stateRoot string) (int, error) {
	pm := lifecycle.NewPIDFileManager(config.SupervisorLockPath(stateRoot))
	return pm.Read()
}

// NewStartCommand implements `direclaw start`.
func NewStartCommand() *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the direclawd supervisor daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateRoot := shared.StateRoot()

			if pid, err := readPID(stateRoot); err == nil && lifecycle.IsProcessRunning(pid) {
				return &direrrors.AlreadyRunningError{PID: pid}
			}

			binary, err := daemonBinary()
			if err != nil {
				return fmt.Errorf("locate direclawd binary: %w", err)
			}

			daemonArgs := []string{"--state-root", stateRoot}
			if foreground {
				daemonArgs = append(daemonArgs, "--foreground")
				run := exec.Command(binary, daemonArgs...)
				run.Stdout, run.Stderr, run.Stdin = os.Stdout, os.Stderr, os.Stdin
				return run.Run()
			}

			spawner := lifecycle.NewSpawner()
			pid, err := spawner.SpawnDetached(binary, daemonArgs, config.RuntimeLogPath(stateRoot))
			if err != nil {
				return fmt.Errorf("spawn direclawd: %w", err)
			}

			// Give the daemon a moment to crash on startup (bad config, lock
			// contention) before reporting success.
			time.Sleep(200 * time.Millisecond)
			if !lifecycle.IsProcessRunning(pid) {
				return fmt.Errorf("direclawd (pid %d) exited immediately after start; check %s", pid, config.RuntimeLogPath(stateRoot))
			}

			return shared.PrintResult(map[string]any{"pid": pid, "state": "started"}, func() {
				fmt.Printf("direclawd started (pid %d)\n", pid)
			})
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run the daemon in the foreground instead of detaching")
	return cmd
}

// NewStopCommand implements `direclaw stop`.
func NewStopCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running direclawd supervisor daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateRoot := shared.StateRoot()
			pid, err := readPID(stateRoot)
			if err != nil {
				return fmt.Errorf("direclawd is not running: %w", err)
			}
			if err := lifecycle.GracefulShutdown(pid, gracefulShutdownTimeout, force); err != nil {
				return fmt.Errorf("stop direclawd (pid %d): %w", pid, err)
			}
			return shared.PrintResult(map[string]any{"pid": pid, "state": "stopped"}, func() {
				fmt.Printf("direclawd (pid %d) stopped\n", pid)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Send SIGKILL if the daemon does not exit gracefully")
	return cmd
}

// NewRestartCommand implements `direclaw restart`.
func NewRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the direclawd supervisor daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateRoot := shared.StateRoot()
			if pid, err := readPID(stateRoot); err == nil && lifecycle.IsProcessRunning(pid) {
				if err := lifecycle.GracefulShutdown(pid, gracefulShutdownTimeout, true); err != nil {
					return fmt.Errorf("stop direclawd (pid %d) before restart: %w", pid, err)
				}
			}

			binary, err := daemonBinary()
			if err != nil {
				return fmt.Errorf("locate direclawd binary: %w", err)
			}
			spawner := lifecycle.NewSpawner()
			pid, err := spawner.SpawnDetached(binary, []string{"--state-root", stateRoot}, config.RuntimeLogPath(stateRoot))
			if err != nil {
				return fmt.Errorf("spawn direclawd: %w", err)
			}
			return shared.PrintResult(map[string]any{"pid": pid, "state": "restarted"}, func() {
				fmt.Printf("direclawd restarted (pid %d)\n", pid)
			})
		},
	}
}

// NewStatusCommand implements `direclaw status`.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the supervisor daemon's runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := supervisor.Status(shared.StateRoot())
			var stale *direrrors.StaleSupervisorError
			if err != nil && !direrrors.As(err, &stale) {
				return err
			}
			return shared.PrintResult(status, func() {
				fmt.Printf("state: %s\n", status.State)
				if status.PID != 0 {
					fmt.Printf("pid: %d\n", status.PID)
				}
				for _, w := range status.Workers {
					fmt.Printf("worker %s: ticks=%d last_error=%q\n", w.ID, w.TickCount, w.LastError)
				}
				if err != nil {
					fmt.Println("note:", err.Error())
				}
			})
		},
	}
}

// NewLogsCommand implements `direclaw logs`.
func NewLogsCommand() *cobra.Command {
	var follow bool
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the supervisor daemon's runtime log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.RuntimeLogPath(shared.StateRoot())
			if err := printTail(path, lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return followFile(cmd, path)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep reading as the log grows")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print initially")
	return cmd
}

func printTail(path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	start := 0
	if len(all) > n {
		start = len(all) - n
	}
	for _, line := range all[start:] {
		fmt.Println(line)
	}
	return nil
}

func followFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		return err
	}

	ctx := cmd.Context()
	reader := bufio.NewReader(f)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			fmt.Print(line)
		}
		if err != nil {
			time.Sleep(500 * time.Millisecond)
		}
	}
}
