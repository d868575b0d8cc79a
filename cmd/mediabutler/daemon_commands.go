package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediabutler/internal/config"
	"mediabutler/internal/daemonctl"
	"mediabutler/internal/ipc"
	"mediabutler/internal/store"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mediabutler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the mediabutler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the mediabutler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := buildStatusSnapshot(cmd.Context(), ctx, cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("MediaButler", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Queue", statusOK, fmt.Sprintf("%d/%d queued, %d in flight", statusResp.QueueDepth, statusResp.QueueCapacity, statusResp.JobsInFlight), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Jobs", statusOK, fmt.Sprintf("%d completed, %d failed", statusResp.JobsCompleted, statusResp.JobsFailed), colorize))
				if strings.TrimSpace(statusResp.APIBind) != "" {
					fmt.Fprintln(stdout, renderStatusLine("HTTP API", statusOK, statusResp.APIBind, colorize))
				}
			} else {
				fmt.Fprintln(stdout, renderStatusLine("MediaButler", statusWarn, "Not running (run `mediabutler start`)", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range buildPathChecks(cfg) {
				fmt.Fprintln(stdout, renderStatusLine(line.label, line.kind, line.detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Files", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildFileStatusRows(statusResp.FilesByStatus)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No tracked files")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// buildStatusSnapshot prefers live daemon state and falls back to reading the
// store directly when the daemon is offline.
func buildStatusSnapshot(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{}

	client, err := ipc.Dial(ctx.socketPath())
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running {
		queryCtx, cancel := context.WithTimeout(cmdCtx, 2*time.Second)
		defer cancel()

		st, openErr := store.Open(cfg)
		if openErr == nil {
			stats, statsErr := st.Stats(queryCtx)
			_ = st.Close()
			if statsErr == nil {
				statusResp.FilesByStatus = make(map[string]int, len(stats))
				for status, count := range stats {
					statusResp.FilesByStatus[string(status)] = count
				}
			}
		}
		statusResp.DatabasePath = cfg.DatabasePath()
		statusResp.LockPath = cfg.LockFilePath()
		statusResp.APIBind = cfg.Paths.APIBind
	}

	return statusResp, nil
}

type pathCheck struct {
	label  string
	kind   statusKind
	detail string
}

func buildPathChecks(cfg *config.Config) []pathCheck {
	if cfg == nil {
		return nil
	}
	checks := make([]pathCheck, 0, 3+len(cfg.Paths.WatchFolders))
	checks = append(checks, checkDirectory("Library", cfg.Paths.LibraryRoot))
	checks = append(checks, checkDirectory("Pending review", cfg.Paths.PendingReview))
	for i, folder := range cfg.Paths.WatchFolders {
		checks = append(checks, checkDirectory(fmt.Sprintf("Watch folder %d", i+1), folder))
	}
	return checks
}

func checkDirectory(label, path string) pathCheck {
	if strings.TrimSpace(path) == "" {
		return pathCheck{label: label, kind: statusWarn, detail: "not configured"}
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return pathCheck{label: label, kind: statusError, detail: fmt.Sprintf("%s (unreachable)", path)}
	case !info.IsDir():
		return pathCheck{label: label, kind: statusError, detail: fmt.Sprintf("%s (not a directory)", path)}
	default:
		return pathCheck{label: label, kind: statusOK, detail: path}
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.configFlag != nil {
		if cfgPath := strings.TrimSpace(*ctx.configFlag); cfgPath != "" {
			opts.ConfigPath = cfgPath
		}
	}
	return opts
}
