package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/config"
	"reelforge/internal/daemonrun"
	"reelforge/internal/deps"
	"reelforge/internal/ipc"
	"reelforge/internal/preflight"
	"reelforge/internal/queue"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the reelforge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// A second daemon on the same socket would tear down the live
			// one's listener, so probe before starting.
			socket := ctx.socketPath()
			if client, dialErr := ipc.Dial(socket); dialErr == nil {
				statusResp, statusErr := client.Status()
				_ = client.Close()
				if statusErr == nil && statusResp != nil && statusResp.Running {
					fmt.Fprintln(stdout, "Daemon already running")
					return nil
				}
			}

			fmt.Fprintf(stdout, "Starting daemon (logs: %s)\n", cfg.Paths.LogDir)
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: ctx.resolvedLogLevel()})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the reelforge daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			client, err := ipc.Dial(socket)
			if err != nil {
				if isDaemonUnavailable(err) {
					fmt.Fprintln(stdout, "Daemon is not running")
					return nil
				}
				return wrapDialError(err, socket)
			}

			statusResp, statusErr := client.Status()
			pid := 0
			lockPath := ""
			if statusErr == nil && statusResp != nil {
				pid = statusResp.PID
				lockPath = statusResp.LockPath
			}

			_, stopErr := client.Stop()
			_ = client.Close()
			if stopErr != nil {
				return stopErr
			}
			fmt.Fprintln(stdout, "Stopping daemon...")

			if err := waitForShutdown(socket, 5*time.Second); err != nil {
				logDir := ""
				if lockPath != "" {
					logDir = filepath.Dir(lockPath)
				} else if cfg := ctx.configValue(); cfg != nil {
					logDir = cfg.Paths.LogDir
				}
				if logDir == "" {
					return err
				}
				killed, killErr := forceKillDaemon(logDir, pid, socket)
				if killErr != nil {
					return fmt.Errorf("failed to stop daemon process: %w", killErr)
				}
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", killed)
			}

			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var statusResp *ipc.StatusResponse
			if client, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
				if resp, statusErr := client.Status(); statusErr == nil {
					statusResp = resp
				}
				_ = client.Close()
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemLines(cfg, statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}

			if statusResp != nil && len(statusResp.Checks) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Startup Checks", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, check := range statusResp.Checks {
					kind := statusError
					if check.Passed {
						kind = statusOK
					}
					fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}

			stats, statsErr := resolveQueueStats(cmd, ctx, statusResp)
			if statsErr != nil {
				return statsErr
			}
			rows := buildQueueStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

// systemLines builds the status lines that do not need the daemon: directory
// and disk checks plus config-derived summaries. The daemon line itself uses
// the IPC response when one arrived.
func systemLines(cfg *config.Config, statusResp *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 8)

	if statusResp != nil && statusResp.Running {
		uptime := time.Duration(statusResp.UptimeSeconds * float64(time.Second)).Round(time.Second)
		detail := fmt.Sprintf("Running (pid %d, workers %d, uptime %s)", statusResp.PID, statusResp.Workers, uptime)
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running (run `reelforge start`)", colorize))
	}

	for _, dir := range []struct {
		label string
		path  string
	}{
		{"Data dir", cfg.Paths.DataDir},
		{"Output dir", cfg.Paths.OutputDir},
		{"Log dir", cfg.Paths.LogDir},
	} {
		lines = append(lines, checkLine(preflight.CheckDirectoryAccess(dir.label, dir.path), colorize))
	}

	lines = append(lines, checkLine(preflight.CheckDiskSpace(cfg.Paths.DataDir), colorize))
	lines = append(lines, checkLine(preflight.CheckStockMedia(cfg), colorize))
	lines = append(lines, checkLine(preflight.CheckNotificationsFromConfig(cfg), colorize))
	lines = append(lines, checkLine(preflight.CheckCacheFromConfig(cfg), colorize))
	return lines
}

func checkLine(result preflight.Result, colorize bool) string {
	kind := statusError
	switch {
	case result.Passed && strings.EqualFold(strings.TrimSpace(result.Detail), "Disabled"):
		kind = statusInfo
	case result.Passed:
		kind = statusOK
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

// resolveQueueStats prefers the daemon's counts and falls back to opening the
// queue database directly.
func resolveQueueStats(cmd *cobra.Command, ctx *commandContext, statusResp *ipc.StatusResponse) (ipc.QueueStats, error) {
	if statusResp != nil && statusResp.Running {
		return statusResp.Queue, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ipc.QueueStats{}, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return ipc.QueueStats{}, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	summary, err := store.Health(cmd.Context())
	if err != nil {
		return ipc.QueueStats{}, err
	}
	return ipc.FromHealthSummary(summary), nil
}

func buildQueueStatusRows(stats ipc.QueueStats) [][]string {
	if stats.Total == 0 {
		return nil
	}
	rows := make([][]string, 0, 5)
	for _, entry := range []struct {
		label string
		count int
	}{
		{"pending", stats.Pending},
		{"processing", stats.Processing},
		{"succeeded", stats.Succeeded},
		{"failed", stats.Failed},
	} {
		if entry.count == 0 {
			continue
		}
		rows = append(rows, []string{entry.label, strconv.Itoa(entry.count)})
	}
	rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
	return rows
}
