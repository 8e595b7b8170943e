package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recipeforge/internal/content"
	"recipeforge/internal/daemonctl"
	"recipeforge/internal/daemonrun"
	"recipeforge/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the recipeforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := newController(ctx, startLogLevel)
			if err != nil {
				return err
			}
			result, err := controller.Start(cmd.Context())
			if err != nil {
				return err
			}
			if result.AlreadyRunning {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon already running")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon started")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the daemon process")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the recipeforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			controller, err := newController(ctx, "")
			if err != nil {
				return err
			}
			result, err := controller.Stop(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the recipeforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			controller, err := newController(ctx, restartLogLevel)
			if err != nil {
				return err
			}
			result, err := controller.Restart(cmd.Context())
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintf(stdout, "Stopped daemon (pid %d)\n", result.Stop.PID)
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override logging.level for the daemon process")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			p := newPanel(stdout)
			cfg := ctx.configValue()

			p.header("Daemon")
			proc, pidErr := daemonctl.ProcessInfo(daemonrun.PIDPath(cfg))
			switch {
			case pidErr != nil:
				p.line("Process", statusWarn, pidErr.Error())
			case proc.Alive:
				p.line("Process", statusOK, "pid "+strconv.Itoa(proc.PID))
			default:
				p.line("Process", statusInfo, "no pid file")
			}

			health, healthErr := ctx.apiClient().Health(cmd.Context())
			if healthErr != nil {
				p.line("API", statusError, healthErr.Error())
			}
			fmt.Fprintln(stdout)

			p.header("System Checks")
			for _, check := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				p.line(check.Name, kind, check.Detail)
			}
			if healthErr != nil {
				return nil
			}
			fmt.Fprintln(stdout)
			p.header("API")
			kind := statusOK
			if health.Status != "ok" {
				kind = statusWarn
			}
			p.line("API", kind, health.Status)
			p.line("Store", kind, health.Store)
			p.line("Uptime", statusInfo, (time.Duration(health.UptimeSeconds) * time.Second).String())
			fmt.Fprintln(stdout)

			p.header("Work Queue")
			rows := buildTaskRows(health.Tasks)
			printTable(stdout, "Queue is empty", []string{"Kind", "Status", "Count"}, rows, "llr")
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// newDaemonCommand hosts "daemon run", the foreground process that start
// launches in the background.
func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon process commands",
	}

	var opts daemonrun.Options
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	runCmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	runCmd.Flags().StringVar(&opts.Bind, "bind", "", "Override api.bind")
	runCmd.Flags().BoolVar(&opts.Development, "dev", false, "Human-friendly development logging")
	daemonCmd.AddCommand(runCmd)
	return daemonCmd
}

func buildTaskRows(counts map[content.TaskKind]map[content.TaskStatus]int) [][]string {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	order := []content.TaskStatus{content.TaskQueued, content.TaskRunning, content.TaskDone, content.TaskFailed}
	rows := make([][]string, 0)
	for _, kind := range kinds {
		byStatus := counts[content.TaskKind(kind)]
		for _, status := range order {
			if n := byStatus[status]; n > 0 {
				rows = append(rows, []string{kind, string(status), strconv.Itoa(n)})
			}
		}
	}
	return rows
}

// newController targets the daemon described by the loaded config, relaunching
// this executable with the same --config.
func newController(ctx *commandContext, logLevel string) (*daemonctl.Controller, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	cfg := ctx.configValue()
	return &daemonctl.Controller{
		Executable: exe,
		PIDPath:    daemonrun.PIDPath(cfg),
		LockPath:   cfg.LockPath(),
		Health:     ctx.apiClient(),
		Launch: daemonctl.LaunchOptions{
			ConfigPath: strings.TrimSpace(ctx.flags.config),
			LogLevel:   strings.TrimSpace(logLevel),
		},
		StopGrace: 10 * time.Second,
		StartWait: 10 * time.Second,
	}, nil
}
