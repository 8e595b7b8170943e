package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recipeforge/internal/daemonrun"
	"recipeforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		raw       bool
		jobID     string
		component string
		level     string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := logs.Filter{JobID: strings.TrimSpace(jobID), Component: strings.TrimSpace(component)}
			if strings.TrimSpace(level) != "" {
				var floor slog.Level
				if err := floor.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q", level)
				}
				filter.MinLevel = &floor
			}
			path := daemonrun.CurrentLogPath(ctx.configValue())
			out := cmd.OutOrStdout()
			emit := func(batch []string) {
				for _, line := range batch {
					if raw {
						fmt.Fprintln(out, line)
						continue
					}
					fmt.Fprintln(out, logs.FormatLine(line))
				}
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			emit(result.Lines)
			offset := result.Offset
			for follow {
				result, err = logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset, Follow: true, Wait: 2 * time.Second, Filter: filter,
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				emit(result.Lines)
				offset = result.Offset
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	cmd.Flags().StringVar(&jobID, "job", "", "Only records for this job id")
	cmd.Flags().StringVar(&component, "component", "", "Only records from this component")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
