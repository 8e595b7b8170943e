// Command recipeforged runs the recipeforge daemon in the foreground. It is
// equivalent to "recipeforge daemon run" and suits service managers that
// expect a dedicated binary.
package main

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"

	"recipeforge/internal/config"
	"recipeforge/internal/daemonrun"
)

func main() {
	var configPath string
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:           "recipeforged",
		Short:         "Run the recipeforge daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return err
			}
			err = daemonrun.Run(cmd.Context(), cfg, opts)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().StringVar(&opts.Bind, "bind", "", "Override api.bind")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("recipeforged: %v", err)
	}
}
