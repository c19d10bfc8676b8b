package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/overall-progress/internal/server"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll continuously and keep the indicator in sync",
		Long: `Polls the progress endpoint on the configured interval, renders every
response into the selected view and serves the status API until SIGINT or
SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	app, err := server.Build(cmd.Context(), e.cfg, e.logger, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}
	if err := app.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run watcher: %w", err)
	}
	return nil
}
