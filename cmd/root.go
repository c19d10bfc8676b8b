// Package cmd defines the progresswatch CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/config"
	"github.com/JakeFAU/overall-progress/internal/logging"
)

// envKeyType is the key for storing the loaded environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// env carries what every subcommand needs once flags and config are resolved.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// flagBindings maps persistent flags onto config keys so flags take part in
// viper resolution with the file and the environment.
var flagBindings = map[string]string{
	"base-url":       "poller.base_url",
	"path":           "poller.path",
	"interval":       "poller.interval",
	"activity-field": "poller.activity_field",
	"view":           "view.kind",
	"page-url":       "view.page_url",
	"server":         "server.enabled",
	"port":           "server.port",
	"log-level":      "logging.level",
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "progresswatch",
		Short: "Mirror a task runner's overall progress into a progress indicator.",
		Long: `progresswatch polls the task runner's /overall-progress/ endpoint and keeps
a progress indicator in sync with it: a terminal bar, a page in headless
Chrome, or an in-memory document exposed over the status API.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			for name, key := range flagBindings {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
			cfg, err := config.LoadFrom(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), envKey, &env{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok && e != nil {
				_ = e.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("base-url", "", "task runner base URL")
	flags.String("path", "", "progress endpoint path")
	flags.Duration("interval", 0, "poll interval")
	flags.String("activity-field", "", "activity flag field (is_active or is_running_or_pending)")
	flags.String("view", "", "where to render: terminal, browser or memory")
	flags.String("page-url", "", "page hosting the indicator when --view=browser")
	flags.Bool("server", true, "serve the status API")
	flags.Int("port", 0, "status API port")
	flags.String("log-level", "", "minimum log level")

	cmd.AddCommand(newWatchCmd(), newOnceCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not initialized")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "progresswatch:", err)
		os.Exit(1)
	}
}
