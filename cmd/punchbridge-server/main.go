package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/config"
	"github.com/BrandonDHaskell/punchbridge/internal/logger"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	LogLevel string
	cfg      config.Config
	log      *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "punchbridge-server",
		Short:         "Attendance punch bridge: MQTT in, SQLite log, HTTP queries out",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.FromEnv()
			if opts.LogLevel != "" {
				opts.cfg.LogLevel = opts.LogLevel
			}
			log, err := logger.New(opts.cfg.LogLevel, opts.cfg.LogFormat)
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
		// Running without a subcommand serves.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}
