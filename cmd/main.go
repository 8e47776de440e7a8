package main

import (
	"fmt"
	"os"

	"salesgenius/internal/config"
	"salesgenius/internal/infrastructure"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "salesgenius",
		Short:         "SalesGenius chatbot API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newMigrateCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err := infrastructure.Migrate(cfg.DatabaseURL, args[0]); err != nil {
				return err
			}
			log.Info().Str("direction", args[0]).Msg("migrations applied")
			return nil
		},
	}
}
