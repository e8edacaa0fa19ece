package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/pkg/config"
	"github.com/noah-isme/edumarket-api/pkg/logger"
)

// app is the configuration and logger shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &app{}

	root := &cobra.Command{
		Use:           "api-gateway",
		Short:         "EduMarket API server and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt.cfg = cfg
			rt.logger = logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	serve := newServeCmd(rt)
	root.AddCommand(serve, newMigrateCmd(rt), newSeedCmd(rt))
	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	return root
}
