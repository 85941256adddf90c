package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentryx/internal/config"
	"sentryx/internal/rpcpool"
	"sentryx/internal/store"
)

// loadConfig reads the --config file plus the command's own flags, since
// cobra's persistent flags are only visible on cmd.Flags() once the
// command has actually been invoked.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

// bootstrap wires the RPC pool and database store shared by every
// subcommand, and builds the matching logger.
func bootstrap(ctx context.Context, cfg config.Config) (*zap.Logger, *rpcpool.Pool, *store.Store, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}

	pool := rpcpool.New(cfg.HTTPRPCURLs, cfg.WSSRPCURL, logger)

	s, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect store: %w", err)
	}

	return logger, pool, s, nil
}
