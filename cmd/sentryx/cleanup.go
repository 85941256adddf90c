package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sentryx/internal/cleanup"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Periodically sweep expired and stale opportunities",
		RunE:  runCleanup,
	}
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _, s, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sweeper := cleanup.New(s, logger)

	logger.Info("cleanup sweeper start")

	return sweeper.Run(ctx)
}
