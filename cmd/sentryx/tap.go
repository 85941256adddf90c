package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentryx/internal/bus"
	"sentryx/internal/cache"
	"sentryx/internal/mempooltap"
)

func tapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tap",
		Short: "Subscribe to pending transactions and publish decoded swaps",
		RunE:  runTap,
	}
}

func runTap(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, pool, s, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	factory := cache.NewFactoryCache(cfg.ChainID, s, pool, logger)

	producer := bus.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID, cfg.KafkaTransactionsTopic)
	defer producer.Close()

	routers := mempooltap.RouterLists{
		Universal: cfg.UniversalRouter,
		V2:        cfg.V2Routers,
		V3:        cfg.V3Routers,
	}

	workers, _ := cmd.Flags().GetInt("workers")

	tap := mempooltap.New(pool, producer, factory, routers, workers, logger)

	logger.Info("mempool tap start",
		zap.Uint64("chainId", cfg.ChainID),
		zap.Int("universalRouters", len(routers.Universal)),
		zap.Int("v2Routers", len(routers.V2)),
		zap.Int("v3Routers", len(routers.V3)),
		zap.Int("workers", workers),
	)

	return tap.Run(ctx)
}
