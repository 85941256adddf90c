package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/bus"
	"sentryx/internal/cache"
	"sentryx/internal/consumer"
	"sentryx/internal/evaluator"
)

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Consume decoded-swap envelopes and detect opportunities",
		RunE:  runConsume,
	}
}

func runConsume(cmd *cobra.Command, _ []string) error {
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
	tokens := cache.NewTokenCache(cfg.ChainID, s, pool, logger)
	pools := cache.NewPoolCache(cfg.ChainID, s, pool, factory, logger)

	evalCfg := evaluator.Config{
		UniversalRouters: cfg.UniversalRouter,
		Quoter:           addrnorm.ToAddress(cfg.QuoterAddress),
	}
	if len(cfg.V2Routers) > 0 {
		evalCfg.CanonicalV2Router = addrnorm.ToAddress(cfg.V2Routers[0])
	}
	if len(cfg.V3Routers) > 0 {
		evalCfg.CanonicalV3Router = addrnorm.ToAddress(cfg.V3Routers[0])
	}

	eval := evaluator.New(evalCfg, tokens, pools, pool, logger)

	busConsumer := bus.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTransactionsTopic)
	defer busConsumer.Close()

	c := consumer.New(busConsumer, eval, pool, s, cfg.ChainID, logger)

	logger.Info("consumer start",
		zap.Uint64("chainId", cfg.ChainID),
		zap.String("topic", cfg.KafkaTransactionsTopic),
		zap.String("groupId", cfg.KafkaGroupID),
	)

	return c.Run(ctx)
}
