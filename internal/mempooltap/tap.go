// Package mempooltap subscribes to a WebSocket provider's pending-
// transaction feed and publishes decoded swaps to the bus. Grounded on
// the mev-stack teacher's internal/mempool.Monitor subscribe/fan-out
// loop (subscribeLoop + per-tx handler, reconnect-on-error), adapted to
// route into the bus producer instead of an FFI channel, and to hydrate
// each hash through the RPC pool rather than trusting the subscription
// payload directly.
package mempooltap

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/bus"
	"sentryx/internal/cache"
	"sentryx/internal/decode"
	"sentryx/internal/model"
	"sentryx/internal/rpcpool"
)

const startupGrace = time.Second

// RouterLists is the three case-insensitive allow-lists the tap routes
// tx.to against (spec.md §4.6 step 4).
type RouterLists struct {
	Universal []string
	V2        []string
	V3        []string
}

// Tap owns the long-lived WebSocket subscription and the worker pool that
// hydrates, decodes, and publishes each pending hash.
type Tap struct {
	pool      *rpcpool.Pool
	producer  *bus.Producer
	factory   *cache.FactoryCache
	routers   RouterLists
	workers   int
	logger    *zap.Logger
	startedAt time.Time
}

// New builds a Tap. workers bounds the number of pending hashes handled
// concurrently; spec.md §4.6 only requires independence, not a specific
// pool size, so this is left to the caller to size for its RPC budget.
// factory resolves each V2 router's WETH address, which the V2 decoder
// uses as the native leg of the ETH-denominated decode variants.
func New(pool *rpcpool.Pool, producer *bus.Producer, factory *cache.FactoryCache, routers RouterLists, workers int, logger *zap.Logger) *Tap {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 16
	}
	return &Tap{pool: pool, producer: producer, factory: factory, routers: routers, workers: workers, logger: logger}
}

// Run subscribes to the pending feed and blocks until ctx is cancelled,
// reconnecting on subscription error per the teacher's subscribeLoop.
func (t *Tap) Run(ctx context.Context) error {
	t.startedAt = time.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.subscribeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn("pending subscription error, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (t *Tap) subscribeOnce(ctx context.Context) error {
	client, err := t.pool.DialPending(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	hashCh := make(chan common.Hash, 1024)
	sub, err := client.Client().EthSubscribe(ctx, hashCh, "newPendingTransactions")
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	t.logger.Info("subscribed to pending transactions")

	sem := make(chan struct{}, t.workers)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case hash := <-hashCh:
			sem <- struct{}{}
			go func(h common.Hash) {
				defer func() { <-sem }()
				t.handleHash(ctx, h)
			}(hash)
		}
	}
}

func (t *Tap) handleHash(ctx context.Context, hash common.Hash) {
	if time.Since(t.startedAt) < startupGrace {
		return
	}

	tx, isPending, err := t.pool.GetTransactionByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.Debug("failed to hydrate pending hash, dropping", zap.String("hash", hash.Hex()), zap.Error(err))
		}
		return
	}
	if tx == nil || tx.To() == nil {
		return
	}
	if !isPending {
		// Already mined between subscription and hydrate; not a fresh
		// pending opportunity.
		return
	}

	router := *tx.To()
	lowerRouter := addrnorm.Lower(router)

	swaps := t.decode(ctx, tx, router, lowerRouter)
	for _, swap := range swaps {
		env := model.Envelope{
			TxHash:        tx.Hash().Hex(),
			DecodedTx:     *swap,
			RouterAddress: lowerRouter,
			Timestamp:     time.Now().UnixMilli(),
		}
		if err := t.producer.PublishEnvelope(ctx, env); err != nil {
			t.logger.Warn("failed to publish decoded swap", zap.String("txHash", env.TxHash), zap.Error(err))
		}
	}
}

func (t *Tap) decode(ctx context.Context, tx *types.Transaction, router common.Address, lowerRouter string) []*model.DecodedSwap {
	switch {
	case addrnorm.InList(lowerRouter, t.routers.Universal):
		swaps, err := decode.Universal(tx, router)
		if err != nil {
			t.logger.Debug("universal decode failed", zap.Error(err))
			return nil
		}
		return swaps

	case addrnorm.InList(lowerRouter, t.routers.V2):
		factoryRec, err := t.factory.GetFactory(ctx, router, model.FamilyV2)
		if err != nil {
			t.logger.Debug("failed to resolve v2 router's wrapped native", zap.String("router", lowerRouter), zap.Error(err))
			return nil
		}
		wrappedNative := common.HexToAddress(factoryRec.WrappedNativeAddress)
		swap, err := decode.V2(tx, router, wrappedNative)
		if err != nil || swap == nil {
			return nil
		}
		return []*model.DecodedSwap{swap}

	case addrnorm.InList(lowerRouter, t.routers.V3):
		swap, err := decode.V3(tx, router)
		if err != nil || swap == nil {
			return nil
		}
		return []*model.DecodedSwap{swap}

	default:
		return nil
	}
}
