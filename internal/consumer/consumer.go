// Package consumer runs the bus-to-opportunity loop: read decoded-swap
// envelopes, gate on age and already-mined status, run the evaluator, and
// persist any detected opportunity. Grounded on the teacher's
// internal/indexer.Runner batch loop shape (fetch -> per-item error-
// tolerant processing -> persist), adapted from a block-range filter-logs
// loop to a per-message bus-read loop.
package consumer

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/bus"
	"sentryx/internal/evaluator"
	"sentryx/internal/model"
	"sentryx/internal/rpcpool"
	"sentryx/internal/store"
)

const maxMessageAge = 10 * time.Minute

// Consumer drains the transactions topic and writes detected opportunities.
type Consumer struct {
	bus       *bus.Consumer
	evaluator *evaluator.Evaluator
	rpcPool   *rpcpool.Pool
	store     *store.Store
	chainID   uint64
	logger    *zap.Logger
}

// New builds a Consumer bound to a single chain ID.
func New(busConsumer *bus.Consumer, eval *evaluator.Evaluator, rpcPool *rpcpool.Pool, s *store.Store, chainID uint64, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{bus: busConsumer, evaluator: eval, rpcPool: rpcPool, store: s, chainID: chainID, logger: logger}
}

// Run drains messages until ctx is cancelled. A single message's failure
// is logged and never aborts the loop (spec.md §4.7).
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.bus.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("failed to read bus message, continuing", zap.Error(err))
			continue
		}
		c.handleMessage(ctx, msg)
	}
}

// isTooOld applies the 10-minute age gate, preferring the envelope's own
// timestamp and falling back to the broker's when it is unset.
func isTooOld(envelopeTimestamp, brokerTimestamp, nowMillis int64) bool {
	msgTime := envelopeTimestamp
	if msgTime == 0 {
		msgTime = brokerTimestamp
	}
	return nowMillis-msgTime > maxMessageAge.Milliseconds()
}

func (c *Consumer) handleMessage(ctx context.Context, msg bus.Message) {
	env := msg.Envelope

	if isTooOld(env.Timestamp, msg.BrokerTimestamp, time.Now().UnixMilli()) {
		return
	}

	// Already-mined gate.
	if env.BlockNumber != nil {
		return
	}

	swap := env.DecodedTx
	// Rehydrate amountIn into a canonical base-10 string (already stored
	// as decimal text on the wire; this confirms it parses as a 256-bit
	// integer rather than silently carrying garbage through to the
	// evaluator).
	if _, ok := new(big.Int).SetString(swap.AmountIn, 10); !ok && swap.AmountIn != "" {
		c.logger.Warn("envelope amountIn is not a valid integer, dropping", zap.String("txHash", env.TxHash))
		return
	}

	router := addrnorm.LowerString(env.RouterAddress)

	type detectResult struct {
		verdict evaluator.Verdict
		err     error
	}
	type blockResult struct {
		height uint64
		err    error
	}
	detectCh := make(chan detectResult, 1)
	blockCh := make(chan blockResult, 1)

	go func() {
		v, err := c.evaluator.Detect(ctx, env.TxHash, &swap, addrnorm.ToAddress(router))
		detectCh <- detectResult{v, err}
	}()
	go func() {
		h, err := c.rpcPool.BlockNumber(ctx)
		blockCh <- blockResult{h, err}
	}()

	detect := <-detectCh
	block := <-blockCh

	if detect.err != nil {
		c.logger.Warn("detect failed, dropping message", zap.String("txHash", env.TxHash), zap.Error(detect.err))
		return
	}
	if !detect.verdict.IsOpportunity {
		return
	}
	if block.err != nil {
		c.logger.Warn("current block fetch failed", zap.String("txHash", env.TxHash), zap.Error(block.err))
	}

	status := model.StatusDetected
	if detect.verdict.IsExpired {
		status = model.StatusExpired
	}

	var blockNumber *uint64
	if block.err == nil {
		h := block.height
		blockNumber = &h
	}

	now := time.Now().UTC().Format(time.RFC3339)
	opp := model.Opportunity{
		ChainID:      c.chainID,
		TxHash:       addrnorm.LowerString(env.TxHash),
		Router:       router,
		RouterFamily: swap.RouterFamily,
		TokenIn:      addrnorm.LowerString(swap.TokenIn),
		TokenOut:     addrnorm.LowerString(swap.TokenOut),
		AmountIn:     swap.AmountIn,
		AmountOut:    detect.verdict.AmountOut,
		AmountOutMin: swap.AmountOutMin,
		Fee:          swap.Fee,
		PoolAddress:  addrnorm.LowerString(detect.verdict.PoolAddress),
		Method:       swap.Method,
		Recipient:    addrnorm.LowerString(swap.Recipient),
		Deadline:     swap.Deadline,
		BlockNumber:  blockNumber,
		Status:       status,
		DetectedAt:   now,
		ProcessedAt:  now,
		Metadata: model.OpportunityMeta{
			Decimals:            detect.verdict.Decimals,
			DecodedTx:           swap,
			Reason:              detect.verdict.Reason,
			PriceImpact:         detect.verdict.PriceImpact,
			ExpectedProfit:      detect.verdict.ExpectedProfit,
			TimeToSubmitSeconds: detect.verdict.TimeToSubmitSeconds,
			DeadlineTimestamp:   detect.verdict.DeadlineTimestamp,
			IsExpired:           detect.verdict.IsExpired,
		},
	}

	if err := c.store.UpsertOpportunity(ctx, opp); err != nil {
		c.logger.Warn("failed to persist opportunity", zap.String("txHash", env.TxHash), zap.Error(err))
	}
}
