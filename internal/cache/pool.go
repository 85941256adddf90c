package cache

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
	"sentryx/internal/rpcpool"
	"sentryx/internal/store"
)

const defaultV3Fee = "2500"

// PoolStore is the subset of *store.Store the pool cache needs.
type PoolStore interface {
	FindPool(ctx context.Context, chainID uint64, token0, token1, family string) (model.PoolRecord, bool, error)
	UpsertPool(ctx context.Context, rec model.PoolRecord) error
}

// PoolCache resolves a (tokenA, tokenB, router, family[, fee]) pair to its
// on-chain pool address. Unlike the token and factory caches it is not
// DB-first: every lookup calls the factory's getPair/getPool on-chain with a
// 15s window, writes a found pool through to the DB, and searches the DB
// only when that on-chain call times out (spec.md §4.2's pool cache).
type PoolCache struct {
	store    PoolStore
	pool     *rpcpool.Pool
	factory  *FactoryCache
	logger   *zap.Logger
	chainID  uint64
}

// NewPoolCache builds a PoolCache bound to a single chain ID.
func NewPoolCache(chainID uint64, s *store.Store, pool *rpcpool.Pool, factory *FactoryCache, logger *zap.Logger) *PoolCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolCache{store: s, pool: pool, factory: factory, logger: logger, chainID: chainID}
}

// GetPool resolves the pool for (tokenA, tokenB) behind router, of the
// given family. fee is only consulted for V3 lookups; pass nil for V2.
// Returns (rec, false, nil) when the pool is absent (zero address either
// on-chain or cached) — never an error for "no pool here".
func (c *PoolCache) GetPool(ctx context.Context, tokenA, tokenB, router common.Address, family model.RouterFamily, fee *uint32) (model.PoolRecord, bool, error) {
	token0, token1 := sortAddresses(tokenA, tokenB)
	lowerToken0, lowerToken1 := addrnorm.Lower(token0), addrnorm.Lower(token1)

	factoryRec, err := c.factory.GetFactory(ctx, router, family)
	if err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("cache: resolve factory: %w", err)
	}

	poolAddr, chainErr := c.lookupOnChain(ctx, factoryRec, token0, token1, family, fee)
	if chainErr == nil {
		if addrnorm.IsZero(poolAddr) {
			return model.PoolRecord{}, false, nil
		}
		rec := model.PoolRecord{
			ChainID:      c.chainID,
			PoolAddress:  addrnorm.Lower(poolAddr),
			Token0:       lowerToken0,
			Token1:       lowerToken1,
			Exists:       true,
			RouterFamily: family,
			Fee:          feeString(fee),
		}
		if err := c.store.UpsertPool(ctx, rec); err != nil {
			return model.PoolRecord{}, false, err
		}
		return rec, true, nil
	}

	if !errors.Is(chainErr, context.DeadlineExceeded) {
		c.logger.Debug("pool lookup failed, not a timeout, treating as absent",
			zap.String("tokenA", lowerToken0), zap.String("tokenB", lowerToken1), zap.Error(chainErr))
		return model.PoolRecord{}, false, nil
	}

	rec, ok, err := c.store.FindPool(ctx, c.chainID, lowerToken0, lowerToken1, string(family))
	if err != nil {
		return model.PoolRecord{}, false, err
	}
	if !ok || addrnorm.IsZero(common.HexToAddress(rec.PoolAddress)) {
		return model.PoolRecord{}, false, nil
	}
	return rec, true, nil
}

func (c *PoolCache) lookupOnChain(ctx context.Context, factoryRec model.FactoryRecord, token0, token1 common.Address, family model.RouterFamily, fee *uint32) (common.Address, error) {
	factoryAddr := common.HexToAddress(factoryRec.FactoryAddress)

	switch family {
	case model.FamilyV2:
		parsed, err := v2FactoryOnce.get()
		if err != nil {
			return common.Address{}, err
		}
		data, err := parsed.Pack("getPair", token0, token1)
		if err != nil {
			return common.Address{}, err
		}
		resp, err := c.pool.CallContractTimeout(ctx, ethereum.CallMsg{To: &factoryAddr, Data: data}, nil, rpcpool.PoolCallTimeout())
		if err != nil {
			return common.Address{}, err
		}
		values, err := parsed.Unpack("getPair", resp)
		if err != nil || len(values) == 0 {
			return common.Address{}, fmt.Errorf("cache: unpack getPair: %w", err)
		}
		return values[0].(common.Address), nil

	case model.FamilyV3:
		parsed, err := v3FactoryOnce.get()
		if err != nil {
			return common.Address{}, err
		}
		feeArg := new(big.Int).SetUint64(uint64(feeOrDefault(fee)))
		data, err := parsed.Pack("getPool", token0, token1, feeArg)
		if err != nil {
			return common.Address{}, err
		}
		resp, err := c.pool.CallContractTimeout(ctx, ethereum.CallMsg{To: &factoryAddr, Data: data}, nil, rpcpool.PoolCallTimeout())
		if err != nil {
			return common.Address{}, err
		}
		values, err := parsed.Unpack("getPool", resp)
		if err != nil || len(values) == 0 {
			return common.Address{}, fmt.Errorf("cache: unpack getPool: %w", err)
		}
		return values[0].(common.Address), nil

	default:
		return common.Address{}, fmt.Errorf("cache: unknown router family %q", family)
	}
}

// sortAddresses returns (a, b) ordered lexicographically by lowercase hex,
// the canonical (token0, token1) orientation used for storage keys.
func sortAddresses(a, b common.Address) (common.Address, common.Address) {
	if strings.Compare(addrnorm.Lower(a), addrnorm.Lower(b)) <= 0 {
		return a, b
	}
	return b, a
}

func feeOrDefault(fee *uint32) uint32 {
	if fee == nil {
		return 2500
	}
	return *fee
}

func feeString(fee *uint32) string {
	if fee == nil {
		return defaultV3Fee
	}
	return fmt.Sprintf("%d", *fee)
}
