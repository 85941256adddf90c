package cache

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
	"sentryx/internal/rpcpool"
	"sentryx/internal/store"
)

func routerFactoryABI(family model.RouterFamily) (abi.ABI, string, error) {
	switch family {
	case model.FamilyV2:
		parsed, err := v2RouterFactoryOnce.get()
		return parsed, "WETH", err
	case model.FamilyV3:
		parsed, err := v3RouterFactoryOnce.get()
		return parsed, "WETH9", err
	default:
		return abi.ABI{}, "", fmt.Errorf("cache: unknown router family %q", family)
	}
}

// FactoryStore is the subset of *store.Store the factory cache needs.
type FactoryStore interface {
	GetFactory(ctx context.Context, chainID uint64, router string) (model.FactoryRecord, bool, error)
	UpsertFactory(ctx context.Context, rec model.FactoryRecord) error
}

// FactoryCache resolves a router's factory() and wrapped-native address,
// DB-first (spec.md §4.2's factory cache).
type FactoryCache struct {
	store   FactoryStore
	pool    *rpcpool.Pool
	logger  *zap.Logger
	chainID uint64
}

// NewFactoryCache builds a FactoryCache bound to a single chain ID.
func NewFactoryCache(chainID uint64, s *store.Store, pool *rpcpool.Pool, logger *zap.Logger) *FactoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactoryCache{store: s, pool: pool, logger: logger, chainID: chainID}
}

// GetFactory resolves router -> (factory, wrappedNative), calling factory()
// then WETH() (V2) or WETH9() (V3) on miss.
func (c *FactoryCache) GetFactory(ctx context.Context, router common.Address, family model.RouterFamily) (model.FactoryRecord, error) {
	lowerRouter := addrnorm.Lower(router)

	if rec, ok, err := c.store.GetFactory(ctx, c.chainID, lowerRouter); err != nil {
		return model.FactoryRecord{}, err
	} else if ok {
		return rec, nil
	}

	parsed, wethMethod, err := routerFactoryABI(family)
	if err != nil {
		return model.FactoryRecord{}, err
	}

	factoryAddr, err := c.callAddress(ctx, router, parsed, "factory")
	if err != nil {
		return model.FactoryRecord{}, fmt.Errorf("cache: router %s factory(): %w", lowerRouter, err)
	}
	wrappedNative, err := c.callAddress(ctx, router, parsed, wethMethod)
	if err != nil {
		return model.FactoryRecord{}, fmt.Errorf("cache: router %s %s(): %w", lowerRouter, wethMethod, err)
	}

	rec := model.FactoryRecord{
		ChainID:              c.chainID,
		Router:               lowerRouter,
		FactoryAddress:       addrnorm.Lower(factoryAddr),
		WrappedNativeAddress: addrnorm.Lower(wrappedNative),
		RouterFamily:         family,
	}
	if err := c.store.UpsertFactory(ctx, rec); err != nil {
		return model.FactoryRecord{}, err
	}
	return rec, nil
}

func (c *FactoryCache) callAddress(ctx context.Context, to common.Address, parsed interface {
	Pack(string, ...interface{}) ([]byte, error)
	Unpack(string, []byte) ([]interface{}, error)
}, method string) (common.Address, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return common.Address{}, err
	}
	resp, err := c.pool.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil || len(values) == 0 {
		return common.Address{}, fmt.Errorf("cache: unpack %s: %w", method, err)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("cache: %s did not return an address", method)
	}
	return addr, nil
}
