package cache

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
	"sentryx/internal/rpcpool"
	"sentryx/internal/store"
)

const (
	defaultTokenName     = "Unknown"
	defaultTokenSymbol   = "UNKNOWN"
	defaultTokenDecimals = 18
)

// TokenStore is the subset of *store.Store the token cache needs.
type TokenStore interface {
	GetToken(ctx context.Context, chainID uint64, address string) (model.TokenRecord, bool, error)
	UpsertToken(ctx context.Context, rec model.TokenRecord) error
}

// TokenCache resolves token metadata DB-first, falling back to ERC20 calls
// (spec.md §4.2's token cache).
type TokenCache struct {
	store   TokenStore
	pool    *rpcpool.Pool
	logger  *zap.Logger
	chainID uint64
}

// NewTokenCache builds a TokenCache bound to a single chain ID.
func NewTokenCache(chainID uint64, s *store.Store, pool *rpcpool.Pool, logger *zap.Logger) *TokenCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCache{store: s, pool: pool, logger: logger, chainID: chainID}
}

// GetToken resolves a token's name/symbol/decimals, DB-first.
func (c *TokenCache) GetToken(ctx context.Context, address common.Address) (model.TokenRecord, error) {
	lower := addrnorm.Lower(address)

	if rec, ok, err := c.store.GetToken(ctx, c.chainID, lower); err != nil {
		return model.TokenRecord{}, err
	} else if ok {
		return rec, nil
	}

	rec := model.TokenRecord{
		ChainID:      c.chainID,
		TokenAddress: lower,
		Name:         defaultTokenName,
		Symbol:       defaultTokenSymbol,
		Decimals:     defaultTokenDecimals,
	}

	type result struct {
		name     string
		symbol   string
		decimals uint8
	}
	nameCh := make(chan string, 1)
	symbolCh := make(chan string, 1)
	decimalsCh := make(chan uint8, 1)

	go func() { nameCh <- c.fetchName(ctx, address) }()
	go func() { symbolCh <- c.fetchSymbol(ctx, address) }()
	go func() { decimalsCh <- c.fetchDecimals(ctx, address) }()

	rec.Name = <-nameCh
	rec.Symbol = <-symbolCh
	rec.Decimals = <-decimalsCh

	if err := c.store.UpsertToken(ctx, rec); err != nil {
		return model.TokenRecord{}, err
	}
	return rec, nil
}

func (c *TokenCache) fetchDecimals(ctx context.Context, token common.Address) uint8 {
	stringABI, err := erc20StringOnce.get()
	if err != nil {
		return defaultTokenDecimals
	}
	values, err := c.call(ctx, token, stringABI, "decimals")
	if err != nil || len(values) == 0 {
		c.logger.Debug("decimals call failed, using default", zap.String("token", token.Hex()), zap.Error(err))
		return defaultTokenDecimals
	}
	d, ok := values[0].(uint8)
	if !ok {
		return defaultTokenDecimals
	}
	return d
}

func (c *TokenCache) fetchSymbol(ctx context.Context, token common.Address) string {
	if stringABI, err := erc20StringOnce.get(); err == nil {
		if values, err := c.call(ctx, token, stringABI, "symbol"); err == nil && len(values) > 0 {
			if symbol, ok := values[0].(string); ok && symbol != "" {
				return symbol
			}
		}
	}
	if bytes32ABI, err := erc20Bytes32Once.get(); err == nil {
		if values, err := c.call(ctx, token, bytes32ABI, "symbol"); err == nil && len(values) > 0 {
			if symbol, ok := bytes32ToString(values[0]); ok && symbol != "" {
				return symbol
			}
		}
	}
	c.logger.Debug("symbol call failed, using default", zap.String("token", token.Hex()))
	return defaultTokenSymbol
}

func (c *TokenCache) fetchName(ctx context.Context, token common.Address) string {
	if stringABI, err := erc20StringOnce.get(); err == nil {
		if values, err := c.call(ctx, token, stringABI, "name"); err == nil && len(values) > 0 {
			if name, ok := values[0].(string); ok && name != "" {
				return name
			}
		}
	}
	if bytes32ABI, err := erc20Bytes32Once.get(); err == nil {
		if values, err := c.call(ctx, token, bytes32ABI, "name"); err == nil && len(values) > 0 {
			if name, ok := bytes32ToString(values[0]); ok && name != "" {
				return name
			}
		}
	}
	c.logger.Debug("name call failed, using default", zap.String("token", token.Hex()))
	return defaultTokenName
}

func (c *TokenCache) call(ctx context.Context, to common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, err
	}
	resp, err := c.pool.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Unpack(method, resp)
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
