// Package rpcpool is the load-balanced JSON-RPC client. It generalizes the
// teacher's internal/chain.Client (a single long-lived *ethclient.Client)
// into a pool of HTTP endpoints dialed fresh per call, plus a dedicated
// dial for the WebSocket pending-transaction subscription, matching the
// mev-stack teacher's internal/rpc/pool.go endpoint-list shape without its
// health-check bookkeeping: a call-level provider is cheap and stateless
// here, so there is nothing to health-check between calls.
package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	callTimeout = 10 * time.Second
	poolTimeout = 15 * time.Second
	maxRetries  = 3
	baseBackoff = 500 * time.Millisecond
)

// ErrNoEndpoints is returned when the pool has no HTTP URLs configured.
var ErrNoEndpoints = errors.New("rpcpool: no HTTP RPC endpoints configured")

// Pool load-balances calls across a fixed set of HTTP JSON-RPC endpoints,
// dialing a fresh, stateless client per call (cheap for HTTP; no shared
// client contention to manage) and retrying timeout-class errors with
// exponential backoff.
type Pool struct {
	httpURLs []string
	wssURL   string
	logger   *zap.Logger

	mu      sync.Mutex
	rng     *rand.Rand
}

// New builds a Pool over the given HTTP endpoints and an optional
// WebSocket endpoint for the pending-transaction feed.
func New(httpURLs []string, wssURL string, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		httpURLs: httpURLs,
		wssURL:   wssURL,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Pool) pickEndpoint() (string, error) {
	if len(p.httpURLs) == 0 {
		return "", ErrNoEndpoints
	}
	p.mu.Lock()
	idx := p.rng.Intn(len(p.httpURLs))
	p.mu.Unlock()
	return p.httpURLs[idx], nil
}

// dial connects to a single endpoint with ENS resolution disabled: a fresh
// ethclient has no ENS name cache to poison, so "staticNetwork" here means
// never invoking the ENS-resolving helpers go-ethereum exposes elsewhere.
func (p *Pool) dial(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// call runs fn against a freshly dialed client for one randomly chosen
// endpoint, under a hard per-call timeout, retrying up to maxRetries times
// with exponential backoff on transient errors only.
func (p *Pool) call(ctx context.Context, timeout time.Duration, fn func(context.Context, *ethclient.Client) error) error {
	endpoint, err := p.pickEndpoint()
	if err != nil {
		return err
	}

	delay := baseBackoff
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		client, dialErr := p.dial(callCtx, endpoint)
		if dialErr != nil {
			cancel()
			lastErr = dialErr
			if !isTransient(dialErr) || attempt == maxRetries {
				return lastErr
			}
			if !sleepBackoff(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2
			continue
		}

		err := fn(callCtx, client)
		client.Close()
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
		if attempt == maxRetries {
			return fmt.Errorf("rpcpool: exhausted retries against %s: %w", endpoint, err)
		}

		p.logger.Warn("rpc call failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if !sleepBackoff(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

func sleepBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// isTransient classifies timeout/connection-reset-class errors as
// retryable; anything else (revert, bad request, malformed response)
// fails fast per spec §4.1 / §7 TransientRpcError.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") ||
		strings.Contains(msg, "broken pipe")
}

// GetTransactionByHash hydrates a pending hash via the load-balanced pool.
func (p *Pool) GetTransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	var tx *types.Transaction
	var isPending bool
	err := p.call(ctx, callTimeout, func(callCtx context.Context, client *ethclient.Client) error {
		var err error
		tx, isPending, err = client.TransactionByHash(callCtx, hash)
		return err
	})
	return tx, isPending, err
}

// BlockNumber returns the current block height.
func (p *Pool) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := p.call(ctx, callTimeout, func(callCtx context.Context, client *ethclient.Client) error {
		var err error
		n, err = client.BlockNumber(callCtx)
		return err
	})
	return n, err
}

// CallContract performs an eth_call, optionally pinned to a block height.
func (p *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := p.call(ctx, callTimeout, func(callCtx context.Context, client *ethclient.Client) error {
		var err error
		out, err = client.CallContract(callCtx, msg, blockNumber)
		return err
	})
	return out, err
}

// CallContractTimeout is CallContract with an explicit deadline, used by
// the pool cache for its 15s factory-lookup timeout (spec §4.2).
func (p *Pool) CallContractTimeout(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int, timeout time.Duration) ([]byte, error) {
	var out []byte
	err := p.call(ctx, timeout, func(callCtx context.Context, client *ethclient.Client) error {
		var err error
		out, err = client.CallContract(callCtx, msg, blockNumber)
		return err
	})
	return out, err
}

// DialPending opens the dedicated WebSocket connection used by the mempool
// tap for its long-lived pending-transaction subscription. Unlike the
// per-call HTTP path, this connection is held for the tap's lifetime.
func (p *Pool) DialPending(ctx context.Context) (*ethclient.Client, error) {
	if p.wssURL == "" {
		return nil, errors.New("rpcpool: no WSS RPC URL configured")
	}
	return ethclient.DialContext(ctx, p.wssURL)
}

// PoolCallTimeout is the 15s window the pool cache wraps factory lookups in.
func PoolCallTimeout() time.Duration { return poolTimeout }
