// Package evaluator implements the nine-step opportunity-detection
// orchestration: resolve token/pool state, check liquidity admissibility,
// price the trade's impact, and derive a profit-and-deadline verdict. It
// is new orchestration code with no direct teacher analogue, grounded on
// the teacher's staged fetch-then-compute pipeline shape and written in
// the same style (plain functions, *zap.Logger passed through, errors
// wrapped with fmt.Errorf).
package evaluator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"sentryx/internal/addrnorm"
	"sentryx/internal/cache"
	"sentryx/internal/model"
	"sentryx/internal/poolstate"
	"sentryx/internal/rpcpool"
)

// Thresholds from spec.md §4.5.
const (
	minPriceImpactFraction  = 0.005 // 0.5%
	v2MaxTradeOfReserveFrac = 0.5
	v2MinReserveMultiple    = 10
	v3MinLiquidity          = 1_000_000_000_000 // 10^12
)

// Verdict is the evaluator's full output, matching spec.md §4.5's return
// shape plus the amountOut/decimals the consumer needs to persist a row.
type Verdict struct {
	IsOpportunity       bool
	Reason              string
	PriceImpact         float64 // decimal fraction, e.g. 0.0023 for 0.23%
	ExpectedProfit      string  // decimal string in tokenOut units, empty when undefined
	AmountOut           string
	PoolAddress         string
	Decimals            model.TokenDecimals
	TimeToSubmitSeconds int64
	DeadlineTimestamp   int64
	IsExpired           bool
}

// Config carries the evaluator's static dependencies: canonical router
// addresses to substitute when the incoming router is the universal
// router (which has no factory()), and the configured V3 quoter.
type Config struct {
	UniversalRouters  []string
	CanonicalV2Router common.Address
	CanonicalV3Router common.Address
	Quoter            common.Address
}

// Evaluator runs Detect against live cache and pool-state dependencies.
type Evaluator struct {
	cfg     Config
	tokens  *cache.TokenCache
	pools   *cache.PoolCache
	rpcPool *rpcpool.Pool
	logger  *zap.Logger
}

// New builds an Evaluator.
func New(cfg Config, tokens *cache.TokenCache, pools *cache.PoolCache, rpcPool *rpcpool.Pool, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{cfg: cfg, tokens: tokens, pools: pools, rpcPool: rpcPool, logger: logger}
}

// Detect runs the full nine-step orchestration against a decoded swap.
func (e *Evaluator) Detect(ctx context.Context, txHash string, swap *model.DecodedSwap, router common.Address) (Verdict, error) {
	if swap == nil {
		return Verdict{Reason: "Token information not available"}, nil
	}

	tokenIn := common.HexToAddress(swap.TokenIn)
	tokenOut := common.HexToAddress(swap.TokenOut)

	// Step 1: token metadata, resolved in parallel.
	type tokenResult struct {
		rec model.TokenRecord
		err error
	}
	tokenInCh := make(chan tokenResult, 1)
	tokenOutCh := make(chan tokenResult, 1)
	go func() {
		rec, err := e.tokens.GetToken(ctx, tokenIn)
		tokenInCh <- tokenResult{rec, err}
	}()
	go func() {
		rec, err := e.tokens.GetToken(ctx, tokenOut)
		tokenOutCh <- tokenResult{rec, err}
	}()
	tokenInRes := <-tokenInCh
	tokenOutRes := <-tokenOutCh
	if tokenInRes.err != nil || tokenOutRes.err != nil {
		return Verdict{Reason: "Token information not available"}, nil
	}
	decimals := model.TokenDecimals{TokenIn: tokenInRes.rec.Decimals, TokenOut: tokenOutRes.rec.Decimals}

	// Step 2: universal-router substitution.
	effectiveRouter := router
	if addrnorm.InList(addrnorm.Lower(router), e.cfg.UniversalRouters) {
		if swap.RouterFamily == model.FamilyV2 {
			effectiveRouter = e.cfg.CanonicalV2Router
		} else {
			effectiveRouter = e.cfg.CanonicalV3Router
		}
	}

	// Step 3: pool lookup.
	var feePtr *uint32
	if swap.RouterFamily == model.FamilyV3 {
		fee64 := new(big.Int)
		if _, ok := fee64.SetString(swap.Fee, 10); ok {
			f := uint32(fee64.Uint64())
			feePtr = &f
		}
	}
	poolRec, found, err := e.pools.GetPool(ctx, tokenIn, tokenOut, effectiveRouter, swap.RouterFamily, feePtr)
	if err != nil {
		return Verdict{Reason: "Token information not available"}, fmt.Errorf("evaluator: pool lookup: %w", err)
	}
	if !found {
		return Verdict{Decimals: decimals, Reason: "Pool not found"}, nil
	}
	poolAddr := common.HexToAddress(poolRec.PoolAddress)

	// Step 4: effective input amount.
	amountInEffective := parseBigIntOrZero(swap.AmountIn)
	if amountInEffective.Sign() == 0 {
		amountInEffective = parseBigIntOrZero(swap.AmountInMax)
	}

	verdict := Verdict{PoolAddress: poolRec.PoolAddress, Decimals: decimals}

	var priceImpactPercent float64
	var amountOut *big.Int

	if swap.RouterFamily == model.FamilyV2 {
		reserves, readErr := poolstate.ReadV2Reserves(ctx, e.rpcPool, poolAddr, nil)
		if readErr != nil {
			e.logger.Warn("v2 reserve read failed, proceeding without liquidity gate",
				zap.String("pool", poolRec.PoolAddress), zap.Error(readErr))
		} else if amountInEffective.Sign() > 0 {
			// Step 5: liquidity admissibility.
			reserveIn := reserves.Reserve1
			if tokenIn == reserves.Token0 {
				reserveIn = reserves.Reserve0
			}
			if reason := v2LiquidityReject(reserveIn, amountInEffective); reason != "" {
				return Verdict{PoolAddress: poolRec.PoolAddress, Decimals: decimals, Reason: reason}, nil
			}
		}
		if readErr == nil && amountInEffective.Sign() > 0 {
			// Step 6: V2 price impact.
			impact, out, impactErr := poolstate.V2Impact(reserves, tokenIn, amountInEffective, decimals.TokenIn, decimals.TokenOut)
			if impactErr != nil {
				e.logger.Warn("v2 impact computation failed", zap.Error(impactErr))
			} else {
				priceImpactPercent = impact
				amountOut = out
			}
		}
	} else {
		state, readErr := poolstate.ReadV3State(ctx, e.rpcPool, poolAddr, nil)
		if readErr != nil {
			e.logger.Warn("v3 state read failed, proceeding without liquidity gate",
				zap.String("pool", poolRec.PoolAddress), zap.Error(readErr))
		} else if amountInEffective.Sign() > 0 {
			// Step 5: liquidity admissibility.
			if reason := v3LiquidityReject(state.Liquidity); reason != "" {
				return Verdict{PoolAddress: poolRec.PoolAddress, Decimals: decimals, Reason: reason}, nil
			}
			// Step 6: V3 price impact via the quoter.
			impact, out, impactErr := poolstate.V3Impact(ctx, e.rpcPool, e.cfg.Quoter, state, tokenIn, tokenOut,
				amountInEffective, decimals.TokenIn, decimals.TokenOut, nil)
			if impactErr != nil {
				e.logger.Warn("v3 quoter reverted or failed", zap.Error(impactErr))
			} else {
				priceImpactPercent = impact
				amountOut = out
			}
		}
	}

	// Steps 7-9: profit, deadline, final verdict.
	amountOutMin := parseBigIntOrZero(swap.AmountOutMin)
	deadline := parseInt64OrZero(swap.Deadline)
	finalizeVerdict(&verdict, amountOut, amountOutMin, priceImpactPercent, deadline, time.Now().Unix())

	return verdict, nil
}

// v2LiquidityReject returns a non-empty rejection reason when a V2 trade
// fails either admissibility check from spec.md §4.5 step 5: the trade may
// not exceed v2MaxTradeOfReserveFrac of the input-side reserve, and the
// reserve must be at least v2MinReserveMultiple times the trade size.
func v2LiquidityReject(reserveIn, amountIn *big.Int) string {
	half := new(big.Int).Div(reserveIn, big.NewInt(int64(1/v2MaxTradeOfReserveFrac)))
	if amountIn.Cmp(half) > 0 {
		return "Insufficient liquidity: trade > 50% of reserve"
	}
	minReserve := new(big.Int).Mul(amountIn, big.NewInt(v2MinReserveMultiple))
	if reserveIn.Cmp(minReserve) < 0 {
		return "Low liquidity: reserve < 10x trade"
	}
	return ""
}

// v3LiquidityReject returns a non-empty rejection reason when a V3 pool's
// active liquidity fails spec.md §4.5 step 5's admissibility floor.
func v3LiquidityReject(liquidity *big.Int) string {
	if liquidity == nil || liquidity.Sign() == 0 {
		return "Zero liquidity in V3 pool"
	}
	if liquidity.Cmp(big.NewInt(v3MinLiquidity)) < 0 {
		return "Very low V3 liquidity"
	}
	return ""
}

// finalizeVerdict fills in the profit, deadline, and final opportunity
// call on v, given the amountOut/amountOutMin pair, the computed price
// impact percentage, the swap's deadline, and the current unix time. It
// takes no dependencies so it can be exercised directly by tests.
func finalizeVerdict(v *Verdict, amountOut, amountOutMin *big.Int, priceImpactPercent float64, deadline, now int64) {
	v.PriceImpact = priceImpactPercent / 100.0
	if amountOut != nil {
		v.AmountOut = amountOut.String()
	}

	profitUndefined := amountOut == nil
	if amountOut != nil {
		switch amountOut.Cmp(amountOutMin) {
		case 1:
			v.ExpectedProfit = new(big.Int).Sub(amountOut, amountOutMin).String()
		case 0:
			v.ExpectedProfit = "0"
		default:
			profitUndefined = true
		}
	}

	v.DeadlineTimestamp = deadline
	if deadline > now {
		v.TimeToSubmitSeconds = deadline - now
	} else {
		v.IsExpired = true
		v.TimeToSubmitSeconds = 0
	}

	expectedProfit := parseBigIntOrZero(v.ExpectedProfit)
	hasProfit := !profitUndefined && expectedProfit.Sign() > 0
	hasImpact := v.PriceImpact >= minPriceImpactFraction
	v.IsOpportunity = hasProfit && hasImpact

	switch {
	case v.IsOpportunity:
		v.Reason = "opportunity"
	case v.IsExpired:
		v.Reason = "Deadline has passed"
	case !hasProfit:
		v.Reason = "No profit after slippage"
	case !hasImpact:
		v.Reason = "Price impact below threshold"
	default:
		v.Reason = "Not an opportunity"
	}
}

func parseBigIntOrZero(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func parseInt64OrZero(s string) int64 {
	return parseBigIntOrZero(s).Int64()
}
