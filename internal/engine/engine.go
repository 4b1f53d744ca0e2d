package engine

import (
	"math/big"

	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
	"clmmcore/internal/storage"
)

const secondsPerDay = 86400

// PriceQuote is one reading from an external price feed.
type PriceQuote struct {
	Price       int64
	Confidence  uint64
	Exponent    int32
	PublishTime uint64
}

// PriceSource selects where a pool's price comes from for an operation:
// either the pool's own stored price or a fresh oracle quote.
type PriceSource interface {
	isPriceSource()
}

// NoPrice keeps the pool's stored price.
type NoPrice struct{}

func (NoPrice) isPriceSource() {}

// OraclePrice resynchronizes the pool price from a quote before the
// operation runs. MaxAge bounds quote staleness in seconds.
type OraclePrice struct {
	Quote     PriceQuote
	MaxAge    uint64
	DecimalsA uint8
	DecimalsB uint8
}

func (OraclePrice) isPriceSource() {}

// Engine is the facade over the orchestrators: it validates inputs, runs the
// pure calculators, and commits their updates.
type Engine struct {
	log  *zap.Logger
	sink storage.Storage
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// SnapshotTo journals post-operation state to a storage sink. Snapshot
// failures are logged and do not fail the operation.
func (e *Engine) SnapshotTo(sink storage.Storage) {
	e.sink = sink
}

func (e *Engine) snapshot(pools []*model.Pool, positions []*model.Position, arrays []*model.TickArray) {
	if e.sink == nil {
		return
	}
	if err := e.sink.PutPools(pools); err != nil {
		e.log.Warn("snapshot pools failed", zap.Error(err))
	}
	if err := e.sink.PutPositions(positions); err != nil {
		e.log.Warn("snapshot positions failed", zap.Error(err))
	}
	if err := e.sink.PutTickArrays(arrays); err != nil {
		e.log.Warn("snapshot tick arrays failed", zap.Error(err))
	}
}

// InitialSqrtPrice derives a pool's starting Q64.64 sqrt price from an
// oracle quote.
func (e *Engine) InitialSqrtPrice(quote PriceQuote, decimalsA, decimalsB uint8) (uint128.Uint128, error) {
	return mathutil.InitialSqrtPrice(quote.Price, quote.Exponent, decimalsA, decimalsB)
}

func (e *Engine) resyncPrice(pool *model.Pool, source PriceSource, now uint64) error {
	oracle, ok := source.(OraclePrice)
	if !ok {
		return nil
	}
	if now > oracle.Quote.PublishTime && now-oracle.Quote.PublishTime > oracle.MaxAge {
		return ErrStalePrice
	}
	sqrtPrice, err := mathutil.InitialSqrtPrice(oracle.Quote.Price, oracle.Quote.Exponent, oracle.DecimalsA, oracle.DecimalsB)
	if err != nil {
		return err
	}
	tick, err := mathutil.TickIndexFromSqrtPrice(sqrtPrice)
	if err != nil {
		return err
	}
	pool.SqrtPrice = sqrtPrice
	pool.TickCurrentIndex = tick
	e.log.Debug("resynced pool price from oracle",
		zap.String("pool", pool.Address.Hex()),
		zap.Int32("tick", tick))
	return nil
}

// SwapParams describes one single-pool swap request. Amounts are wire
// amounts, before any token transfer fee. OtherAmountThreshold is a slippage
// bound on the unspecified side; nil skips the check.
type SwapParams struct {
	Amount                 uint64
	OtherAmountThreshold   *uint64
	SqrtPriceLimit         uint128.Uint128
	AmountSpecifiedIsInput bool
	AToB                   bool
	ReferralFeeRate        uint16
	Now                    uint64
	TokenA                 *model.TokenMeta
	TokenB                 *model.TokenMeta
	Price                  PriceSource
}

// SwapResult reports the applied update plus the wire amounts moved.
type SwapResult struct {
	Update    *model.PostSwapUpdate
	AmountIn  uint64
	AmountOut uint64
}

// OpenSwap executes a single-pool swap and commits it to the pool and the
// traversed tick arrays.
func (e *Engine) OpenSwap(pool *model.Pool, tickArrays []*model.TickArray, p SwapParams) (*SwapResult, error) {
	if err := e.resyncPrice(pool, p.Price, p.Now); err != nil {
		return nil, err
	}

	tokenIn, tokenOut := p.TokenA, p.TokenB
	if !p.AToB {
		tokenIn, tokenOut = tokenOut, tokenIn
	}
	sequence := NewTickSequence(tickArrays, pool.TickSpacing, p.AToB)

	update, wireIn, wireOut, err := swapWithTransferFee(
		pool, sequence, tokenIn, tokenOut,
		p.Amount, p.SqrtPriceLimit,
		p.AmountSpecifiedIsInput, p.AToB,
		p.Now, p.ReferralFeeRate,
	)
	if err != nil {
		return nil, err
	}

	if p.OtherAmountThreshold != nil {
		if p.AmountSpecifiedIsInput && wireOut < *p.OtherAmountThreshold {
			return nil, ErrAmountBelowMinimum
		}
		if !p.AmountSpecifiedIsInput && wireIn > *p.OtherAmountThreshold {
			return nil, ErrAmountAboveMaximum
		}
	}

	if err := pool.ApplySwap(update); err != nil {
		return nil, err
	}
	e.snapshot([]*model.Pool{pool}, nil, tickArrays)
	e.log.Debug("swap applied",
		zap.String("pool", pool.Address.Hex()),
		zap.Bool("a_to_b", p.AToB),
		zap.Uint64("amount_in", wireIn),
		zap.Uint64("amount_out", wireOut),
		zap.Int32("tick", update.NextTickIndex))

	return &SwapResult{Update: update, AmountIn: wireIn, AmountOut: wireOut}, nil
}

// swapWithTransferFee runs the core swap in pool-native amounts while the
// caller reasons in wire amounts. Exact-in deducts the input token's transfer
// fee before the swap sees the amount; exact-out inflates the target output
// so the receiver nets the requested amount, then grosses the input back up.
func swapWithTransferFee(
	pool *model.Pool,
	sequence *TickSequence,
	tokenIn, tokenOut *model.TokenMeta,
	amount uint64,
	sqrtPriceLimit uint128.Uint128,
	amountSpecifiedIsInput, aToB bool,
	timestamp uint64,
	referralFeeRate uint16,
) (*model.PostSwapUpdate, uint64, uint64, error) {
	if amountSpecifiedIsInput {
		netIn, _ := tokenIn.TransferFeeExcludedAmount(amount)
		if netIn == 0 {
			return nil, 0, 0, ErrNoTradableAmount
		}
		update, err := ComputeSwap(pool, sequence, netIn, sqrtPriceLimit, true, aToB, timestamp, referralFeeRate)
		if err != nil {
			return nil, 0, 0, err
		}

		wireIn := amount
		if actualIn := inputAmount(update); actualIn < netIn {
			// Partial fill: charge only the wire amount that delivers what
			// the pool actually consumed.
			wireIn, _, err = tokenIn.TransferFeeIncludedAmount(actualIn)
			if err != nil {
				return nil, 0, 0, err
			}
		}
		wireOut, _ := tokenOut.TransferFeeExcludedAmount(outputAmount(update))
		return update, wireIn, wireOut, nil
	}

	includedOut, _, err := tokenOut.TransferFeeIncludedAmount(amount)
	if err != nil {
		return nil, 0, 0, err
	}
	if includedOut == 0 {
		return nil, 0, 0, ErrNoTradableAmount
	}
	update, err := ComputeSwap(pool, sequence, includedOut, sqrtPriceLimit, false, aToB, timestamp, referralFeeRate)
	if err != nil {
		return nil, 0, 0, err
	}

	wireIn, _, err := tokenIn.TransferFeeIncludedAmount(inputAmount(update))
	if err != nil {
		return nil, 0, 0, err
	}
	wireOut, _ := tokenOut.TransferFeeExcludedAmount(outputAmount(update))
	return update, wireIn, wireOut, nil
}

func inputAmount(u *model.PostSwapUpdate) uint64 {
	if u.AToB {
		return u.AmountA
	}
	return u.AmountB
}

func outputAmount(u *model.PostSwapUpdate) uint64 {
	if u.AToB {
		return u.AmountB
	}
	return u.AmountA
}

// ModifyLiquidityParams describes one liquidity change. The token bounds are
// slippage limits: maxima cap the deposit when adding, minima floor the
// withdrawal when removing; nil skips the check.
type ModifyLiquidityParams struct {
	LiquidityDelta *big.Int
	Now            uint64
	TokenMaxA      *uint64
	TokenMaxB      *uint64
	TokenMinA      *uint64
	TokenMinB      *uint64
	Price          PriceSource
}

// ModifyLiquidityResult reports the applied update and the token amounts
// moved into or out of the pool.
type ModifyLiquidityResult struct {
	Update  *model.ModifyLiquidityUpdate
	AmountA uint64
	AmountB uint64
}

// ModifyLiquidity adds or removes position liquidity and commits the effect
// to the pool, both boundary ticks, and the position atomically.
func (e *Engine) ModifyLiquidity(
	pool *model.Pool,
	position *model.Position,
	tickArrayLower, tickArrayUpper *model.TickArray,
	p ModifyLiquidityParams,
) (*ModifyLiquidityResult, error) {
	if err := e.resyncPrice(pool, p.Price, p.Now); err != nil {
		return nil, err
	}

	update, err := CalculateModifyLiquidity(pool, position, tickArrayLower, tickArrayUpper, p.LiquidityDelta, p.Now)
	if err != nil {
		return nil, err
	}
	amountA, amountB, err := CalculateLiquidityTokenDeltas(pool.TickCurrentIndex, pool.SqrtPrice, position, p.LiquidityDelta)
	if err != nil {
		return nil, err
	}

	if p.LiquidityDelta.Sign() > 0 {
		if p.TokenMaxA != nil && amountA > *p.TokenMaxA {
			return nil, ErrAmountAboveMaximum
		}
		if p.TokenMaxB != nil && amountB > *p.TokenMaxB {
			return nil, ErrAmountAboveMaximum
		}
	} else {
		if p.TokenMinA != nil && amountA < *p.TokenMinA {
			return nil, ErrAmountBelowMinimum
		}
		if p.TokenMinB != nil && amountB < *p.TokenMinB {
			return nil, ErrAmountBelowMinimum
		}
	}

	if err := SyncModifyLiquidityValues(pool, position, tickArrayLower, tickArrayUpper, update); err != nil {
		return nil, err
	}
	e.snapshot([]*model.Pool{pool}, []*model.Position{position}, []*model.TickArray{tickArrayLower, tickArrayUpper})
	e.log.Debug("liquidity modified",
		zap.String("pool", pool.Address.Hex()),
		zap.String("position", position.Mint.Hex()),
		zap.Uint64("amount_a", amountA),
		zap.Uint64("amount_b", amountB))

	return &ModifyLiquidityResult{Update: update, AmountA: amountA, AmountB: amountB}, nil
}

// AdvanceRewards settles reward growth up to now and returns the updated
// reward slots.
func (e *Engine) AdvanceRewards(pool *model.Pool, now uint64) ([model.NumRewards]model.RewardInfo, error) {
	growths, err := NextRewardInfos(pool, now)
	if err != nil {
		return pool.RewardInfos, err
	}
	pool.UpdateRewards(growths, now)
	return pool.RewardInfos, nil
}

// SetRewardEmissions updates a reward slot's emission rate after settling
// growth at the old rate. The vault must hold at least one day of emissions
// at the new rate.
func (e *Engine) SetRewardEmissions(pool *model.Pool, index int, emissionsPerSecondX64 uint128.Uint128, vaultBalance, now uint64) error {
	if _, err := e.AdvanceRewards(pool, now); err != nil {
		return err
	}
	perDay, err := mathutil.MulShiftRight64(emissionsPerSecondX64, uint128.From64(secondsPerDay))
	if err != nil {
		return err
	}
	if vaultBalance < perDay {
		return ErrRewardVaultInsufficient
	}
	return pool.SetRewardEmissions(index, emissionsPerSecondX64)
}

// CollectFees drains a position's owed fee balances.
func (e *Engine) CollectFees(position *model.Position) (amountA, amountB uint64) {
	amountA, amountB = position.FeeOwedA, position.FeeOwedB
	position.ResetFeesOwed()
	return amountA, amountB
}

// CollectProtocolFees drains the pool's accumulated protocol fees.
func (e *Engine) CollectProtocolFees(pool *model.Pool) (amountA, amountB uint64) {
	amountA, amountB = pool.ProtocolFeeOwedA, pool.ProtocolFeeOwedB
	pool.ResetProtocolFeesOwed()
	return amountA, amountB
}

// CollectReward transfers as much of a slot's owed reward as the vault can
// cover; the shortfall stays owed.
func (e *Engine) CollectReward(position *model.Position, index int, vaultBalance uint64) (uint64, error) {
	if index < 0 || index >= model.NumRewards {
		return 0, model.ErrInvalidRewardIndex
	}
	transfer, remaining := CalculateCollectReward(position.RewardInfos[index].AmountOwed, vaultBalance)
	position.RewardInfos[index].AmountOwed = remaining
	return transfer, nil
}

// UpdateFeesAndRewards settles a position's fee and reward checkpoints to
// now without changing its liquidity.
func (e *Engine) UpdateFeesAndRewards(
	pool *model.Pool,
	position *model.Position,
	tickArrayLower, tickArrayUpper *model.TickArray,
	now uint64,
) error {
	update, growths, err := CalculateFeeAndRewardGrowths(pool, position, tickArrayLower, tickArrayUpper, now)
	if err != nil {
		return err
	}
	position.Apply(update)
	pool.UpdateRewards(growths, now)
	return nil
}
