package engine

import (
	"math/big"

	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// ComputeSwap walks the price curve tick by tick until the requested amount
// is exhausted or the price limit binds. It is pure: state is mutated only
// when the caller applies the returned update, except for tick crossings
// recorded into the sequence's arrays, which the caller commits alongside.
func ComputeSwap(
	pool *model.Pool,
	sequence *TickSequence,
	amount uint64,
	sqrtPriceLimit uint128.Uint128,
	amountSpecifiedIsInput, aToB bool,
	timestamp uint64,
	referralFeeRate uint16,
) (*model.PostSwapUpdate, error) {
	if sqrtPriceLimit.Cmp(mathutil.MinSqrtPrice) < 0 || sqrtPriceLimit.Cmp(mathutil.MaxSqrtPrice) > 0 {
		return nil, mathutil.ErrSqrtPriceOutOfBounds
	}
	if aToB && sqrtPriceLimit.Cmp(pool.SqrtPrice) >= 0 {
		return nil, ErrInvalidSqrtPriceLimit
	}
	if !aToB && sqrtPriceLimit.Cmp(pool.SqrtPrice) <= 0 {
		return nil, ErrInvalidSqrtPriceLimit
	}
	if amount == 0 {
		return nil, ErrNoTradableAmount
	}

	rewardGrowths, err := NextRewardInfos(pool, timestamp)
	if err != nil {
		return nil, err
	}
	rewards := advancedRewards(pool, rewardGrowths)

	amountRemaining := amount
	var amountCalculated uint64

	currSqrtPrice := pool.SqrtPrice
	currTickIndex := pool.TickCurrentIndex
	currLiquidity := pool.Liquidity
	feeGrowthGlobal := pool.FeeGrowthGlobalA
	if !aToB {
		feeGrowthGlobal = pool.FeeGrowthGlobalB
	}
	var protocolFee, referralFee uint64

	for amountRemaining > 0 && !currSqrtPrice.Equals(sqrtPriceLimit) {
		nextTickIndex, nextTickInitialized, err := sequence.NextInitializedTickIndex(currTickIndex)
		if err != nil {
			return nil, err
		}
		nextTickSqrtPrice, err := mathutil.SqrtPriceFromTickIndex(nextTickIndex)
		if err != nil {
			return nil, err
		}

		targetSqrtPrice := nextTickSqrtPrice
		if aToB {
			if sqrtPriceLimit.Cmp(targetSqrtPrice) > 0 {
				targetSqrtPrice = sqrtPriceLimit
			}
		} else {
			if sqrtPriceLimit.Cmp(targetSqrtPrice) < 0 {
				targetSqrtPrice = sqrtPriceLimit
			}
		}

		step, err := mathutil.ComputeSwapStep(
			amountRemaining, pool.FeeRate,
			currLiquidity, currSqrtPrice, targetSqrtPrice,
			amountSpecifiedIsInput, aToB,
		)
		if err != nil {
			return nil, err
		}

		if step.AmountIn != 0 || step.FeeAmount != 0 {
			consumed, err := mathutil.AddU64(step.AmountIn, step.FeeAmount)
			if err != nil {
				return nil, err
			}
			if amountSpecifiedIsInput {
				if consumed > amountRemaining {
					return nil, mathutil.ErrAmountOverflow
				}
				amountRemaining -= consumed
				amountCalculated, err = mathutil.AddU64(amountCalculated, step.AmountOut)
			} else {
				amountRemaining -= step.AmountOut
				amountCalculated, err = mathutil.AddU64(amountCalculated, consumed)
			}
			if err != nil {
				return nil, err
			}
		}

		feeGrowthGlobal, protocolFee, referralFee, err = calculateFees(
			step.FeeAmount, pool.ProtocolFeeRate, referralFeeRate,
			currLiquidity, feeGrowthGlobal, protocolFee, referralFee,
		)
		if err != nil {
			return nil, err
		}

		if step.NextSqrtPrice.Equals(nextTickSqrtPrice) {
			if nextTickInitialized {
				tick, err := sequence.Tick(nextTickIndex)
				if err != nil {
					return nil, err
				}

				feeGrowthA, feeGrowthB := pool.FeeGrowthGlobalA, feeGrowthGlobal
				if aToB {
					feeGrowthA, feeGrowthB = feeGrowthGlobal, pool.FeeGrowthGlobalB
				}
				crossUpdate := NextTickCrossUpdate(tick, feeGrowthA, feeGrowthB, &rewards)

				liquidityNet := tick.Net()
				if aToB {
					liquidityNet = new(big.Int).Neg(liquidityNet)
				}
				currLiquidity, err = mathutil.AddLiquidityDelta(currLiquidity, liquidityNet)
				if err != nil {
					return nil, err
				}
				if err := sequence.UpdateTick(nextTickIndex, &crossUpdate); err != nil {
					return nil, err
				}
			}
			if aToB {
				currTickIndex = nextTickIndex - 1
			} else {
				currTickIndex = nextTickIndex
			}
		} else {
			currTickIndex, err = mathutil.TickIndexFromSqrtPrice(step.NextSqrtPrice)
			if err != nil {
				return nil, err
			}
		}
		currSqrtPrice = step.NextSqrtPrice
	}

	amountA := amountCalculated
	amountB := amount - amountRemaining
	if aToB == amountSpecifiedIsInput {
		amountA, amountB = amountB, amountA
	}

	return &model.PostSwapUpdate{
		AmountA:             amountA,
		AmountB:             amountB,
		NextLiquidity:       currLiquidity,
		NextSqrtPrice:       currSqrtPrice,
		NextTickIndex:       currTickIndex,
		NextFeeGrowthGlobal: feeGrowthGlobal,
		NextProtocolFee:     protocolFee,
		NextReferralFee:     referralFee,
		NextRewardGrowths:   rewardGrowths,
		Timestamp:           timestamp,
		AToB:                aToB,
	}, nil
}

// calculateFees splits one step's fee into protocol and referral shares,
// folding the remainder into the per-liquidity growth accumulator.
func calculateFees(
	feeAmount uint64,
	protocolFeeRate uint16,
	referralFeeRate uint16,
	liquidity uint128.Uint128,
	feeGrowthGlobal uint128.Uint128,
	protocolFee, referralFee uint64,
) (uint128.Uint128, uint64, uint64, error) {
	if feeAmount == 0 {
		return feeGrowthGlobal, protocolFee, referralFee, nil
	}

	lpFee := feeAmount
	if protocolFeeRate > 0 {
		delta := feeRateShare(feeAmount, protocolFeeRate)
		lpFee -= delta
		var err error
		protocolFee, err = mathutil.AddU64(protocolFee, delta)
		if err != nil {
			return uint128.Zero, 0, 0, err
		}
	}
	if referralFeeRate > 0 {
		delta := feeRateShare(feeAmount, referralFeeRate)
		if delta > lpFee {
			delta = lpFee
		}
		lpFee -= delta
		var err error
		referralFee, err = mathutil.AddU64(referralFee, delta)
		if err != nil {
			return uint128.Zero, 0, 0, err
		}
	}

	if lpFee > 0 && !liquidity.IsZero() {
		growthDelta, err := mathutil.MulDiv(uint128.From64(lpFee), mathutil.Q64, liquidity, false)
		if err != nil {
			return uint128.Zero, 0, 0, err
		}
		feeGrowthGlobal = feeGrowthGlobal.AddWrap(growthDelta)
	}
	return feeGrowthGlobal, protocolFee, referralFee, nil
}

func feeRateShare(feeAmount uint64, rate uint16) uint64 {
	return uint128.From64(feeAmount).Mul64(uint64(rate)).Div64(model.ProtocolFeeRateDenominator).Lo
}
