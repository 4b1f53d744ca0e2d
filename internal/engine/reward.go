package engine

import (
	"errors"
	"math/big"

	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// NextRewardInfos advances the per-second reward growth accumulators to
// nextTimestamp and returns the new growth globals. A growth delta that
// overflows is treated as zero, which halts further accrual for that slot
// instead of failing the caller's operation.
func NextRewardInfos(pool *model.Pool, nextTimestamp uint64) ([model.NumRewards]uint128.Uint128, error) {
	var growths [model.NumRewards]uint128.Uint128
	for i := range pool.RewardInfos {
		growths[i] = pool.RewardInfos[i].GrowthGlobalX64
	}

	if nextTimestamp < pool.RewardLastUpdatedTimestamp {
		return growths, ErrInvalidTimestamp
	}
	if pool.Liquidity.IsZero() || nextTimestamp == pool.RewardLastUpdatedTimestamp {
		return growths, nil
	}

	timeDelta := nextTimestamp - pool.RewardLastUpdatedTimestamp
	for i := range pool.RewardInfos {
		info := &pool.RewardInfos[i]
		if !info.Initialized() {
			continue
		}
		delta, err := mathutil.MulDiv(
			uint128.From64(timeDelta),
			info.EmissionsPerSecondX64,
			pool.Liquidity,
			false,
		)
		if err != nil {
			if errors.Is(err, mathutil.ErrMulDivOverflow) {
				delta = uint128.Zero
			} else {
				return growths, err
			}
		}
		growths[i] = growths[i].AddWrap(delta)
	}
	return growths, nil
}

// NextPoolLiquidity applies a position's liquidity delta to the pool's
// running total only when the current tick lies inside the position range.
// Outside the range the delta activates later through the tick's net value.
func NextPoolLiquidity(pool *model.Pool, tickUpperIndex, tickLowerIndex int32, liquidityDelta *big.Int) (uint128.Uint128, error) {
	if pool.TickCurrentIndex < tickLowerIndex || pool.TickCurrentIndex >= tickUpperIndex {
		return pool.Liquidity, nil
	}
	return mathutil.AddLiquidityDelta(pool.Liquidity, liquidityDelta)
}

// CalculateCollectReward settles an owed reward balance against the vault's
// actual holdings. The shortfall stays owed for a later collection.
func CalculateCollectReward(amountOwed, vaultAmount uint64) (transfer, remainingOwed uint64) {
	if amountOwed <= vaultAmount {
		return amountOwed, 0
	}
	return vaultAmount, amountOwed - vaultAmount
}
