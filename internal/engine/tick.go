package engine

import (
	"math/big"

	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// NextTickCrossUpdate flips a tick's outside growth values as price crosses
// it. Outside values complement against global via wrapping subtraction, so
// only differences of growth values stay meaningful.
func NextTickCrossUpdate(tick *model.Tick, feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128, rewards *[model.NumRewards]model.RewardInfo) model.TickUpdate {
	update := model.TickUpdateFrom(tick)
	update.FeeGrowthOutsideA = feeGrowthGlobalA.SubWrap(tick.FeeGrowthOutsideA)
	update.FeeGrowthOutsideB = feeGrowthGlobalB.SubWrap(tick.FeeGrowthOutsideB)
	for i := range rewards {
		if !rewards[i].Initialized() {
			continue
		}
		update.RewardGrowthsOutside[i] = rewards[i].GrowthGlobalX64.SubWrap(tick.RewardGrowthsOutside[i])
	}
	return update
}

// NextTickModifyLiquidityUpdate computes the tick-level effect of a liquidity
// change at one position bound. A tick whose gross liquidity drops to zero
// reverts to the uninitialized default; a freshly initialized tick seeds its
// outside growth from the lazy convention (equal to global at or below the
// current tick, zero above it).
func NextTickModifyLiquidityUpdate(
	tick *model.Tick,
	tickIndex, tickCurrentIndex int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
	rewards *[model.NumRewards]model.RewardInfo,
	liquidityDelta *big.Int,
	isUpper bool,
) (model.TickUpdate, error) {
	if liquidityDelta == nil || liquidityDelta.Sign() == 0 {
		return model.TickUpdateFrom(tick), nil
	}

	liquidityGross, err := mathutil.AddLiquidityDelta(tick.LiquidityGross, liquidityDelta)
	if err != nil {
		return model.TickUpdate{}, err
	}
	if liquidityGross.IsZero() {
		// Accumulated growth is discarded; re-initialization reseeds it.
		return model.TickUpdate{LiquidityNet: new(big.Int)}, nil
	}

	update := model.TickUpdate{
		Initialized:    true,
		LiquidityGross: liquidityGross,
	}

	if tick.Initialized {
		update.FeeGrowthOutsideA = tick.FeeGrowthOutsideA
		update.FeeGrowthOutsideB = tick.FeeGrowthOutsideB
		update.RewardGrowthsOutside = tick.RewardGrowthsOutside
	} else if tickCurrentIndex >= tickIndex {
		update.FeeGrowthOutsideA = feeGrowthGlobalA
		update.FeeGrowthOutsideB = feeGrowthGlobalB
		for i := range rewards {
			if rewards[i].Initialized() {
				update.RewardGrowthsOutside[i] = rewards[i].GrowthGlobalX64
			}
		}
	}

	signed := liquidityDelta
	if isUpper {
		signed = new(big.Int).Neg(liquidityDelta)
	}
	liquidityNet, ok := mathutil.AddSigned128(tick.Net(), signed)
	if !ok {
		return model.TickUpdate{}, ErrTickLiquidityNet
	}
	update.LiquidityNet = liquidityNet

	return update, nil
}

// NextFeeGrowthsInside returns the fee growth accrued strictly between the
// two bound ticks, derived by subtracting the below and above contributions
// from the global accumulators.
func NextFeeGrowthsInside(
	tickCurrentIndex int32,
	tickLower *model.Tick, tickLowerIndex int32,
	tickUpper *model.Tick, tickUpperIndex int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
) (uint128.Uint128, uint128.Uint128) {
	var belowA, belowB uint128.Uint128
	if !tickLower.Initialized {
		belowA = feeGrowthGlobalA
		belowB = feeGrowthGlobalB
	} else if tickCurrentIndex < tickLowerIndex {
		belowA = feeGrowthGlobalA.SubWrap(tickLower.FeeGrowthOutsideA)
		belowB = feeGrowthGlobalB.SubWrap(tickLower.FeeGrowthOutsideB)
	} else {
		belowA = tickLower.FeeGrowthOutsideA
		belowB = tickLower.FeeGrowthOutsideB
	}

	var aboveA, aboveB uint128.Uint128
	if tickUpper.Initialized {
		if tickCurrentIndex < tickUpperIndex {
			aboveA = tickUpper.FeeGrowthOutsideA
			aboveB = tickUpper.FeeGrowthOutsideB
		} else {
			aboveA = feeGrowthGlobalA.SubWrap(tickUpper.FeeGrowthOutsideA)
			aboveB = feeGrowthGlobalB.SubWrap(tickUpper.FeeGrowthOutsideB)
		}
	}

	insideA := feeGrowthGlobalA.SubWrap(belowA).SubWrap(aboveA)
	insideB := feeGrowthGlobalB.SubWrap(belowB).SubWrap(aboveB)
	return insideA, insideB
}

// NextRewardGrowthsInside is the per-slot analogue of NextFeeGrowthsInside.
// Uninitialized reward slots always contribute zero.
func NextRewardGrowthsInside(
	tickCurrentIndex int32,
	tickLower *model.Tick, tickLowerIndex int32,
	tickUpper *model.Tick, tickUpperIndex int32,
	rewards *[model.NumRewards]model.RewardInfo,
) [model.NumRewards]uint128.Uint128 {
	var inside [model.NumRewards]uint128.Uint128
	for i := range rewards {
		if !rewards[i].Initialized() {
			continue
		}
		global := rewards[i].GrowthGlobalX64

		var below uint128.Uint128
		if !tickLower.Initialized {
			below = global
		} else if tickCurrentIndex < tickLowerIndex {
			below = global.SubWrap(tickLower.RewardGrowthsOutside[i])
		} else {
			below = tickLower.RewardGrowthsOutside[i]
		}

		var above uint128.Uint128
		if tickUpper.Initialized {
			if tickCurrentIndex < tickUpperIndex {
				above = tickUpper.RewardGrowthsOutside[i]
			} else {
				above = global.SubWrap(tickUpper.RewardGrowthsOutside[i])
			}
		}

		inside[i] = global.SubWrap(below).SubWrap(above)
	}
	return inside
}
