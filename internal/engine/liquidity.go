package engine

import (
	"math/big"

	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// CalculateModifyLiquidity computes the full effect of adding or removing
// liquidity on a position: the pool's next liquidity, both boundary tick
// updates, and the position's fee and reward checkpoints. Reward growth is
// advanced to the operation timestamp before anything tick-dependent is
// computed, and the position's checkpoints are taken against the tick state
// before the boundary updates are applied.
func CalculateModifyLiquidity(
	pool *model.Pool,
	position *model.Position,
	tickArrayLower, tickArrayUpper *model.TickArray,
	liquidityDelta *big.Int,
	timestamp uint64,
) (*model.ModifyLiquidityUpdate, error) {
	if liquidityDelta == nil || liquidityDelta.Sign() == 0 {
		return nil, ErrZeroLiquidity
	}
	if position.Pool != pool.Address {
		return nil, model.ErrPositionPoolMismatch
	}

	tickLower, err := tickArrayLower.TickAt(position.TickLowerIndex, pool.TickSpacing)
	if err != nil {
		return nil, err
	}
	tickUpper, err := tickArrayUpper.TickAt(position.TickUpperIndex, pool.TickSpacing)
	if err != nil {
		return nil, err
	}

	rewardGrowths, err := NextRewardInfos(pool, timestamp)
	if err != nil {
		return nil, err
	}
	rewards := advancedRewards(pool, rewardGrowths)

	nextLiquidity, err := NextPoolLiquidity(pool, position.TickUpperIndex, position.TickLowerIndex, liquidityDelta)
	if err != nil {
		return nil, err
	}

	tickLowerUpdate, err := NextTickModifyLiquidityUpdate(
		tickLower, position.TickLowerIndex, pool.TickCurrentIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB, &rewards,
		liquidityDelta, false,
	)
	if err != nil {
		return nil, err
	}
	tickUpperUpdate, err := NextTickModifyLiquidityUpdate(
		tickUpper, position.TickUpperIndex, pool.TickCurrentIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB, &rewards,
		liquidityDelta, true,
	)
	if err != nil {
		return nil, err
	}

	feeInsideA, feeInsideB := NextFeeGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB,
	)
	rewardsInside := NextRewardGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		&rewards,
	)
	positionUpdate, err := nextPositionModifyLiquidityUpdate(position, liquidityDelta, feeInsideA, feeInsideB, rewardsInside)
	if err != nil {
		return nil, err
	}

	return &model.ModifyLiquidityUpdate{
		PoolLiquidity:   nextLiquidity,
		RewardGrowths:   rewardGrowths,
		Timestamp:       timestamp,
		TickLowerUpdate: tickLowerUpdate,
		TickUpperUpdate: tickUpperUpdate,
		PositionUpdate:  positionUpdate,
	}, nil
}

// SyncModifyLiquidityValues commits a computed update to the pool, both
// boundary ticks, and the position in one step. It is the only path that
// mutates the four objects together.
func SyncModifyLiquidityValues(
	pool *model.Pool,
	position *model.Position,
	tickArrayLower, tickArrayUpper *model.TickArray,
	update *model.ModifyLiquidityUpdate,
) error {
	if err := tickArrayLower.UpdateTick(position.TickLowerIndex, pool.TickSpacing, &update.TickLowerUpdate); err != nil {
		return err
	}
	if err := tickArrayUpper.UpdateTick(position.TickUpperIndex, pool.TickSpacing, &update.TickUpperUpdate); err != nil {
		return err
	}
	pool.UpdateRewardsAndLiquidity(update.RewardGrowths, update.PoolLiquidity, update.Timestamp)
	position.Apply(&update.PositionUpdate)
	return nil
}

// CalculateLiquidityTokenDeltas returns the token amounts that a liquidity
// change moves. Below the range only token A is involved, above it only
// token B, inside it both, split at the current price. Adding rounds the
// requirement up and removing rounds the payout down, so rounding never
// favors the caller.
func CalculateLiquidityTokenDeltas(
	tickCurrentIndex int32,
	sqrtPrice uint128.Uint128,
	position *model.Position,
	liquidityDelta *big.Int,
) (amountA, amountB uint64, err error) {
	if liquidityDelta == nil || liquidityDelta.Sign() == 0 {
		return 0, 0, ErrZeroLiquidity
	}
	roundUp := liquidityDelta.Sign() > 0
	liquidity := uint128.FromBig(new(big.Int).Abs(liquidityDelta))

	lowerPrice, err := mathutil.SqrtPriceFromTickIndex(position.TickLowerIndex)
	if err != nil {
		return 0, 0, err
	}
	upperPrice, err := mathutil.SqrtPriceFromTickIndex(position.TickUpperIndex)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case tickCurrentIndex < position.TickLowerIndex:
		amountA, err = mathutil.GetAmountDeltaA(lowerPrice, upperPrice, liquidity, roundUp)
	case tickCurrentIndex < position.TickUpperIndex:
		amountA, err = mathutil.GetAmountDeltaA(sqrtPrice, upperPrice, liquidity, roundUp)
		if err != nil {
			return 0, 0, err
		}
		amountB, err = mathutil.GetAmountDeltaB(lowerPrice, sqrtPrice, liquidity, roundUp)
	default:
		amountB, err = mathutil.GetAmountDeltaB(lowerPrice, upperPrice, liquidity, roundUp)
	}
	if err != nil {
		return 0, 0, err
	}
	return amountA, amountB, nil
}

// CalculateFeeAndRewardGrowths settles a position's owed fees and rewards to
// the operation timestamp without changing its liquidity. The returned reward
// growths must be written back to the pool together with the position update.
func CalculateFeeAndRewardGrowths(
	pool *model.Pool,
	position *model.Position,
	tickArrayLower, tickArrayUpper *model.TickArray,
	timestamp uint64,
) (*model.PositionUpdate, [model.NumRewards]uint128.Uint128, error) {
	var none [model.NumRewards]uint128.Uint128
	if position.Pool != pool.Address {
		return nil, none, model.ErrPositionPoolMismatch
	}
	if position.Liquidity.IsZero() {
		return nil, none, ErrZeroLiquidity
	}

	tickLower, err := tickArrayLower.TickAt(position.TickLowerIndex, pool.TickSpacing)
	if err != nil {
		return nil, none, err
	}
	tickUpper, err := tickArrayUpper.TickAt(position.TickUpperIndex, pool.TickSpacing)
	if err != nil {
		return nil, none, err
	}

	rewardGrowths, err := NextRewardInfos(pool, timestamp)
	if err != nil {
		return nil, none, err
	}
	rewards := advancedRewards(pool, rewardGrowths)

	feeInsideA, feeInsideB := NextFeeGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB,
	)
	rewardsInside := NextRewardGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		&rewards,
	)
	update, err := nextPositionModifyLiquidityUpdate(position, nil, feeInsideA, feeInsideB, rewardsInside)
	if err != nil {
		return nil, none, err
	}
	return &update, rewardGrowths, nil
}

func advancedRewards(pool *model.Pool, growths [model.NumRewards]uint128.Uint128) [model.NumRewards]model.RewardInfo {
	rewards := pool.RewardInfos
	for i := range rewards {
		rewards[i].GrowthGlobalX64 = growths[i]
	}
	return rewards
}

func nextPositionModifyLiquidityUpdate(
	position *model.Position,
	liquidityDelta *big.Int,
	feeGrowthInsideA, feeGrowthInsideB uint128.Uint128,
	rewardGrowthsInside [model.NumRewards]uint128.Uint128,
) (model.PositionUpdate, error) {
	nextLiquidity, err := mathutil.AddLiquidityDelta(position.Liquidity, liquidityDelta)
	if err != nil {
		return model.PositionUpdate{}, err
	}

	feeOwedDeltaA, err := mathutil.MulShiftRight64(position.Liquidity, feeGrowthInsideA.SubWrap(position.FeeGrowthCheckpointA))
	if err != nil {
		return model.PositionUpdate{}, err
	}
	feeOwedDeltaB, err := mathutil.MulShiftRight64(position.Liquidity, feeGrowthInsideB.SubWrap(position.FeeGrowthCheckpointB))
	if err != nil {
		return model.PositionUpdate{}, err
	}

	feeOwedA, err := mathutil.AddU64(position.FeeOwedA, feeOwedDeltaA)
	if err != nil {
		return model.PositionUpdate{}, err
	}
	feeOwedB, err := mathutil.AddU64(position.FeeOwedB, feeOwedDeltaB)
	if err != nil {
		return model.PositionUpdate{}, err
	}

	update := model.PositionUpdate{
		Liquidity:            nextLiquidity,
		FeeGrowthCheckpointA: feeGrowthInsideA,
		FeeGrowthCheckpointB: feeGrowthInsideB,
		FeeOwedA:             feeOwedA,
		FeeOwedB:             feeOwedB,
	}

	for i := range rewardGrowthsInside {
		owedDelta, err := mathutil.MulShiftRight64(position.Liquidity, rewardGrowthsInside[i].SubWrap(position.RewardInfos[i].GrowthInsideCheckpoint))
		if err != nil {
			return model.PositionUpdate{}, err
		}
		owed, err := mathutil.AddU64(position.RewardInfos[i].AmountOwed, owedDelta)
		if err != nil {
			return model.PositionUpdate{}, err
		}
		update.RewardInfos[i] = model.PositionRewardInfo{
			GrowthInsideCheckpoint: rewardGrowthsInside[i],
			AmountOwed:             owed,
		}
	}
	return update, nil
}
