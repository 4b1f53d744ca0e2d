package model

import "lukechampine.com/uint128"

// PositionUpdate is the transient diff computed for a position when its
// liquidity changes or its fees and rewards are settled.
type PositionUpdate struct {
	Liquidity            uint128.Uint128
	FeeGrowthCheckpointA uint128.Uint128
	FeeGrowthCheckpointB uint128.Uint128
	FeeOwedA             uint64
	FeeOwedB             uint64
	RewardInfos          [NumRewards]PositionRewardInfo
}

// ModifyLiquidityUpdate bundles every diff produced by one liquidity change
// so it can be committed atomically.
type ModifyLiquidityUpdate struct {
	PoolLiquidity   uint128.Uint128
	RewardGrowths   [NumRewards]uint128.Uint128
	Timestamp       uint64
	TickLowerUpdate TickUpdate
	TickUpperUpdate TickUpdate
	PositionUpdate  PositionUpdate
}

// PostSwapUpdate is the pool-level diff produced by a swap computation.
type PostSwapUpdate struct {
	AmountA uint64
	AmountB uint64

	NextLiquidity       uint128.Uint128
	NextSqrtPrice       uint128.Uint128
	NextTickIndex       int32
	NextFeeGrowthGlobal uint128.Uint128
	NextProtocolFee     uint64
	NextReferralFee     uint64
	NextRewardGrowths   [NumRewards]uint128.Uint128
	Timestamp           uint64
	AToB                bool
}
