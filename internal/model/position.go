package model

import (
	"errors"

	"lukechampine.com/uint128"
)

var (
	ErrInvalidTickRange      = errors.New("invalid position tick range")
	ErrFullRangeOnlyPool     = errors.New("pool accepts full-range positions only")
	ErrNonEmptyPositionClose = errors.New("position still holds liquidity or owed balances")
	ErrPositionPoolMismatch  = errors.New("position does not belong to pool")
	ErrPositionNotFound      = errors.New("position not found")
)

// PositionRewardInfo checkpoints one reward slot for a position.
type PositionRewardInfo struct {
	GrowthInsideCheckpoint uint128.Uint128 `json:"growth_inside_checkpoint"`
	AmountOwed             uint64          `json:"amount_owed"`
}

// Position is a liquidity position over a tick range of one pool.
type Position struct {
	Mint           Address `json:"mint"`
	Pool           Address `json:"pool"`
	TickLowerIndex int32   `json:"tick_lower_index"`
	TickUpperIndex int32   `json:"tick_upper_index"`

	Liquidity            uint128.Uint128 `json:"liquidity"`
	FeeGrowthCheckpointA uint128.Uint128 `json:"fee_growth_checkpoint_a"`
	FeeGrowthCheckpointB uint128.Uint128 `json:"fee_growth_checkpoint_b"`
	FeeOwedA             uint64          `json:"fee_owed_a"`
	FeeOwedB             uint64          `json:"fee_owed_b"`

	RewardInfos [NumRewards]PositionRewardInfo `json:"reward_infos"`

	// IsReinvestmentOn marks positions whose collected fees are redeposited
	// by an external automation; the engine only carries the flag.
	IsReinvestmentOn bool `json:"is_reinvestment_on"`
}

// OpenPosition validates a tick range against the pool and returns an empty
// position over it.
func OpenPosition(pool *Pool, mint Address, tickLowerIndex, tickUpperIndex int32) (*Position, error) {
	if tickLowerIndex >= tickUpperIndex {
		return nil, ErrInvalidTickRange
	}
	if !CheckIsUsableTick(tickLowerIndex, pool.TickSpacing) || !CheckIsUsableTick(tickUpperIndex, pool.TickSpacing) {
		return nil, ErrInvalidTickRange
	}
	if pool.IsFullRangeOnly() {
		lower, upper := FullRangeIndexes(pool.TickSpacing)
		if tickLowerIndex != lower || tickUpperIndex != upper {
			return nil, ErrFullRangeOnlyPool
		}
	}
	return &Position{
		Mint:           mint,
		Pool:           pool.Address,
		TickLowerIndex: tickLowerIndex,
		TickUpperIndex: tickUpperIndex,
	}, nil
}

// Empty reports whether the position holds no liquidity and no owed balances.
func (p *Position) Empty() bool {
	if !p.Liquidity.IsZero() || p.FeeOwedA != 0 || p.FeeOwedB != 0 {
		return false
	}
	for i := range p.RewardInfos {
		if p.RewardInfos[i].AmountOwed != 0 {
			return false
		}
	}
	return true
}

// Close verifies the position carries nothing before it is removed.
func (p *Position) Close() error {
	if !p.Empty() {
		return ErrNonEmptyPositionClose
	}
	return nil
}

// Apply commits a computed position update.
func (p *Position) Apply(u *PositionUpdate) {
	p.Liquidity = u.Liquidity
	p.FeeGrowthCheckpointA = u.FeeGrowthCheckpointA
	p.FeeGrowthCheckpointB = u.FeeGrowthCheckpointB
	p.FeeOwedA = u.FeeOwedA
	p.FeeOwedB = u.FeeOwedB
	p.RewardInfos = u.RewardInfos
}

// ResetFeesOwed zeroes the owed fee balances after collection.
func (p *Position) ResetFeesOwed() {
	p.FeeOwedA = 0
	p.FeeOwedB = 0
}

// TakeReward drains the owed balance of one reward slot.
func (p *Position) TakeReward(index int) (uint64, error) {
	if index < 0 || index >= NumRewards {
		return 0, ErrInvalidRewardIndex
	}
	owed := p.RewardInfos[index].AmountOwed
	p.RewardInfos[index].AmountOwed = 0
	return owed, nil
}
