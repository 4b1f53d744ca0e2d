package model

import (
	"errors"
	"math/big"

	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
)

const (
	// TickArraySize is the fixed tick capacity of one array shard.
	TickArraySize = 88

	// FullRangeOnlyTickSpacingThreshold marks pools restricted to full-range
	// positions.
	FullRangeOnlyTickSpacingThreshold uint16 = 32768
)

var (
	ErrTickNotFound           = errors.New("tick not found in tick array")
	ErrInvalidStartTickIndex  = errors.New("invalid tick array start index")
	ErrUnsupportedTickSpacing = errors.New("unsupported tick spacing")
)

// Tick carries the per-tick liquidity and growth bookkeeping.
type Tick struct {
	Initialized          bool                        `json:"initialized"`
	LiquidityNet         *big.Int                    `json:"liquidity_net"`
	LiquidityGross       uint128.Uint128             `json:"liquidity_gross"`
	FeeGrowthOutsideA    uint128.Uint128             `json:"fee_growth_outside_a"`
	FeeGrowthOutsideB    uint128.Uint128             `json:"fee_growth_outside_b"`
	RewardGrowthsOutside [NumRewards]uint128.Uint128 `json:"reward_growths_outside"`
}

// Net returns the signed liquidity delta, treating an unset value as zero.
func (t *Tick) Net() *big.Int {
	if t.LiquidityNet == nil {
		return new(big.Int)
	}
	return t.LiquidityNet
}

// Apply overwrites the tick with a computed update.
func (t *Tick) Apply(u *TickUpdate) {
	t.Initialized = u.Initialized
	t.LiquidityNet = u.LiquidityNet
	t.LiquidityGross = u.LiquidityGross
	t.FeeGrowthOutsideA = u.FeeGrowthOutsideA
	t.FeeGrowthOutsideB = u.FeeGrowthOutsideB
	t.RewardGrowthsOutside = u.RewardGrowthsOutside
}

// TickUpdate is the transient diff produced for one boundary tick.
type TickUpdate struct {
	Initialized          bool
	LiquidityNet         *big.Int
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

// TickUpdateFrom snapshots a tick into an update that reapplies it verbatim.
func TickUpdateFrom(t *Tick) TickUpdate {
	return TickUpdate{
		Initialized:          t.Initialized,
		LiquidityNet:         t.Net(),
		LiquidityGross:       t.LiquidityGross,
		FeeGrowthOutsideA:    t.FeeGrowthOutsideA,
		FeeGrowthOutsideB:    t.FeeGrowthOutsideB,
		RewardGrowthsOutside: t.RewardGrowthsOutside,
	}
}

// CheckIsUsableTick reports whether a tick index is in range and aligned to
// the pool's tick spacing.
func CheckIsUsableTick(tickIndex int32, tickSpacing uint16) bool {
	if tickIndex < mathutil.MinTick || tickIndex > mathutil.MaxTick {
		return false
	}
	return tickIndex%int32(tickSpacing) == 0
}

// FullRangeIndexes returns the widest usable tick pair for a spacing.
func FullRangeIndexes(tickSpacing uint16) (int32, int32) {
	s := int32(tickSpacing)
	return mathutil.MinTick / s * s, mathutil.MaxTick / s * s
}

// TickArrayStartIndex returns the aligned start index of the array shard
// containing tickIndex.
func TickArrayStartIndex(tickIndex int32, tickSpacing uint16) int32 {
	width := int32(tickSpacing) * TickArraySize
	idx := tickIndex / width
	if tickIndex < 0 && tickIndex%width != 0 {
		idx--
	}
	return idx * width
}

// TickArray is a fixed-capacity shard of contiguous ticks addressed by
// (pool, aligned start index).
type TickArray struct {
	Pool           Address             `json:"pool"`
	StartTickIndex int32               `json:"start_tick_index"`
	Ticks          [TickArraySize]Tick `json:"ticks"`
}

// NewTickArray validates alignment of the start index against the spacing.
func NewTickArray(pool Address, startTickIndex int32, tickSpacing uint16) (*TickArray, error) {
	if tickSpacing == 0 {
		return nil, ErrUnsupportedTickSpacing
	}
	if TickArrayStartIndex(startTickIndex, tickSpacing) != startTickIndex {
		return nil, ErrInvalidStartTickIndex
	}
	if startTickIndex > mathutil.MaxTick || startTickIndex+int32(tickSpacing)*TickArraySize <= mathutil.MinTick {
		return nil, ErrInvalidStartTickIndex
	}
	return &TickArray{Pool: pool, StartTickIndex: startTickIndex}, nil
}

// IsMinTickArray reports whether this shard covers MinTick.
func (ta *TickArray) IsMinTickArray() bool {
	return ta.StartTickIndex <= mathutil.MinTick
}

// IsMaxTickArray reports whether this shard covers MaxTick.
func (ta *TickArray) IsMaxTickArray(tickSpacing uint16) bool {
	return ta.StartTickIndex+int32(tickSpacing)*TickArraySize > mathutil.MaxTick
}

// InSearchRange reports whether tickIndex may seed a search of this shard.
// An upward search is allowed to start one spacing below the shard.
func (ta *TickArray) InSearchRange(tickIndex int32, tickSpacing uint16, shifted bool) bool {
	lower := ta.StartTickIndex
	upper := ta.StartTickIndex + int32(tickSpacing)*TickArraySize
	if shifted {
		lower -= int32(tickSpacing)
	}
	return tickIndex >= lower && tickIndex < upper
}

func (ta *TickArray) tickOffset(tickIndex int32, tickSpacing uint16) (int, error) {
	if tickSpacing == 0 {
		return 0, ErrUnsupportedTickSpacing
	}
	rel := tickIndex - ta.StartTickIndex
	if rel < 0 || rel%int32(tickSpacing) != 0 {
		return 0, ErrTickNotFound
	}
	offset := int(rel / int32(tickSpacing))
	if offset >= TickArraySize {
		return 0, ErrTickNotFound
	}
	return offset, nil
}

// TickAt returns the tick stored for tickIndex.
func (ta *TickArray) TickAt(tickIndex int32, tickSpacing uint16) (*Tick, error) {
	offset, err := ta.tickOffset(tickIndex, tickSpacing)
	if err != nil {
		return nil, err
	}
	return &ta.Ticks[offset], nil
}

// UpdateTick applies a computed update to the tick at tickIndex.
func (ta *TickArray) UpdateTick(tickIndex int32, tickSpacing uint16, u *TickUpdate) error {
	offset, err := ta.tickOffset(tickIndex, tickSpacing)
	if err != nil {
		return err
	}
	ta.Ticks[offset].Apply(u)
	return nil
}

// NextInitializedTickIndex finds the nearest initialized tick in the swap
// direction within this shard. Downward searches include tickIndex itself,
// upward searches start strictly above it. The second return is false when
// the shard holds no initialized tick in that direction.
func (ta *TickArray) NextInitializedTickIndex(tickIndex int32, tickSpacing uint16, aToB bool) (int32, bool, error) {
	if !ta.InSearchRange(tickIndex, tickSpacing, !aToB) {
		return 0, false, ErrTickNotFound
	}
	curr := int(tickIndex-ta.StartTickIndex) / int(tickSpacing)
	if tickIndex < ta.StartTickIndex {
		curr = -1
	}
	if aToB {
		for o := curr; o >= 0; o-- {
			if ta.Ticks[o].Initialized {
				return ta.StartTickIndex + int32(o)*int32(tickSpacing), true, nil
			}
		}
	} else {
		for o := curr + 1; o < TickArraySize; o++ {
			if ta.Ticks[o].Initialized {
				return ta.StartTickIndex + int32(o)*int32(tickSpacing), true, nil
			}
		}
	}
	return 0, false, nil
}
