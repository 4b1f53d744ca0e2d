package model

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
)

// Address identifies pools, mints, vaults and positions.
type Address = common.Address

// ZeroAddress marks unset address fields.
var ZeroAddress = Address{}

const (
	// NumRewards is the number of reward slots carried by every pool.
	NumRewards = 3

	// MaxFeeRate caps the pool swap fee in hundredths of a basis point.
	MaxFeeRate uint32 = 30_000

	// MaxProtocolFeeRate caps the protocol share of collected fees, in
	// basis points of the fee amount.
	MaxProtocolFeeRate uint16 = 2_500

	// MaxReferralFeeRate caps the referral share of collected fees.
	MaxReferralFeeRate uint16 = 10_000

	// ProtocolFeeRateDenominator scales protocol and referral fee rates.
	ProtocolFeeRateDenominator uint64 = 10_000
)

var (
	ErrInvalidPoolTokenPair   = errors.New("pool token mints must differ")
	ErrInvalidFeeRate         = errors.New("fee rate exceeds maximum")
	ErrInvalidProtocolFeeRate = errors.New("protocol fee rate exceeds maximum")
	ErrInvalidRewardIndex     = errors.New("reward index out of range")
	ErrRewardInitialized      = errors.New("reward slot already initialized")
	ErrRewardGap              = errors.New("reward slots must be initialized in order")
	ErrRewardUninitialized    = errors.New("reward slot not initialized")
	ErrInvalidRewardMint      = errors.New("reward mint must be set")
)

// RewardInfo is one emission slot on a pool. A slot is live once its mint is
// set; growth accrues per second of emissions spread over active liquidity.
type RewardInfo struct {
	Mint                  Address         `json:"mint"`
	Vault                 Address         `json:"vault"`
	Authority             Address         `json:"authority"`
	EmissionsPerSecondX64 uint128.Uint128 `json:"emissions_per_second_x64"`
	GrowthGlobalX64       uint128.Uint128 `json:"growth_global_x64"`
}

// Initialized reports whether the slot has been bound to a mint.
func (r *RewardInfo) Initialized() bool {
	return r.Mint != ZeroAddress
}

// Pool is the full accounting state of one concentrated liquidity pool.
type Pool struct {
	Address          Address `json:"address"`
	TokenMintA       Address `json:"token_mint_a"`
	TokenMintB       Address `json:"token_mint_b"`
	TokenVaultA      Address `json:"token_vault_a"`
	TokenVaultB      Address `json:"token_vault_b"`
	TickSpacing      uint16  `json:"tick_spacing"`
	FeeRate          uint32  `json:"fee_rate"`
	ProtocolFeeRate  uint16  `json:"protocol_fee_rate"`
	TickCurrentIndex int32   `json:"tick_current_index"`

	Liquidity        uint128.Uint128 `json:"liquidity"`
	SqrtPrice        uint128.Uint128 `json:"sqrt_price"`
	FeeGrowthGlobalA uint128.Uint128 `json:"fee_growth_global_a"`
	FeeGrowthGlobalB uint128.Uint128 `json:"fee_growth_global_b"`
	ProtocolFeeOwedA uint64          `json:"protocol_fee_owed_a"`
	ProtocolFeeOwedB uint64          `json:"protocol_fee_owed_b"`

	RewardLastUpdatedTimestamp uint64                 `json:"reward_last_updated_timestamp"`
	RewardInfos                [NumRewards]RewardInfo `json:"reward_infos"`
}

// NewPool validates the static parameters and seeds price state from the
// initial sqrt price.
func NewPool(address, mintA, mintB Address, tickSpacing uint16, feeRate uint32, sqrtPrice uint128.Uint128) (*Pool, error) {
	if tickSpacing == 0 {
		return nil, ErrUnsupportedTickSpacing
	}
	if mintA == mintB {
		return nil, ErrInvalidPoolTokenPair
	}
	if feeRate > MaxFeeRate {
		return nil, ErrInvalidFeeRate
	}
	if sqrtPrice.Cmp(mathutil.MinSqrtPrice) < 0 || sqrtPrice.Cmp(mathutil.MaxSqrtPrice) > 0 {
		return nil, mathutil.ErrSqrtPriceOutOfBounds
	}
	tick, err := mathutil.TickIndexFromSqrtPrice(sqrtPrice)
	if err != nil {
		return nil, err
	}
	return &Pool{
		Address:          address,
		TokenMintA:       mintA,
		TokenMintB:       mintB,
		TickSpacing:      tickSpacing,
		FeeRate:          feeRate,
		TickCurrentIndex: tick,
		SqrtPrice:        sqrtPrice,
	}, nil
}

// IsFullRangeOnly reports whether the pool only admits full-range positions.
func (p *Pool) IsFullRangeOnly() bool {
	return p.TickSpacing >= FullRangeOnlyTickSpacingThreshold
}

// SetFeeRate updates the swap fee rate.
func (p *Pool) SetFeeRate(feeRate uint32) error {
	if feeRate > MaxFeeRate {
		return ErrInvalidFeeRate
	}
	p.FeeRate = feeRate
	return nil
}

// SetProtocolFeeRate updates the protocol share of collected fees.
func (p *Pool) SetProtocolFeeRate(rate uint16) error {
	if rate > MaxProtocolFeeRate {
		return ErrInvalidProtocolFeeRate
	}
	p.ProtocolFeeRate = rate
	return nil
}

// InitializeReward binds a reward slot to a mint. Slots fill in ascending
// order without gaps and a slot binds only once.
func (p *Pool) InitializeReward(index int, mint, vault Address) error {
	if index < 0 || index >= NumRewards {
		return ErrInvalidRewardIndex
	}
	if mint == ZeroAddress {
		return ErrInvalidRewardMint
	}
	if p.RewardInfos[index].Initialized() {
		return ErrRewardInitialized
	}
	for i := 0; i < index; i++ {
		if !p.RewardInfos[i].Initialized() {
			return ErrRewardGap
		}
	}
	p.RewardInfos[index].Mint = mint
	p.RewardInfos[index].Vault = vault
	return nil
}

// SetRewardEmissions updates the emission rate of an initialized slot.
func (p *Pool) SetRewardEmissions(index int, emissionsPerSecondX64 uint128.Uint128) error {
	if index < 0 || index >= NumRewards {
		return ErrInvalidRewardIndex
	}
	if !p.RewardInfos[index].Initialized() {
		return ErrRewardUninitialized
	}
	p.RewardInfos[index].EmissionsPerSecondX64 = emissionsPerSecondX64
	return nil
}

// UpdateRewardsAndLiquidity settles advanced reward growth and a new active
// liquidity in one step.
func (p *Pool) UpdateRewardsAndLiquidity(rewardGrowths [NumRewards]uint128.Uint128, liquidity uint128.Uint128, timestamp uint64) {
	p.UpdateRewards(rewardGrowths, timestamp)
	p.Liquidity = liquidity
}

// UpdateRewards settles advanced reward growth globals.
func (p *Pool) UpdateRewards(rewardGrowths [NumRewards]uint128.Uint128, timestamp uint64) {
	for i := range p.RewardInfos {
		p.RewardInfos[i].GrowthGlobalX64 = rewardGrowths[i]
	}
	p.RewardLastUpdatedTimestamp = timestamp
}

// ApplySwap commits the post-swap state computed by the engine. The pool is
// untouched when the accumulated protocol fee would overflow.
func (p *Pool) ApplySwap(u *PostSwapUpdate) error {
	owed := p.ProtocolFeeOwedA
	if !u.AToB {
		owed = p.ProtocolFeeOwedB
	}
	owed, err := mathutil.AddU64(owed, u.NextProtocolFee)
	if err != nil {
		return err
	}

	p.Liquidity = u.NextLiquidity
	p.SqrtPrice = u.NextSqrtPrice
	p.TickCurrentIndex = u.NextTickIndex
	if u.AToB {
		p.FeeGrowthGlobalA = u.NextFeeGrowthGlobal
		p.ProtocolFeeOwedA = owed
	} else {
		p.FeeGrowthGlobalB = u.NextFeeGrowthGlobal
		p.ProtocolFeeOwedB = owed
	}
	p.UpdateRewards(u.NextRewardGrowths, u.Timestamp)
	return nil
}

// ResetProtocolFeesOwed zeroes the protocol fee balances after collection.
func (p *Pool) ResetProtocolFeesOwed() {
	p.ProtocolFeeOwedA = 0
	p.ProtocolFeeOwedB = 0
}
