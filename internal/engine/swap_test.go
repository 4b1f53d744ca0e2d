package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

func sqrtPriceAt(t *testing.T, tickIndex int32) uint128.Uint128 {
	t.Helper()
	price, err := mathutil.SqrtPriceFromTickIndex(tickIndex)
	require.NoError(t, err)
	return price
}

func TestComputeSwapLimitValidation(t *testing.T) {
	pool := newTestPool(t)
	pool.Liquidity = uint128.From64(1000)
	sequence := NewTickSequence([]*model.TickArray{newTestArray(t, 0, 1)}, 1, false)

	_, err := ComputeSwap(pool, sequence, 100, mathutil.MaxSqrtPrice.Add64(1), true, false, 0, 0)
	require.ErrorIs(t, err, mathutil.ErrSqrtPriceOutOfBounds)

	// The limit must lie in the direction of the swap.
	_, err = ComputeSwap(pool, sequence, 100, mathutil.MaxSqrtPrice, true, true, 0, 0)
	require.ErrorIs(t, err, ErrInvalidSqrtPriceLimit)
	_, err = ComputeSwap(pool, sequence, 100, mathutil.MinSqrtPrice, true, false, 0, 0)
	require.ErrorIs(t, err, ErrInvalidSqrtPriceLimit)

	_, err = ComputeSwap(pool, sequence, 0, mathutil.MaxSqrtPrice, true, false, 0, 0)
	require.ErrorIs(t, err, ErrNoTradableAmount)
}

// A swap that drains the only liquidity range keeps walking at zero cost
// until the price limit binds, and reports the limit tick as the final state.
func TestComputeSwapCrossesIntoZeroLiquidity(t *testing.T) {
	pool := newTestPool(t)
	pool.Liquidity = uint128.From64(100)

	third := newTestArray(t, 176, 1)
	seedTick(t, third, 200, 1, -100)
	arrays := []*model.TickArray{newTestArray(t, 0, 1), newTestArray(t, 88, 1), third}
	sequence := NewTickSequence(arrays, 1, false)

	update, err := ComputeSwap(pool, sequence, 1000, sqrtPriceAt(t, 250), true, false, 0, 0)
	require.NoError(t, err)

	require.True(t, update.NextLiquidity.IsZero(), "crossing the range bound removes its liquidity")
	require.True(t, update.NextSqrtPrice.Equals(sqrtPriceAt(t, 250)))
	require.Equal(t, int32(250), update.NextTickIndex)

	// Only the stretch up to the crossed tick consumed input.
	require.Equal(t, uint64(2), update.AmountB)
	require.Equal(t, uint64(0), update.AmountA)

	// The crossed tick flipped its outside accumulators.
	tick, err := third.TickAt(200, 1)
	require.NoError(t, err)
	require.True(t, tick.Initialized)
}

func TestComputeSwapStopsAtCoverageEdge(t *testing.T) {
	pool := newTestPool(t)
	pool.Liquidity = uint128.From64(1_000_000)
	sequence := NewTickSequence([]*model.TickArray{newTestArray(t, 0, 1)}, 1, false)

	// Enough input to push the price beyond tick 87, which is past the
	// loaded coverage.
	_, err := ComputeSwap(pool, sequence, 50_000, mathutil.MaxSqrtPrice, true, false, 0, 0)
	require.ErrorIs(t, err, ErrInvalidTickArraySequence)
}

func TestComputeSwapExactIn(t *testing.T) {
	pool := newTestPool(t)
	require.NoError(t, pool.SetFeeRate(10_000)) // 1%
	pool.Liquidity = uint128.From64(1_000_000)

	arrays := []*model.TickArray{newTestArray(t, 0, 1), newTestArray(t, 88, 1)}
	sequence := NewTickSequence(arrays, 1, false)

	update, err := ComputeSwap(pool, sequence, 1000, mathutil.MaxSqrtPrice, true, false, 100, 0)
	require.NoError(t, err)

	require.Equal(t, uint64(1000), update.AmountB, "input side consumes the full amount")
	require.NotZero(t, update.AmountA)
	require.Less(t, update.AmountA, uint64(1000), "fee and curve make output less than input")
	require.False(t, update.AToB)

	// The 10 token fee lands in the B growth accumulator per unit liquidity.
	wantGrowth := uint128.From64(10).Lsh(64).Div64(1_000_000)
	require.True(t, update.NextFeeGrowthGlobal.Equals(wantGrowth))
	require.Zero(t, update.NextProtocolFee)
	require.Equal(t, uint64(100), update.Timestamp)
}

func TestComputeSwapExactOut(t *testing.T) {
	pool := newTestPool(t)
	pool.Liquidity = uint128.From64(1_000_000)
	sequence := NewTickSequence([]*model.TickArray{newTestArray(t, 0, 1), newTestArray(t, 88, 1)}, 1, false)

	update, err := ComputeSwap(pool, sequence, 500, mathutil.MaxSqrtPrice, false, false, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(500), update.AmountA, "output side receives exactly the request")
	require.GreaterOrEqual(t, update.AmountB, uint64(500), "price near one needs at least as much input")
}

// Near the top of the tick range a single unit of token A costs on the order
// of 2^63 token B, so two tick-sized steps fit uint64 individually while
// their sum does not. The accumulated input must fail instead of wrapping
// into an absurdly cheap quote.
func TestComputeSwapExactOutInputOverflow(t *testing.T) {
	pool, err := model.NewPool(testPoolAddr, testMintA, testMintB, 1, 0, sqrtPriceAt(t, 443344))
	require.NoError(t, err)
	pool.Liquidity = uint128.From64(45_000_000_000_000)

	array := newTestArray(t, 443344, 1)
	seedTick(t, array, 443345, 1, 1)
	seedTick(t, array, 443346, 1, 1)
	sequence := NewTickSequence([]*model.TickArray{array}, 1, false)

	_, err = ComputeSwap(pool, sequence, 10, sqrtPriceAt(t, 443348), false, false, 0, 0)
	require.ErrorIs(t, err, mathutil.ErrAmountOverflow)
}

func TestCalculateFeesSplit(t *testing.T) {
	liquidity := uint128.From64(1_000_000)

	growth, protocolFee, referralFee, err := calculateFees(1000, 300, 100, liquidity, uint128.Zero, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(30), protocolFee)
	require.Equal(t, uint64(10), referralFee)
	wantGrowth := uint128.From64(960).Lsh(64).Div64(1_000_000)
	require.True(t, growth.Equals(wantGrowth))

	// A zero fee leaves everything untouched.
	growth, protocolFee, referralFee, err = calculateFees(0, 300, 100, liquidity, uint128.From64(7), 1, 2)
	require.NoError(t, err)
	require.True(t, growth.Equals64(7))
	require.Equal(t, uint64(1), protocolFee)
	require.Equal(t, uint64(2), referralFee)

	// The referral share never exceeds what the protocol left behind.
	_, protocolFee, referralFee, err = calculateFees(1000, 2500, model.MaxReferralFeeRate, liquidity, uint128.Zero, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(250), protocolFee)
	require.Equal(t, uint64(750), referralFee)
}
