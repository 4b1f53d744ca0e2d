package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// Two pools sharing the 0x02 mint: X/Y and Y/Z, each with liquidity around
// the current price. Both hops run a to b, so swaps route X -> Y -> Z.
func twoHopFixture(t *testing.T) (*model.Pool, *model.Pool, []*model.TickArray, []*model.TickArray) {
	t.Helper()
	mintX, mintY, mintZ := model.Address{0x01}, model.Address{0x02}, model.Address{0x03}
	poolOne, _, arraysOne := seededPool(t, model.Address{0xA1}, mintX, mintY, 3000, 1_000_000)
	poolTwo, _, arraysTwo := seededPool(t, model.Address{0xA2}, mintY, mintZ, 3000, 1_000_000)
	downOne := []*model.TickArray{arraysOne[0], arraysOne[-88]}
	downTwo := []*model.TickArray{arraysTwo[0], arraysTwo[-88]}
	return poolOne, poolTwo, downOne, downTwo
}

func TestOpenTwoHopSwapExactIn(t *testing.T) {
	poolOne, poolTwo, arraysOne, arraysTwo := twoHopFixture(t)
	e := New(nil)

	result, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 1000,
		AmountSpecifiedIsInput: true,
		AToBOne:                true,
		AToBTwo:                true,
		SqrtPriceLimitOne:      mathutil.MinSqrtPrice,
		SqrtPriceLimitTwo:      mathutil.MinSqrtPrice,
		Now:                    100,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(1000), result.AmountIn)
	require.NotZero(t, result.AmountOut)
	require.Less(t, result.AmountOut, uint64(1000), "two fee charges shrink the output")

	// Both pools moved down in price.
	require.True(t, poolOne.SqrtPrice.Cmp(mathutil.Q64) < 0)
	require.True(t, poolTwo.SqrtPrice.Cmp(mathutil.Q64) < 0)

	// The intermediate amount chains hop one into hop two exactly.
	require.Equal(t, result.UpdateOne.AmountB, result.UpdateTwo.AmountA)
}

func TestOpenTwoHopSwapExactOut(t *testing.T) {
	poolOne, poolTwo, arraysOne, arraysTwo := twoHopFixture(t)
	e := New(nil)

	result, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 500,
		AmountSpecifiedIsInput: false,
		AToBOne:                true,
		AToBTwo:                true,
		SqrtPriceLimitOne:      mathutil.MinSqrtPrice,
		SqrtPriceLimitTwo:      mathutil.MinSqrtPrice,
		Now:                    100,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(500), result.AmountOut, "receiver gets exactly the request")
	require.Greater(t, result.AmountIn, uint64(500), "fees and curve cost more than one for one")
}

func TestOpenTwoHopSwapExactOutRecoversInput(t *testing.T) {
	e := New(nil)

	poolOne, poolTwo, arraysOne, arraysTwo := twoHopFixture(t)
	forward, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 1000,
		AmountSpecifiedIsInput: true,
		AToBOne:                true,
		AToBTwo:                true,
		SqrtPriceLimitOne:      mathutil.MinSqrtPrice,
		SqrtPriceLimitTwo:      mathutil.MinSqrtPrice,
		Now:                    100,
	})
	require.NoError(t, err)

	// Asking for the forward output on fresh pools should cost close to the
	// forward input: exact in floors the output, exact out ceils the input.
	poolOne, poolTwo, arraysOne, arraysTwo = twoHopFixture(t)
	backward, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 forward.AmountOut,
		AmountSpecifiedIsInput: false,
		AToBOne:                true,
		AToBTwo:                true,
		SqrtPriceLimitOne:      mathutil.MinSqrtPrice,
		SqrtPriceLimitTwo:      mathutil.MinSqrtPrice,
		Now:                    100,
	})
	require.NoError(t, err)

	require.Equal(t, forward.AmountOut, backward.AmountOut)
	require.LessOrEqual(t, backward.AmountIn, uint64(1000))
	require.GreaterOrEqual(t, backward.AmountIn, uint64(997))
}

func TestOpenTwoHopSwapExactInThreshold(t *testing.T) {
	poolOne, poolTwo, arraysOne, arraysTwo := twoHopFixture(t)
	e := New(nil)

	minOut := uint64(1_000_000)
	_, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 1000,
		OtherAmountThreshold:   &minOut,
		AmountSpecifiedIsInput: true,
		AToBOne:                true,
		AToBTwo:                true,
		SqrtPriceLimitOne:      mathutil.MinSqrtPrice,
		SqrtPriceLimitTwo:      mathutil.MinSqrtPrice,
	})
	require.ErrorIs(t, err, ErrAmountBelowMinimum)
}

func TestOpenTwoHopSwapRejectsSamePool(t *testing.T) {
	poolOne, _, arraysOne, _ := twoHopFixture(t)
	e := New(nil)

	_, err := e.OpenTwoHopSwap(poolOne, poolOne, arraysOne, arraysOne, TwoHopParams{
		Amount:                 1000,
		AmountSpecifiedIsInput: true,
		AToBOne:                true,
		AToBTwo:                true,
	})
	require.ErrorIs(t, err, ErrDuplicateTwoHopPool)
}

func TestOpenTwoHopSwapRejectsBrokenRoute(t *testing.T) {
	poolOne, poolTwo, arraysOne, arraysTwo := twoHopFixture(t)
	e := New(nil)

	// Hop two flipped: its input mint is Z, not the Y that hop one emits.
	_, err := e.OpenTwoHopSwap(poolOne, poolTwo, arraysOne, arraysTwo, TwoHopParams{
		Amount:                 1000,
		AmountSpecifiedIsInput: true,
		AToBOne:                true,
		AToBTwo:                false,
	})
	require.ErrorIs(t, err, ErrInvalidIntermediaryMint)
}
