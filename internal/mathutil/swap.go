package mathutil

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// FeeRateDenominator scales pool fee rates (hundredths of a basis point).
const FeeRateDenominator uint32 = 1_000_000

// SwapStep is the outcome of moving price over a single segment of the curve.
type SwapStep struct {
	AmountIn      uint64
	AmountOut     uint64
	NextSqrtPrice uint128.Uint128
	FeeAmount     uint64
}

func increasingPriceOrder(a, b uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

func divRoundUp256(num, den *uint256.Int) *uint256.Int {
	quo, rem := new(uint256.Int).DivMod(num, den, new(uint256.Int))
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return quo
}

// GetAmountDeltaA returns the token A amount needed to move price between the
// two sqrt prices at the given liquidity: L * (upper-lower) / (lower*upper).
func GetAmountDeltaA(sqrtPrice0, sqrtPrice1, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	lower, upper := increasingPriceOrder(sqrtPrice0, sqrtPrice1)
	diff := upper.SubWrap(lower)

	num := new(uint256.Int).Mul(To256(liquidity), To256(diff))
	num.Lsh(num, 64)
	den := new(uint256.Int).Mul(To256(lower), To256(upper))
	if den.IsZero() {
		return 0, ErrDivisionByZero
	}

	quo, rem := new(uint256.Int).DivMod(num, den, new(uint256.Int))
	if roundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	if !quo.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return quo.Uint64(), nil
}

// GetAmountDeltaB returns the token B amount for the same price move:
// L * (upper-lower) in Q64.64, shifted back to a token amount.
func GetAmountDeltaB(sqrtPrice0, sqrtPrice1, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	lower, upper := increasingPriceOrder(sqrtPrice0, sqrtPrice1)
	diff := upper.SubWrap(lower)

	p := new(uint256.Int).Mul(To256(liquidity), To256(diff))
	needsRound := roundUp && p[0] != 0
	p.Rsh(p, 64)
	if needsRound {
		p.AddUint64(p, 1)
	}
	if !p.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return p.Uint64(), nil
}

// NextSqrtPriceFromAInput computes the price after moving `amount` of token A
// through liquidity, rounding so the pool is never undercredited.
func NextSqrtPriceFromAInput(sqrtPrice, liquidity uint128.Uint128, amount uint64, byAmountIn bool) (uint128.Uint128, error) {
	if amount == 0 {
		return sqrtPrice, nil
	}

	num := new(uint256.Int).Mul(To256(liquidity), To256(sqrtPrice))
	num.Lsh(num, 64)
	liquidityShifted := new(uint256.Int).Lsh(To256(liquidity), 64)
	product := new(uint256.Int).Mul(uint256.NewInt(amount), To256(sqrtPrice))

	den := new(uint256.Int)
	if byAmountIn {
		den.Add(liquidityShifted, product)
	} else {
		if liquidityShifted.Cmp(product) <= 0 {
			return uint128.Zero, ErrSqrtPriceOutOfBounds
		}
		den.Sub(liquidityShifted, product)
	}

	return From256(divRoundUp256(num, den))
}

// NextSqrtPriceFromBInput computes the price after moving `amount` of token B
// through liquidity.
func NextSqrtPriceFromBInput(sqrtPrice, liquidity uint128.Uint128, amount uint64, byAmountIn bool) (uint128.Uint128, error) {
	if amount == 0 {
		return sqrtPrice, nil
	}
	if liquidity.IsZero() {
		return uint128.Zero, ErrDivisionByZero
	}

	amountX64 := new(uint256.Int).Lsh(uint256.NewInt(amount), 64)
	var quo *uint256.Int
	if byAmountIn {
		// Round down so the pool keeps the remainder.
		quo = new(uint256.Int).Div(amountX64, To256(liquidity))
	} else {
		quo = divRoundUp256(amountX64, To256(liquidity))
	}
	delta, err := From256(quo)
	if err != nil {
		return uint128.Zero, err
	}

	if byAmountIn {
		next := sqrtPrice.AddWrap(delta)
		if next.Cmp(sqrtPrice) < 0 {
			return uint128.Zero, ErrSqrtPriceOutOfBounds
		}
		return next, nil
	}
	if sqrtPrice.Cmp(delta) < 0 {
		return uint128.Zero, ErrSqrtPriceOutOfBounds
	}
	return sqrtPrice.SubWrap(delta), nil
}

func getNextSqrtPrice(sqrtPrice, liquidity uint128.Uint128, amount uint64, amountSpecifiedIsInput, aToB bool) (uint128.Uint128, error) {
	if amountSpecifiedIsInput == aToB {
		return NextSqrtPriceFromAInput(sqrtPrice, liquidity, amount, amountSpecifiedIsInput)
	}
	return NextSqrtPriceFromBInput(sqrtPrice, liquidity, amount, amountSpecifiedIsInput)
}

func getAmountFixedDelta(currSqrtPrice, targetSqrtPrice, liquidity uint128.Uint128, amountSpecifiedIsInput, aToB bool) (uint64, error) {
	if aToB == amountSpecifiedIsInput {
		return GetAmountDeltaA(currSqrtPrice, targetSqrtPrice, liquidity, amountSpecifiedIsInput)
	}
	return GetAmountDeltaB(currSqrtPrice, targetSqrtPrice, liquidity, amountSpecifiedIsInput)
}

func getAmountUnfixedDelta(currSqrtPrice, targetSqrtPrice, liquidity uint128.Uint128, amountSpecifiedIsInput, aToB bool) (uint64, error) {
	if aToB == amountSpecifiedIsInput {
		return GetAmountDeltaB(currSqrtPrice, targetSqrtPrice, liquidity, !amountSpecifiedIsInput)
	}
	return GetAmountDeltaA(currSqrtPrice, targetSqrtPrice, liquidity, !amountSpecifiedIsInput)
}

// ComputeSwapStep resolves one segment of a swap: how much can move before
// price reaches targetSqrtPrice, and the fee taken on the input side.
func ComputeSwapStep(amountRemaining uint64, feeRate uint32, liquidity, currSqrtPrice, targetSqrtPrice uint128.Uint128, amountSpecifiedIsInput, aToB bool) (SwapStep, error) {
	amountFixedDelta, err := getAmountFixedDelta(currSqrtPrice, targetSqrtPrice, liquidity, amountSpecifiedIsInput, aToB)
	if err != nil {
		return SwapStep{}, err
	}

	amountCalc := amountRemaining
	if amountSpecifiedIsInput {
		amountCalc, err = MulDiv64(
			uint128.From64(amountRemaining),
			uint128.From64(uint64(FeeRateDenominator-feeRate)),
			uint128.From64(uint64(FeeRateDenominator)),
			false,
		)
		if err != nil {
			return SwapStep{}, err
		}
	}

	var nextSqrtPrice uint128.Uint128
	if amountCalc >= amountFixedDelta {
		nextSqrtPrice = targetSqrtPrice
	} else {
		nextSqrtPrice, err = getNextSqrtPrice(currSqrtPrice, liquidity, amountCalc, amountSpecifiedIsInput, aToB)
		if err != nil {
			return SwapStep{}, err
		}
	}
	isMaxSwap := nextSqrtPrice.Equals(targetSqrtPrice)

	amountUnfixedDelta, err := getAmountUnfixedDelta(currSqrtPrice, nextSqrtPrice, liquidity, amountSpecifiedIsInput, aToB)
	if err != nil {
		return SwapStep{}, err
	}
	if !isMaxSwap {
		amountFixedDelta, err = getAmountFixedDelta(currSqrtPrice, nextSqrtPrice, liquidity, amountSpecifiedIsInput, aToB)
		if err != nil {
			return SwapStep{}, err
		}
	}

	amountIn, amountOut := amountFixedDelta, amountUnfixedDelta
	if !amountSpecifiedIsInput {
		amountIn, amountOut = amountUnfixedDelta, amountFixedDelta
	}
	// Never hand out more than the caller asked for in exact-out mode.
	if !amountSpecifiedIsInput && amountOut > amountRemaining {
		amountOut = amountRemaining
	}

	var feeAmount uint64
	if amountSpecifiedIsInput && !isMaxSwap {
		feeAmount = amountRemaining - amountIn
	} else {
		feeAmount, err = MulDiv64(
			uint128.From64(amountIn),
			uint128.From64(uint64(feeRate)),
			uint128.From64(uint64(FeeRateDenominator-feeRate)),
			true,
		)
		if err != nil {
			return SwapStep{}, err
		}
	}

	return SwapStep{
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		NextSqrtPrice: nextSqrtPrice,
		FeeAmount:     feeAmount,
	}, nil
}
