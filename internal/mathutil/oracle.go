package mathutil

import (
	"errors"
	"math/big"

	"lukechampine.com/uint128"
)

// ErrInvalidPrice rejects non-positive oracle prices.
var ErrInvalidPrice = errors.New("invalid oracle price")

var bigMaxUint64 = new(big.Int).SetUint64(^uint64(0))

// InitialSqrtPrice converts an oracle price quote into a Q64.64 sqrt price.
// The exponent is adjusted by the token decimal difference, the adjusted
// ratio is kept as an integer numerator/denominator pair, and the square
// roots are taken before scaling into fixed point.
func InitialSqrtPrice(price int64, exponent int32, decimalsA, decimalsB uint8) (uint128.Uint128, error) {
	if price <= 0 {
		return uint128.Zero, ErrInvalidPrice
	}

	exponentAdjustment := exponent + int32(decimalsB) - int32(decimalsA)

	numerator := big.NewInt(price)
	denominator := big.NewInt(1)
	if exponentAdjustment >= 0 {
		pow10, err := pow10U128(uint32(exponentAdjustment))
		if err != nil {
			return uint128.Zero, err
		}
		numerator.Mul(numerator, pow10)
		if numerator.BitLen() > 128 {
			return uint128.Zero, ErrMultiplicationOverflow
		}
	} else {
		pow10, err := pow10U128(uint32(-exponentAdjustment))
		if err != nil {
			return uint128.Zero, err
		}
		denominator = pow10
	}

	sqrtNumerator := new(big.Int).Sqrt(numerator)
	sqrtDenominator := new(big.Int).Sqrt(denominator)

	return sqrtPriceFixedPoint(sqrtNumerator, sqrtDenominator)
}

func sqrtPriceFixedPoint(sqrtNumerator, sqrtDenominator *big.Int) (uint128.Uint128, error) {
	if sqrtDenominator.Sign() == 0 {
		return uint128.Zero, ErrDivisionByZero
	}
	// The numerator is shifted 64 bits into Q64.64; it must fit in 64 bits
	// beforehand or the shift leaves the 128-bit range.
	if sqrtNumerator.Cmp(bigMaxUint64) > 0 {
		return uint128.Zero, ErrMultiplicationOverflow
	}
	shifted := new(big.Int).Lsh(sqrtNumerator, 64)
	shifted.Div(shifted, sqrtDenominator)
	return uint128.FromBig(shifted), nil
}

func pow10U128(n uint32) (*big.Int, error) {
	// 10^39 exceeds 128 bits.
	if n > 38 {
		return nil, ErrMultiplicationOverflow
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil), nil
}
