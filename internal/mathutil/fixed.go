package mathutil

import (
	"errors"
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

var (
	ErrDivisionByZero         = errors.New("division by zero")
	ErrMulDivOverflow         = errors.New("mul-div result exceeds 128 bits")
	ErrMulShiftRightOverflow  = errors.New("multiplication shift right overflow")
	ErrMultiplicationOverflow = errors.New("multiplication overflow")
	ErrAmountOverflow         = errors.New("amount exceeds 64-bit range")
	ErrLiquidityOverflow      = errors.New("liquidity overflow")
	ErrLiquidityUnderflow     = errors.New("liquidity underflow")
)

var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Q64 is 1<<64, the scale factor of Q64.64 fixed point.
var Q64 = uint128.New(0, 1)

// To256 widens a 128-bit value into a 256-bit intermediate.
func To256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

// From256 narrows a 256-bit intermediate back to 128 bits.
func From256(v *uint256.Int) (uint128.Uint128, error) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Zero, ErrMulDivOverflow
	}
	return uint128.New(v[0], v[1]), nil
}

// MulDiv computes a*b/d over a 256-bit intermediate. The quotient must fit in
// 128 bits. Truncates toward zero unless roundUp is set.
func MulDiv(a, b, d uint128.Uint128, roundUp bool) (uint128.Uint128, error) {
	if d.IsZero() {
		return uint128.Zero, ErrDivisionByZero
	}
	num := new(uint256.Int).Mul(To256(a), To256(b))
	quo, rem := new(uint256.Int).DivMod(num, To256(d), new(uint256.Int))
	if roundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return From256(quo)
}

// MulDiv64 is MulDiv with the additional requirement that the quotient fits
// in 64 bits.
func MulDiv64(a, b, d uint128.Uint128, roundUp bool) (uint64, error) {
	v, err := MulDiv(a, b, d, roundUp)
	if err != nil {
		return 0, err
	}
	if v.Hi != 0 {
		return 0, ErrAmountOverflow
	}
	return v.Lo, nil
}

// MulShiftRight64 computes (a*b)>>64 and requires the result to fit in 64
// bits. Used to settle Q64.64 growth deltas into token amounts.
func MulShiftRight64(a, b uint128.Uint128) (uint64, error) {
	p := new(uint256.Int).Mul(To256(a), To256(b))
	p.Rsh(p, 64)
	if p[1] != 0 || p[2] != 0 || p[3] != 0 {
		return 0, ErrMulShiftRightOverflow
	}
	return p[0], nil
}

// AddU64 adds two token amounts, failing instead of wrapping.
func AddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}

// AddLiquidityDelta applies a signed delta to an unsigned 128-bit liquidity
// value, failing instead of wrapping.
func AddLiquidityDelta(liquidity uint128.Uint128, delta *big.Int) (uint128.Uint128, error) {
	if delta == nil || delta.Sign() == 0 {
		return liquidity, nil
	}
	mag := new(big.Int).Abs(delta)
	if mag.BitLen() > 128 {
		if delta.Sign() > 0 {
			return uint128.Zero, ErrLiquidityOverflow
		}
		return uint128.Zero, ErrLiquidityUnderflow
	}
	m := uint128.FromBig(mag)
	if delta.Sign() > 0 {
		sum := liquidity.AddWrap(m)
		if sum.Cmp(liquidity) < 0 {
			return uint128.Zero, ErrLiquidityOverflow
		}
		return sum, nil
	}
	if liquidity.Cmp(m) < 0 {
		return uint128.Zero, ErrLiquidityUnderflow
	}
	return liquidity.SubWrap(m), nil
}

// AddSigned128 adds two signed values under 128-bit two's-complement bounds.
// The second return is false when the sum leaves the representable range.
func AddSigned128(a, b *big.Int) (*big.Int, bool) {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxInt128) > 0 || sum.Cmp(minInt128) < 0 {
		return nil, false
	}
	return sum, true
}

// ConvertToLiquidityDelta turns an unsigned liquidity amount into a signed
// delta. Amounts above 2^127-1 are not representable.
func ConvertToLiquidityDelta(amount uint128.Uint128, add bool) (*big.Int, error) {
	v := amount.Big()
	if v.Cmp(maxInt128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	if !add {
		v.Neg(v)
	}
	return v, nil
}
