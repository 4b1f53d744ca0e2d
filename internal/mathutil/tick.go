package mathutil

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

const (
	// MinTick and MaxTick bound the usable tick range for Q64.64 prices.
	MinTick int32 = -443636
	MaxTick int32 = 443636

	logB2X32     = 59543866431248
	bitPrecision = 14
)

var (
	ErrTickOutOfBounds      = errors.New("tick index out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")

	// MinSqrtPrice is sqrt(1.0001^MinTick) in Q64.64.
	MinSqrtPrice = uint128.From64(4295048016)
	// MaxSqrtPrice is sqrt(1.0001^MaxTick) in Q64.64.
	MaxSqrtPrice = uint128.New(3871828160200520623, 4294886577)

	logbpErrMarginLowerX64 = big.NewInt(184467440737095516)
	logbpErrMarginUpperX64 = new(big.Int).SetUint64(15793534762490258745)

	// Q96 multipliers for sqrt(1.0001^(2^i)), i = 0..18.
	positiveTickRatios = [19]*uint256.Int{
		uint256.MustFromDecimal("79232123823359799118286999567"),
		uint256.MustFromDecimal("79236085330515764027303304731"),
		uint256.MustFromDecimal("79244008939048815603706035061"),
		uint256.MustFromDecimal("79259858533276714757314932305"),
		uint256.MustFromDecimal("79291567232598584799939703904"),
		uint256.MustFromDecimal("79355022692464371645785046466"),
		uint256.MustFromDecimal("79482085999252804386437311141"),
		uint256.MustFromDecimal("79736823300114093921829183326"),
		uint256.MustFromDecimal("80248749790819932309965073892"),
		uint256.MustFromDecimal("81282483887344747381513967011"),
		uint256.MustFromDecimal("83390072131320151908154831281"),
		uint256.MustFromDecimal("87770609709833776024991924138"),
		uint256.MustFromDecimal("97234110755111693312479820773"),
		uint256.MustFromDecimal("119332217159966728226237229890"),
		uint256.MustFromDecimal("179736315981702064433883588727"),
		uint256.MustFromDecimal("407748233172238350107850275304"),
		uint256.MustFromDecimal("2098478828474011932436660412517"),
		uint256.MustFromDecimal("55581415166113811149459800483533"),
		uint256.MustFromDecimal("38992368544603139932233054999993551"),
	}

	// Q64 multipliers for sqrt(1.0001^-(2^i)), i = 0..18.
	negativeTickRatios = [19]uint64{
		18445821805675392311,
		18444899583751176498,
		18443055278223354162,
		18439367220385604838,
		18431993317065449817,
		18417254355718160513,
		18387811781193591352,
		18329067761203520168,
		18212142134806087854,
		17980523815641551639,
		17526086738831147013,
		16651378430235024244,
		15030750278693429944,
		12247334978882834399,
		8131365268884726200,
		3584323654723342297,
		696457651847595233,
		26294789957452057,
		37481735321082,
	}

	q64X96 = uint256.MustFromDecimal("79228162514264337593543950336")
)

// SqrtPriceFromTickIndex converts a tick index into its Q64.64 sqrt price.
func SqrtPriceFromTickIndex(tick int32) (uint128.Uint128, error) {
	if tick < MinTick || tick > MaxTick {
		return uint128.Zero, ErrTickOutOfBounds
	}
	if tick >= 0 {
		return sqrtPricePositiveTick(tick), nil
	}
	return sqrtPriceNegativeTick(tick), nil
}

func sqrtPricePositiveTick(tick int32) uint128.Uint128 {
	t := uint32(tick)
	ratio := new(uint256.Int).Set(q64X96)
	if t&1 != 0 {
		ratio.Set(positiveTickRatios[0])
	}
	for i := 1; i < len(positiveTickRatios); i++ {
		if t&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, positiveTickRatios[i])
			ratio.Rsh(ratio, 96)
		}
	}
	ratio.Rsh(ratio, 32)
	return uint128.New(ratio[0], ratio[1])
}

func sqrtPriceNegativeTick(tick int32) uint128.Uint128 {
	t := uint32(-tick)
	ratio := Q64
	if t&1 != 0 {
		ratio = uint128.From64(negativeTickRatios[0])
	}
	for i := 1; i < len(negativeTickRatios); i++ {
		if t&(1<<uint(i)) != 0 {
			ratio = ratio.MulWrap64(negativeTickRatios[i]).Rsh(64)
		}
	}
	return ratio
}

// TickIndexFromSqrtPrice returns the tick whose price range contains the
// given Q64.64 sqrt price.
func TickIndexFromSqrtPrice(sqrtPrice uint128.Uint128) (int32, error) {
	if sqrtPrice.Cmp(MinSqrtPrice) < 0 || sqrtPrice.Cmp(MaxSqrtPrice) > 0 {
		return 0, ErrSqrtPriceOutOfBounds
	}

	msb := 127 - sqrtPrice.LeadingZeros()

	// Normalize into [2^63, 2^64) and extract base-2 log fraction bits.
	var r uint128.Uint128
	if msb >= 64 {
		r = sqrtPrice.Rsh(uint(msb - 63))
	} else {
		r = sqrtPrice.Lsh(uint(63 - msb))
	}
	var fractionX64 uint64
	bit := uint64(1) << 63
	for precision := 0; precision < bitPrecision && bit > 0; precision++ {
		r = r.MulWrap(r)
		over := uint(r.Rsh(127).Lo)
		r = r.Rsh(63 + over)
		fractionX64 += bit * uint64(over)
		bit >>= 1
	}

	log2pX32 := int64(msb-64)<<32 + int64(fractionX64>>32)
	logbpX64 := new(big.Int).Mul(big.NewInt(log2pX32), big.NewInt(logB2X32))

	tickLow := int32(new(big.Int).Rsh(new(big.Int).Sub(logbpX64, logbpErrMarginLowerX64), 64).Int64())
	tickHigh := int32(new(big.Int).Rsh(new(big.Int).Add(logbpX64, logbpErrMarginUpperX64), 64).Int64())
	if tickLow == tickHigh {
		return tickLow, nil
	}

	highPrice, err := SqrtPriceFromTickIndex(tickHigh)
	if err != nil {
		return 0, err
	}
	if highPrice.Cmp(sqrtPrice) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}
