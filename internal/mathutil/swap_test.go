package mathutil

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"
)

var (
	priceOne = Q64
	priceTwo = uint128.New(0, 2)
)

func TestGetAmountDeltaB(t *testing.T) {
	// L * (upper - lower) >> 64 with L=1000 over a doubling of sqrt price.
	got, err := GetAmountDeltaB(priceOne, priceTwo, uint128.From64(1000), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1000 {
		t.Errorf("got %d, want 1000", got)
	}

	// Order of the two prices must not matter.
	swapped, err := GetAmountDeltaB(priceTwo, priceOne, uint128.From64(1000), false)
	if err != nil {
		t.Fatal(err)
	}
	if swapped != got {
		t.Errorf("swapped order: got %d, want %d", swapped, got)
	}
}

func TestGetAmountDeltaA(t *testing.T) {
	// L * (upper-lower) / (lower*upper) with L=1000: 1000 * 1 / 2 = 500.
	got, err := GetAmountDeltaA(priceOne, priceTwo, uint128.From64(1000), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 500 {
		t.Errorf("got %d, want 500", got)
	}

	if _, err := GetAmountDeltaA(priceOne, priceTwo, uint128.Zero, false); err != nil {
		t.Errorf("zero liquidity: unexpected error %v", err)
	}
}

func TestNextSqrtPriceFromBInput(t *testing.T) {
	// delta = (amount << 64) / L; with L=1000 and amount=500 the price moves
	// by half of one.
	next, err := NextSqrtPriceFromBInput(priceOne, uint128.From64(1000), 500, true)
	if err != nil {
		t.Fatal(err)
	}
	want := uint128.New(1<<63, 1)
	if !next.Equals(want) {
		t.Errorf("got %s, want %s", next, want)
	}

	back, err := NextSqrtPriceFromBInput(want, uint128.From64(1000), 500, false)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equals(priceOne) {
		t.Errorf("reverse: got %s, want %s", back, priceOne)
	}

	if _, err := NextSqrtPriceFromBInput(priceOne, uint128.Zero, 1, true); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("zero liquidity: got %v, want ErrDivisionByZero", err)
	}
}

func TestComputeSwapStepReachesTarget(t *testing.T) {
	// Exact-in B with enough budget to reach the target price.
	step, err := ComputeSwapStep(2000, 0, uint128.From64(1000), priceOne, priceTwo, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !step.NextSqrtPrice.Equals(priceTwo) {
		t.Errorf("next price: got %s, want %s", step.NextSqrtPrice, priceTwo)
	}
	if step.AmountIn != 1000 {
		t.Errorf("amount in: got %d, want 1000", step.AmountIn)
	}
	if step.AmountOut != 500 {
		t.Errorf("amount out: got %d, want 500", step.AmountOut)
	}
	if step.FeeAmount != 0 {
		t.Errorf("fee: got %d, want 0", step.FeeAmount)
	}
}

func TestComputeSwapStepPartial(t *testing.T) {
	// Budget runs out halfway: price stops at 1.5 and the output rounds down.
	step, err := ComputeSwapStep(500, 0, uint128.From64(1000), priceOne, priceTwo, true, false)
	if err != nil {
		t.Fatal(err)
	}
	want := uint128.New(1<<63, 1)
	if !step.NextSqrtPrice.Equals(want) {
		t.Errorf("next price: got %s, want %s", step.NextSqrtPrice, want)
	}
	if step.AmountIn != 500 {
		t.Errorf("amount in: got %d, want 500", step.AmountIn)
	}
	if step.AmountOut != 333 {
		t.Errorf("amount out: got %d, want 333", step.AmountOut)
	}
}

func TestComputeSwapStepFee(t *testing.T) {
	// 1% fee on a step that does not reach the target: the fee is whatever
	// the input budget leaves over after the net amount.
	step, err := ComputeSwapStep(500, 10000, uint128.From64(1000), priceOne, priceTwo, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if step.AmountIn != 495 {
		t.Errorf("amount in: got %d, want 495", step.AmountIn)
	}
	if step.FeeAmount != 5 {
		t.Errorf("fee: got %d, want 5", step.FeeAmount)
	}
	if step.NextSqrtPrice.Equals(priceTwo) {
		t.Error("step should not reach the target price")
	}
}

func TestComputeSwapStepZeroLiquidity(t *testing.T) {
	// With no liquidity the price jumps straight to the target for free.
	step, err := ComputeSwapStep(1000, 10000, uint128.Zero, priceOne, priceTwo, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !step.NextSqrtPrice.Equals(priceTwo) {
		t.Errorf("next price: got %s, want %s", step.NextSqrtPrice, priceTwo)
	}
	if step.AmountIn != 0 || step.AmountOut != 0 || step.FeeAmount != 0 {
		t.Errorf("amounts: got in=%d out=%d fee=%d, want all zero", step.AmountIn, step.AmountOut, step.FeeAmount)
	}
}

func TestComputeSwapStepExactOut(t *testing.T) {
	// Exact-out A moving price up: 500 of A is exactly the range's output.
	step, err := ComputeSwapStep(500, 0, uint128.From64(1000), priceOne, priceTwo, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !step.NextSqrtPrice.Equals(priceTwo) {
		t.Errorf("next price: got %s, want %s", step.NextSqrtPrice, priceTwo)
	}
	if step.AmountOut != 500 {
		t.Errorf("amount out: got %d, want 500", step.AmountOut)
	}
	if step.AmountIn != 1000 {
		t.Errorf("amount in: got %d, want 1000", step.AmountIn)
	}
}
