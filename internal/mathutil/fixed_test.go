package mathutil

import (
	"errors"
	"math/big"
	"testing"

	"lukechampine.com/uint128"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d uint128.Uint128
		roundUp bool
		want    uint128.Uint128
		wantErr error
	}{
		{name: "exact", a: uint128.From64(6), b: uint128.From64(7), d: uint128.From64(3), want: uint128.From64(14)},
		{name: "truncates", a: uint128.From64(7), b: uint128.From64(7), d: uint128.From64(3), want: uint128.From64(16)},
		{name: "rounds up", a: uint128.From64(7), b: uint128.From64(7), d: uint128.From64(3), roundUp: true, want: uint128.From64(17)},
		{name: "wide intermediate", a: uint128.Max, b: uint128.From64(2), d: uint128.From64(2), want: uint128.Max},
		{name: "division by zero", a: uint128.From64(1), b: uint128.From64(1), d: uint128.Zero, wantErr: ErrDivisionByZero},
		{name: "quotient overflow", a: uint128.Max, b: uint128.From64(2), d: uint128.From64(1), wantErr: ErrMulDivOverflow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MulDiv(tc.a, tc.b, tc.d, tc.roundUp)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if err == nil && !got.Equals(tc.want) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestMulDiv64(t *testing.T) {
	got, err := MulDiv64(uint128.From64(1000), uint128.From64(997000), uint128.From64(1000000), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 997 {
		t.Errorf("got %d, want 997", got)
	}

	if _, err := MulDiv64(Q64, uint128.From64(2), uint128.From64(1), false); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("got %v, want ErrAmountOverflow", err)
	}
}

func TestMulShiftRight64(t *testing.T) {
	got, err := MulShiftRight64(Q64, uint128.From64(5))
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("got %d, want 5", got)
	}

	// Fractional part is discarded.
	got, err = MulShiftRight64(uint128.New(1<<63, 0), uint128.From64(3))
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}

	if _, err := MulShiftRight64(Q64, Q64); !errors.Is(err, ErrMulShiftRightOverflow) {
		t.Errorf("got %v, want ErrMulShiftRightOverflow", err)
	}
}

func TestAddU64(t *testing.T) {
	sum, err := AddU64(1<<63, (1<<63)-1)
	if err != nil {
		t.Fatal(err)
	}
	if sum != ^uint64(0) {
		t.Errorf("got %d, want max uint64", sum)
	}

	if _, err := AddU64(1<<63, 1<<63); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("got %v, want ErrAmountOverflow", err)
	}
	if _, err := AddU64(^uint64(0), 1); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("got %v, want ErrAmountOverflow", err)
	}
}

func TestAddLiquidityDelta(t *testing.T) {
	got, err := AddLiquidityDelta(uint128.From64(100), big.NewInt(50))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equals64(150) {
		t.Errorf("got %s, want 150", got)
	}

	got, err = AddLiquidityDelta(uint128.From64(100), big.NewInt(-100))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsZero() {
		t.Errorf("got %s, want 0", got)
	}

	if _, err := AddLiquidityDelta(uint128.From64(100), big.NewInt(-101)); !errors.Is(err, ErrLiquidityUnderflow) {
		t.Errorf("got %v, want ErrLiquidityUnderflow", err)
	}
	if _, err := AddLiquidityDelta(uint128.Max, big.NewInt(1)); !errors.Is(err, ErrLiquidityOverflow) {
		t.Errorf("got %v, want ErrLiquidityOverflow", err)
	}

	got, err = AddLiquidityDelta(uint128.From64(42), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equals64(42) {
		t.Errorf("nil delta: got %s, want 42", got)
	}
}

func TestAddSigned128(t *testing.T) {
	sum, ok := AddSigned128(big.NewInt(-5), big.NewInt(8))
	if !ok || sum.Int64() != 3 {
		t.Errorf("got (%v, %v), want (3, true)", sum, ok)
	}

	maxInt128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	if _, ok := AddSigned128(maxInt128, big.NewInt(1)); ok {
		t.Error("expected overflow past 2^127-1")
	}
	minInt128 := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	if _, ok := AddSigned128(minInt128, big.NewInt(-1)); ok {
		t.Error("expected underflow past -2^127")
	}
	if sum, ok := AddSigned128(nil, big.NewInt(7)); !ok || sum.Int64() != 7 {
		t.Errorf("nil operand: got (%v, %v), want (7, true)", sum, ok)
	}
}

func TestConvertToLiquidityDelta(t *testing.T) {
	delta, err := ConvertToLiquidityDelta(uint128.From64(500), true)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Int64() != 500 {
		t.Errorf("got %v, want 500", delta)
	}

	delta, err = ConvertToLiquidityDelta(uint128.From64(500), false)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Int64() != -500 {
		t.Errorf("got %v, want -500", delta)
	}

	if _, err := ConvertToLiquidityDelta(uint128.Max, true); !errors.Is(err, ErrLiquidityOverflow) {
		t.Errorf("got %v, want ErrLiquidityOverflow", err)
	}
}
