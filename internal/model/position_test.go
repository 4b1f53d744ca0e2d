package model

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"
)

func TestOpenPosition(t *testing.T) {
	pool := newTestPool(t)
	mint := Address{0x20}

	position, err := OpenPosition(pool, mint, -10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if position.Pool != pool.Address || !position.Empty() {
		t.Error("new position should belong to the pool and be empty")
	}

	if _, err := OpenPosition(pool, mint, 10, 10); !errors.Is(err, ErrInvalidTickRange) {
		t.Errorf("lower == upper: got %v, want ErrInvalidTickRange", err)
	}
	if _, err := OpenPosition(pool, mint, 10, -10); !errors.Is(err, ErrInvalidTickRange) {
		t.Errorf("lower > upper: got %v, want ErrInvalidTickRange", err)
	}

	pool.TickSpacing = 64
	if _, err := OpenPosition(pool, mint, -10, 10); !errors.Is(err, ErrInvalidTickRange) {
		t.Errorf("unaligned ticks: got %v, want ErrInvalidTickRange", err)
	}
}

func TestOpenPositionFullRangeOnly(t *testing.T) {
	pool := newTestPool(t)
	pool.TickSpacing = FullRangeOnlyTickSpacingThreshold
	mint := Address{0x20}

	lower, upper := FullRangeIndexes(pool.TickSpacing)
	if _, err := OpenPosition(pool, mint, lower, upper); err != nil {
		t.Fatalf("full range: %v", err)
	}
	if _, err := OpenPosition(pool, mint, 0, upper); !errors.Is(err, ErrFullRangeOnlyPool) {
		t.Errorf("partial range: got %v, want ErrFullRangeOnlyPool", err)
	}
}

func TestPositionClose(t *testing.T) {
	pool := newTestPool(t)
	position, err := OpenPosition(pool, Address{0x20}, -10, 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := position.Close(); err != nil {
		t.Fatalf("empty close: %v", err)
	}

	position.FeeOwedA = 1
	if err := position.Close(); !errors.Is(err, ErrNonEmptyPositionClose) {
		t.Errorf("owed fees: got %v, want ErrNonEmptyPositionClose", err)
	}
	position.FeeOwedA = 0

	position.Liquidity = uint128.From64(1)
	if err := position.Close(); !errors.Is(err, ErrNonEmptyPositionClose) {
		t.Errorf("liquidity: got %v, want ErrNonEmptyPositionClose", err)
	}
	position.Liquidity = uint128.Zero

	position.RewardInfos[2].AmountOwed = 1
	if err := position.Close(); !errors.Is(err, ErrNonEmptyPositionClose) {
		t.Errorf("owed rewards: got %v, want ErrNonEmptyPositionClose", err)
	}
}

func TestPositionTakeReward(t *testing.T) {
	pool := newTestPool(t)
	position, err := OpenPosition(pool, Address{0x20}, -10, 10)
	if err != nil {
		t.Fatal(err)
	}
	position.RewardInfos[1].AmountOwed = 25

	owed, err := position.TakeReward(1)
	if err != nil || owed != 25 {
		t.Errorf("got (%d, %v), want (25, nil)", owed, err)
	}
	if position.RewardInfos[1].AmountOwed != 0 {
		t.Error("owed balance should drain")
	}
	if _, err := position.TakeReward(3); !errors.Is(err, ErrInvalidRewardIndex) {
		t.Errorf("index: got %v, want ErrInvalidRewardIndex", err)
	}
}
