package engine

import (
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmcore/internal/model"
)

// TwoHopParams describes a swap routed through an intermediate token across
// two pools. Token metas are per pool, in that pool's A/B orientation.
type TwoHopParams struct {
	Amount                 uint64
	OtherAmountThreshold   *uint64
	AmountSpecifiedIsInput bool
	AToBOne                bool
	AToBTwo                bool
	SqrtPriceLimitOne      uint128.Uint128
	SqrtPriceLimitTwo      uint128.Uint128
	ReferralFeeRate        uint16
	Now                    uint64
	TokenOneA              *model.TokenMeta
	TokenOneB              *model.TokenMeta
	TokenTwoA              *model.TokenMeta
	TokenTwoB              *model.TokenMeta
}

// TwoHopResult reports both applied updates plus the outer wire amounts.
type TwoHopResult struct {
	UpdateOne *model.PostSwapUpdate
	UpdateTwo *model.PostSwapUpdate
	AmountIn  uint64
	AmountOut uint64
}

func hopMints(pool *model.Pool, aToB bool) (in, out model.Address) {
	if aToB {
		return pool.TokenMintA, pool.TokenMintB
	}
	return pool.TokenMintB, pool.TokenMintA
}

// OpenTwoHopSwap chains two single-pool swaps through an intermediate token.
// Exact-in solves hop one then hop two; exact-out solves hop two first and
// targets hop one's output at hop two's required input, because tokens always
// move hop one first regardless of solve order. The intermediate wire amounts
// must agree exactly.
func (e *Engine) OpenTwoHopSwap(
	poolOne, poolTwo *model.Pool,
	tickArraysOne, tickArraysTwo []*model.TickArray,
	p TwoHopParams,
) (*TwoHopResult, error) {
	if poolOne.Address == poolTwo.Address {
		return nil, ErrDuplicateTwoHopPool
	}
	_, intermediateOut := hopMints(poolOne, p.AToBOne)
	intermediateIn, _ := hopMints(poolTwo, p.AToBTwo)
	if intermediateOut != intermediateIn {
		return nil, ErrInvalidIntermediaryMint
	}

	tokenOneIn, tokenOneOut := p.TokenOneA, p.TokenOneB
	if !p.AToBOne {
		tokenOneIn, tokenOneOut = tokenOneOut, tokenOneIn
	}
	tokenTwoIn, tokenTwoOut := p.TokenTwoA, p.TokenTwoB
	if !p.AToBTwo {
		tokenTwoIn, tokenTwoOut = tokenTwoOut, tokenTwoIn
	}

	sequenceOne := NewTickSequence(tickArraysOne, poolOne.TickSpacing, p.AToBOne)
	sequenceTwo := NewTickSequence(tickArraysTwo, poolTwo.TickSpacing, p.AToBTwo)

	var (
		updateOne, updateTwo  *model.PostSwapUpdate
		wireInOne, wireOutOne uint64
		wireInTwo, wireOutTwo uint64
		err                   error
	)
	if p.AmountSpecifiedIsInput {
		updateOne, wireInOne, wireOutOne, err = swapWithTransferFee(
			poolOne, sequenceOne, tokenOneIn, tokenOneOut,
			p.Amount, p.SqrtPriceLimitOne, true, p.AToBOne, p.Now, p.ReferralFeeRate,
		)
		if err != nil {
			return nil, err
		}
		updateTwo, wireInTwo, wireOutTwo, err = swapWithTransferFee(
			poolTwo, sequenceTwo, tokenTwoIn, tokenTwoOut,
			wireOutOne, p.SqrtPriceLimitTwo, true, p.AToBTwo, p.Now, p.ReferralFeeRate,
		)
		if err != nil {
			return nil, err
		}
	} else {
		updateTwo, wireInTwo, wireOutTwo, err = swapWithTransferFee(
			poolTwo, sequenceTwo, tokenTwoIn, tokenTwoOut,
			p.Amount, p.SqrtPriceLimitTwo, false, p.AToBTwo, p.Now, p.ReferralFeeRate,
		)
		if err != nil {
			return nil, err
		}
		updateOne, wireInOne, wireOutOne, err = swapWithTransferFee(
			poolOne, sequenceOne, tokenOneIn, tokenOneOut,
			wireInTwo, p.SqrtPriceLimitOne, false, p.AToBOne, p.Now, p.ReferralFeeRate,
		)
		if err != nil {
			return nil, err
		}
	}

	// Hop one feeds hop two through the intermediate vault; the two
	// independently computed swaps must agree on that amount.
	if wireOutOne != wireInTwo {
		return nil, ErrAmountMismatch
	}

	if p.OtherAmountThreshold != nil {
		if p.AmountSpecifiedIsInput && wireOutTwo < *p.OtherAmountThreshold {
			return nil, ErrAmountBelowMinimum
		}
		if !p.AmountSpecifiedIsInput && wireInOne > *p.OtherAmountThreshold {
			return nil, ErrAmountAboveMaximum
		}
	}

	if err := poolOne.ApplySwap(updateOne); err != nil {
		return nil, err
	}
	if err := poolTwo.ApplySwap(updateTwo); err != nil {
		return nil, err
	}
	arrays := make([]*model.TickArray, 0, len(tickArraysOne)+len(tickArraysTwo))
	arrays = append(arrays, tickArraysOne...)
	arrays = append(arrays, tickArraysTwo...)
	e.snapshot([]*model.Pool{poolOne, poolTwo}, nil, arrays)
	e.log.Debug("two-hop swap applied",
		zap.String("pool_one", poolOne.Address.Hex()),
		zap.String("pool_two", poolTwo.Address.Hex()),
		zap.Uint64("amount_in", wireInOne),
		zap.Uint64("amount_out", wireOutTwo))

	return &TwoHopResult{
		UpdateOne: updateOne,
		UpdateTwo: updateTwo,
		AmountIn:  wireInOne,
		AmountOut: wireOutTwo,
	}, nil
}
