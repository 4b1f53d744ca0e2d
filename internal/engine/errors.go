package engine

import "errors"

var (
	// Input validation.
	ErrZeroLiquidity            = errors.New("liquidity delta is zero")
	ErrInvalidTimestamp         = errors.New("timestamp precedes last reward update")
	ErrInvalidTickArraySequence = errors.New("tick array sequence does not cover the swap range")
	ErrInvalidSqrtPriceLimit    = errors.New("sqrt price limit on wrong side of current price")
	ErrNoTradableAmount         = errors.New("no tradable amount")
	ErrTickLiquidityNet         = errors.New("tick liquidity net out of range")

	// Economic and policy.
	ErrAmountBelowMinimum      = errors.New("output amount below minimum threshold")
	ErrAmountAboveMaximum      = errors.New("input amount above maximum threshold")
	ErrAmountMismatch          = errors.New("two-hop intermediate amounts do not match")
	ErrDuplicateTwoHopPool     = errors.New("two-hop swap requires distinct pools")
	ErrInvalidIntermediaryMint = errors.New("two-hop pools do not share an intermediary mint")
	ErrRewardVaultInsufficient = errors.New("reward vault cannot cover one day of emissions")

	// Staleness.
	ErrStalePrice = errors.New("oracle price older than maximum age")
)
