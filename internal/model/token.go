package model

import (
	"errors"
	"math/bits"
)

// TransferFeeBasisPointsMax is 100% expressed in basis points.
const TransferFeeBasisPointsMax uint16 = 10_000

var ErrTransferFeeCalculation = errors.New("transfer fee calculation failed")

// TransferFee is a token-level fee charged on every transfer, as a share of
// the amount capped by an absolute maximum.
type TransferFee struct {
	BasisPoints uint16 `json:"basis_points"`
	MaximumFee  uint64 `json:"maximum_fee"`
}

// TokenMeta describes a pool token. TransferFee is nil for plain tokens.
type TokenMeta struct {
	Mint        Address      `json:"mint"`
	Decimals    uint8        `json:"decimals"`
	TransferFee *TransferFee `json:"transfer_fee,omitempty"`
}

// CalculateFee returns the fee withheld from a transfer of amount.
func (f *TransferFee) CalculateFee(amount uint64) uint64 {
	if f == nil || f.BasisPoints == 0 || amount == 0 {
		return 0
	}
	hi, lo := bits.Mul64(amount, uint64(f.BasisPoints))
	fee, rem := bits.Div64(hi, lo, uint64(TransferFeeBasisPointsMax))
	if rem != 0 {
		fee++
	}
	if fee > f.MaximumFee {
		fee = f.MaximumFee
	}
	return fee
}

// TransferFeeExcludedAmount splits a wire amount into the net amount received
// and the fee withheld.
func (m *TokenMeta) TransferFeeExcludedAmount(amount uint64) (net, fee uint64) {
	if m == nil {
		return amount, 0
	}
	fee = m.TransferFee.CalculateFee(amount)
	return amount - fee, fee
}

// TransferFeeIncludedAmount returns the wire amount that delivers net after
// the fee is withheld, plus the fee itself.
func (m *TokenMeta) TransferFeeIncludedAmount(net uint64) (included, fee uint64, err error) {
	if m == nil {
		return net, 0, nil
	}
	f := m.TransferFee
	if f == nil || f.BasisPoints == 0 || net == 0 {
		return net, 0, nil
	}

	if f.BasisPoints >= TransferFeeBasisPointsMax {
		included = net + f.MaximumFee
		if included < net {
			return 0, 0, ErrTransferFeeCalculation
		}
		return included, f.MaximumFee, nil
	}

	// Gross up by the fee rate, then re-check against the absolute cap.
	hi, lo := bits.Mul64(net, uint64(TransferFeeBasisPointsMax))
	den := uint64(TransferFeeBasisPointsMax - f.BasisPoints)
	if hi >= den {
		return 0, 0, ErrTransferFeeCalculation
	}
	raw, rem := bits.Div64(hi, lo, den)
	if rem != 0 {
		raw++
	}
	capped := net + f.MaximumFee
	if capped < net {
		return 0, 0, ErrTransferFeeCalculation
	}
	if raw > capped {
		raw = capped
	}

	fee = raw - net
	// The forward calculation must agree or the amount is not representable.
	if f.CalculateFee(raw) != fee {
		return 0, 0, ErrTransferFeeCalculation
	}
	return raw, fee, nil
}
