// Package amount implements the bridge's fixed-point Coin arithmetic.
//
// Amounts are integer satoshis at 8 decimals, matching the UTXO chain's
// own on-chain encoding. All consensus-critical formulas (tax, dust,
// fees) live here so every authority computes byte-identical results
// from byte-identical inputs.
package amount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Satoshis is a nonnegative integer amount at 8 decimal places.
type Satoshis int64

const (
	// OneCoin is one whole Coin in satoshis.
	OneCoin Satoshis = 1_0000_0000

	// FlatFee is the minimum amount accepted by any tax-bearing
	// operation, and the flat portion of the deposit/withdrawal tax.
	FlatFee Satoshis = 10 * 1_0000_0000

	// PayoutNetworkFeePerTx is the network-fee contribution added per
	// deposit and per withdrawal included in a payout batch. Withdrawal
	// tax payouts are NOT counted separately - see NetworkFee.
	PayoutNetworkFeePerTx Satoshis = 20 * 1_0000_0000

	// DustThreshold is the minimum vout value; anything smaller is
	// dropped from the built transaction.
	DustThreshold Satoshis = 1 * 1_0000_0000
)

var oneHundred = decimal.NewFromInt(100)

// MeetsTax reports whether x is large enough for tax-bearing operations
// to proceed at all.
func MeetsTax(x Satoshis) bool {
	return x >= FlatFee
}

// Tax computes the flat fee plus 1% of the remainder. Callers MUST
// check MeetsTax(x) first; Tax does not itself validate x.
func Tax(x Satoshis) Satoshis {
	return FlatFee + (x-FlatFee)/100
}

// AmountAfterTax returns x minus Tax(x).
func AmountAfterTax(x Satoshis) Satoshis {
	return x - Tax(x)
}

// NetworkFee computes the batch network fee for a payout that includes
// numDepositTaxPayouts deposit-tax outputs and numWithdrawalPayouts
// withdrawal-principal outputs. Withdrawal-tax outputs are excluded from
// the count - this asymmetry is consensus-critical (spec §4.9, §9) and
// must be preserved exactly.
func NetworkFee(numDepositTaxPayouts, numWithdrawalPayouts int) Satoshis {
	return Satoshis(numDepositTaxPayouts+numWithdrawalPayouts) * PayoutNetworkFeePerTx
}

// ErrAmountTooSmall is returned (wrapped) whenever an amount fails
// MeetsTax where a tax-bearing operation was expected to succeed.
type ErrAmountTooSmall struct {
	Amount Satoshis
}

func (e *ErrAmountTooSmall) Error() string {
	return fmt.Sprintf("amount %d is below the required flat fee %d", e.Amount, FlatFee)
}

// RequireMeetsTax returns ErrAmountTooSmall if x does not meet the flat
// fee threshold.
func RequireMeetsTax(x Satoshis) error {
	if !MeetsTax(x) {
		return &ErrAmountTooSmall{Amount: x}
	}
	return nil
}

// ToDecimalString renders satoshis as an exact decimal Coin-amount
// string, e.g. Satoshis(123450000).ToDecimalString() == "1.2345".
func (s Satoshis) ToDecimalString() string {
	return decimal.New(int64(s), -8).String()
}

// ParseDecimalString parses an exact decimal Coin-amount string (as
// returned by the UTXO daemon's RPC interface) into Satoshis.
func ParseDecimalString(s string) (Satoshis, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount: invalid decimal %q: %w", s, err)
	}
	scaled := d.Shift(8)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount: %q has more than 8 decimal places", s)
	}
	return Satoshis(scaled.IntPart()), nil
}

// Sum adds a slice of amounts.
func Sum(xs []Satoshis) Satoshis {
	var total Satoshis
	for _, x := range xs {
		total += x
	}
	return total
}
