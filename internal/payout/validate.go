package payout

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
)

// Validate is Step C: every authority independently re-checks a
// proposed batch against its own store/chain view before signing.
func (e *Engine) Validate(batch PendingPayouts) error {
	totalTax := amount.Sum(taxAmounts(batch.DepositTaxPayouts)) + amount.Sum(withdrawalTaxAmounts(batch.WithdrawalTaxPayouts))
	networkFee := amount.NetworkFee(len(batch.DepositTaxPayouts), len(batch.WithdrawalPayouts))
	if totalTax < networkFee {
		return bridgeerr.New(bridgeerr.InsufficientTaxForFee,
			"total tax %d is less than network fee %d", totalTax, networkFee)
	}

	received, err := e.UTXO.ListReceivedByAddress(e.DepositConfirmations)
	if err != nil {
		return fmt.Errorf("payout: validate: listreceivedbyaddress: %w", err)
	}
	for _, d := range batch.DepositTaxPayouts {
		binding, err := e.Store.GetMintBindingByDepositAddress(d.DepositAddress)
		if err != nil {
			return bridgeerr.Wrap(bridgeerr.MalformedRequest, fmt.Errorf("deposit tax payout: %w", err))
		}
		r, ok := received[d.DepositAddress]
		if !ok || !amount.MeetsTax(r) {
			return bridgeerr.New(bridgeerr.MalformedRequest, "deposit %s no longer meets tax", d.DepositAddress)
		}
		if d.Amount+binding.ApprovedTax > amount.Tax(r) {
			return bridgeerr.New(bridgeerr.AccountingInvariantViolated,
				"deposit %s: payout %d + approved %d exceeds tax(%d)", d.DepositAddress, d.Amount, binding.ApprovedTax, r)
		}
	}

	if len(batch.WithdrawalPayouts) != len(batch.WithdrawalTaxPayouts) {
		return bridgeerr.New(bridgeerr.TxShapeMismatch, "withdrawal payout/tax-payout count mismatch")
	}
	for i, w := range batch.WithdrawalPayouts {
		t := batch.WithdrawalTaxPayouts[i]
		if w.BurnAddress != t.BurnAddress || w.BurnIndex != t.BurnIndex {
			return bridgeerr.New(bridgeerr.TxShapeMismatch,
				"withdrawal payout %d paired with mismatched tax payout", i)
		}
		existing, err := e.Store.GetWithdrawal(w.BurnAddress, w.BurnIndex)
		if err != nil {
			return bridgeerr.Wrap(bridgeerr.MalformedRequest, fmt.Errorf("withdrawal %s:%d: %w", w.BurnAddress, w.BurnIndex, err))
		}
		if existing.Approved() {
			return bridgeerr.New(bridgeerr.Duplicate,
				"withdrawal %s:%d is not in a fresh pending state", w.BurnAddress, w.BurnIndex)
		}
		destination, burnAmount, err := e.Burns.BurnDestinationAndAmount(w.BurnAddress, w.BurnIndex)
		if err != nil {
			return fmt.Errorf("payout: validate: burn lookup %s:%d: %w", w.BurnAddress, w.BurnIndex, err)
		}
		if destination != w.BurnDestination {
			return bridgeerr.New(bridgeerr.TxShapeMismatch,
				"withdrawal %s:%d destination mismatch", w.BurnAddress, w.BurnIndex)
		}
		if w.Amount != amount.AmountAfterTax(burnAmount) {
			return bridgeerr.New(bridgeerr.TxShapeMismatch,
				"withdrawal %s:%d amount mismatch: got %d want %d", w.BurnAddress, w.BurnIndex, w.Amount, amount.AmountAfterTax(burnAmount))
		}
		if t.Amount != amount.Tax(burnAmount) {
			return bridgeerr.New(bridgeerr.TxShapeMismatch,
				"withdrawal %s:%d tax-payout mismatch: got %d want %d", w.BurnAddress, w.BurnIndex, t.Amount, amount.Tax(burnAmount))
		}
	}

	return nil
}

func taxAmounts(payouts []DepositTaxPayout) []amount.Satoshis {
	out := make([]amount.Satoshis, len(payouts))
	for i, p := range payouts {
		out[i] = p.Amount
	}
	return out
}

func withdrawalTaxAmounts(payouts []WithdrawalTaxPayout) []amount.Satoshis {
	out := make([]amount.Satoshis, len(payouts))
	for i, p := range payouts {
		out[i] = p.Amount
	}
	return out
}
