package payout

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
)

// BurnLookup resolves a withdrawal's on-chain burn destination and
// amount, implemented by internal/evmclient.
type BurnLookup interface {
	BurnDestinationAndAmount(burnAddress string, burnIndex int64) (destination string, value amount.Satoshis, err error)
}

// Engine drives the payout protocol for one authority node.
type Engine struct {
	Store                *store.Store
	UTXO                 UnspentLister
	Burns                BurnLookup
	DepositConfirmations int64
}

// UnspentLister is the subset of internal/utxoclient.Client this
// package needs for Step A's deposit-total read and for enumerating
// spendable candidate inputs across every watched deposit address.
type UnspentLister interface {
	ListReceivedByAddress(confirmations int64) (map[string]amount.Satoshis, error)
	ListUnspent(confirmations int64, addresses []string) ([]utxoclient.UTXO, error)
}

// ComputeUnspent lists every confirmed unspent output across every
// bound deposit address - the candidate input set for Step D, and the
// other half of what Step B's consensus intersects on.
func (e *Engine) ComputeUnspent() ([]UnspentOutput, error) {
	bindings, err := e.Store.ListMintBindings()
	if err != nil {
		return nil, fmt.Errorf("payout: list mint bindings: %w", err)
	}
	addresses := make([]string, len(bindings))
	for i, b := range bindings {
		addresses[i] = b.DepositAddress
	}
	utxos, err := e.UTXO.ListUnspent(e.DepositConfirmations, addresses)
	if err != nil {
		return nil, fmt.Errorf("payout: listunspent: %w", err)
	}
	out := make([]UnspentOutput, len(utxos))
	for i, u := range utxos {
		out[i] = UnspentOutput{TxID: u.TxID, Vout: u.Vout, Amount: u.Amount}
	}
	return out, nil
}

// unspentSubsetOf reports whether every output in candidate also
// appears, with a matching amount, in own.
func unspentSubsetOf(candidate, own []UnspentOutput) bool {
	ownSet := make(map[string]amount.Satoshis, len(own))
	for _, u := range own {
		ownSet[fmt.Sprintf("%s:%d", u.TxID, u.Vout)] = u.Amount
	}
	for _, c := range candidate {
		amt, ok := ownSet[fmt.Sprintf("%s:%d", c.TxID, c.Vout)]
		if !ok || amt != c.Amount {
			return false
		}
	}
	return true
}

// ComputePendingPayouts is Step A: every authority (not just the
// coordinator) can run this read-only computation against its own
// view of chain state.
func (e *Engine) ComputePendingPayouts(processDeposits, processWithdrawals bool) (PendingPayouts, error) {
	if !processDeposits && !processWithdrawals {
		return PendingPayouts{}, bridgeerr.New(bridgeerr.MalformedRequest,
			"at least one of processDeposits/processWithdrawals must be true")
	}

	var out PendingPayouts

	if processDeposits {
		received, err := e.UTXO.ListReceivedByAddress(e.DepositConfirmations)
		if err != nil {
			return PendingPayouts{}, fmt.Errorf("payout: listreceivedbyaddress: %w", err)
		}
		bindings, err := e.Store.ListMintBindings()
		if err != nil {
			return PendingPayouts{}, fmt.Errorf("payout: list mint bindings: %w", err)
		}
		for _, binding := range bindings {
			received, ok := received[binding.DepositAddress]
			if !ok || !amount.MeetsTax(received) {
				continue
			}
			approvable := amount.Tax(received)
			approved := binding.ApprovedTax
			if approvable > approved {
				out.DepositTaxPayouts = append(out.DepositTaxPayouts, DepositTaxPayout{
					DepositAddress: binding.DepositAddress,
					Amount:         approvable - approved,
				})
			} else if approvable < approved {
				return PendingPayouts{}, bridgeerr.New(bridgeerr.AccountingInvariantViolated,
					"deposit %s: approved tax %d exceeds approvable tax %d", binding.DepositAddress, approved, approvable)
			}
		}
	}

	if processWithdrawals {
		pending, err := e.Store.ListPendingWithdrawals()
		if err != nil {
			return PendingPayouts{}, fmt.Errorf("payout: list pending withdrawals: %w", err)
		}
		for _, w := range pending {
			destination, burnAmount, err := e.Burns.BurnDestinationAndAmount(w.BurnAddress, w.BurnIndex)
			if err != nil {
				return PendingPayouts{}, fmt.Errorf("payout: burn lookup %s:%d: %w", w.BurnAddress, w.BurnIndex, err)
			}
			if !amount.MeetsTax(burnAmount) {
				continue
			}
			out.WithdrawalPayouts = append(out.WithdrawalPayouts, WithdrawalPayout{
				BurnAddress:     w.BurnAddress,
				BurnIndex:       w.BurnIndex,
				BurnDestination: destination,
				Amount:          amount.AmountAfterTax(burnAmount),
			})
			out.WithdrawalTaxPayouts = append(out.WithdrawalTaxPayouts, WithdrawalTaxPayout{
				BurnAddress: w.BurnAddress,
				BurnIndex:   w.BurnIndex,
				Amount:      amount.Tax(burnAmount),
			})
		}
	}

	return out, nil
}
