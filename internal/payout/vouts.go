package payout

import (
	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
)

// TaxAddress is the operator-controlled address tax payouts settle to.
type TaxAddress string

// BuildVouts is Step D: turn a validated batch plus the agreed unspent
// set into the transaction's outputs and the coordinator's choice of
// inputs, dropping any output below DustThreshold and failing
// InsufficientFunds if the inputs can't cover every non-dust output
// plus the network fee. Change goes to changeAddress, a distinct
// operator-controlled address from taxAddress (spec §4.9 step D).
func BuildVouts(batch PendingPayouts, unspent []UnspentOutput, taxAddress, changeAddress TaxAddress) ([]UnspentOutput, []Vout, error) {
	var vouts []Vout

	for _, d := range batch.DepositTaxPayouts {
		if d.Amount < amount.DustThreshold {
			continue
		}
		vouts = append(vouts, Vout{Address: string(taxAddress), Amount: d.Amount})
	}
	for _, w := range batch.WithdrawalPayouts {
		if w.Amount < amount.DustThreshold {
			continue
		}
		vouts = append(vouts, Vout{Address: w.BurnDestination, Amount: w.Amount})
	}
	for _, t := range batch.WithdrawalTaxPayouts {
		if t.Amount < amount.DustThreshold {
			continue
		}
		vouts = append(vouts, Vout{Address: string(taxAddress), Amount: t.Amount})
	}

	total := amount.Sum(voutAmounts(vouts))
	fee := amount.NetworkFee(len(batch.DepositTaxPayouts), len(batch.WithdrawalPayouts))

	inputs, inputTotal := selectInputs(unspent, total+fee)
	if inputTotal < total+fee {
		return nil, nil, bridgeerr.New(bridgeerr.InsufficientFunds,
			"unspent total %d cannot cover outputs %d plus network fee %d", inputTotal, total, fee)
	}

	if change := inputTotal - total - fee; change >= amount.DustThreshold {
		vouts = append(vouts, Vout{Address: string(changeAddress), Amount: change})
	}

	return inputs, vouts, nil
}

// selectInputs greedily accumulates unspent outputs until their sum
// meets target, returning every output it consumed and that sum.
func selectInputs(unspent []UnspentOutput, target amount.Satoshis) ([]UnspentOutput, amount.Satoshis) {
	var chosen []UnspentOutput
	var sum amount.Satoshis
	for _, u := range unspent {
		if sum >= target {
			break
		}
		chosen = append(chosen, u)
		sum += u.Amount
	}
	return chosen, sum
}

func voutAmounts(vouts []Vout) []amount.Satoshis {
	out := make([]amount.Satoshis, len(vouts))
	for i, v := range vouts {
		out[i] = v.Amount
	}
	return out
}

// MergeVouts collapses vouts repeated to the same address into one
// entry per address, matching what createrawtransaction actually
// produces on chain (it rejects duplicate output keys) - used both to
// build the raw transaction's vout map and to independently verify one
// against a signed transaction's actual decoded outputs.
func MergeVouts(vouts []Vout) []Vout {
	order := make([]string, 0, len(vouts))
	merged := make(map[string]amount.Satoshis, len(vouts))
	for _, v := range vouts {
		if _, ok := merged[v.Address]; !ok {
			order = append(order, v.Address)
		}
		merged[v.Address] += v.Amount
	}
	out := make([]Vout, len(order))
	for i, addr := range order {
		out[i] = Vout{Address: addr, Amount: merged[addr]}
	}
	return out
}

// ToRawTransactionVouts renders vouts into the address -> decimal
// string map CreateRawTransaction expects, merging amounts repeated to
// the same address (createrawtransaction rejects duplicate keys).
func ToRawTransactionVouts(vouts []Vout) map[string]string {
	out := make(map[string]string, len(vouts))
	for _, v := range MergeVouts(vouts) {
		out[v.Address] = v.Amount.ToDecimalString()
	}
	return out
}
