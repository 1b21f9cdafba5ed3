package utxoclient

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
)

// ExpectedVin is one input the caller expects a raw transaction to
// spend.
type ExpectedVin struct {
	TxID string
	Vout int
}

// ExpectedVout is one output the caller expects a raw transaction to
// pay, by destination address and exact satoshi amount.
type ExpectedVout struct {
	Address string
	Amount  amount.Satoshis
}

// VerifyRawTransaction independently decodes txHex through the daemon
// and checks the decode matches exactly the inputs and outputs the
// caller built the transaction from. This guards against a compromised
// or buggy daemon silently altering a transaction between
// createRawTransaction and signRawTransaction (spec §4.2, §9): every
// authority re-derives its own expectation of the transaction rather
// than trusting the hex blob a peer handed it.
func (c *Client) VerifyRawTransaction(txHex string, expectedVins []ExpectedVin, expectedVouts []ExpectedVout) error {
	decoded, err := c.DecodeRawTransaction(txHex)
	if err != nil {
		return fmt.Errorf("utxoclient: verify: decode: %w", err)
	}
	if len(decoded.Vin) != len(expectedVins) {
		return fmt.Errorf("%w: got %d inputs, expected %d", ErrTxMismatch, len(decoded.Vin), len(expectedVins))
	}
	vinSet := make(map[string]bool, len(expectedVins))
	for _, v := range expectedVins {
		vinSet[fmt.Sprintf("%s:%d", v.TxID, v.Vout)] = true
	}
	for _, v := range decoded.Vin {
		key := fmt.Sprintf("%s:%d", v.TxID, v.Vout)
		if !vinSet[key] {
			return fmt.Errorf("%w: unexpected input %s", ErrTxMismatch, key)
		}
		delete(vinSet, key)
	}
	if len(vinSet) != 0 {
		return fmt.Errorf("%w: missing expected input(s)", ErrTxMismatch)
	}

	if len(decoded.Vout) != len(expectedVouts) {
		return fmt.Errorf("%w: got %d outputs, expected %d", ErrTxMismatch, len(decoded.Vout), len(expectedVouts))
	}
	voutRemaining := make([]ExpectedVout, len(expectedVouts))
	copy(voutRemaining, expectedVouts)
	for _, out := range decoded.Vout {
		if len(out.ScriptPubKey.Addresses) != 1 {
			return fmt.Errorf("%w: output has unexpected address count %d", ErrTxMismatch, len(out.ScriptPubKey.Addresses))
		}
		addr := out.ScriptPubKey.Addresses[0]
		sat, err := amount.ParseDecimalString(out.Value)
		if err != nil {
			return fmt.Errorf("utxoclient: verify: output amount: %w", err)
		}
		matched := -1
		for i, want := range voutRemaining {
			if want.Address == addr && want.Amount == sat {
				matched = i
				break
			}
		}
		if matched == -1 {
			return fmt.Errorf("%w: unexpected output %s paying %s", ErrTxMismatch, addr, out.Value)
		}
		voutRemaining = append(voutRemaining[:matched], voutRemaining[matched+1:]...)
	}
	if len(voutRemaining) != 0 {
		return fmt.Errorf("%w: missing expected output(s)", ErrTxMismatch)
	}
	return nil
}
