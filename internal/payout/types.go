// Package payout implements the payout engine (spec §4.9): computing
// pending payouts, reaching cross-authority consensus on the largest
// safe batch, validating it, building the transaction's outputs, and
// driving the sequential multi-signature chain that produces the
// final broadcastable transaction.
//
// Grounded on gigawallet's webapi request/reply shape for the HTTP
// legs of the protocol and tdex-daemon's raw-transaction-building
// conventions for Step D, using this module's own internal/utxoclient
// and internal/store for the UTXO and persistence sides.
package payout

import "github.com/dingo-bridge/dingo-bridge-node/internal/amount"

// DepositTaxPayout is one deposit address whose accrued tax exceeds
// what has already been approved for payout (spec §4.9 step A).
type DepositTaxPayout struct {
	DepositAddress string
	Amount         amount.Satoshis
}

// WithdrawalPayout pays a withdrawal's principal (post-tax amount) to
// its burn destination.
type WithdrawalPayout struct {
	BurnAddress     string
	BurnIndex       int64
	BurnDestination string
	Amount          amount.Satoshis
}

// WithdrawalTaxPayout is the tax portion of the same withdrawal,
// always paired index-for-index with a WithdrawalPayout for the same
// (BurnAddress, BurnIndex).
type WithdrawalTaxPayout struct {
	BurnAddress string
	BurnIndex   int64
	Amount      amount.Satoshis
}

// PendingPayouts is the full output of Step A / computePendingPayouts.
type PendingPayouts struct {
	DepositTaxPayouts    []DepositTaxPayout
	WithdrawalPayouts    []WithdrawalPayout
	WithdrawalTaxPayouts []WithdrawalTaxPayout
}

// UnspentOutput is one candidate input to the payout transaction.
type UnspentOutput struct {
	TxID   string
	Vout   int
	Amount amount.Satoshis
}

// Vout is one destination/amount pair in the built transaction.
type Vout struct {
	Address string
	Amount  amount.Satoshis
}

// ApprovalRequest is the envelope payload POSTed from authority i to
// authority i+1 during Step E's multi-sign chain.
type ApprovalRequest struct {
	DepositTaxPayouts    []DepositTaxPayout
	WithdrawalPayouts    []WithdrawalPayout
	WithdrawalTaxPayouts []WithdrawalTaxPayout
	Unspent              []UnspentOutput
	ApprovalChain        string // raw transaction hex, C_i
	TestMode             bool
}
