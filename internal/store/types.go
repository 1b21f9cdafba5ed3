// Package store is the durable single-writer record of everything an
// authority node must never forget: which deposit pubkeys it has
// already handed out, which mint addresses are bound to which deposit
// address, and the two-state lifecycle of every withdrawal it has
// seen (spec §3, §4.4).
//
// Grounded on gigawallet's pkg/store/postgres.go transactional style
// (sql.Open + schema-migration-on-open + sql.Tx per mutation), adapted
// to sqlite3 only (this system runs one database per authority, not a
// shared cluster database) with github.com/mattn/go-sqlite3 as the
// driver, matching pkg/store/sqlite.go's driver choice.
package store

import "github.com/dingo-bridge/dingo-bridge-node/internal/amount"

// DepositPubkey is one pubkey this authority has issued for use in a
// deposit multisig address, recorded so it is never reused (spec §3).
type DepositPubkey struct {
	Pubkey      string // hex-encoded compressed secp256k1 pubkey
	MintAddress string // the EVM address this pubkey was issued for
	IssuedAt    int64  // unix seconds
}

// MintBinding ties together one deposit address: the mint address it
// credits, the redeem script that unlocks it, the ordered set of
// authority pubkeys that derived it, and the tax amount approved at
// registration time (spec §3, §4.6).
type MintBinding struct {
	MintAddress    string
	DepositAddress string
	RedeemScript   string // hex-encoded
	Pubkeys        []string
	ApprovedTax    amount.Satoshis
	RegisteredAt   int64
}

// Withdrawal is one burn-to-payout record, keyed by the burn address
// and the index of the burn event at that address (spec §3). Its
// lifecycle has exactly two states, encoded entirely by
// (ApprovedAmount, ApprovedTax): SUBMITTED when both are zero,
// APPROVED once a payout round has credited them (spec §9 - no
// separate status column).
type Withdrawal struct {
	BurnAddress    string
	BurnIndex      int64
	RequestedValue amount.Satoshis
	ApprovedAmount amount.Satoshis
	ApprovedTax    amount.Satoshis
	PayoutTxID     string
	ObservedAt     int64
	ApprovedAt     int64
	PaidAt         int64
}

// Approved reports whether this withdrawal has left the SUBMITTED
// state - i.e. a payout round has credited it - per the two-state
// invariant on (ApprovedAmount, ApprovedTax).
func (w Withdrawal) Approved() bool {
	return w.ApprovedAmount != 0 || w.ApprovedTax != 0
}
