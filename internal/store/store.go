package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
)

const setupSQL = `
CREATE TABLE IF NOT EXISTS deposit_pubkey (
	pubkey TEXT NOT NULL PRIMARY KEY,
	mint_address TEXT NOT NULL,
	issued_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mint_binding (
	mint_address TEXT NOT NULL PRIMARY KEY,
	deposit_address TEXT NOT NULL UNIQUE,
	redeem_script TEXT NOT NULL,
	pubkeys TEXT NOT NULL,
	approved_tax INTEGER NOT NULL,
	registered_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS withdrawal (
	burn_address TEXT NOT NULL,
	burn_index INTEGER NOT NULL,
	requested_value INTEGER NOT NULL,
	approved_amount INTEGER NOT NULL DEFAULT 0,
	approved_tax INTEGER NOT NULL DEFAULT 0,
	payout_txid TEXT NOT NULL DEFAULT '',
	observed_at INTEGER NOT NULL,
	approved_at INTEGER NOT NULL DEFAULT 0,
	paid_at INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (burn_address, burn_index)
);
CREATE INDEX IF NOT EXISTS withdrawal_pending_i ON withdrawal (approved_amount, approved_tax);
`

// Store is the durable record for one authority node. database/sql's
// *sql.DB is already safe for concurrent use on its own; the mutex
// here is the application-level "write lock" of spec §4.4/§5 - callers
// that need a whole read-modify-write sequence (a store read, an RPC
// to the daemon, then a store write) to happen atomically with respect
// to other such sequences call Lock/Unlock around the whole sequence.
// The mutex is NOT reentrant: a caller already holding it must call
// the package's methods directly (none of them lock internally except
// Dump and Reset, which take the mutex themselves and so must not be
// called while holding it) rather than re-entering Lock.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (if necessary) and opens the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if _, err := db.Exec(setupSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lock exposes the store's single-writer mutex so callers (e.g. the
// payout engine) can hold it across a whole read-modify-write
// sequence that spans multiple store calls and daemon RPCs.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

// InsertDepositPubkey records pubkey as issued, failing if it has
// already been handed out (spec §3 - pubkeys are never reused).
func (s *Store) InsertDepositPubkey(p DepositPubkey) error {
	_, err := s.db.Exec(
		`INSERT INTO deposit_pubkey(pubkey, mint_address, issued_at) VALUES (?, ?, ?)`,
		p.Pubkey, p.MintAddress, p.IssuedAt,
	)
	if isUniqueViolation(err) {
		return AlreadyExists("deposit pubkey")
	}
	if err != nil {
		return fmt.Errorf("store: insert deposit pubkey: %w", err)
	}
	return nil
}

// IsDepositPubkeyUsed reports whether pubkey has already been issued.
func (s *Store) IsDepositPubkeyUsed(pubkey string) (bool, error) {
	var discard string
	err := s.db.QueryRow(`SELECT pubkey FROM deposit_pubkey WHERE pubkey = ?`, pubkey).Scan(&discard)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup deposit pubkey: %w", err)
	}
	return true, nil
}

// InsertMintBinding records a new mint-address <-> deposit-address
// binding, failing if either side is already bound (spec §4.6).
func (s *Store) InsertMintBinding(b MintBinding) error {
	_, err := s.db.Exec(
		`INSERT INTO mint_binding(mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.MintAddress, b.DepositAddress, b.RedeemScript, strings.Join(b.Pubkeys, ","), int64(b.ApprovedTax), b.RegisteredAt,
	)
	if isUniqueViolation(err) {
		return AlreadyExists("mint binding")
	}
	if err != nil {
		return fmt.Errorf("store: insert mint binding: %w", err)
	}
	return nil
}

func scanMintBinding(row interface {
	Scan(dest ...any) error
}) (MintBinding, error) {
	var b MintBinding
	var pubkeys string
	var tax int64
	err := row.Scan(&b.MintAddress, &b.DepositAddress, &b.RedeemScript, &pubkeys, &tax, &b.RegisteredAt)
	if err == sql.ErrNoRows {
		return MintBinding{}, NotFound("mint binding")
	}
	if err != nil {
		return MintBinding{}, fmt.Errorf("store: scan mint binding: %w", err)
	}
	b.ApprovedTax = amount.Satoshis(tax)
	if pubkeys != "" {
		b.Pubkeys = strings.Split(pubkeys, ",")
	}
	return b, nil
}

// GetMintBindingByMintAddress looks up a binding by its EVM mint
// address.
func (s *Store) GetMintBindingByMintAddress(mintAddress string) (MintBinding, error) {
	row := s.db.QueryRow(
		`SELECT mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at
		 FROM mint_binding WHERE mint_address = ?`, mintAddress)
	return scanMintBinding(row)
}

// GetMintBindingByDepositAddress looks up a binding by its UTXO-chain
// deposit address.
func (s *Store) GetMintBindingByDepositAddress(depositAddress string) (MintBinding, error) {
	row := s.db.QueryRow(
		`SELECT mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at
		 FROM mint_binding WHERE deposit_address = ?`, depositAddress)
	return scanMintBinding(row)
}

// ListMintBindings returns every known mint binding, used by the
// deposit-sweep and stats components to enumerate watched addresses.
func (s *Store) ListMintBindings() ([]MintBinding, error) {
	rows, err := s.db.Query(
		`SELECT mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at FROM mint_binding`)
	if err != nil {
		return nil, fmt.Errorf("store: list mint bindings: %w", err)
	}
	defer rows.Close()
	var result []MintBinding
	for rows.Next() {
		b, err := scanMintBinding(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// IncreaseMintBindingApprovedTax bumps a binding's approved-tax total
// by delta, used by the payout engine (spec §4.9 step E) once a
// deposit-tax payout has been included in a broadcast transaction.
func (s *Store) IncreaseMintBindingApprovedTax(depositAddress string, delta amount.Satoshis) error {
	res, err := s.db.Exec(
		`UPDATE mint_binding SET approved_tax = approved_tax + ? WHERE deposit_address = ?`,
		int64(delta), depositAddress,
	)
	if err != nil {
		return fmt.Errorf("store: increase approved tax: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("mint binding")
	}
	return nil
}

// InsertWithdrawal records a newly-observed burn as a pending
// withdrawal (spec §4.7).
func (s *Store) InsertWithdrawal(w Withdrawal) error {
	_, err := s.db.Exec(
		`INSERT INTO withdrawal(burn_address, burn_index, requested_value, approved_amount, approved_tax, observed_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		w.BurnAddress, w.BurnIndex, int64(w.RequestedValue), w.ObservedAt,
	)
	if isUniqueViolation(err) {
		return AlreadyExists("withdrawal")
	}
	if err != nil {
		return fmt.Errorf("store: insert withdrawal: %w", err)
	}
	return nil
}

// ApproveWithdrawal transitions a pending withdrawal to approved with
// the tax-adjusted payout amount (spec §4.8). The at-most-once
// transition is gated directly on the withdrawal's own two-state
// invariant - approvedAmount and approvedTax both still zero - rather
// than a separate status column (spec §9 forbids resurrecting the
// status-column form of this table).
func (s *Store) ApproveWithdrawal(burnAddress string, burnIndex int64, approvedAmount, approvedTax amount.Satoshis, approvedAt int64) error {
	res, err := s.db.Exec(
		`UPDATE withdrawal SET approved_amount = ?, approved_tax = ?, approved_at = ?
		 WHERE burn_address = ? AND burn_index = ? AND approved_amount = 0 AND approved_tax = 0`,
		int64(approvedAmount), int64(approvedTax), approvedAt,
		burnAddress, burnIndex,
	)
	if err != nil {
		return fmt.Errorf("store: approve withdrawal: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("pending withdrawal")
	}
	return nil
}

// MarkWithdrawalPaid records the payout transaction id for an already
// approved withdrawal (spec §4.9 step E), gated on payout_txid still
// being empty so it can only ever be set once.
func (s *Store) MarkWithdrawalPaid(burnAddress string, burnIndex int64, txid string, paidAt int64) error {
	res, err := s.db.Exec(
		`UPDATE withdrawal SET payout_txid = ?, paid_at = ?
		 WHERE burn_address = ? AND burn_index = ? AND payout_txid = ''`,
		txid, paidAt, burnAddress, burnIndex,
	)
	if err != nil {
		return fmt.Errorf("store: mark withdrawal paid: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("approved withdrawal")
	}
	return nil
}

func scanWithdrawal(row interface {
	Scan(dest ...any) error
}) (Withdrawal, error) {
	var w Withdrawal
	var requested, approvedAmt, approvedTax int64
	err := row.Scan(&w.BurnAddress, &w.BurnIndex, &requested, &approvedAmt, &approvedTax,
		&w.PayoutTxID, &w.ObservedAt, &w.ApprovedAt, &w.PaidAt)
	if err == sql.ErrNoRows {
		return Withdrawal{}, NotFound("withdrawal")
	}
	if err != nil {
		return Withdrawal{}, fmt.Errorf("store: scan withdrawal: %w", err)
	}
	w.RequestedValue = amount.Satoshis(requested)
	w.ApprovedAmount = amount.Satoshis(approvedAmt)
	w.ApprovedTax = amount.Satoshis(approvedTax)
	return w, nil
}

// GetWithdrawal looks up one withdrawal by its burn address/index key.
func (s *Store) GetWithdrawal(burnAddress string, burnIndex int64) (Withdrawal, error) {
	row := s.db.QueryRow(
		`SELECT burn_address, burn_index, requested_value, approved_amount, approved_tax,
		        payout_txid, observed_at, approved_at, paid_at
		 FROM withdrawal WHERE burn_address = ? AND burn_index = ?`, burnAddress, burnIndex)
	return scanWithdrawal(row)
}

// ListPendingWithdrawals returns every withdrawal still in the
// SUBMITTED state - approvedAmount and approvedTax both zero - ordered
// by observation time (oldest first), matching the order payouts must
// be processed in (spec §4.9 step A).
func (s *Store) ListPendingWithdrawals() ([]Withdrawal, error) {
	rows, err := s.db.Query(
		`SELECT burn_address, burn_index, requested_value, approved_amount, approved_tax,
		        payout_txid, observed_at, approved_at, paid_at
		 FROM withdrawal WHERE approved_amount = 0 AND approved_tax = 0 ORDER BY observed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list withdrawals: %w", err)
	}
	defer rows.Close()
	var result []Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
