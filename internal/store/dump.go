package store

import "fmt"

// Dump is a complete snapshot of one authority's durable state, used
// when a lagging or rebuilt authority needs to resynchronize from a
// peer's /dump endpoint rather than replaying history from scratch
// (spec §3, §4.4 - "dump/reset for cross-authority recovery").
type Dump struct {
	DepositPubkeys []DepositPubkey
	MintBindings   []MintBinding
	Withdrawals    []Withdrawal
}

// Dump exports every row in the store. It holds the store mutex for
// its whole duration, so the snapshot is atomic with respect to other
// sequences run under Lock; a caller must not already hold Lock.
func (s *Store) Dump() (Dump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d Dump

	rows, err := s.db.Query(`SELECT pubkey, mint_address, issued_at FROM deposit_pubkey`)
	if err != nil {
		return Dump{}, fmt.Errorf("store: dump deposit_pubkey: %w", err)
	}
	for rows.Next() {
		var p DepositPubkey
		if err := rows.Scan(&p.Pubkey, &p.MintAddress, &p.IssuedAt); err != nil {
			rows.Close()
			return Dump{}, fmt.Errorf("store: dump deposit_pubkey: %w", err)
		}
		d.DepositPubkeys = append(d.DepositPubkeys, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Dump{}, err
	}

	bindingRows, err := s.db.Query(
		`SELECT mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at FROM mint_binding`)
	if err != nil {
		return Dump{}, fmt.Errorf("store: dump mint_binding: %w", err)
	}
	for bindingRows.Next() {
		b, err := scanMintBinding(bindingRows)
		if err != nil {
			bindingRows.Close()
			return Dump{}, err
		}
		d.MintBindings = append(d.MintBindings, b)
	}
	bindingRows.Close()
	if err := bindingRows.Err(); err != nil {
		return Dump{}, err
	}

	wRows, err := s.db.Query(
		`SELECT burn_address, burn_index, requested_value, approved_amount, approved_tax,
		        payout_txid, observed_at, approved_at, paid_at FROM withdrawal`)
	if err != nil {
		return Dump{}, fmt.Errorf("store: dump withdrawal: %w", err)
	}
	for wRows.Next() {
		w, err := scanWithdrawal(wRows)
		if err != nil {
			wRows.Close()
			return Dump{}, err
		}
		d.Withdrawals = append(d.Withdrawals, w)
	}
	wRows.Close()
	if err := wRows.Err(); err != nil {
		return Dump{}, err
	}

	return d, nil
}

// Reset replaces the entire contents of the store with d, inside one
// transaction. This is the destructive half of cross-authority
// recovery (spec §4.4, §4.11 "restore"): it is never invoked
// automatically, only via the operator CLI after an explicit
// confirmation.
func (s *Store) Reset(d Dump) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: reset: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"deposit_pubkey", "mint_binding", "withdrawal"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("store: reset: clear %s: %w", table, err)
		}
	}

	for _, p := range d.DepositPubkeys {
		if _, err := tx.Exec(
			`INSERT INTO deposit_pubkey(pubkey, mint_address, issued_at) VALUES (?, ?, ?)`,
			p.Pubkey, p.MintAddress, p.IssuedAt,
		); err != nil {
			return fmt.Errorf("store: reset: insert deposit_pubkey: %w", err)
		}
	}
	for _, b := range d.MintBindings {
		pubkeys := ""
		for i, pk := range b.Pubkeys {
			if i > 0 {
				pubkeys += ","
			}
			pubkeys += pk
		}
		if _, err := tx.Exec(
			`INSERT INTO mint_binding(mint_address, deposit_address, redeem_script, pubkeys, approved_tax, registered_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			b.MintAddress, b.DepositAddress, b.RedeemScript, pubkeys, int64(b.ApprovedTax), b.RegisteredAt,
		); err != nil {
			return fmt.Errorf("store: reset: insert mint_binding: %w", err)
		}
	}
	for _, w := range d.Withdrawals {
		if _, err := tx.Exec(
			`INSERT INTO withdrawal(burn_address, burn_index, requested_value, approved_amount, approved_tax,
			                         payout_txid, observed_at, approved_at, paid_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.BurnAddress, w.BurnIndex, int64(w.RequestedValue), int64(w.ApprovedAmount), int64(w.ApprovedTax),
			w.PayoutTxID, w.ObservedAt, w.ApprovedAt, w.PaidAt,
		); err != nil {
			return fmt.Errorf("store: reset: insert withdrawal: %w", err)
		}
	}

	return tx.Commit()
}
