// Package burncache is an immutable local cache of EVM burn-log
// entries, keyed by (burnAddress, burnIndex). Burn history never
// changes once finalized, so unlike the mint/withdrawal store this
// cache is append-only and never needs a schema migration or a
// transactional multi-table write.
//
// Grounded on wpokt-validator's bbolt-backed persistence pattern
// (one bucket per record type; keys here are the text
// "burnAddress:burnIndex"), using
// go.etcd.io/bbolt directly rather than database/sql since there is
// no relational structure to this data - every record is independent.
package burncache

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
)

var bucketName = []byte("burns")

// BurnEvent is one finalized EVM burn log entry. BurnAddress/BurnIndex
// are the token-chain key a Withdrawal is filed under; Destination is
// the separate UTXO-chain address the burn pays out to (spec.md §4 -
// getBurnHistory returns {burnDestination, burnAmount} distinct from
// the (burnAddress, burnIndex) key used to look it up).
type BurnEvent struct {
	BurnAddress string
	BurnIndex   int64
	MintAddress string // the EVM address (msg.sender) that burned
	Destination string // UTXO-chain payout address
	Value       amount.Satoshis
	BlockNumber uint64
	TxHash      string
}

// Cache is a bbolt-backed immutable store of BurnEvents.
type Cache struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the cache file at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("burncache: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("burncache: init bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func key(burnAddress string, burnIndex int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", burnAddress, burnIndex))
}

// Put stores ev if its key is not already present. Because burn
// history is immutable once observed, Put silently no-ops (rather than
// erroring) when the same key is written twice with identical content,
// but returns an error if the new value would overwrite a
// DIFFERENT recorded value for the same key - that indicates a reorg
// or RPC-provider inconsistency, not routine re-fetch.
func (c *Cache) Put(ev BurnEvent) error {
	encoded, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("burncache: marshal: %w", err)
	}
	k := key(ev.BurnAddress, ev.BurnIndex)
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		existing := b.Get(k)
		if existing != nil {
			var prior BurnEvent
			if err := json.Unmarshal(existing, &prior); err != nil {
				return fmt.Errorf("burncache: unmarshal existing: %w", err)
			}
			if prior != ev {
				return fmt.Errorf("burncache: conflicting burn event for %s:%d", ev.BurnAddress, ev.BurnIndex)
			}
			return nil
		}
		return b.Put(k, encoded)
	})
}

// Get looks up one burn event. ok is false if no such event is cached.
func (c *Cache) Get(burnAddress string, burnIndex int64) (ev BurnEvent, ok bool, err error) {
	k := key(burnAddress, burnIndex)
	err = c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get(k)
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, &ev)
	})
	return ev, ok, err
}

// ListByAddress returns every cached burn event for burnAddress.
func (c *Cache) ListByAddress(burnAddress string) ([]BurnEvent, error) {
	var result []BurnEvent
	prefix := []byte(burnAddress + ":")
	err := c.db.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket(bucketName).Cursor()
		for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
			var ev BurnEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			result = append(result, ev)
		}
		return nil
	})
	return result, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
