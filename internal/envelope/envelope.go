// Package envelope implements the signed, time-bound JSON wire message
// described in spec §4.5: every authority-to-authority and
// authority-to-user reply is wrapped as {data, signature}, where data
// carries a recent UTXO block height/hash pair binding the message to
// a specific, agreed chain view.
//
// Grounded on gigawallet's pkg/webapi/helpers.go canonical JSON response
// shape, generalized to add a signature and the height/hash time-binding
// fields, and on wpokt-validator's common.MnemonicSigner personal-message
// signing style (adapted to the UTXO chain's address format).
package envelope

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	heightField = "valDingoHeight"
	hashField   = "valDingoHash"
)

// Envelope is the wire format: {"data": <object>, "signature": "<hex>"}.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// ChainView supplies the current chain tip and historical block hashes
// needed to construct and verify the time-binding. Implemented by
// internal/utxoclient in production and by a fake in tests.
type ChainView interface {
	Tip() (int64, error)
	BlockHash(height int64) (string, error)
}

// Signer produces and checks signatures over arbitrary byte strings.
// Implemented by internal/envelope's WalletSigner (secp256k1 over the
// UTXO chain's wallet keys).
type Signer interface {
	Sign(message []byte) ([]byte, error)
	// Verify checks that sig is a valid signature of message by the
	// holder of address.
	Verify(message []byte, sig []byte, address string) bool
}

// Seal builds a payload's time-binding, merges it into the supplied
// field map, canonically serializes it (encoding/json sorts map keys,
// which gives every authority the same bytes to sign over), and signs
// it with signer.
//
// fields is mutated: the two binding fields are added/overwritten.
func Seal(fields map[string]any, signer Signer, chain ChainView, syncDelayThreshold int64) (Envelope, error) {
	tip, err := chain.Tip()
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: reading chain tip: %w", err)
	}
	height := tip - syncDelayThreshold
	if height < 0 {
		height = 0
	}
	hash, err := chain.BlockHash(height)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: reading block hash at %d: %w", height, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields[heightField] = height
	fields[hashField] = hash

	data, err := json.Marshal(fields)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: marshalling data: %w", err)
	}
	sig, err := signer.Sign(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: signing: %w", err)
	}
	return Envelope{Data: data, Signature: hex.EncodeToString(sig)}, nil
}

type binding struct {
	Height int64  `json:"valDingoHeight"`
	Hash   string `json:"valDingoHash"`
}

// verifyBinding checks the time-binding only (not the signature).
// Rejects if height is older than 2*syncDelayThreshold blocks behind
// the current tip (expired), or if the chain's hash at that height no
// longer matches (reorg / wrong chain).
func verifyBinding(data []byte, chain ChainView, syncDelayThreshold int64) error {
	var b binding
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("envelope: data missing time-binding fields: %w", err)
	}
	tip, err := chain.Tip()
	if err != nil {
		return fmt.Errorf("envelope: reading chain tip: %w", err)
	}
	if b.Height < tip-2*syncDelayThreshold {
		return ErrExpired
	}
	actualHash, err := chain.BlockHash(b.Height)
	if err != nil {
		return fmt.Errorf("envelope: reading block hash at %d: %w", b.Height, err)
	}
	if actualHash != b.Hash {
		return ErrChainMismatch
	}
	return nil
}

// VerifyExpected verifies e was signed by expectedAddress and that its
// time-binding is still valid. This is the "point-to-point" verify mode
// of spec §4.5.
func VerifyExpected(e Envelope, expectedAddress string, signer Signer, chain ChainView, syncDelayThreshold int64) error {
	if err := verifyBinding(e.Data, chain, syncDelayThreshold); err != nil {
		return err
	}
	sig, err := hex.DecodeString(e.Signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature hex: %v", ErrBadSignature, err)
	}
	if !signer.Verify(e.Data, sig, expectedAddress) {
		return ErrBadSignature
	}
	return nil
}

// VerifyAnyOf verifies e was signed by exactly one of allowed and that
// its time-binding is still valid; it returns the matching address.
// This is the "authenticated as some authority" verify mode of spec
// §4.5, used to authenticate authority-only and coordinator-only
// endpoints.
func VerifyAnyOf(e Envelope, allowed []string, signer Signer, chain ChainView, syncDelayThreshold int64) (string, error) {
	if err := verifyBinding(e.Data, chain, syncDelayThreshold); err != nil {
		return "", err
	}
	sig, err := hex.DecodeString(e.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: malformed signature hex: %v", ErrBadSignature, err)
	}
	matches := 0
	matched := ""
	for _, addr := range allowed {
		if signer.Verify(e.Data, sig, addr) {
			matches++
			matched = addr
		}
	}
	if matches != 1 {
		return "", ErrBadSignature
	}
	return matched, nil
}

// Unmarshal decodes the envelope's data field into v.
func (e Envelope) Unmarshal(v any) error {
	return json.Unmarshal(e.Data, v)
}
