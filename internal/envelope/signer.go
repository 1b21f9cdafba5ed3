package envelope

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

// WalletSigner signs and verifies envelopes using the authority's own
// UTXO-chain wallet keypair, in the style of wpokt-validator's
// MnemonicSigner.EthSign - personal-message signing over a double-SHA256
// digest, using a recoverable compact signature so Verify can work from
// a base58 address alone (we never see other authorities' public keys
// directly, only their configured wallet addresses).
type WalletSigner struct {
	privKey *secp256k1.PrivateKey
	chain   *doge.ChainParams
}

var _ Signer = (*WalletSigner)(nil)

// NewWalletSigner constructs a signer from a 32-byte raw private key.
func NewWalletSigner(rawPrivKey []byte, chain *doge.ChainParams) (*WalletSigner, error) {
	if len(rawPrivKey) != 32 {
		return nil, fmt.Errorf("envelope: wallet private key must be 32 bytes, got %d", len(rawPrivKey))
	}
	priv := secp256k1.PrivKeyFromBytes(rawPrivKey)
	return &WalletSigner{privKey: priv, chain: chain}, nil
}

// Address returns this signer's own P2PKH wallet address.
func (s *WalletSigner) Address() (string, error) {
	addr, err := doge.PubKeyToAddress(s.privKey.PubKey().SerializeCompressed(), s.chain.P2PKHPrefix())
	if err != nil {
		return "", err
	}
	return string(addr), nil
}

func digest(message []byte) [32]byte {
	// double-SHA256, matching the UTXO chain's own hashing convention
	// (doge.DoubleSha256) rather than inventing a bespoke message hash.
	first := sha256.Sum256(message)
	return sha256.Sum256(first[:])
}

func (s *WalletSigner) Sign(message []byte) ([]byte, error) {
	d := digest(message)
	sig := ecdsa.SignCompact(s.privKey, d[:], true)
	return sig, nil
}

func (s *WalletSigner) Verify(message []byte, sig []byte, address string) bool {
	d := digest(message)
	pub, _, err := ecdsa.RecoverCompact(sig, d[:])
	if err != nil {
		return false
	}
	recovered, err := doge.PubKeyToAddress(pub.SerializeCompressed(), s.chain.P2PKHPrefix())
	if err != nil {
		return false
	}
	return string(recovered) == address
}
