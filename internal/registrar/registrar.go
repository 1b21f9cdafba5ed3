// Package registrar implements the three-phase mint-address
// registration protocol (spec §4.6): a client walks every authority
// through generateDepositAddress, then forwards the full set of
// per-authority envelopes through registerMintDepositAddress, so every
// authority derives and watches the same k-of-n multisig deposit
// address for one EVM mint address.
//
// Grounded on gigawallet's pkg/webapi request-handler shape (validate
// under lock, mutate store, reply with a signed envelope) and this
// module's own internal/envelope for the positional-signature checks
// spec.md calls for.
package registrar

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
)

// Authority describes one configured peer for phase-2 verification:
// its position in the fixed authority order and its UTXO wallet
// address (the address its envelopes must be signed by).
type Authority struct {
	WalletAddress string
}

// Service drives both phases of the protocol for one authority node.
type Service struct {
	Store     *store.Store
	UTXO      *utxoclient.Client
	Signer    envelope.Signer
	Chain     envelope.ChainView
	SyncDelay int64

	Authorities     []Authority // fixed positional order, this node's view of every authority
	AuthorityThresh int
}

// phase1Reply is the shape one generateDepositAddress envelope's data
// carries. DepositAddress holds this authority's freshly issued
// compressed-pubkey hex (spec.md's P_i) - named to match the wire
// field spec.md specifies, even though it carries key material rather
// than a chain address until phase 2 derives the real deposit address.
type phase1Reply struct {
	MintAddress    string `json:"mintAddress"`
	DepositAddress string `json:"depositAddress"`
}

// GenerateDepositAddress is phase 1: issue a fresh, never-before-used
// deposit pubkey for mintAddress and return it sealed in an envelope.
func (s *Service) GenerateDepositAddress(mintAddress string) (envelope.Envelope, error) {
	addr, err := s.UTXO.GetNewAddress()
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("registrar: getnewaddress: %w", err)
	}
	validated, err := s.UTXO.ValidateAddress(addr)
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("registrar: validateaddress: %w", err)
	}
	if !validated.IsValid || validated.Pubkey == "" {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.MalformedRequest, "daemon returned no pubkey for its own new address")
	}

	return envelope.Seal(map[string]any{
		"mintAddress":    mintAddress,
		"depositAddress": validated.Pubkey,
	}, s.Signer, s.Chain, s.SyncDelay)
}

// RegisterMintDepositAddress is phase 2: given the N per-authority
// phase-1 envelopes in fixed authority order, verify them, derive the
// shared multisig address, and persist the binding.
func (s *Service) RegisterMintDepositAddress(envelopes []envelope.Envelope) (envelope.Envelope, error) {
	if len(envelopes) != len(s.Authorities) {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.MalformedRequest,
			"expected %d authority envelopes, got %d", len(s.Authorities), len(envelopes))
	}

	replies := make([]phase1Reply, len(envelopes))
	for i, env := range envelopes {
		// Positional match: envelope i MUST be signed by authority i.
		if err := envelope.VerifyExpected(env, s.Authorities[i].WalletAddress, s.Signer, s.Chain, s.SyncDelay); err != nil {
			return envelope.Envelope{}, bridgeerr.Wrap(bridgeerr.Unauthorized,
				fmt.Errorf("authority %d: %w", i, err))
		}
		var reply phase1Reply
		if err := env.Unmarshal(&reply); err != nil {
			return envelope.Envelope{}, bridgeerr.Wrap(bridgeerr.MalformedRequest, err)
		}
		if reply.DepositAddress == "" {
			return envelope.Envelope{}, bridgeerr.New(bridgeerr.MalformedRequest, "authority %d carries no pubkey", i)
		}
		replies[i] = reply
	}

	mintAddress := replies[0].MintAddress
	pubkeyHexes := make([]string, len(replies))
	for i, r := range replies {
		if r.MintAddress != mintAddress {
			return envelope.Envelope{}, bridgeerr.New(bridgeerr.MalformedRequest,
				"authority %d carries a different mintAddress (%s != %s)", i, r.MintAddress, mintAddress)
		}
		pubkeyHexes[i] = r.DepositAddress
	}

	s.Store.Lock()
	defer s.Store.Unlock()

	for i, pubkey := range pubkeyHexes {
		used, err := s.Store.IsDepositPubkeyUsed(pubkey)
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("registrar: check used pubkey %d: %w", i, err)
		}
		if used {
			return envelope.Envelope{}, bridgeerr.New(bridgeerr.Duplicate,
				"deposit pubkey from authority %d has already been used", i)
		}
	}

	multisig, err := s.UTXO.CreateMultisig(s.AuthorityThresh, pubkeyHexes)
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("registrar: createmultisig: %w", err)
	}
	if err := s.UTXO.ImportAddress(multisig.RedeemScript); err != nil {
		return envelope.Envelope{}, fmt.Errorf("registrar: importaddress: %w", err)
	}

	now := s.now()
	for i, pubkey := range pubkeyHexes {
		if err := s.Store.InsertDepositPubkey(store.DepositPubkey{
			Pubkey:      pubkey,
			MintAddress: mintAddress,
			IssuedAt:    now,
		}); err != nil {
			return envelope.Envelope{}, fmt.Errorf("registrar: insert deposit pubkey %d: %w", i, err)
		}
	}
	if err := s.Store.InsertMintBinding(store.MintBinding{
		MintAddress:    mintAddress,
		DepositAddress: multisig.Address,
		RedeemScript:   multisig.RedeemScript,
		Pubkeys:        pubkeyHexes,
		ApprovedTax:    0,
		RegisteredAt:   now,
	}); err != nil {
		return envelope.Envelope{}, fmt.Errorf("registrar: insert mint binding: %w", err)
	}

	return envelope.Seal(map[string]any{
		"depositAddress": multisig.Address,
	}, s.Signer, s.Chain, s.SyncDelay)
}

// Now defaults to time.Now().Unix(); tests may override it.
var Now = defaultNow

func (s *Service) now() int64 { return Now() }
