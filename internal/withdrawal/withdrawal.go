// Package withdrawal implements submitWithdrawal (spec §4.7): the
// first, non-authorizing step of the burn-to-payout lifecycle, which
// only records that a burn has been seen and passes a sanity check.
// Approval and payout happen later in internal/payout.
package withdrawal

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

// BurnLookup resolves the on-chain burn event recorded at
// (burnAddress, burnIndex): its destination UTXO address and its
// value. Implemented by internal/evmclient against the live contract
// (with internal/burncache backing finalized reads).
type BurnLookup interface {
	BurnDestinationAndAmount(burnAddress string, burnIndex int64) (destination string, value amount.Satoshis, err error)
}

// Service drives submitWithdrawal for one authority node.
type Service struct {
	Store     *store.Store
	Burns     BurnLookup
	Chain     *doge.ChainParams
	Signer    envelope.Signer
	ChainView envelope.ChainView
	SyncDelay int64
}

// Submit records (burnAddress, burnIndex) as a pending withdrawal
// (spec §4.7).
func (s *Service) Submit(burnAddress string, burnIndex int64) (envelope.Envelope, error) {
	s.Store.Lock()
	defer s.Store.Unlock()

	if _, err := s.Store.GetWithdrawal(burnAddress, burnIndex); err == nil {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.Duplicate,
			"withdrawal %s:%d already submitted", burnAddress, burnIndex)
	}

	destination, value, err := s.Burns.BurnDestinationAndAmount(burnAddress, burnIndex)
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("withdrawal: burn lookup: %w", err)
	}
	if !doge.ValidateP2PKH(doge.Address(destination), s.Chain) && !doge.ValidateP2SH(doge.Address(destination), s.Chain) {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.MalformedRequest,
			"burn destination %q is not a valid address on this chain", destination)
	}
	if !amount.MeetsTax(value) {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.AmountTooSmall,
			"burn amount %d does not meet the flat fee", value)
	}

	if err := s.Store.InsertWithdrawal(store.Withdrawal{
		BurnAddress:    burnAddress,
		BurnIndex:      burnIndex,
		RequestedValue: value,
		ObservedAt:     nowFn(),
	}); err != nil {
		return envelope.Envelope{}, fmt.Errorf("withdrawal: insert: %w", err)
	}

	return envelope.Seal(map[string]any{
		"burnAddress": burnAddress,
		"burnIndex":   burnIndex,
		"accepted":    true,
	}, s.Signer, s.ChainView, s.SyncDelay)
}

// nowFn is a package-level hook so tests can freeze time.
var nowFn = defaultNow
