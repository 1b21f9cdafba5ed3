// Package stats implements the /stats endpoint (spec §4.10): a
// signed, cached snapshot of this authority's view of the bridge used
// by the operator CLI as its cross-authority health check - tabulate
// every node's snapshot and flag any column that disagrees.
//
// Grounded on gigawallet's ad-hoc mutex+timestamp caching style (no
// dedicated cache package exists anywhere in the pack); see DESIGN.md.
package stats

import (
	"sync"
	"time"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
)

// CacheTTL is how long a computed snapshot is served before being
// recomputed (spec §4.10 - "cached for ~10 minutes per node").
const CacheTTL = 10 * time.Minute

// PublicSettings mirrors this node's externally-relevant configuration
// (the values another authority or the operator CLI needs to sanity
// check agreement on).
type PublicSettings struct {
	AuthorityThreshold int
	AuthorityCount     int
	SyncDelay          int64
}

// DingoSettings carries the UTXO chain's network identity.
type DingoSettings struct {
	Network string
	ChainID string
}

// SmartContractSettings carries the EVM side's network identity.
type SmartContractSettings struct {
	ChainID         int64
	ContractAddress string
}

// DepositSummary is one bound deposit address's current view.
type DepositSummary struct {
	DepositAddress      string
	MintAddress         string
	ConfirmedBalance    amount.Satoshis
	UnconfirmedBalance  amount.Satoshis
	ApprovedTax         amount.Satoshis
}

// Snapshot is the full body of a /stats reply (spec §4.10).
type Snapshot struct {
	NodeVersion           string
	PublicSettings        PublicSettings
	DingoSettings         DingoSettings
	SmartContractSettings SmartContractSettings

	Deposits                 []DepositSummary
	AggregateConfirmed       amount.Satoshis
	AggregateUnconfirmed     amount.Satoshis
	AggregateApprovableTax   amount.Satoshis
	AggregateWithdrawalValue amount.Satoshis

	ChangeBalanceConfirmed   amount.Satoshis
	ChangeBalanceUnconfirmed amount.Satoshis

	GeneratedAt int64
}

// UTXOView is the subset of internal/utxoclient.Client a snapshot
// computation needs.
type UTXOView interface {
	ListReceivedByAddress(confirmations int64) (map[string]amount.Satoshis, error)
}

// Config is the static, rarely-changing half of a snapshot - settings
// that never need recomputing, only reporting.
type Config struct {
	NodeVersion           string
	Public                PublicSettings
	Dingo                 DingoSettings
	SmartContract         SmartContractSettings
	DepositConfirmations  int64
	ChangeAddresses       []string
}

// Service computes and caches this authority's stats snapshot.
type Service struct {
	Store  *store.Store
	UTXO   UTXOView
	Config Config
	Signer envelope.Signer
	Chain  envelope.ChainView
	// SyncDelay is the envelope time-binding threshold used to seal
	// the cached snapshot; the binding is refreshed every time the
	// underlying snapshot is recomputed, not on every cache hit.
	SyncDelay int64

	mu        sync.Mutex
	cached    envelope.Envelope
	cachedAt  time.Time
}

// now is overridable by tests.
var now = time.Now

// Get returns the cached snapshot envelope, recomputing it first if
// the cache has expired (spec §4.10, §5 - "stats lock ... to avoid
// stampedes").
func (s *Service) Get() (envelope.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now().Sub(s.cachedAt) < CacheTTL && s.cached.Signature != "" {
		return s.cached, nil
	}

	snap, err := s.compute()
	if err != nil {
		return envelope.Envelope{}, err
	}

	env, err := envelope.Seal(snapshotFields(snap), s.Signer, s.Chain, s.SyncDelay)
	if err != nil {
		return envelope.Envelope{}, err
	}

	s.cached = env
	s.cachedAt = now()
	return env, nil
}

func (s *Service) compute() (Snapshot, error) {
	bindings, err := s.Store.ListMintBindings()
	if err != nil {
		return Snapshot{}, err
	}

	confirmed, err := s.UTXO.ListReceivedByAddress(s.Config.DepositConfirmations)
	if err != nil {
		return Snapshot{}, err
	}
	all, err := s.UTXO.ListReceivedByAddress(0)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		NodeVersion:           s.Config.NodeVersion,
		PublicSettings:        s.Config.Public,
		DingoSettings:         s.Config.Dingo,
		SmartContractSettings: s.Config.SmartContract,
		GeneratedAt:           now().Unix(),
	}

	for _, b := range bindings {
		c := confirmed[b.DepositAddress]
		u := all[b.DepositAddress] - c
		snap.Deposits = append(snap.Deposits, DepositSummary{
			DepositAddress:     b.DepositAddress,
			MintAddress:        b.MintAddress,
			ConfirmedBalance:   c,
			UnconfirmedBalance: u,
			ApprovedTax:        b.ApprovedTax,
		})
		snap.AggregateConfirmed += c
		snap.AggregateUnconfirmed += u
		if amount.MeetsTax(c) {
			snap.AggregateApprovableTax += amount.Tax(c) - b.ApprovedTax
		}
	}

	pending, err := s.Store.ListPendingWithdrawals()
	if err != nil {
		return Snapshot{}, err
	}
	for _, w := range pending {
		snap.AggregateWithdrawalValue += w.RequestedValue
	}

	for _, addr := range s.Config.ChangeAddresses {
		snap.ChangeBalanceConfirmed += confirmed[addr]
		snap.ChangeBalanceUnconfirmed += all[addr] - confirmed[addr]
	}

	return snap, nil
}

func snapshotFields(s Snapshot) map[string]any {
	return map[string]any{
		"nodeVersion":           s.NodeVersion,
		"publicSettings":        s.PublicSettings,
		"dingoSettings":         s.DingoSettings,
		"smartContractSettings": s.SmartContractSettings,
		"deposits":              s.Deposits,
		"aggregateConfirmed":    s.AggregateConfirmed,
		"aggregateUnconfirmed":  s.AggregateUnconfirmed,
		"aggregateApprovableTax": s.AggregateApprovableTax,
		"aggregateWithdrawalValue": s.AggregateWithdrawalValue,
		"changeBalanceConfirmed":   s.ChangeBalanceConfirmed,
		"changeBalanceUnconfirmed": s.ChangeBalanceUnconfirmed,
		"generatedAt":              s.GeneratedAt,
	}
}
