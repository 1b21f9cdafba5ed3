package withdrawal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

type fakeSigner struct{}

func (fakeSigner) Sign(message []byte) ([]byte, error)                    { return []byte("sig"), nil }
func (fakeSigner) Verify(message []byte, sig []byte, address string) bool { return true }

type fakeChain struct{}

func (fakeChain) Tip() (int64, error)                    { return 100, nil }
func (fakeChain) BlockHash(height int64) (string, error) { return "hash", nil }

var burnDestination = doge.Hash160toAddress(make([]byte, 20), doge.MainChain.P2PKHPrefix())

type fakeBurns struct {
	destination string
	value       amount.Satoshis
	err         error
}

func (f fakeBurns) BurnDestinationAndAmount(burnAddress string, burnIndex int64) (string, amount.Satoshis, error) {
	return f.destination, f.value, f.err
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/withdrawal-test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newService(t *testing.T, burns BurnLookup) *Service {
	return &Service{
		Store:     openTestStore(t),
		Burns:     burns,
		Chain:     &doge.MainChain,
		Signer:    fakeSigner{},
		ChainView: fakeChain{},
		SyncDelay: 6,
	}
}

func TestSubmitRecordsPendingWithdrawal(t *testing.T) {
	s := newService(t, fakeBurns{destination: string(burnDestination), value: 100 * amount.OneCoin})

	env, err := s.Submit("bBurn", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, env.Signature)

	w, err := s.Store.GetWithdrawal("bBurn", 0)
	require.NoError(t, err)
	assert.False(t, w.Approved())
	assert.Equal(t, 100*amount.OneCoin, w.RequestedValue)
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	s := newService(t, fakeBurns{destination: string(burnDestination), value: 100 * amount.OneCoin})

	_, err := s.Submit("bBurn", 0)
	require.NoError(t, err)

	_, err = s.Submit("bBurn", 0)
	require.Error(t, err)
	var info *bridgeerr.ErrorInfo
	require.ErrorAs(t, err, &info)
	assert.Equal(t, bridgeerr.Duplicate, info.Code)
}

func TestSubmitRejectsInvalidBurnDestination(t *testing.T) {
	s := newService(t, fakeBurns{destination: "not-a-real-address", value: 100 * amount.OneCoin})

	_, err := s.Submit("bBurn", 0)
	require.Error(t, err)
	var info *bridgeerr.ErrorInfo
	require.ErrorAs(t, err, &info)
	assert.Equal(t, bridgeerr.MalformedRequest, info.Code)
}

func TestSubmitRejectsAmountBelowFlatFee(t *testing.T) {
	s := newService(t, fakeBurns{destination: string(burnDestination), value: 1})

	_, err := s.Submit("bBurn", 0)
	require.Error(t, err)
	var info *bridgeerr.ErrorInfo
	require.ErrorAs(t, err, &info)
	assert.Equal(t, bridgeerr.AmountTooSmall, info.Code)
}
