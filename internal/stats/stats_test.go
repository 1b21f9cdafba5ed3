package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
)

type fakeUTXO struct {
	received map[string]amount.Satoshis
}

func (f *fakeUTXO) ListReceivedByAddress(int64) (map[string]amount.Satoshis, error) {
	return f.received, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(message []byte) ([]byte, error) { return []byte("sig"), nil }
func (fakeSigner) Verify(message []byte, sig []byte, address string) bool { return true }

type fakeChain struct{}

func (fakeChain) Tip() (int64, error)                 { return 100, nil }
func (fakeChain) BlockHash(height int64) (string, error) { return "hash", nil }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/stats-test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetComputesAndCaches(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertMintBinding(store.MintBinding{
		MintAddress: "0xabc", DepositAddress: "3Deposit", RedeemScript: "51ae",
		Pubkeys: []string{"02aa"}, ApprovedTax: 1 * amount.OneCoin, RegisteredAt: 1,
	}))

	calls := 0
	svc := &Service{
		Store: s,
		UTXO: &countingUTXO{fakeUTXO: fakeUTXO{received: map[string]amount.Satoshis{
			"3Deposit": 100 * amount.OneCoin,
		}}, calls: &calls},
		Config: Config{NodeVersion: "test-1", DepositConfirmations: 6},
		Signer: fakeSigner{},
		Chain:  fakeChain{},
	}

	env1, err := svc.Get()
	require.NoError(t, err)
	assert.NotEmpty(t, env1.Signature)

	env2, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, env1, env2)

	// Each Get() call reads confirmed + all totals; a cache hit must
	// not trigger a second round of those reads.
	assert.Equal(t, 2, calls)
}

type countingUTXO struct {
	fakeUTXO
	calls *int
}

func (c *countingUTXO) ListReceivedByAddress(confirmations int64) (map[string]amount.Satoshis, error) {
	*c.calls++
	return c.fakeUTXO.ListReceivedByAddress(confirmations)
}
