package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/app"
	"github.com/dingo-bridge/dingo-bridge-node/internal/burncache"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/mintauth"
	"github.com/dingo-bridge/dingo-bridge-node/internal/payout"
	"github.com/dingo-bridge/dingo-bridge-node/internal/registrar"
	"github.com/dingo-bridge/dingo-bridge-node/internal/stats"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/withdrawal"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

type fakeSigner struct{}

func (fakeSigner) Sign(message []byte) ([]byte, error)                    { return []byte("sig"), nil }
func (fakeSigner) Verify(message []byte, sig []byte, address string) bool { return true }

type fakeChain struct{}

func (fakeChain) Tip() (int64, error)                    { return 100, nil }
func (fakeChain) BlockHash(height int64) (string, error) { return "hash", nil }

// burnDestination is a well-formed P2PKH address on doge.MainChain so
// withdrawal.Service.Submit's address validation passes.
var burnDestination = doge.Hash160toAddress(make([]byte, 20), doge.MainChain.P2PKHPrefix())

type fakeBurns struct{}

func (fakeBurns) BurnDestinationAndAmount(burnAddress string, burnIndex int64) (string, amount.Satoshis, error) {
	return string(burnDestination), 100 * amount.OneCoin, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/httpapi-test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	s := openTestStore(t)
	cache, err := burncache.Open(t.TempDir() + "/httpapi-test-burncache.db")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	cfg := app.Config{
		AuthorityNodes: []app.AuthorityNodeConfig{
			{Hostname: "a0", Port: 8443, WalletAddress: "nAuth0"},
		},
		AuthorityThreshold: 1,
		PayoutCoordinator:  0,
		PublicBind:         "127.0.0.1",
		PublicPort:         "8443",
		AdminPort:          "8444",
	}

	a := NewAPI(cfg, &registrar.Service{Store: s, Signer: fakeSigner{}, Chain: fakeChain{}},
		&withdrawal.Service{Store: s, Burns: fakeBurns{}, Chain: &doge.MainChain, Signer: fakeSigner{}, ChainView: fakeChain{}},
		&mintauth.Service{Store: s},
		&payout.Engine{Store: s, Burns: fakeBurns{}},
		nil,
		&stats.Service{Store: s, UTXO: noopUTXO{}, Signer: fakeSigner{}, Chain: fakeChain{}},
		s, cache, nil, fakeSigner{}, fakeChain{})
	return a
}

type noopUTXO struct{}

func (noopUTXO) ListReceivedByAddress(int64) (map[string]amount.Satoshis, error) {
	return map[string]amount.Satoshis{}, nil
}

func doPost(t *testing.T, ts *httptest.Server, path string, body map[string]any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return res
}

func TestPing(t *testing.T) {
	a := newTestAPI(t)
	pubMux, _ := a.createRouters()
	ts := httptest.NewServer(pubMux)
	defer ts.Close()

	res := doPost(t, ts, "/ping", map[string]any{})
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var env envelope.Envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	var data struct {
		Timestamp int64 `json:"timestamp"`
	}
	require.NoError(t, env.Unmarshal(&data))
	assert.NotZero(t, data.Timestamp)
}

func TestSubmitWithdrawal(t *testing.T) {
	a := newTestAPI(t)
	pubMux, _ := a.createRouters()
	ts := httptest.NewServer(pubMux)
	defer ts.Close()

	res := doPost(t, ts, "/submitWithdrawal", map[string]any{"burnAddress": "bBurn", "burnIndex": 0})
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	w, err := a.Store.GetWithdrawal("bBurn", 0)
	require.NoError(t, err)
	assert.False(t, w.Approved())

	// Resubmitting the same burn is rejected as a duplicate.
	res2 := doPost(t, ts, "/submitWithdrawal", map[string]any{"burnAddress": "bBurn", "burnIndex": 0})
	defer res2.Body.Close()
	assert.Equal(t, http.StatusConflict, res2.StatusCode)
}

func TestComputePendingPayoutsRequiresAuthorityEnvelope(t *testing.T) {
	a := newTestAPI(t)
	pubMux, _ := a.createRouters()
	ts := httptest.NewServer(pubMux)
	defer ts.Close()

	// A bare (non-enveloped) body carries no envelope data or signature,
	// fails authority-envelope verification, and is rejected before any
	// business logic runs.
	res := doPost(t, ts, "/computePendingPayouts", map[string]any{"processDeposits": true})
	defer res.Body.Close()
	assert.NotEqual(t, http.StatusOK, res.StatusCode)
}
