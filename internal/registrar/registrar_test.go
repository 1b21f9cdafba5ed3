package registrar

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

// addressSigner is an envelope.Signer that verifies only signatures it
// produced itself for the given address - enough to let this package's
// tests forge per-authority envelopes without a real wallet key.
type addressSigner struct{ address string }

func (s addressSigner) Sign(message []byte) ([]byte, error) {
	return append([]byte("sig:"+s.address+":"), message...), nil
}

func (s addressSigner) Verify(message []byte, sig []byte, address string) bool {
	if address != s.address {
		return false
	}
	want, err := s.Sign(message)
	return err == nil && string(sig) == string(want)
}

// multiSigner lets one process sign as any of several fixed authority
// addresses, picking the matching identity on Verify.
type multiSigner struct {
	self       string
	identities []string
}

func (s multiSigner) Sign(message []byte) ([]byte, error) {
	return addressSigner{address: s.self}.Sign(message)
}

func (s multiSigner) Verify(message []byte, sig []byte, address string) bool {
	for _, id := range s.identities {
		if id == address && (addressSigner{address: id}).Verify(message, sig, address) {
			return true
		}
	}
	return false
}

type fakeChain struct{}

func (fakeChain) Tip() (int64, error)                    { return 100, nil }
func (fakeChain) BlockHash(height int64) (string, error) { return "hash", nil }

// fakeDaemon serves just enough JSON-RPC to drive the registration
// protocol: getnewaddress/validateaddress for phase 1, and
// createmultisig/importaddress for phase 2. Grounded on
// internal/utxoclient/rpc.go's request/response envelope.
type fakeDaemon struct {
	nextPubkey int32 // atomically incremented, one fresh pubkey per getnewaddress call
}

func (d *fakeDaemon) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Params []any  `json:"params"`
		Id     uint64 `json:"id"`
	}
	mustNoErr(json.NewDecoder(r.Body).Decode(&req))

	var result any
	switch req.Method {
	case "getnewaddress":
		n := atomic.AddInt32(&d.nextPubkey, 1)
		result = fmt.Sprintf("addr-%d", n)
	case "validateaddress":
		addr := req.Params[0].(string)
		result = map[string]any{"isvalid": true, "pubkey": "pub-" + addr}
	case "createmultisig":
		pubkeys := req.Params[1].([]any)
		joined := ""
		for _, p := range pubkeys {
			joined += p.(string) + ","
		}
		result = utxoclient.MultisigResult{
			Address:      "multisig-" + joined,
			RedeemScript: "script-" + joined,
		}
	case "importaddress":
		result = nil
	default:
		panic("fakeDaemon: unexpected method " + req.Method)
	}

	body, err := json.Marshal(result)
	mustNoErr(err)
	raw := json.RawMessage(body)
	w.Header().Set("Content-Type", "application/json")
	mustNoErr(json.NewEncoder(w).Encode(struct {
		Id     uint64           `json:"id"`
		Result *json.RawMessage `json:"result"`
	}{Id: req.Id, Result: &raw}))
}

func mustNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func newFakeUTXOClient(t *testing.T) *utxoclient.Client {
	t.Helper()
	d := &fakeDaemon{}
	ts := httptest.NewServer(http.HandlerFunc(d.handler))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return utxoclient.NewClient(host, port, "user", "pass", &doge.MainChain)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/registrar-test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// register drives phase 1 against every authority in svcs, then phase
// 2 against svcs[0], mirroring how a client fans out
// generateDepositAddress then forwards every envelope to
// registerMintDepositAddress.
func register(t *testing.T, svcs []*Service, mintAddress string) (envelope.Envelope, error) {
	t.Helper()
	envs := make([]envelope.Envelope, len(svcs))
	for i, svc := range svcs {
		env, err := svc.GenerateDepositAddress(mintAddress)
		require.NoError(t, err)
		envs[i] = env
	}
	return svcs[0].RegisterMintDepositAddress(envs)
}

func newAuthorities(addresses []string) []Authority {
	out := make([]Authority, len(addresses))
	for i, a := range addresses {
		out[i] = Authority{WalletAddress: a}
	}
	return out
}

func TestRegisterMintDepositAddressSucceeds(t *testing.T) {
	addresses := []string{"nAuth0", "nAuth1"}
	authorities := newAuthorities(addresses)
	// One fake daemon for every authority, so each getnewaddress call
	// yields a distinct pubkey as separate real wallets would.
	utxo := newFakeUTXOClient(t)
	svcs := make([]*Service, len(addresses))
	for i, addr := range addresses {
		svcs[i] = &Service{
			Store:           openTestStore(t),
			UTXO:            utxo,
			Signer:          multiSigner{self: addr, identities: addresses},
			Chain:           fakeChain{},
			SyncDelay:       6,
			Authorities:     authorities,
			AuthorityThresh: 2,
		}
	}

	env, err := register(t, svcs, "0xabc")
	require.NoError(t, err)

	var data struct {
		DepositAddress string `json:"depositAddress"`
	}
	require.NoError(t, env.Unmarshal(&data))
	assert.NotEmpty(t, data.DepositAddress)

	binding, err := svcs[0].Store.GetMintBindingByDepositAddress(data.DepositAddress)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", binding.MintAddress)
}

// TestRegisterMintDepositAddressRejectsReusedPubkey covers scenario 6:
// an already-bound deposit pubkey must not be accepted into a second
// mint-address registration, even for a different mint address.
func TestRegisterMintDepositAddressRejectsReusedPubkey(t *testing.T) {
	addresses := []string{"nAuth0", "nAuth1"}
	authorities := newAuthorities(addresses)
	sharedStore := openTestStore(t)
	utxo := newFakeUTXOClient(t)

	svcs := make([]*Service, len(addresses))
	for i, addr := range addresses {
		svcs[i] = &Service{
			Store:           sharedStore,
			UTXO:            utxo,
			Signer:          multiSigner{self: addr, identities: addresses},
			Chain:           fakeChain{},
			SyncDelay:       6,
			Authorities:     authorities,
			AuthorityThresh: 2,
		}
	}

	firstEnvs := make([]envelope.Envelope, len(svcs))
	for i, svc := range svcs {
		env, err := svc.GenerateDepositAddress("0xabc")
		require.NoError(t, err)
		firstEnvs[i] = env
	}
	_, err := svcs[0].RegisterMintDepositAddress(firstEnvs)
	require.NoError(t, err)

	// Replaying the exact same phase-1 envelopes - same deposit pubkeys,
	// already bound to a mint address - must be rejected even though the
	// envelopes themselves are individually well-formed and correctly
	// signed.
	_, err = svcs[0].RegisterMintDepositAddress(firstEnvs)
	require.Error(t, err)
	var info *bridgeerr.ErrorInfo
	require.ErrorAs(t, err, &info)
	assert.Equal(t, bridgeerr.Duplicate, info.Code)
}
