package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/payout"
)

// requestTimeout bounds every outbound peer call (spec §5 - "a 5s
// timeout threaded through every outbound RPC/HTTP client call").
const requestTimeout = 5 * time.Second

// PeerClient is the coordinator's outbound view of one other authority
// (internal/payout.PeerClient), built the same Basic-Auth-free
// POST-JSON way internal/utxoclient.Client talks to the daemon, since
// authority-to-authority calls authenticate via the envelope signature
// rather than transport-level credentials.
type PeerClient struct {
	BaseURL string
	Signer  envelope.Signer
	Chain   envelope.ChainView
	// SyncDelay is the envelope time-binding threshold used to seal
	// every outbound request envelope.
	SyncDelay int64
}

var _ payout.PeerClient = (*PeerClient)(nil)

func (p *PeerClient) post(path string, body map[string]any, out any) error {
	env, err := envelope.Seal(body, p.Signer, p.Chain, p.SyncDelay)
	if err != nil {
		return fmt.Errorf("httpapi: peer %s: seal request: %w", path, err)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("httpapi: peer %s: marshal: %w", path, err)
	}
	req, err := http.NewRequest("POST", p.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("httpapi: peer %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: requestTimeout}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: peer %s: %w", path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("httpapi: peer %s: read response: %w", path, err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("httpapi: peer %s: status %s: %s", path, res.Status, string(raw))
	}
	var reply envelope.Envelope
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("httpapi: peer %s: unmarshal envelope: %w", path, err)
	}
	if out != nil {
		if err := reply.Unmarshal(out); err != nil {
			return fmt.Errorf("httpapi: peer %s: unmarshal data: %w", path, err)
		}
	}
	return nil
}

// ComputePendingPayouts calls the peer's authority-only endpoint.
func (p *PeerClient) ComputePendingPayouts(processDeposits, processWithdrawals bool) (payout.PendingPayouts, error) {
	var out payout.PendingPayouts
	err := p.post("/computePendingPayouts", map[string]any{
		"processDeposits":    processDeposits,
		"processWithdrawals": processWithdrawals,
	}, &out)
	return out, err
}

// ComputeUnspent calls the peer's authority-only endpoint.
func (p *PeerClient) ComputeUnspent() ([]payout.UnspentOutput, error) {
	var out struct {
		Unspent []payout.UnspentOutput `json:"unspent"`
	}
	err := p.post("/computeUnspent", map[string]any{}, &out)
	return out.Unspent, err
}

func (p *PeerClient) approve(path string, req payout.ApprovalRequest) (string, bool, error) {
	var out struct {
		ApprovalChain string `json:"approvalChain"`
		Complete      bool   `json:"complete"`
	}
	err := p.post(path, map[string]any{
		"depositTaxPayouts":    req.DepositTaxPayouts,
		"withdrawalPayouts":    req.WithdrawalPayouts,
		"withdrawalTaxPayouts": req.WithdrawalTaxPayouts,
		"unspent":              req.Unspent,
		"approvalChain":        req.ApprovalChain,
	}, &out)
	return out.ApprovalChain, out.Complete, err
}

// ApprovePayouts calls the peer's coordinator-only endpoint.
func (p *PeerClient) ApprovePayouts(req payout.ApprovalRequest) (string, bool, error) {
	return p.approve("/approvePayouts", req)
}

// ApprovePayoutsTest calls the peer's coordinator-only test endpoint.
func (p *PeerClient) ApprovePayoutsTest(req payout.ApprovalRequest) (string, bool, error) {
	return p.approve("/approvePayoutsTest", req)
}
