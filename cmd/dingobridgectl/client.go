package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

const requestTimeout = 10 * time.Second

// postJSON posts a plain (unsigned) JSON body to a public endpoint and
// decodes the response's envelope data into out. Grounded on
// cmd/gigawallet/commands.go's postURL, generalized to also read back
// a JSON response body instead of only checking the status code.
func postJSON(url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: requestTimeout}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s: %s", url, res.Status, string(raw))
	}
	if out == nil {
		return nil
	}
	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env.Unmarshal(out)
}

// newOperatorSigner builds a WalletSigner from the operator's own key
// so authority-only commands can seal a request the target node will
// accept via envelope.VerifyAnyOf. Grounded on internal/app's
// UTXO-backed ChainView wiring in cmd/dingo-bridge-node/server.go -
// an operator running this CLI is assumed to have the same daemon RPC
// reachable, since Tip/BlockHash are read-only.
func newOperatorSigner(privKeyHex, rpcHost string, rpcPort int, rpcUser, rpcPass string) (*envelope.WalletSigner, envelope.ChainView, error) {
	raw, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding --key: %w", err)
	}
	chain := doge.ChainFromTestNetFlag(rpcPort != 22555)
	signer, err := envelope.NewWalletSigner(raw, chain)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing signer: %w", err)
	}
	view := utxoclient.NewClient(rpcHost, rpcPort, rpcUser, rpcPass, chain)
	return signer, view, nil
}

// postSigned seals body as an envelope with the operator's key and
// posts it to an authority-only endpoint.
func postSigned(url string, body map[string]any, cfg *operatorConfig, out any) error {
	signer, chain, err := newOperatorSigner(cfg.privKeyHex, cfg.rpcHost, cfg.rpcPort, cfg.rpcUser, cfg.rpcPass)
	if err != nil {
		return err
	}
	env, err := envelope.Seal(body, signer, chain, 3)
	if err != nil {
		return fmt.Errorf("sealing request: %w", err)
	}
	return postJSON(url, env, out)
}
