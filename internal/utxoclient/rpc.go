// Package utxoclient wraps the external UTXO daemon's JSON-RPC surface
// (spec §4.2): address creation, multisig derivation, unspent/received
// queries, and raw-transaction build/decode/verify/sign/broadcast.
//
// Grounded directly on gigawallet's pkg/core/rpc.go request/response
// JSON-RPC-over-HTTP plumbing (Basic-Auth POST, sequential request
// IDs), generalized from Dogecoin-Core-specific method names to the
// full surface this bridge needs.
package utxoclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

// Client talks to the UTXO daemon's JSON-RPC interface.
type Client struct {
	url   string
	user  string
	pass  string
	chain *doge.ChainParams
	id    uint64
}

// NewClient constructs a Client bound to one daemon endpoint.
func NewClient(host string, port int, user, pass string, chain *doge.ChainParams) *Client {
	return &Client{
		url:   fmt.Sprintf("http://%s:%d", host, port),
		user:  user,
		pass:  pass,
		chain: chain,
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	Id     uint64 `json:"id"`
}

type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  any              `json:"error"`
}

func (c *Client) request(method string, params []any, result any) error {
	c.id++
	body := rpcRequest{Method: method, Params: params, Id: c.id}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("utxoclient: marshal request: %w", err)
	}
	req, err := http.NewRequest("POST", c.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("utxoclient: build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("utxoclient: read response: %w", err)
	}
	if res.StatusCode != 200 {
		return fmt.Errorf("%w: status %s", ErrUnreachable, res.Status)
	}
	var rpcres rpcResponse
	if err := json.Unmarshal(resBytes, &rpcres); err != nil {
		return fmt.Errorf("utxoclient: unmarshal response: %w", err)
	}
	if rpcres.Id != body.Id {
		return fmt.Errorf("utxoclient: mismatched request id: %d vs %d", rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		return fmt.Errorf("utxoclient: rpc error: %v", rpcres.Error)
	}
	if rpcres.Result == nil {
		return fmt.Errorf("utxoclient: missing result")
	}
	return json.Unmarshal(*rpcres.Result, result)
}

// GetNewAddress asks the daemon's wallet for a fresh P2PKH address.
func (c *Client) GetNewAddress() (string, error) {
	var addr string
	err := c.request("getnewaddress", []any{}, &addr)
	return addr, err
}

// ValidatedAddress is the subset of validateaddress's response this
// client needs: whether the address is well-formed, and (for an
// address the wallet holds the key for) its compressed public key.
type ValidatedAddress struct {
	IsValid bool
	Pubkey  string // hex-encoded, empty if the daemon has no key for this address
}

// ValidateAddress reports whether addr is a well-formed address for
// this chain's network, and returns its public key if the daemon's
// wallet holds one for it.
func (c *Client) ValidateAddress(addr string) (ValidatedAddress, error) {
	var res struct {
		IsValid bool   `json:"isvalid"`
		Pubkey  string `json:"pubkey"`
	}
	if err := c.request("validateaddress", []any{addr}, &res); err != nil {
		return ValidatedAddress{}, err
	}
	return ValidatedAddress{IsValid: res.IsValid, Pubkey: res.Pubkey}, nil
}

// MultisigResult is the output of createMultisig.
type MultisigResult struct {
	Address      string `json:"address"`
	RedeemScript string `json:"redeemScript"`
}

// CreateMultisig derives a k-of-n multisig address from pubkeys, which
// MUST already be in the fixed authority-node order (spec §4.2, §4.6,
// §9 - "the createMultisig inputs are in the same order"). Every
// authority calling this with the same (k, pubkeys) MUST get the same
// address back.
func (c *Client) CreateMultisig(k int, pubkeysHex []string) (MultisigResult, error) {
	var res MultisigResult
	err := c.request("createmultisig", []any{k, pubkeysHex}, &res)
	return res, err
}

// ImportAddress tells the daemon to watch redeemScript's P2SH address
// so it can later sign spends from it.
func (c *Client) ImportAddress(redeemScriptHex string) error {
	var discard any
	return c.request("importaddress", []any{redeemScriptHex, "", true}, &discard)
}

// ListReceivedByAddress returns confirmed-received totals per address
// with at least confirmations confirmations.
func (c *Client) ListReceivedByAddress(confirmations int64) (map[string]amount.Satoshis, error) {
	var rows []struct {
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
	if err := c.request("listreceivedbyaddress", []any{confirmations, false, true}, &rows); err != nil {
		return nil, err
	}
	result := make(map[string]amount.Satoshis, len(rows))
	for _, r := range rows {
		sat, err := amount.ParseDecimalString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("utxoclient: listreceivedbyaddress: %w", err)
		}
		result[r.Address] = sat
	}
	return result, nil
}

// UTXO is one unspent transaction output.
type UTXO struct {
	TxID    string          `json:"txid"`
	Vout    int             `json:"vout"`
	Address string          `json:"address"`
	Amount  amount.Satoshis `json:"amount"`
}

// ListUnspent returns confirmed UTXOs at addresses (or all wallet
// addresses if addresses is empty).
func (c *Client) ListUnspent(confirmations int64, addresses []string) ([]UTXO, error) {
	var rows []struct {
		TxID    string `json:"txid"`
		Vout    int    `json:"vout"`
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
	params := []any{confirmations, 9999999}
	if len(addresses) > 0 {
		params = append(params, addresses)
	}
	if err := c.request("listunspent", params, &rows); err != nil {
		return nil, err
	}
	result := make([]UTXO, 0, len(rows))
	for _, r := range rows {
		sat, err := amount.ParseDecimalString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("utxoclient: listunspent: %w", err)
		}
		result = append(result, UTXO{TxID: r.TxID, Vout: r.Vout, Address: r.Address, Amount: sat})
	}
	return result, nil
}

// CreateRawTransaction builds an unsigned raw transaction hex spending
// inputs and paying vouts (address -> decimal amount string).
func (c *Client) CreateRawTransaction(inputs []UTXO, vouts map[string]string) (string, error) {
	type txIn struct {
		TxID string `json:"txid"`
		Vout int    `json:"vout"`
	}
	ins := make([]txIn, len(inputs))
	for i, u := range inputs {
		ins[i] = txIn{TxID: u.TxID, Vout: u.Vout}
	}
	var hex string
	err := c.request("createrawtransaction", []any{ins, vouts}, &hex)
	return hex, err
}

// DecodedTxIn/DecodedTxOut/DecodedTx mirror decoderawtransaction's shape.
type DecodedTxIn struct {
	TxID string `json:"txid"`
	Vout int    `json:"vout"`
}
type DecodedTxOut struct {
	Value        string   `json:"value"`
	ScriptPubKey struct {
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}
type DecodedTx struct {
	TxID string         `json:"txid"`
	Vin  []DecodedTxIn  `json:"vin"`
	Vout []DecodedTxOut `json:"vout"`
}

// DecodeRawTransaction asks the daemon to decode raw transaction hex.
func (c *Client) DecodeRawTransaction(hex string) (DecodedTx, error) {
	var tx DecodedTx
	err := c.request("decoderawtransaction", []any{hex}, &tx)
	return tx, err
}

// SignRawTransactionResult is the output of signrawtransaction.
type SignRawTransactionResult struct {
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

// SignRawTransaction co-signs hex with this daemon's wallet (for a
// multisig input, redeemScriptHex supplies the script being satisfied).
func (c *Client) SignRawTransaction(hex string, redeemScriptsHex []string) (SignRawTransactionResult, error) {
	var res SignRawTransactionResult
	prevTxs := make([]map[string]any, 0, len(redeemScriptsHex))
	for _, rs := range redeemScriptsHex {
		prevTxs = append(prevTxs, map[string]any{"redeemScript": rs})
	}
	err := c.request("signrawtransaction", []any{hex, prevTxs}, &res)
	return res, err
}

// SendRawTransaction broadcasts hex and returns the resulting txid.
func (c *Client) SendRawTransaction(hex string) (string, error) {
	raw, err := doge.HexDecode(hex)
	if err != nil {
		return "", fmt.Errorf("utxoclient: sendrawtransaction: bad hex: %w", err)
	}
	var txid string
	if err := c.request("sendrawtransaction", []any{hex}, &txid); err != nil {
		return "", err
	}
	expected := doge.HexEncodeReversed(doge.DoubleSha256(raw))
	if txid != expected {
		return "", fmt.Errorf("utxoclient: sendrawtransaction: daemon returned unexpected txid %s (expected %s)", txid, expected)
	}
	return txid, nil
}

// GetBlockchainInfo reports the daemon's current chain height.
func (c *Client) GetBlockchainInfo() (int64, error) {
	var res struct {
		Blocks int64 `json:"blocks"`
	}
	err := c.request("getblockchaininfo", []any{}, &res)
	return res.Blocks, err
}

// GetBlockHash returns the hash of the block at height.
func (c *Client) GetBlockHash(height int64) (string, error) {
	var hash string
	err := c.request("getblockhash", []any{height}, &hash)
	return hash, err
}

// Tip implements envelope.ChainView.
func (c *Client) Tip() (int64, error) {
	return c.GetBlockchainInfo()
}

// BlockHash implements envelope.ChainView.
func (c *Client) BlockHash(height int64) (string, error) {
	return c.GetBlockHash(height)
}
