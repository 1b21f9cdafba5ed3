package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
)

// decodeJSON decodes the request body into v, sending a MalformedRequest
// response and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body (expecting JSON): %v", err))
		return false
	}
	return true
}

// ping answers the liveness check with a sealed timestamp.
func (a *API) ping(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	env, err := envelope.Seal(map[string]any{"timestamp": nowUnix()}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "ping", err)
		return
	}
	sendResponse(w, env)
}

type generateDepositAddressRequest struct {
	MintAddress string `json:"mintAddress"`
}

func (a *API) generateDepositAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req generateDepositAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MintAddress == "" {
		sendBadRequest(w, "missing mintAddress")
		return
	}
	env, err := a.Registrar.GenerateDepositAddress(req.MintAddress)
	if err != nil {
		sendError(w, "generateDepositAddress", err)
		return
	}
	sendResponse(w, env)
}

type registerMintDepositAddressRequest struct {
	GenerateDepositAddressResponses []envelope.Envelope `json:"generateDepositAddressResponses"`
}

func (a *API) registerMintDepositAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerMintDepositAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	env, err := a.Registrar.RegisterMintDepositAddress(req.GenerateDepositAddressResponses)
	if err != nil {
		sendError(w, "registerMintDepositAddress", err)
		return
	}
	sendResponse(w, env)
}

type mintAddressRequest struct {
	MintAddress string `json:"mintAddress"`
}

func (a *API) queryMintBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req mintAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MintAddress == "" {
		sendBadRequest(w, "missing mintAddress")
		return
	}
	balance, err := a.MintAuth.QueryMintBalance(req.MintAddress)
	if err != nil {
		sendError(w, "queryMintBalance", err)
		return
	}
	binding, err := a.Store.GetMintBindingByMintAddress(req.MintAddress)
	if err != nil {
		sendError(w, "queryMintBalance", err)
		return
	}
	env, err := envelope.Seal(map[string]any{
		"mintNonce":          balance.MintNonce,
		"mintAddress":        req.MintAddress,
		"depositAddress":     binding.DepositAddress,
		"depositedAmount":    balance.MintableConfirmed,
		"unconfirmedAmount":  balance.MintableUnconfirmed,
		"mintedAmount":       balance.MintedAmount,
	}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "queryMintBalance", err)
		return
	}
	sendResponse(w, env)
}

func (a *API) createMintTransaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req mintAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MintAddress == "" {
		sendBadRequest(w, "missing mintAddress")
		return
	}
	balance, err := a.MintAuth.QueryMintBalance(req.MintAddress)
	if err != nil {
		sendError(w, "createMintTransaction", err)
		return
	}
	binding, err := a.Store.GetMintBindingByMintAddress(req.MintAddress)
	if err != nil {
		sendError(w, "createMintTransaction", err)
		return
	}
	sig, auth, err := a.MintAuth.CreateMintTransaction(req.MintAddress, balance.MintedAmount)
	if err != nil {
		sendError(w, "createMintTransaction", err)
		return
	}
	v, rr, s, err := splitSignature(sig)
	if err != nil {
		sendError(w, "createMintTransaction", err)
		return
	}
	env, err := envelope.Seal(map[string]any{
		"mintAddress":    req.MintAddress,
		"mintNonce":      auth.Nonce,
		"depositAddress": binding.DepositAddress,
		"mintAmount":     auth.Amount,
		"onContractVerification": map[string]any{
			"v": v, "r": rr, "s": s,
		},
	}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "createMintTransaction", err)
		return
	}
	sendResponse(w, env)
}

// splitSignature decomposes a 65-byte [R || S || V] secp256k1
// signature into the (v, r, s) triple the mint contract's
// ecrecover-based verification expects.
func splitSignature(sig []byte) (v int, r, s string, err error) {
	if len(sig) != 65 {
		return 0, "", "", fmt.Errorf("httpapi: unexpected signature length %d", len(sig))
	}
	return int(sig[64]), fmt.Sprintf("0x%x", sig[:32]), fmt.Sprintf("0x%x", sig[32:64]), nil
}

type burnAddressRequest struct {
	BurnAddress string `json:"burnAddress"`
}

type burnHistoryEntry struct {
	BurnDestination string  `json:"burnDestination"`
	BurnAmount      int64   `json:"burnAmount"`
	Status          *string `json:"status"`
}

func (a *API) queryBurnHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req burnAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BurnAddress == "" {
		sendBadRequest(w, "missing burnAddress")
		return
	}
	events, err := a.BurnCache.ListByAddress(req.BurnAddress)
	if err != nil {
		sendError(w, "queryBurnHistory", err)
		return
	}
	entries := make([]burnHistoryEntry, len(events))
	for i, ev := range events {
		entries[i] = burnHistoryEntry{BurnDestination: ev.Destination, BurnAmount: int64(ev.Value)}
		rec, err := a.Store.GetWithdrawal(ev.BurnAddress, ev.BurnIndex)
		if err != nil {
			continue // not yet submitted: status stays nil
		}
		status := "SUBMITTED"
		if rec.Approved() {
			status = "APPROVED"
		}
		entries[i].Status = &status
	}
	env, err := envelope.Seal(map[string]any{"burnHistory": entries}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "queryBurnHistory", err)
		return
	}
	sendResponse(w, env)
}

type submitWithdrawalRequest struct {
	BurnAddress string `json:"burnAddress"`
	BurnIndex   int64  `json:"burnIndex"`
}

func (a *API) submitWithdrawal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req submitWithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BurnAddress == "" {
		sendBadRequest(w, "missing burnAddress")
		return
	}
	env, err := a.Withdrawal.Submit(req.BurnAddress, req.BurnIndex)
	if err != nil {
		sendError(w, "submitWithdrawal", err)
		return
	}
	sendResponse(w, env)
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	env, err := a.Stats.Get()
	if err != nil {
		sendError(w, "stats", err)
		return
	}
	sendResponse(w, env)
}
