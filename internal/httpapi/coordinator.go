package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/payout"
)

// redeemScripts collects every watched deposit address's redeem
// script, needed to co-sign the payout transaction.
func (a *API) redeemScripts() ([]string, error) {
	bindings, err := a.Store.ListMintBindings()
	if err != nil {
		return nil, err
	}
	scripts := make([]string, len(bindings))
	for i, b := range bindings {
		scripts[i] = b.RedeemScript
	}
	return scripts, nil
}

// approvePayouts returns the handler for /approvePayouts (testMode
// false) or /approvePayoutsTest (testMode true) - both authenticated
// as the configured coordinator and otherwise identical (spec §6).
func (a *API) approvePayouts(testMode bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var env envelope.Envelope
		if !decodeJSON(w, r, &env) {
			return
		}
		var req payout.ApprovalRequest
		if err := env.Unmarshal(&req); err != nil {
			sendBadRequest(w, "envelope data does not match an approval request")
			return
		}
		req.TestMode = testMode

		scripts, err := a.redeemScripts()
		if err != nil {
			sendError(w, "approvePayouts", err)
			return
		}

		reply, err := a.Payout.ApprovePayouts(req, env, a.CoordinatorAddress, a.Signer, a.Chain, a.SyncDelay, a.UTXO, scripts,
			payout.TaxAddress(a.Config.TaxPayoutAddresses[0]), payout.TaxAddress(a.Config.ChangeAddress))
		if err != nil {
			sendError(w, "approvePayouts", err)
			return
		}
		sendResponse(w, reply)
	}
}

type executePayoutsRequest struct {
	ProcessDeposits    bool `json:"processDeposits"`
	ProcessWithdrawals bool `json:"processWithdrawals"`
	TestMode           bool `json:"testMode"`
}

// executePayouts is the loopback-only coordinator-internal trigger
// that kicks off one full Step A-E payout round (spec §6).
func (a *API) executePayouts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if a.Coordinator == nil {
		sendBadRequest(w, "this node is not the configured payout coordinator")
		return
	}
	var req executePayoutsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := a.Coordinator.RunPayout(req.ProcessDeposits, req.ProcessWithdrawals, req.TestMode)
	if err != nil {
		sendError(w, "executePayouts", err)
		return
	}
	sendResponse(w, map[string]string{"result": result})
}
