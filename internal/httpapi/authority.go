package httpapi

import (
	"net/http"
	"os"

	"github.com/julienschmidt/httprouter"

	"github.com/dingo-bridge/dingo-bridge-node/internal/auditlog"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
)

// verifyAuthority checks that the request body is an envelope signed
// by exactly one configured authority and unmarshals its data into v.
// Returns false (having already written an error response) on
// failure.
func (a *API) verifyAuthority(w http.ResponseWriter, r *http.Request, v any) (envelope.Envelope, bool) {
	var env envelope.Envelope
	if !decodeJSON(w, r, &env) {
		return envelope.Envelope{}, false
	}
	if _, err := envelope.VerifyAnyOf(env, a.AuthorityAddresses, a.Signer, a.Chain, a.SyncDelay); err != nil {
		sendError(w, "authority verify", err)
		return envelope.Envelope{}, false
	}
	if v != nil {
		if err := env.Unmarshal(v); err != nil {
			sendBadRequest(w, "envelope data does not match expected shape")
			return envelope.Envelope{}, false
		}
	}
	return env, true
}

type computePendingPayoutsRequest struct {
	ProcessDeposits    bool `json:"processDeposits"`
	ProcessWithdrawals bool `json:"processWithdrawals"`
}

func (a *API) computePendingPayouts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req computePendingPayoutsRequest
	if _, ok := a.verifyAuthority(w, r, &req); !ok {
		return
	}
	batch, err := a.Payout.ComputePendingPayouts(req.ProcessDeposits, req.ProcessWithdrawals)
	if err != nil {
		sendError(w, "computePendingPayouts", err)
		return
	}
	env, err := envelope.Seal(map[string]any{
		"depositTaxPayouts":    batch.DepositTaxPayouts,
		"withdrawalPayouts":    batch.WithdrawalPayouts,
		"withdrawalTaxPayouts": batch.WithdrawalTaxPayouts,
	}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "computePendingPayouts", err)
		return
	}
	sendResponse(w, env)
}

func (a *API) computeUnspent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := a.verifyAuthority(w, r, nil); !ok {
		return
	}
	unspent, err := a.Payout.ComputeUnspent()
	if err != nil {
		sendError(w, "computeUnspent", err)
		return
	}
	env, err := envelope.Seal(map[string]any{"unspent": unspent}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "computeUnspent", err)
		return
	}
	sendResponse(w, env)
}

// logLines is how many trailing audit-log lines /log returns.
const logLines = 200

func (a *API) getLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := a.verifyAuthority(w, r, nil); !ok {
		return
	}
	lines, err := auditlog.Tail(a.Config.AuditLogPath, logLines)
	if err != nil {
		sendError(w, "log", err)
		return
	}
	env, err := envelope.Seal(map[string]any{"log": lines}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "log", err)
		return
	}
	sendResponse(w, env)
}

func (a *API) dumpDatabase(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := a.verifyAuthority(w, r, nil); !ok {
		return
	}
	dump, err := a.Store.Dump()
	if err != nil {
		sendError(w, "dumpDatabase", err)
		return
	}
	env, err := envelope.Seal(map[string]any{"sql": dump}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "dumpDatabase", err)
		return
	}
	sendResponse(w, env)
}

type resetDatabaseRequest struct {
	Dump store.Dump `json:"sql"`
}

// resetDatabase atomically replaces this authority's local state with
// an operator-supplied dump (spec.md §4.4's reset(path, dump)), for
// recovering a lagging or diverged authority from a peer's dump.
func (a *API) resetDatabase(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetDatabaseRequest
	if _, ok := a.verifyAuthority(w, r, &req); !ok {
		return
	}
	if err := a.Store.Reset(req.Dump); err != nil {
		sendError(w, "resetDatabase", err)
		return
	}
	env, err := envelope.Seal(map[string]any{}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "resetDatabase", err)
		return
	}
	sendResponse(w, env)
}

// harakiri terminates the process on operator command (spec §6 -
// "/dingoDoesAHarakiri {} -> {} - terminates process"). It replies
// before exiting so the caller sees a clean response rather than a
// connection reset.
func (a *API) harakiri(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := a.verifyAuthority(w, r, nil); !ok {
		return
	}
	env, err := envelope.Seal(map[string]any{}, a.Signer, a.Chain, a.SyncDelay)
	if err != nil {
		sendError(w, "dingoDoesAHarakiri", err)
		return
	}
	sendResponse(w, env)
	go func() {
		os.Exit(0)
	}()
}
