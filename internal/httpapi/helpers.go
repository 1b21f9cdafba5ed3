// Package httpapi is the HTTPS transport for every endpoint of spec
// §6: admin/public dual-mux split (grounded on gigawallet's
// pkg/webapi/webapi.go createRouters), julienschmidt/httprouter for
// route dispatch, and an error-response helper set generalized from
// gigawallet's pkg/webapi/helpers.go (httpCodeForError/sendResponse/
// sendError) from giga.ErrorCode to bridgeerr.ErrorCode.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
)

var httpCodeForError = map[bridgeerr.ErrorCode]int{
	bridgeerr.MalformedRequest:           http.StatusBadRequest,
	bridgeerr.RateLimited:                http.StatusTooManyRequests,
	bridgeerr.Unauthorized:               http.StatusUnauthorized,
	bridgeerr.Duplicate:                  http.StatusConflict,
	bridgeerr.Consensus:                  http.StatusConflict,
	bridgeerr.ChainView:                  http.StatusServiceUnavailable,
	bridgeerr.AmountTooSmall:             http.StatusBadRequest,
	bridgeerr.AccountingInvariantViolated: http.StatusInternalServerError,
	bridgeerr.InsufficientFunds:          http.StatusConflict,
	bridgeerr.InsufficientTaxForFee:      http.StatusConflict,
	bridgeerr.TxShapeMismatch:            http.StatusConflict,
	bridgeerr.NotFound:                   http.StatusNotFound,
	bridgeerr.UnknownError:               http.StatusInternalServerError,
}

// HttpStatusForError maps a classified error to its HTTP status (spec
// §7 - "a stable HTTP status: 4xx for client errors, 401 for IP/sig,
// 500 for internal").
func HttpStatusForError(code bridgeerr.ErrorCode) int {
	status, found := httpCodeForError[code]
	if !found {
		status = http.StatusInternalServerError
	}
	return status
}

// sendResponse writes payload as the body of a 200 JSON response.
func sendResponse(w http.ResponseWriter, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, bridgeerr.UnknownError, fmt.Sprintf("marshal: %s", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b)
}

// sendBadRequest is the common MalformedRequest case.
func sendBadRequest(w http.ResponseWriter, message string) {
	sendErrorResponse(w, http.StatusBadRequest, bridgeerr.MalformedRequest, message)
}

// sendError classifies err (via bridgeerr.ErrorInfo if present) and
// writes the matching status/body.
func sendError(w http.ResponseWriter, where string, err error) {
	var info *bridgeerr.ErrorInfo
	if errors.As(err, &info) {
		status := HttpStatusForError(info.Code)
		sendErrorResponse(w, status, info.Code, fmt.Sprintf("%s: %s", where, info.Message))
	} else {
		sendErrorResponse(w, http.StatusInternalServerError, bridgeerr.UnknownError, fmt.Sprintf("%s: %s", where, err.Error()))
	}
}

// sendErrorResponse writes statusCode with a hand-built JSON body,
// avoiding the need to handle a json.Marshal failure on the error path
// itself.
func sendErrorResponse(w http.ResponseWriter, statusCode int, code bridgeerr.ErrorCode, message string) {
	log.Printf("[!] %s: %s\n", code, message)
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	w.Write([]byte(payload))
}
