// Package bridgeerr defines the ErrorCode/ErrorInfo pair that every
// internal package returns instead of a bare error, so the HTTP layer
// (internal/httpapi) can map failures to response codes without
// string-sniffing error messages.
//
// Grounded on gigawallet's pkg/errors.go ErrorCode enum + ErrorInfo
// wrapper (NewErr/IsError pattern), generalized from gigawallet's six
// codes to the thirteen this system's operations distinguish.
package bridgeerr

import "fmt"

// ErrorCode classifies a failure for HTTP-status mapping and for
// cross-authority envelope error replies.
type ErrorCode string

const (
	// MalformedRequest marks a request that failed basic shape/type
	// validation before any business logic ran.
	MalformedRequest ErrorCode = "malformed-request"
	// RateLimited marks a request rejected by internal/ratelimit.
	RateLimited ErrorCode = "rate-limited"
	// Unauthorized marks an envelope that failed signature/address
	// verification.
	Unauthorized ErrorCode = "unauthorized"
	// Duplicate marks an attempt to insert a record that already
	// exists (a reused deposit pubkey, an already-bound mint address,
	// an already-observed withdrawal).
	Duplicate ErrorCode = "duplicate"
	// Consensus marks a failure to reach the required threshold of
	// agreeing authorities (e.g. in the registrar or payout protocols).
	Consensus ErrorCode = "consensus"
	// ChainView marks a failure to obtain this node's view of a chain
	// (the UTXO daemon or the EVM provider cannot be reached). An
	// envelope whose chain-tip binding is expired or does not match is
	// reported as Unauthorized, not ChainView.
	ChainView ErrorCode = "chain-view"
	// AmountTooSmall marks an amount that does not meet the flat-fee
	// threshold required for a tax-bearing operation.
	AmountTooSmall ErrorCode = "amount-too-small"
	// AccountingInvariantViolated marks an internally-detected
	// inconsistency between expected and actual ledger state - this
	// should never happen and is always logged to the audit log.
	AccountingInvariantViolated ErrorCode = "accounting-invariant-violated"
	// InsufficientFunds marks a payout or mint that the available
	// balance cannot cover.
	InsufficientFunds ErrorCode = "insufficient-funds"
	// InsufficientTaxForFee marks a batch whose tax proceeds, after
	// computing the network fee, would not cover that fee (spec §8).
	InsufficientTaxForFee ErrorCode = "insufficient-tax-for-fee"
	// TxShapeMismatch marks a raw transaction whose daemon-decoded
	// inputs/outputs do not match what the caller expected to build
	// (internal/utxoclient.VerifyRawTransaction).
	TxShapeMismatch ErrorCode = "tx-shape-mismatch"
	// NotFound marks a lookup that found no matching record.
	NotFound ErrorCode = "not-found"
	// UnknownError is the fallback for errors not otherwise classified.
	UnknownError ErrorCode = "unknown-error"
)

// ErrorInfo is a classified error with an operator/peer-facing message.
type ErrorInfo struct {
	Code    ErrorCode
	Message string
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New constructs an ErrorInfo with a formatted message.
func New(code ErrorCode, format string, args ...any) *ErrorInfo {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error under code, preserving its text.
func Wrap(code ErrorCode, err error) *ErrorInfo {
	return &ErrorInfo{Code: code, Message: err.Error()}
}
