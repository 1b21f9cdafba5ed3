package utxoclient

import "errors"

// ErrUnreachable wraps any network/HTTP-layer failure talking to the
// daemon, distinct from a well-formed RPC error response.
var ErrUnreachable = errors.New("utxoclient: daemon unreachable")

// ErrTxMismatch is returned by VerifyRawTransaction when the daemon's
// own decode of a raw transaction disagrees with the inputs/outputs
// the caller expected it to carry.
var ErrTxMismatch = errors.New("utxoclient: raw transaction does not match expected inputs/outputs")
