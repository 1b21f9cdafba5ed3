package envelope

import "errors"

// ErrExpired indicates the envelope's valDingoHeight is further behind
// the current chain tip than 2*syncDelayThreshold blocks allow.
var ErrExpired = errors.New("envelope: expired (valDingoHeight too far behind tip)")

// ErrChainMismatch indicates the chain's hash at valDingoHeight no
// longer matches valDingoHash - a reorg happened after the envelope was
// constructed, or it was constructed against a different chain.
var ErrChainMismatch = errors.New("envelope: chain hash mismatch (reorg or wrong chain)")

// ErrBadSignature indicates the signature does not verify against the
// expected address (or no unique match among the allowed set).
var ErrBadSignature = errors.New("envelope: signature does not verify")
