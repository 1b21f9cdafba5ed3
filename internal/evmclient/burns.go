package evmclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/burncache"
)

// BurnResolver satisfies internal/withdrawal.BurnLookup and
// internal/payout.BurnLookup: it answers (destination, value) for one
// (burnAddress, burnIndex) pair, preferring the local immutable cache
// (burn history never changes once observed) and falling back to the
// contract's public "burns" getter the same way UserNonce calls
// "getUserNonce".
type BurnResolver struct {
	EVM   *Client
	Cache *burncache.Cache
}

// BurnDestinationAndAmount resolves one burn event.
func (r *BurnResolver) BurnDestinationAndAmount(burnAddress string, burnIndex int64) (string, amount.Satoshis, error) {
	if r.Cache != nil {
		if ev, ok, err := r.Cache.Get(burnAddress, burnIndex); err != nil {
			return "", 0, fmt.Errorf("evmclient: burn cache lookup: %w", err)
		} else if ok {
			return ev.Destination, ev.Value, nil
		}
	}
	return r.EVM.fetchBurn(burnAddress, burnIndex, r.Cache)
}

// fetchBurn reads one burn record directly off the contract (used the
// first time a not-yet-cached burn is looked up; nothing else fills the
// cache) and stores it for next time.
func (c *Client) fetchBurn(burnAddress string, burnIndex int64, cache *burncache.Cache) (string, amount.Satoshis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	var result []any
	opts := &bind.CallOpts{Context: ctx, Pending: false}
	err := c.bound.Call(opts, &result, "burns", burnAddress, big.NewInt(burnIndex))
	if err != nil {
		return "", 0, fmt.Errorf("evmclient: burns: %w", err)
	}
	if len(result) != 3 {
		return "", 0, fmt.Errorf("evmclient: burns: unexpected return shape")
	}
	mintAddress, ok := result[0].(string)
	if !ok {
		return "", 0, fmt.Errorf("evmclient: burns: unexpected sender type")
	}
	destination, ok := result[1].(string)
	if !ok {
		return "", 0, fmt.Errorf("evmclient: burns: unexpected destination type")
	}
	value, ok := result[2].(*big.Int)
	if !ok {
		return "", 0, fmt.Errorf("evmclient: burns: unexpected value type")
	}
	ev := burncache.BurnEvent{
		BurnAddress: burnAddress,
		BurnIndex:   burnIndex,
		MintAddress: mintAddress,
		Destination: destination,
		Value:       amount.Satoshis(value.Int64()),
	}
	if cache != nil {
		if err := cache.Put(ev); err != nil {
			return "", 0, fmt.Errorf("evmclient: cache burn event: %w", err)
		}
	}
	return ev.Destination, ev.Value, nil
}
