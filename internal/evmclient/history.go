package evmclient

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/burncache"
)

// MintRecord is one finalized mint event read from the contract's Mint
// log.
type MintRecord struct {
	Recipient   string
	Amount      amount.Satoshis
	Nonce       *big.Int
	BlockNumber uint64
	TxHash      string
}

// GetMintHistory returns every Mint event in [fromBlock, toBlock].
func (c *Client) GetMintHistory(fromBlock, toBlock uint64) ([]MintRecord, error) {
	logs, err := c.filterLogs(fromBlock, toBlock, "Mint")
	if err != nil {
		return nil, fmt.Errorf("evmclient: mint history: %w", err)
	}
	var records []MintRecord
	for _, log := range logs {
		var decoded struct {
			Recipient common.Address
			Amount    *big.Int
			Nonce     *big.Int
		}
		if err := c.bound.UnpackLog(&decoded, "Mint", log); err != nil {
			return nil, fmt.Errorf("evmclient: unpack mint log: %w", err)
		}
		records = append(records, MintRecord{
			Recipient:   decoded.Recipient.Hex(),
			Amount:      amount.Satoshis(decoded.Amount.Int64()),
			Nonce:       decoded.Nonce,
			BlockNumber: log.BlockNumber,
			TxHash:      log.TxHash.Hex(),
		})
	}
	return records, nil
}

// GetBurnHistory returns every Burn event in [fromBlock, toBlock],
// caching each finalized record in cache so repeated calls over
// already-finalized ranges never re-hit the RPC provider.
func (c *Client) GetBurnHistory(fromBlock, toBlock uint64, cache *burncache.Cache) ([]burncache.BurnEvent, error) {
	logs, err := c.filterLogs(fromBlock, toBlock, "Burn")
	if err != nil {
		return nil, fmt.Errorf("evmclient: burn history: %w", err)
	}
	var records []burncache.BurnEvent
	for _, log := range logs {
		var decoded struct {
			Sender      common.Address
			BurnAddress string
			BurnIndex   *big.Int
			Destination string
			Value       *big.Int
		}
		if err := c.bound.UnpackLog(&decoded, "Burn", log); err != nil {
			return nil, fmt.Errorf("evmclient: unpack burn log: %w", err)
		}
		ev := burncache.BurnEvent{
			BurnAddress: decoded.BurnAddress,
			BurnIndex:   decoded.BurnIndex.Int64(),
			MintAddress: decoded.Sender.Hex(),
			Destination: decoded.Destination,
			Value:       amount.Satoshis(decoded.Value.Int64()),
			BlockNumber: log.BlockNumber,
			TxHash:      log.TxHash.Hex(),
		}
		if cache != nil {
			if err := cache.Put(ev); err != nil {
				return nil, fmt.Errorf("evmclient: cache burn event: %w", err)
			}
		}
		records = append(records, ev)
	}
	return records, nil
}

// filterLogs fetches every log emitted by this contract matching
// eventName's topic0 signature hash in [fromBlock, toBlock].
func (c *Client) filterLogs(fromBlock, toBlock uint64, eventName string) ([]types.Log, error) {
	event, ok := c.contractABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("evmclient: unknown event %q in contract abi", eventName)
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{event.ID}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	logs, err := c.rpc.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("evmclient: filter logs: %w", err)
	}
	return logs, nil
}
