// Package mintauth implements queryMintBalance and
// createMintTransaction (spec §4.8): computing how much of a bound
// deposit address is mintable and producing this authority's
// EIP-712 signature authorizing the contract to mint it.
package mintauth

import (
	"fmt"
	"math/big"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/evmclient"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
)

// ContractReader reads the mint contract's current nonce for a
// recipient - implemented by internal/evmclient.
type ContractReader interface {
	UserNonce(recipient string) (*big.Int, error)
}

// Service computes mintable balances and mint authorizations for one
// authority node.
type Service struct {
	Store               *store.Store
	UTXO                *utxoclient.Client
	Contract            ContractReader
	EVM                 *evmclient.Client
	DepositConfirmations int64
}

// Balance is the result of queryMintBalance (spec §4.8).
type Balance struct {
	MintableConfirmed   amount.Satoshis
	MintableUnconfirmed amount.Satoshis
	MintedAmount        amount.Satoshis
	MintNonce           *big.Int
}

// QueryMintBalance computes the confirmed/unconfirmed mintable amount
// for mintAddress's bound deposit address.
func (s *Service) QueryMintBalance(mintAddress string) (Balance, error) {
	binding, err := s.Store.GetMintBindingByMintAddress(mintAddress)
	if err != nil {
		return Balance{}, fmt.Errorf("mintauth: %w", err)
	}

	confirmedTotals, err := s.UTXO.ListReceivedByAddress(s.DepositConfirmations)
	if err != nil {
		return Balance{}, fmt.Errorf("mintauth: listreceivedbyaddress(confirmed): %w", err)
	}
	allTotals, err := s.UTXO.ListReceivedByAddress(0)
	if err != nil {
		return Balance{}, fmt.Errorf("mintauth: listreceivedbyaddress(all): %w", err)
	}

	dConf := confirmedTotals[binding.DepositAddress]
	dAll := allTotals[binding.DepositAddress]
	dUnconf := dAll - dConf

	var mintableConfirmed, mintableUnconfirmed amount.Satoshis
	if amount.MeetsTax(dConf) {
		mintableConfirmed = amount.AmountAfterTax(dConf)
	}
	if amount.MeetsTax(dUnconf) {
		mintableUnconfirmed = amount.AmountAfterTax(dUnconf)
	}

	nonce, err := s.Contract.UserNonce(mintAddress)
	if err != nil {
		return Balance{}, fmt.Errorf("mintauth: usernonce: %w", err)
	}

	return Balance{
		MintableConfirmed:   mintableConfirmed,
		MintableUnconfirmed: mintableUnconfirmed,
		MintNonce:           nonce,
	}, nil
}

// CreateMintTransaction produces this authority's EIP-712 signature
// authorizing a mint of max(0, mintableConfirmed - mintedAmount) at
// the contract's current nonce. mintNonce is never advanced locally;
// only the contract advances it on execution (spec §4.8).
func (s *Service) CreateMintTransaction(mintAddress string, mintedAmount amount.Satoshis) ([]byte, evmclient.MintAuthorization, error) {
	balance, err := s.QueryMintBalance(mintAddress)
	if err != nil {
		return nil, evmclient.MintAuthorization{}, err
	}

	mintAmount := balance.MintableConfirmed - mintedAmount
	if mintAmount < 0 {
		mintAmount = 0
	}

	auth := evmclient.MintAuthorization{
		Recipient: mintAddress,
		Amount:    mintAmount,
		Nonce:     balance.MintNonce,
	}
	sig, err := s.EVM.SignMintAuthorization(auth)
	if err != nil {
		return nil, evmclient.MintAuthorization{}, fmt.Errorf("mintauth: sign: %w", err)
	}
	return sig, auth, nil
}
