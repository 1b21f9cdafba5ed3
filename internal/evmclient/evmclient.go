// Package evmclient wraps the EVM-side wallet contract: reading the
// mint/burn event logs, verifying personal-message signatures from
// peer authorities, and producing the EIP-712 typed-data signature
// that authorizes a mint transaction (spec §4.3, §4.8).
//
// Grounded on wpokt-validator's ethereum/signer_util.go EIP-712
// typed-data construction (apitypes.TypedData + HashStruct + Keccak256
// "\x19\x01" prefix) and ethereum/signer.go's private-key-to-address
// and nonce-handling idioms, generalized from the wPOKT MintController
// domain to this bridge's mint-authorization domain. Uses
// github.com/ethereum/go-ethereum directly (crypto, common,
// accounts/abi/bind, signer/core/apitypes) rather than a lighter HTTP
// JSON-RPC client, matching the teacher pack's only EVM-capable
// example.
package evmclient

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
)

const rpcTimeout = 5 * time.Second

// Client talks to the EVM chain hosting the bridge's mint/burn
// contract. Rather than a generated abigen binding (the teacher pack's
// autogen/ package is specific to the wPOKT contracts), the contract
// ABI is loaded at runtime from EVMConfig.ContractABIFile and wrapped
// in a bind.BoundContract - the same mechanism abigen's generated code
// uses internally, just without the generated method wrappers.
type Client struct {
	rpc         *ethclient.Client
	bound       *bind.BoundContract
	contractABI abi.ABI
	chainID     int64
	contract    common.Address

	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// Dial connects to providerURL, loads the contract ABI from
// abiFilePath, and loads privateKeyHex as this authority's EVM signing
// key.
func Dial(providerURL string, chainID int64, contractAddress, abiFilePath, privateKeyHex string) (*Client, error) {
	rpc, err := ethclient.Dial(providerURL)
	if err != nil {
		return nil, fmt.Errorf("evmclient: dial: %w", err)
	}
	abiBytes, err := os.ReadFile(abiFilePath)
	if err != nil {
		return nil, fmt.Errorf("evmclient: read abi file: %w", err)
	}
	parsedABI, err := abi.JSON(bytes.NewReader(abiBytes))
	if err != nil {
		return nil, fmt.Errorf("evmclient: parse abi: %w", err)
	}
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("evmclient: invalid private key: %w", err)
	}
	addr := common.HexToAddress(contractAddress)
	return &Client{
		rpc:         rpc,
		bound:       bind.NewBoundContract(addr, parsedABI, rpc, rpc, rpc),
		contractABI: parsedABI,
		chainID:     chainID,
		contract:    addr,
		privateKey:  privateKey,
		address:     crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns this authority's EVM signing address.
func (c *Client) Address() string {
	return c.address.Hex()
}

// UserNonce reads the contract's current mint nonce for recipient,
// used to prevent the double-authorization of a mint (spec §4.8 -
// monotone mintNonce).
func (c *Client) UserNonce(recipient string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	var result []any
	opts := &bind.CallOpts{Context: ctx, Pending: false}
	err := c.bound.Call(opts, &result, "getUserNonce", common.HexToAddress(recipient))
	if err != nil {
		return nil, fmt.Errorf("evmclient: getUserNonce: %w", err)
	}
	if len(result) != 1 {
		return nil, fmt.Errorf("evmclient: getUserNonce: unexpected return shape")
	}
	nonce, ok := result[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("evmclient: getUserNonce: unexpected return type")
	}
	return nonce, nil
}

var mintDataTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"MintData": {
		{Name: "recipient", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
	},
}

const mintPrimaryType = "MintData"

// MintAuthorization is the data one authority signs to authorize
// crediting recipient with amount at nonce (spec §4.8).
type MintAuthorization struct {
	Recipient string
	Amount    amount.Satoshis
	Nonce     *big.Int
}

func (c *Client) domain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              "DingoBridgeMintController",
		Version:           "1",
		ChainId:           math.NewHexOrDecimal256(c.chainID),
		VerifyingContract: c.contract.Hex(),
	}
}

// SignMintAuthorization produces this authority's EIP-712 signature
// over a mint authorization, for the coordinator to accumulate into
// the multi-signature payload the bridge contract ultimately checks.
func (c *Client) SignMintAuthorization(auth MintAuthorization) ([]byte, error) {
	message := apitypes.TypedDataMessage{
		"recipient": common.HexToAddress(auth.Recipient).Hex(),
		"amount":    new(big.Int).SetInt64(int64(auth.Amount)).String(),
		"nonce":     auth.Nonce.String(),
	}
	typedData := apitypes.TypedData{
		Types:       mintDataTypes,
		PrimaryType: mintPrimaryType,
		Domain:      c.domain(),
		Message:     message,
	}
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("evmclient: hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("evmclient: hash message: %w", err)
	}
	rawData := append([]byte("\x19\x01"), append(domainSeparator, messageHash...)...)
	sigHash := crypto.Keccak256(rawData)

	signature, err := crypto.Sign(sigHash, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("evmclient: sign: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return signature, nil
}

// VerifyMintAuthorization checks that signature over auth recovers to
// expectedAddress, used by the coordinator to validate a peer
// authority's contribution before including it.
func VerifyMintAuthorization(auth MintAuthorization, signature []byte, expectedAddress string, chainID int64, contractAddress string) (bool, error) {
	if len(signature) != 65 {
		return false, fmt.Errorf("evmclient: signature must be 65 bytes, got %d", len(signature))
	}
	message := apitypes.TypedDataMessage{
		"recipient": common.HexToAddress(auth.Recipient).Hex(),
		"amount":    new(big.Int).SetInt64(int64(auth.Amount)).String(),
		"nonce":     auth.Nonce.String(),
	}
	typedData := apitypes.TypedData{
		Types:       mintDataTypes,
		PrimaryType: mintPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              "DingoBridgeMintController",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: common.HexToAddress(contractAddress).Hex(),
		},
		Message: message,
	}
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return false, err
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return false, err
	}
	rawData := append([]byte("\x19\x01"), append(domainSeparator, messageHash...)...)
	sigHash := crypto.Keccak256(rawData)

	recoverSig := make([]byte, 65)
	copy(recoverSig, signature)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}
	pubkey, err := crypto.SigToPub(sigHash, recoverSig)
	if err != nil {
		return false, fmt.Errorf("evmclient: recover: %w", err)
	}
	recovered := crypto.PubkeyToAddress(*pubkey)
	return recovered == common.HexToAddress(expectedAddress), nil
}

// SignPersonalMessage signs message with this authority's EVM key
// using the standard go-ethereum "personal_sign" prefix, used for
// lighter-weight peer-to-peer authentication outside of mint
// authorizations (e.g. registrar protocol exchanges, spec §4.6).
func (c *Client) SignPersonalMessage(message []byte) ([]byte, error) {
	hash := personalMessageHash(message)
	signature, err := crypto.Sign(hash, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("evmclient: sign personal message: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return signature, nil
}

// VerifyPersonalMessage checks that signature over message recovers to
// expectedAddress.
func VerifyPersonalMessage(message, signature []byte, expectedAddress string) (bool, error) {
	if len(signature) != 65 {
		return false, fmt.Errorf("evmclient: signature must be 65 bytes, got %d", len(signature))
	}
	hash := personalMessageHash(message)
	recoverSig := make([]byte, 65)
	copy(recoverSig, signature)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}
	pubkey, err := crypto.SigToPub(hash, recoverSig)
	if err != nil {
		return false, fmt.Errorf("evmclient: recover: %w", err)
	}
	recovered := crypto.PubkeyToAddress(*pubkey)
	return recovered == common.HexToAddress(expectedAddress), nil
}

func personalMessageHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
