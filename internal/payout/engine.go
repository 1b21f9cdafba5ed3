package payout

import (
	"fmt"

	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
)

// RawTxBuilder is the subset of internal/utxoclient.Client the
// coordinator and every co-signing authority need to build, verify,
// co-sign, and broadcast the payout transaction.
type RawTxBuilder interface {
	CreateRawTransaction(inputs []utxoclient.UTXO, vouts map[string]string) (string, error)
	SignRawTransaction(hex string, redeemScriptsHex []string) (utxoclient.SignRawTransactionResult, error)
	SendRawTransaction(hex string) (string, error)
	VerifyRawTransaction(txHex string, expectedVins []utxoclient.ExpectedVin, expectedVouts []utxoclient.ExpectedVout) error
}

// Coordinator drives Step E from the single payout coordinator node
// named in configuration (spec §3 - "single payout coordinator", §4.9
// step E - the sequential multi-sign chain).
type Coordinator struct {
	Engine        *Engine
	UTXO          RawTxBuilder
	Peers         []PeerClient // every OTHER authority, in fixed chain order
	TaxAddress    TaxAddress
	ChangeAddress TaxAddress // distinct from TaxAddress (spec §4.9 step D)

	// RedeemScripts returns every watched deposit address's redeem
	// script, for co-signing. Called fresh at the start of each
	// RunPayout rather than snapshotted once, so a deposit address
	// registered after this node started is still covered - matching
	// internal/httpapi's own redeemScripts() helper, which recomputes
	// the same list on every /approvePayouts call.
	RedeemScripts func() ([]string, error)
}

// RunPayout executes one full payout round: gather consensus from
// every authority, validate, build outputs, walk the authorities in
// chain order producing C_0 -> C_1 -> ... -> C_N, and (outside test
// mode) broadcast the final transaction. In test mode the identical
// protocol runs against every peer's /approvePayoutsTest endpoint,
// which validates and counter-signs without mutating store state or
// broadcasting, returning the final chain hex instead of a txid.
func (c *Coordinator) RunPayout(processDeposits, processWithdrawals bool, testMode bool) (string, error) {
	ownBatch, err := c.Engine.ComputePendingPayouts(processDeposits, processWithdrawals)
	if err != nil {
		return "", fmt.Errorf("payout: coordinator compute: %w", err)
	}
	ownUnspent, err := c.Engine.ComputeUnspent()
	if err != nil {
		return "", fmt.Errorf("payout: coordinator compute unspent: %w", err)
	}

	batchReplies := []PendingPayouts{ownBatch}
	unspentReplies := [][]UnspentOutput{ownUnspent}
	for i, peer := range c.Peers {
		reply, err := peer.ComputePendingPayouts(processDeposits, processWithdrawals)
		if err != nil {
			return "", fmt.Errorf("payout: peer %d compute: %w", i, err)
		}
		batchReplies = append(batchReplies, reply)
		unspent, err := peer.ComputeUnspent()
		if err != nil {
			return "", fmt.Errorf("payout: peer %d compute unspent: %w", i, err)
		}
		unspentReplies = append(unspentReplies, unspent)
	}

	batch, unspent := GatherConsensus(batchReplies, unspentReplies)
	if len(batch.DepositTaxPayouts) == 0 && len(batch.WithdrawalPayouts) == 0 {
		return "", bridgeerr.New(bridgeerr.MalformedRequest, "no payouts survived cross-authority consensus")
	}

	if err := c.Engine.Validate(batch); err != nil {
		return "", err
	}

	inputs, vouts, err := BuildVouts(batch, unspent, c.TaxAddress, c.ChangeAddress)
	if err != nil {
		return "", err
	}
	rawUTXOs := make([]utxoclient.UTXO, len(inputs))
	for i, u := range inputs {
		rawUTXOs[i] = utxoclient.UTXO{TxID: u.TxID, Vout: u.Vout, Amount: u.Amount}
	}

	chain, err := c.UTXO.CreateRawTransaction(rawUTXOs, ToRawTransactionVouts(vouts))
	if err != nil {
		return "", fmt.Errorf("payout: createrawtransaction: %w", err)
	}

	redeemScripts, err := c.RedeemScripts()
	if err != nil {
		return "", fmt.Errorf("payout: listing redeem scripts: %w", err)
	}
	signed, err := c.UTXO.SignRawTransaction(chain, redeemScripts)
	if err != nil {
		return "", fmt.Errorf("payout: coordinator sign: %w", err)
	}
	chain = signed.Hex
	complete := signed.Complete

	req := ApprovalRequest{
		DepositTaxPayouts:    batch.DepositTaxPayouts,
		WithdrawalPayouts:    batch.WithdrawalPayouts,
		WithdrawalTaxPayouts: batch.WithdrawalTaxPayouts,
		Unspent:              unspent,
		TestMode:             testMode,
	}

	for i, peer := range c.Peers {
		if complete {
			break
		}
		req.ApprovalChain = chain
		var err error
		if testMode {
			chain, complete, err = peer.ApprovePayoutsTest(req)
		} else {
			chain, complete, err = peer.ApprovePayouts(req)
		}
		if err != nil {
			return "", fmt.Errorf("payout: peer %d approve: %w", i, err)
		}
	}

	if !complete {
		return "", bridgeerr.New(bridgeerr.AccountingInvariantViolated,
			"exhausted the authority chain without collecting enough signatures")
	}

	if testMode {
		return chain, nil
	}

	txid, err := c.UTXO.SendRawTransaction(chain)
	if err != nil {
		return "", fmt.Errorf("payout: broadcast: %w", err)
	}

	if err := c.Engine.ApplyPayout(batch, txid); err != nil {
		return "", fmt.Errorf("payout: apply (after broadcast, manual reconciliation required): %w", err)
	}

	return txid, nil
}

// ApplyPayout records a broadcast batch's effects in the store: every
// deposit-tax payout bumps its binding's approved tax, and every
// withdrawal transitions from pending to paid (no separate "approved"
// resting state for batched payouts - spec §4.9 folds approve+pay into
// one broadcast). ApplyPayout takes no lock itself: ApprovePayouts
// calls it while holding the store lock, RunPayout without it; each
// mutation is independently atomic at the row level.
func (e *Engine) ApplyPayout(batch PendingPayouts, txid string) error {
	now := Now()
	for _, d := range batch.DepositTaxPayouts {
		if err := e.Store.IncreaseMintBindingApprovedTax(d.DepositAddress, d.Amount); err != nil {
			return fmt.Errorf("deposit tax payout %s: %w", d.DepositAddress, err)
		}
	}
	for i, w := range batch.WithdrawalPayouts {
		t := batch.WithdrawalTaxPayouts[i]
		if err := e.Store.ApproveWithdrawal(w.BurnAddress, w.BurnIndex, w.Amount, t.Amount, now); err != nil {
			return fmt.Errorf("withdrawal %s:%d approve: %w", w.BurnAddress, w.BurnIndex, err)
		}
		if err := e.Store.MarkWithdrawalPaid(w.BurnAddress, w.BurnIndex, txid, now); err != nil {
			return fmt.Errorf("withdrawal %s:%d mark paid: %w", w.BurnAddress, w.BurnIndex, err)
		}
	}
	return nil
}

// ApprovePayouts is the authority-side handler for one link in the
// chain: verify the request came from the coordinator, validate the
// coordinator's chosen unspent set against this authority's own view,
// re-validate the batch independently, recompute the expected outputs
// and independently verify the actual transaction hex matches them,
// co-sign with this node's wallet key, and (test mode aside) apply the
// same store mutations the coordinator applies after broadcast - every
// authority's local bookkeeping must agree with the transaction it
// just helped sign, not only the coordinator's (spec §4.9 step E
// (a)-(d): a compromised or buggy coordinator/daemon must not be able
// to smuggle an unexpected input or output past a co-signer).
func (e *Engine) ApprovePayouts(req ApprovalRequest, coordinatorEnvelope envelope.Envelope, coordinatorAddress string, signer envelope.Signer, chain envelope.ChainView, syncDelay int64, utxo RawTxBuilder, redeemScripts []string, taxAddress, changeAddress TaxAddress) (envelope.Envelope, error) {
	if err := envelope.VerifyExpected(coordinatorEnvelope, coordinatorAddress, signer, chain, syncDelay); err != nil {
		return envelope.Envelope{}, bridgeerr.Wrap(bridgeerr.Unauthorized, err)
	}

	batch := PendingPayouts{
		DepositTaxPayouts:    req.DepositTaxPayouts,
		WithdrawalPayouts:    req.WithdrawalPayouts,
		WithdrawalTaxPayouts: req.WithdrawalTaxPayouts,
	}

	if !req.TestMode {
		e.Store.Lock()
		defer e.Store.Unlock()
	}

	// (a) the coordinator's chosen unspent set must be a subset of what
	// this authority itself currently sees as spendable.
	ownUnspent, err := e.ComputeUnspent()
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("payout: approve: compute unspent: %w", err)
	}
	if !unspentSubsetOf(req.Unspent, ownUnspent) {
		return envelope.Envelope{}, bridgeerr.New(bridgeerr.AccountingInvariantViolated,
			"approval request's unspent set is not a subset of this authority's own view")
	}

	// (b) re-run Step C's validation independently.
	if err := e.Validate(batch); err != nil {
		return envelope.Envelope{}, err
	}

	// (c) recompute Step D's outputs from this authority's own view and
	// verify the actual transaction hex matches exactly - inputs and
	// outputs both - before signing it.
	inputs, vouts, err := BuildVouts(batch, req.Unspent, taxAddress, changeAddress)
	if err != nil {
		return envelope.Envelope{}, err
	}
	expectedVins := make([]utxoclient.ExpectedVin, len(inputs))
	for i, in := range inputs {
		expectedVins[i] = utxoclient.ExpectedVin{TxID: in.TxID, Vout: in.Vout}
	}
	mergedVouts := MergeVouts(vouts)
	expectedVouts := make([]utxoclient.ExpectedVout, len(mergedVouts))
	for i, v := range mergedVouts {
		expectedVouts[i] = utxoclient.ExpectedVout{Address: v.Address, Amount: v.Amount}
	}
	if err := utxo.VerifyRawTransaction(req.ApprovalChain, expectedVins, expectedVouts); err != nil {
		return envelope.Envelope{}, bridgeerr.Wrap(bridgeerr.TxShapeMismatch, err)
	}

	signed, err := utxo.SignRawTransaction(req.ApprovalChain, redeemScripts)
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("payout: approve: sign: %w", err)
	}

	if !req.TestMode && signed.Complete {
		txid, err := utxo.SendRawTransaction(signed.Hex)
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("payout: approve: broadcast: %w", err)
		}
		if err := e.ApplyPayout(batch, txid); err != nil {
			return envelope.Envelope{}, fmt.Errorf("payout: approve: apply: %w", err)
		}
	}

	return envelope.Seal(map[string]any{
		"approvalChain": signed.Hex,
		"complete":      signed.Complete,
	}, signer, chain, syncDelay)
}

// Now defaults to time.Now().Unix(); tests may override it.
var Now = defaultNow
