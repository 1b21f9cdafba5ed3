package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
)

type fakeUTXO struct {
	received map[string]amount.Satoshis
	unspent  []utxoclient.UTXO
}

func (f *fakeUTXO) ListReceivedByAddress(int64) (map[string]amount.Satoshis, error) {
	return f.received, nil
}

func (f *fakeUTXO) ListUnspent(int64, []string) ([]utxoclient.UTXO, error) {
	return f.unspent, nil
}

type fakeBurns struct {
	byKey map[string]burn
}

type burn struct {
	destination string
	value       amount.Satoshis
}

func (f *fakeBurns) BurnDestinationAndAmount(burnAddress string, burnIndex int64) (string, amount.Satoshis, error) {
	b := f.byKey[burnAddress]
	return b.destination, b.value, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/payout-test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestComputePendingPayoutsDeposits(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertMintBinding(store.MintBinding{
		MintAddress: "0xabc", DepositAddress: "3Deposit", RedeemScript: "51ae",
		Pubkeys: []string{"02aa"}, ApprovedTax: 1 * amount.OneCoin, RegisteredAt: 1,
	}))

	e := &Engine{
		Store: s,
		UTXO: &fakeUTXO{received: map[string]amount.Satoshis{
			"3Deposit": 1000 * amount.OneCoin,
		}},
		Burns:                &fakeBurns{},
		DepositConfirmations: 6,
	}

	batch, err := e.ComputePendingPayouts(true, false)
	require.NoError(t, err)
	require.Len(t, batch.DepositTaxPayouts, 1)
	wantTax := amount.Tax(1000 * amount.OneCoin)
	assert.Equal(t, wantTax-1*amount.OneCoin, batch.DepositTaxPayouts[0].Amount)
}

func TestComputePendingPayoutsWithdrawals(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertWithdrawal(store.Withdrawal{
		BurnAddress: "bBurn", BurnIndex: 0, RequestedValue: 100 * amount.OneCoin, ObservedAt: 1,
	}))

	e := &Engine{
		Store: s,
		UTXO:  &fakeUTXO{},
		Burns: &fakeBurns{byKey: map[string]burn{
			"bBurn": {destination: "nDest", value: 100 * amount.OneCoin},
		}},
	}

	batch, err := e.ComputePendingPayouts(false, true)
	require.NoError(t, err)
	require.Len(t, batch.WithdrawalPayouts, 1)
	require.Len(t, batch.WithdrawalTaxPayouts, 1)
	assert.Equal(t, amount.AmountAfterTax(100*amount.OneCoin), batch.WithdrawalPayouts[0].Amount)
	assert.Equal(t, amount.Tax(100*amount.OneCoin), batch.WithdrawalTaxPayouts[0].Amount)
}

func TestGatherConsensusIntersects(t *testing.T) {
	a := DepositTaxPayout{DepositAddress: "3A", Amount: 5 * amount.OneCoin}
	b := DepositTaxPayout{DepositAddress: "3B", Amount: 7 * amount.OneCoin}

	replies := []PendingPayouts{
		{DepositTaxPayouts: []DepositTaxPayout{a, b}},
		{DepositTaxPayouts: []DepositTaxPayout{a}}, // missing b
	}
	batch, _ := GatherConsensus(replies, [][]UnspentOutput{nil, nil})
	require.Len(t, batch.DepositTaxPayouts, 1)
	assert.Equal(t, a, batch.DepositTaxPayouts[0])
}

func TestValidateRejectsInsufficientTaxForFee(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertMintBinding(store.MintBinding{
		MintAddress: "0xabc", DepositAddress: "3Deposit", RedeemScript: "51ae",
		Pubkeys: []string{"02aa"}, ApprovedTax: 0, RegisteredAt: 1,
	}))
	e := &Engine{
		Store: s,
		UTXO: &fakeUTXO{received: map[string]amount.Satoshis{
			"3Deposit": 11 * amount.OneCoin, // tax = 10 + 0.01 = 10.01, below the 20-coin network fee
		}},
		Burns: &fakeBurns{},
	}
	batch := PendingPayouts{DepositTaxPayouts: []DepositTaxPayout{
		{DepositAddress: "3Deposit", Amount: amount.Tax(11 * amount.OneCoin)},
	}}
	err := e.Validate(batch)
	assert.Error(t, err)
}

func TestValidateAcceptsConsistentBatch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertMintBinding(store.MintBinding{
		MintAddress: "0xabc", DepositAddress: "3Deposit", RedeemScript: "51ae",
		Pubkeys: []string{"02aa"}, ApprovedTax: 0, RegisteredAt: 1,
	}))
	burnAmount := 3000 * amount.OneCoin
	require.NoError(t, s.InsertWithdrawal(store.Withdrawal{
		BurnAddress: "bBurn", BurnIndex: 0, RequestedValue: burnAmount, ObservedAt: 1,
	}))

	// Amounts large enough that the tax portions alone clear the
	// two-payout network fee (2 * PayoutNetworkFeePerTx = 40 coin).
	received := 5000 * amount.OneCoin
	e := &Engine{
		Store:                s,
		UTXO:                 &fakeUTXO{received: map[string]amount.Satoshis{"3Deposit": received}},
		Burns:                &fakeBurns{byKey: map[string]burn{"bBurn": {destination: "nDest", value: burnAmount}}},
		DepositConfirmations: 6,
	}

	batch := PendingPayouts{
		DepositTaxPayouts: []DepositTaxPayout{{DepositAddress: "3Deposit", Amount: amount.Tax(received)}},
		WithdrawalPayouts: []WithdrawalPayout{{
			BurnAddress: "bBurn", BurnIndex: 0, BurnDestination: "nDest",
			Amount: amount.AmountAfterTax(burnAmount),
		}},
		WithdrawalTaxPayouts: []WithdrawalTaxPayout{{
			BurnAddress: "bBurn", BurnIndex: 0, Amount: amount.Tax(burnAmount),
		}},
	}
	assert.NoError(t, e.Validate(batch))
}

func TestBuildVoutsDropsDustAndComputesChange(t *testing.T) {
	batch := PendingPayouts{
		DepositTaxPayouts: []DepositTaxPayout{
			{DepositAddress: "3A", Amount: 50 * amount.OneCoin},
			{DepositAddress: "3B", Amount: amount.DustThreshold / 2}, // dust, dropped
		},
	}
	unspent := []UnspentOutput{{TxID: "tx1", Vout: 0, Amount: 1000 * amount.OneCoin}}

	inputs, vouts, err := BuildVouts(batch, unspent, TaxAddress("nTax"), TaxAddress("nChange"))
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	var total amount.Satoshis
	for _, v := range vouts {
		total += v.Amount
	}
	// NetworkFee counts every deposit-tax payout in the batch, even the
	// dust one BuildVouts drops from the vout list.
	fee := amount.NetworkFee(len(batch.DepositTaxPayouts), 0)
	assert.Equal(t, 1000*amount.OneCoin-fee, total) // every input satoshi lands in a vout or the fee

	// The change output must go to the dedicated change address, not
	// the tax address: the tax address receives only the non-dust
	// deposit-tax payout.
	var sawChange bool
	for _, v := range vouts {
		if v.Address == "nChange" {
			sawChange = true
			assert.Equal(t, 1000*amount.OneCoin-50*amount.OneCoin-fee, v.Amount)
		}
		if v.Address == "nTax" {
			assert.Equal(t, 50*amount.OneCoin, v.Amount, "change must not be paid to the tax address")
		}
	}
	assert.True(t, sawChange, "expected a change output")
}

func TestBuildVoutsInsufficientFunds(t *testing.T) {
	batch := PendingPayouts{
		DepositTaxPayouts: []DepositTaxPayout{{DepositAddress: "3A", Amount: 500 * amount.OneCoin}},
	}
	unspent := []UnspentOutput{{TxID: "tx1", Vout: 0, Amount: 1 * amount.OneCoin}}

	_, _, err := BuildVouts(batch, unspent, TaxAddress("nTax"), TaxAddress("nChange"))
	assert.Error(t, err)
}
