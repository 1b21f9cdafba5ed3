package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDepositPubkeyUniqueness(t *testing.T) {
	s := openTestStore(t)
	err := s.InsertDepositPubkey(DepositPubkey{Pubkey: "02aa", MintAddress: "0xabc", IssuedAt: 1})
	require.NoError(t, err)

	used, err := s.IsDepositPubkeyUsed("02aa")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = s.IsDepositPubkeyUsed("02bb")
	require.NoError(t, err)
	assert.False(t, used)

	err = s.InsertDepositPubkey(DepositPubkey{Pubkey: "02aa", MintAddress: "0xdef", IssuedAt: 2})
	assert.Error(t, err)
}

func TestMintBindingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	b := MintBinding{
		MintAddress:    "0xabc",
		DepositAddress: "3Deposit",
		RedeemScript:   "5121...52ae",
		Pubkeys:        []string{"02aa", "02bb", "02cc"},
		ApprovedTax:    3 * amount.OneCoin / 100,
		RegisteredAt:   100,
	}
	require.NoError(t, s.InsertMintBinding(b))

	got, err := s.GetMintBindingByMintAddress("0xabc")
	require.NoError(t, err)
	assert.Equal(t, b.DepositAddress, got.DepositAddress)
	assert.Equal(t, b.Pubkeys, got.Pubkeys)
	assert.Equal(t, b.ApprovedTax, got.ApprovedTax)

	got2, err := s.GetMintBindingByDepositAddress("3Deposit")
	require.NoError(t, err)
	assert.Equal(t, b.MintAddress, got2.MintAddress)

	_, err = s.GetMintBindingByMintAddress("0xnonexistent")
	assert.Error(t, err)

	all, err := s.ListMintBindings()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWithdrawalLifecycle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertWithdrawal(Withdrawal{
		BurnAddress: "bBurn", BurnIndex: 0, RequestedValue: 50 * amount.OneCoin, ObservedAt: 10,
	}))

	pending, err := s.ListPendingWithdrawals()
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.False(t, pending[0].Approved())

	err = s.ApproveWithdrawal("bBurn", 0, 46*amount.OneCoin, 4*amount.OneCoin, 20)
	require.NoError(t, err)

	// Approving again must fail: it is no longer pending.
	err = s.ApproveWithdrawal("bBurn", 0, 46*amount.OneCoin, 4*amount.OneCoin, 21)
	assert.Error(t, err)

	stillPending, err := s.ListPendingWithdrawals()
	require.NoError(t, err)
	assert.Empty(t, stillPending)

	approved, err := s.GetWithdrawal("bBurn", 0)
	require.NoError(t, err)
	assert.True(t, approved.Approved())
	assert.Equal(t, 46*amount.OneCoin, approved.ApprovedAmount)

	require.NoError(t, s.MarkWithdrawalPaid("bBurn", 0, "txid123", 30))

	got, err := s.GetWithdrawal("bBurn", 0)
	require.NoError(t, err)
	assert.Equal(t, "txid123", got.PayoutTxID)
}

func TestDumpAndReset(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDepositPubkey(DepositPubkey{Pubkey: "02aa", MintAddress: "0xabc", IssuedAt: 1}))
	require.NoError(t, s.InsertMintBinding(MintBinding{
		MintAddress: "0xabc", DepositAddress: "3Deposit", RedeemScript: "51ae",
		Pubkeys: []string{"02aa"}, ApprovedTax: 0, RegisteredAt: 1,
	}))
	require.NoError(t, s.InsertWithdrawal(Withdrawal{BurnAddress: "bBurn", BurnIndex: 0, RequestedValue: 1, ObservedAt: 1}))

	d, err := s.Dump()
	require.NoError(t, err)
	assert.Len(t, d.DepositPubkeys, 1)
	assert.Len(t, d.MintBindings, 1)
	assert.Len(t, d.Withdrawals, 1)

	other := openTestStore(t)
	require.NoError(t, other.Reset(d))
	d2, err := other.Dump()
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}
