package amount_test

import (
	"testing"

	"github.com/dingo-bridge/dingo-bridge-node/internal/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetsTax(t *testing.T) {
	assert.True(t, amount.MeetsTax(amount.FlatFee))
	assert.False(t, amount.MeetsTax(amount.FlatFee-1))
}

func TestTaxRoundTrip(t *testing.T) {
	// invariant 5: tax(x) + amountAfterTax(x) = x for all x >= FLAT_FEE
	cases := []amount.Satoshis{
		amount.FlatFee,
		amount.FlatFee + 1,
		50 * 1_0000_0000,
		20_000_000_000,
	}
	for _, x := range cases {
		tax := amount.Tax(x)
		after := amount.AmountAfterTax(x)
		assert.Equal(t, x, tax+after, "round trip for %d", x)
	}
}

func TestTaxFormula(t *testing.T) {
	// 50 DOGE deposit, from spec §8 scenario 1
	x := amount.Satoshis(50 * 1_0000_0000)
	require.Equal(t, amount.Satoshis(1_040_000_000), amount.Tax(x))
	require.Equal(t, amount.Satoshis(3_960_000_000), amount.AmountAfterTax(x))
}

func TestBoundaryDust(t *testing.T) {
	// x = FLAT_FEE: meetsTax true, tax(x) = FLAT_FEE, amountAfterTax(x) = 0
	x := amount.FlatFee
	assert.True(t, amount.MeetsTax(x))
	assert.Equal(t, amount.FlatFee, amount.Tax(x))
	assert.Equal(t, amount.Satoshis(0), amount.AmountAfterTax(x))
}

func TestNetworkFeeAsymmetry(t *testing.T) {
	// withdrawal-tax payouts are NOT counted in the network fee.
	fee := amount.NetworkFee(1, 1)
	assert.Equal(t, 2*amount.PayoutNetworkFeePerTx, fee)
}

func TestDecimalStringRoundTrip(t *testing.T) {
	s, err := amount.ParseDecimalString("50.0")
	require.NoError(t, err)
	assert.Equal(t, amount.Satoshis(50*1_0000_0000), s)
	assert.Equal(t, "50", s.ToDecimalString())

	s2, err := amount.ParseDecimalString("0.00000001")
	require.NoError(t, err)
	assert.Equal(t, amount.Satoshis(1), s2)
}

func TestDecimalStringTooPrecise(t *testing.T) {
	_, err := amount.ParseDecimalString("0.000000001")
	assert.Error(t, err)
}

func TestInsufficientTaxForFeeScenario(t *testing.T) {
	// spec §8 scenario 3: one deposit + one withdrawal, fee floor rejects
	depositTax := amount.Satoshis(1_040_000_000)
	withdrawalBurn := amount.Satoshis(8_000_000_000)
	withdrawalTax := amount.Tax(withdrawalBurn)
	require.Equal(t, amount.Satoshis(1_070_000_000), withdrawalTax)

	totalTax := depositTax + withdrawalTax
	networkFee := amount.NetworkFee(1, 1)
	assert.Equal(t, amount.Satoshis(2_110_000_000), totalTax)
	assert.Equal(t, amount.Satoshis(4_000_000_000), networkFee)
	assert.True(t, totalTax < networkFee, "batch should be rejected as InsufficientTaxForFee")
}

func TestInsufficientTaxForFeeScaling(t *testing.T) {
	// spec §8 scenario 4: ten withdrawals each burning 20·10^9 satoshis (200 coins), still fails
	burn := amount.Satoshis(20_000_000_000)
	tax := amount.Tax(burn)
	totalTax10 := tax * 10
	fee10 := amount.NetworkFee(0, 10)
	assert.True(t, totalTax10 < fee10)

	totalTax50 := tax * 50
	fee50 := amount.NetworkFee(0, 50)
	assert.True(t, totalTax50 < fee50)
}
