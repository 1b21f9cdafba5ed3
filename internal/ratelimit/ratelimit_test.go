package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowRespectsBurstThenBlocks(t *testing.T) {
	l := New(map[string]Budget{"test": {N: 2, Window: 60}})

	assert.True(t, l.Allow("test", "1.2.3.4"))
	assert.True(t, l.Allow("test", "1.2.3.4"))
	assert.False(t, l.Allow("test", "1.2.3.4"))
}

func TestAllowIsPerSourceIP(t *testing.T) {
	l := New(map[string]Budget{"test": {N: 1, Window: 60}})

	assert.True(t, l.Allow("test", "1.2.3.4"))
	assert.False(t, l.Allow("test", "1.2.3.4"))
	assert.True(t, l.Allow("test", "5.6.7.8"))
}

func TestAllowUnknownEndpointUnbounded(t *testing.T) {
	l := New(nil)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("no-such-endpoint", "1.2.3.4"))
	}
}

func TestDefaultBudgetsCoverSpecEndpoints(t *testing.T) {
	for _, ep := range []string{
		"ping", "generateDepositAddress", "registerMintDepositAddress",
		"queryMintBalance", "createMintTransaction", "queryBurnHistory",
		"submitWithdrawal", "stats",
	} {
		_, ok := DefaultBudgets[ep]
		assert.True(t, ok, "missing default budget for %s", ep)
	}
}
