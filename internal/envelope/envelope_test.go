package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addressSigner is a fakeSigner that only verifies signatures produced
// by itself, and only against the address it was constructed for -
// letting tests distinguish "signed by authority A" from "signed by
// authority B" the way the real wallet signer would.
type addressSigner struct {
	address string
}

func (s addressSigner) Sign(message []byte) ([]byte, error) {
	return append([]byte("sig:"+s.address+":"), message...), nil
}

func (s addressSigner) Verify(message []byte, sig []byte, address string) bool {
	if address != s.address {
		return false
	}
	want, err := s.Sign(message)
	if err != nil {
		return false
	}
	return string(sig) == string(want)
}

type fakeChain struct {
	tip    int64
	hashes map[int64]string
}

func (c fakeChain) Tip() (int64, error) { return c.tip, nil }

func (c fakeChain) BlockHash(height int64) (string, error) {
	if h, ok := c.hashes[height]; ok {
		return h, nil
	}
	return "reorged-hash", nil
}

func TestSealAndVerifyExpectedRoundTrip(t *testing.T) {
	signer := addressSigner{address: "nAuth0"}
	chain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94"}}

	env, err := Seal(map[string]any{"foo": "bar"}, signer, chain, 6)
	require.NoError(t, err)
	require.NotEmpty(t, env.Signature)

	require.NoError(t, VerifyExpected(env, "nAuth0", signer, chain, 6))

	var data struct {
		Foo string `json:"foo"`
	}
	require.NoError(t, env.Unmarshal(&data))
	assert.Equal(t, "bar", data.Foo)
}

func TestVerifyExpectedRejectsWrongAddress(t *testing.T) {
	signer := addressSigner{address: "nAuth0"}
	chain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94"}}

	env, err := Seal(map[string]any{}, signer, chain, 6)
	require.NoError(t, err)

	err = VerifyExpected(env, "nAuth1", signer, chain, 6)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyAnyOfMatchesExactlyOneAuthority(t *testing.T) {
	signer := addressSigner{address: "nAuth1"}
	chain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94"}}

	env, err := Seal(map[string]any{}, signer, chain, 6)
	require.NoError(t, err)

	matched, err := VerifyAnyOf(env, []string{"nAuth0", "nAuth1", "nAuth2"}, signer, chain, 6)
	require.NoError(t, err)
	assert.Equal(t, "nAuth1", matched)
}

func TestVerifyRejectsChainHashMismatchAfterReorg(t *testing.T) {
	signer := addressSigner{address: "nAuth0"}
	// The envelope is sealed against height 94's hash as it stood at
	// signing time.
	sealChain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94-original"}}
	env, err := Seal(map[string]any{}, signer, sealChain, 6)
	require.NoError(t, err)

	// A reorg replaces the block at height 94 with a different one; the
	// binding no longer matches the chain the envelope claims.
	reorgedChain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94-reorged"}}
	err = VerifyExpected(env, "nAuth0", signer, reorgedChain, 6)
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestVerifyRejectsExpiredHeight(t *testing.T) {
	signer := addressSigner{address: "nAuth0"}
	sealChain := fakeChain{tip: 100, hashes: map[int64]string{94: "hash-94"}}
	env, err := Seal(map[string]any{}, signer, sealChain, 6)
	require.NoError(t, err)

	// The chain has advanced far enough that the envelope's height is
	// now more than 2*syncDelayThreshold blocks stale.
	laterChain := fakeChain{tip: 1000, hashes: map[int64]string{94: "hash-94"}}
	err = VerifyExpected(env, "nAuth0", signer, laterChain, 6)
	assert.ErrorIs(t, err, ErrExpired)
}
