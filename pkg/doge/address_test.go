package doge

import (
	"testing"
)

func TestAddress(t *testing.T) {
	// https://en.bitcoin.it/wiki/Technical_background_of_version_1_Bitcoin_addresses
	pub := hx2b("0250863ad64a87ae8a2fe83c1af1a8403cb53f53e486d8511dad8a04887e5b2352")
	addr, err := PubKeyToAddress(pub, MainChain.P2PKHPrefix())
	if err != nil {
		t.Fatalf("PubKeyToAddress: %v", err)
	}
	if !ValidateP2PKH(addr, &MainChain) {
		t.Fatalf("ValidateP2PKH rejected its own output: %s", addr)
	}
}

func TestScriptToP2SH(t *testing.T) {
	redeem := hx2b("514104cc71eb30d653c0c3163990c47b976f3fb3f37cccdcbedb169a1dfef58bbfbfaff7d8a473e7e2e6d317b87bafe8bde97e3cf8f065dec022b51d11fcdd0d348ac4410461cbdcc5409fb4b4d42b51d33381354d80e550078cb532a34bfa2fcfdeb7d76519aecc62770f5b0e4ef8551946d8a540911abe3e7854a26f39f58b25c15342af52ae")
	addr := ScriptToP2SH(redeem, &MainChain)
	if !ValidateP2SH(addr, &MainChain) {
		t.Fatalf("ValidateP2SH rejected its own output: %s", addr)
	}
}
