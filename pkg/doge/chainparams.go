package doge

// ChainParams holds the address-prefix bytes for one network of the
// UTXO chain this bridge custodies ("Coin" in the bridge's vocabulary;
// field names keep the Dogecoin-derived prefix bytes this package was
// built from, since the wire format is byte-compatible).
type ChainParams struct {
	p2pkh_address_prefix byte
	p2sh_address_prefix  byte
	pkey_prefix          byte
}

// P2PKHPrefix returns the network's pay-to-pubkey-hash address version
// byte.
func (c *ChainParams) P2PKHPrefix() byte { return c.p2pkh_address_prefix }

// P2SHPrefix returns the network's pay-to-script-hash (multisig
// deposit address) version byte.
func (c *ChainParams) P2SHPrefix() byte { return c.p2sh_address_prefix }

var MainChain ChainParams = ChainParams{
	p2pkh_address_prefix: 0x1e, // D
	p2sh_address_prefix:  0x16, // 9 or A
	pkey_prefix:          0x9e, // Q or 6
}

var TestChain ChainParams = ChainParams{
	p2pkh_address_prefix: 0x71, // n
	p2sh_address_prefix:  0xc4, // 2
	pkey_prefix:          0xf1, // 9 or c
}

var RegTestChain ChainParams = ChainParams{
	p2pkh_address_prefix: 0x6f,
	p2sh_address_prefix:  0xc4, // 2
	pkey_prefix:          0xef,
}

// ChainFromTestNetFlag picks MainChain or TestChain given a deployment's
// testnet flag.
func ChainFromTestNetFlag(is_testnet bool) *ChainParams {
	if is_testnet {
		return &TestChain
	}
	return &MainChain
}
