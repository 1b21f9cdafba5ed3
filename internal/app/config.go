package app

import (
	"fmt"
	"os"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// AuthorityNodeConfig is one entry of the ordered, positional authority
// list shared by every node's configuration (spec §6 "Configuration
// inputs"). Position in this slice IS the authority's index; the
// generateDepositAddress/registerMintDepositAddress protocol and
// createMultisig both depend on this order being identical everywhere.
type AuthorityNodeConfig struct {
	Hostname      string `yaml:"hostname"`
	Port          int    `yaml:"port"`
	WalletAddress string `yaml:"walletAddress"`
}

type UTXOConfig struct {
	RPCHost string `yaml:"rpcHost" default:"localhost"`
	RPCPort int    `yaml:"rpcPort" default:"44555"`
	RPCUser string `yaml:"rpcUser"`
	RPCPass string `yaml:"rpcPass"`
}

type EVMConfig struct {
	Provider        string `yaml:"provider"`
	ChainID         int64  `yaml:"chainId"`
	ContractAddress string `yaml:"contractAddress"`
	ContractABIFile string `yaml:"contractAbiFile"`
}

type Config struct {
	AuthorityNodes     []AuthorityNodeConfig `yaml:"authorityNodes"`
	AuthorityThreshold int                   `yaml:"authorityThreshold"`
	PayoutCoordinator  int                   `yaml:"payoutCoordinator"`

	DepositConfirmations int64 `yaml:"depositConfirmations" default:"20"`
	ChangeConfirmations  int64 `yaml:"changeConfirmations" default:"20"`
	SyncDelayThreshold   int64 `yaml:"syncDelayThreshold" default:"3"`

	ChangeAddress     string   `yaml:"changeAddress"`
	TaxPayoutAddresses []string `yaml:"taxPayoutAddresses"`

	UTXO UTXOConfig `yaml:"utxo"`
	EVM  EVMConfig  `yaml:"evm"`

	LogLevel         string `yaml:"logLevel" default:"info"`
	DatabasePath     string `yaml:"databasePath" default:"./dingo-bridge.db"`
	BurnCachePath    string `yaml:"burnCachePath" default:"./dingo-burncache.db"`
	AuditLogPath     string `yaml:"auditLogPath" default:"./dingo-bridge-audit.log"`
	CertPath         string `yaml:"certPath"`
	KeyPath          string `yaml:"keyPath"`
	WalletPrivKeyEnv string `yaml:"walletPrivKeyEnv" default:"DINGO_WALLET_PRIVATE_KEY"`
	EVMPrivKeyEnv    string `yaml:"evmPrivKeyEnv" default:"DINGO_EVM_PRIVATE_KEY"`

	PublicBind string `yaml:"publicBind" default:"0.0.0.0"`
	PublicPort string `yaml:"publicPort" default:"8443"`

	// AdminPort serves the loopback-only /executePayouts trigger
	// (spec §6). Bound to 127.0.0.1 regardless of PublicBind, and only
	// listened on by the configured payout coordinator.
	AdminPort string `yaml:"adminPort" default:"8444"`

	// WalletPrivateKey and EVMPrivateKey are never read from the YAML
	// file - they are loaded once from the environment at startup
	// (spec §5 "Shared-resource policy") and never persisted through
	// the wire or logged.
	WalletPrivateKey string `yaml:"-"`
	EVMPrivateKey    string `yaml:"-"`

	// SelfIndex is this process's own position in AuthorityNodes,
	// resolved at startup by matching WalletPrivateKey's derived
	// address against the configured walletAddress list.
	SelfIndex int `yaml:"-"`
}

// LoadConfig reads the YAML configuration file, overlays secrets from
// the environment (optionally loaded from envFile via godotenv), and
// validates the result. Grounded on wpokt-validator's app/config.go
// (InitConfig/readConfigFromEnv/validateConfig split) generalized from
// a flat env-var config to this bridge's nested YAML shape.
func LoadConfig(configFile, envFile string) (Config, error) {
	var c Config
	if err := configor.Load(&c, configFile); err != nil {
		return Config{}, fmt.Errorf("[CONFIG] reading config file %q: %w", configFile, err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Warnf("[CONFIG] could not load env file %q: %s", envFile, err.Error())
		}
	}
	c.WalletPrivateKey = os.Getenv(c.WalletPrivKeyEnv)
	c.EVMPrivateKey = os.Getenv(c.EVMPrivKeyEnv)

	if err := validateConfig(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func validateConfig(c Config) error {
	if len(c.AuthorityNodes) == 0 {
		return fmt.Errorf("[CONFIG] authorityNodes is required")
	}
	if c.AuthorityThreshold < 1 || c.AuthorityThreshold > len(c.AuthorityNodes) {
		return fmt.Errorf("[CONFIG] authorityThreshold must be between 1 and len(authorityNodes)")
	}
	if c.PayoutCoordinator < 0 || c.PayoutCoordinator >= len(c.AuthorityNodes) {
		return fmt.Errorf("[CONFIG] payoutCoordinator must index into authorityNodes")
	}
	if c.ChangeAddress == "" {
		return fmt.Errorf("[CONFIG] changeAddress is required")
	}
	if len(c.TaxPayoutAddresses) == 0 {
		return fmt.Errorf("[CONFIG] taxPayoutAddresses is required")
	}
	if c.WalletPrivateKey == "" {
		return fmt.Errorf("[CONFIG] wallet private key is required (env %s)", c.WalletPrivKeyEnv)
	}
	if c.EVMPrivateKey == "" {
		return fmt.Errorf("[CONFIG] evm private key is required (env %s)", c.EVMPrivKeyEnv)
	}
	if c.EVM.Provider == "" || c.EVM.ContractAddress == "" {
		return fmt.Errorf("[CONFIG] evm.provider and evm.contractAddress are required")
	}
	return nil
}

// IsCoordinator reports whether this process is the configured payout
// coordinator.
func (c Config) IsCoordinator() bool {
	return c.SelfIndex == c.PayoutCoordinator
}
