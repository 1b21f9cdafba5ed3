package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dingo-bridge/dingo-bridge-node/internal/app"
	"github.com/dingo-bridge/dingo-bridge-node/internal/burncache"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/evmclient"
	"github.com/dingo-bridge/dingo-bridge-node/internal/httpapi"
	"github.com/dingo-bridge/dingo-bridge-node/internal/mintauth"
	"github.com/dingo-bridge/dingo-bridge-node/internal/payout"
	"github.com/dingo-bridge/dingo-bridge-node/internal/registrar"
	"github.com/dingo-bridge/dingo-bridge-node/internal/stats"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
	"github.com/dingo-bridge/dingo-bridge-node/internal/withdrawal"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/conductor"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/doge"
)

// nodeVersion is reported in every /stats snapshot so operators can
// spot a node running stale software during a rollout.
const nodeVersion = "dingo-bridge-node/0.1.0"

// Server wires every domain service against the configured store,
// chain clients, and signer, then hands them to a conductor to run.
// Grounded on gigawallet's cmd/gigawallet/server.go composition order:
// storage first, chain clients next, domain services last, API server
// started only once everything it depends on already exists.
func Server(cfg app.Config) {
	chainParams := doge.ChainFromTestNetFlag(cfg.UTXO.RPCPort != 22555)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("opening store: %s", err)
	}
	defer st.Close()

	burnCache, err := burncache.Open(cfg.BurnCachePath)
	if err != nil {
		log.Fatalf("opening burn cache: %s", err)
	}
	defer burnCache.Close()

	utxo := utxoclient.NewClient(cfg.UTXO.RPCHost, cfg.UTXO.RPCPort, cfg.UTXO.RPCUser, cfg.UTXO.RPCPass, chainParams)

	evm, err := evmclient.Dial(cfg.EVM.Provider, cfg.EVM.ChainID, cfg.EVM.ContractAddress, cfg.EVM.ContractABIFile, cfg.EVMPrivateKey)
	if err != nil {
		log.Fatalf("dialing EVM provider: %s", err)
	}

	signer, err := envelope.NewWalletSigner([]byte(cfg.WalletPrivateKey), chainParams)
	if err != nil {
		log.Fatalf("constructing wallet signer: %s", err)
	}
	selfAddress, err := signer.Address()
	if err != nil {
		log.Fatalf("deriving self address: %s", err)
	}
	cfg.SelfIndex = -1
	authorities := make([]registrar.Authority, len(cfg.AuthorityNodes))
	for i, n := range cfg.AuthorityNodes {
		authorities[i] = registrar.Authority{WalletAddress: n.WalletAddress}
		if n.WalletAddress == selfAddress {
			cfg.SelfIndex = i
		}
	}
	if cfg.SelfIndex == -1 {
		log.Fatalf("this node's wallet address %s is not present in authorityNodes", selfAddress)
	}

	burnResolver := &evmclient.BurnResolver{EVM: evm, Cache: burnCache}

	registrarSvc := &registrar.Service{
		Store:           st,
		UTXO:            utxo,
		Signer:          signer,
		Chain:           utxo,
		SyncDelay:       cfg.SyncDelayThreshold,
		Authorities:     authorities,
		AuthorityThresh: cfg.AuthorityThreshold,
	}
	withdrawalSvc := &withdrawal.Service{
		Store:     st,
		Burns:     burnResolver,
		Chain:     chainParams,
		Signer:    signer,
		ChainView: utxo,
		SyncDelay: cfg.SyncDelayThreshold,
	}
	mintAuthSvc := &mintauth.Service{
		Store:                st,
		UTXO:                 utxo,
		Contract:             evm,
		EVM:                  evm,
		DepositConfirmations: cfg.DepositConfirmations,
	}
	payoutEngine := &payout.Engine{
		Store:                st,
		UTXO:                 utxo,
		Burns:                burnResolver,
		DepositConfirmations: cfg.DepositConfirmations,
	}
	statsSvc := &stats.Service{
		Store:     st,
		UTXO:      utxo,
		Signer:    signer,
		Chain:     utxo,
		SyncDelay: cfg.SyncDelayThreshold,
		Config: stats.Config{
			NodeVersion: nodeVersion,
			Public: stats.PublicSettings{
				AuthorityThreshold: cfg.AuthorityThreshold,
				AuthorityCount:     len(cfg.AuthorityNodes),
				SyncDelay:          cfg.SyncDelayThreshold,
			},
			SmartContract: stats.SmartContractSettings{
				ChainID:         cfg.EVM.ChainID,
				ContractAddress: cfg.EVM.ContractAddress,
			},
			DepositConfirmations: cfg.DepositConfirmations,
			ChangeAddresses:      []string{cfg.ChangeAddress},
		},
	}

	var coordinator *payout.Coordinator
	if cfg.IsCoordinator() {
		peers := make([]payout.PeerClient, 0, len(cfg.AuthorityNodes)-1)
		for i, n := range cfg.AuthorityNodes {
			if i == cfg.SelfIndex {
				continue
			}
			peers = append(peers, &httpapi.PeerClient{
				BaseURL:   fmt.Sprintf("https://%s:%d", n.Hostname, n.Port),
				Signer:    signer,
				Chain:     utxo,
				SyncDelay: cfg.SyncDelayThreshold,
			})
		}
		if len(cfg.TaxPayoutAddresses) == 0 {
			log.Fatalf("taxPayoutAddresses must configure at least one address")
		}
		coordinator = &payout.Coordinator{
			Engine:        payoutEngine,
			UTXO:          utxo,
			Peers:         peers,
			TaxAddress:    payout.TaxAddress(cfg.TaxPayoutAddresses[0]),
			ChangeAddress: payout.TaxAddress(cfg.ChangeAddress),
			RedeemScripts: func() ([]string, error) {
				bindings, err := st.ListMintBindings()
				if err != nil {
					return nil, err
				}
				scripts := make([]string, len(bindings))
				for i, b := range bindings {
					scripts[i] = b.RedeemScript
				}
				return scripts, nil
			},
		}
	}

	api := httpapi.NewAPI(cfg, registrarSvc, withdrawalSvc, mintAuthSvc, payoutEngine, coordinator, statsSvc, st, burnCache, utxo, signer, utxo)

	c := conductor.NewConductor(conductor.HookSignals(), conductor.Noisy())
	c.Service("HTTP API", api)

	log.Infof("dingo-bridge-node starting as authority %d/%d (coordinator=%v)", cfg.SelfIndex, len(cfg.AuthorityNodes), cfg.IsCoordinator())
	<-c.Start()
	os.Exit(0)
}
