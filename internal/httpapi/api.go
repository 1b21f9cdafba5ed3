package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dingo-bridge/dingo-bridge-node/internal/app"
	"github.com/dingo-bridge/dingo-bridge-node/internal/bridgeerr"
	"github.com/dingo-bridge/dingo-bridge-node/internal/burncache"
	"github.com/dingo-bridge/dingo-bridge-node/internal/envelope"
	"github.com/dingo-bridge/dingo-bridge-node/internal/mintauth"
	"github.com/dingo-bridge/dingo-bridge-node/internal/payout"
	"github.com/dingo-bridge/dingo-bridge-node/internal/ratelimit"
	"github.com/dingo-bridge/dingo-bridge-node/internal/registrar"
	"github.com/dingo-bridge/dingo-bridge-node/internal/stats"
	"github.com/dingo-bridge/dingo-bridge-node/internal/store"
	"github.com/dingo-bridge/dingo-bridge-node/internal/utxoclient"
	"github.com/dingo-bridge/dingo-bridge-node/internal/withdrawal"
	"github.com/dingo-bridge/dingo-bridge-node/pkg/conductor"
)

// API implements conductor.Service. It owns the admin (loopback) and
// public HTTPS listeners - authority and coordinator endpoints are
// served on the public listener - and dispatches
// every endpoint of spec §6 to the already-wired domain services -
// httpapi itself holds no business logic, only request parsing,
// envelope verification, rate limiting, and response shaping.
type API struct {
	Config app.Config

	Registrar   *registrar.Service
	Withdrawal  *withdrawal.Service
	MintAuth    *mintauth.Service
	Payout      *payout.Engine
	Coordinator *payout.Coordinator // nil unless Config.IsCoordinator()
	Stats       *stats.Service
	Store       *store.Store
	BurnCache   *burncache.Cache
	UTXO        *utxoclient.Client

	Signer    envelope.Signer
	Chain     envelope.ChainView
	SyncDelay int64

	// AuthorityAddresses is every configured authority's wallet
	// address, in positional order, for VerifyAnyOf on authority-only
	// endpoints.
	AuthorityAddresses []string
	// CoordinatorAddress is AuthorityAddresses[Config.PayoutCoordinator].
	CoordinatorAddress string

	Limiter *ratelimit.Limiter
}

var _ conductor.Service = (*API)(nil)

// NewAPI wires an API from already-constructed domain services.
func NewAPI(cfg app.Config, registrarSvc *registrar.Service, withdrawalSvc *withdrawal.Service, mintAuthSvc *mintauth.Service, payoutEngine *payout.Engine, coordinator *payout.Coordinator, statsSvc *stats.Service, st *store.Store, burns *burncache.Cache, utxo *utxoclient.Client, signer envelope.Signer, chain envelope.ChainView) *API {
	addrs := make([]string, len(cfg.AuthorityNodes))
	for i, n := range cfg.AuthorityNodes {
		addrs[i] = n.WalletAddress
	}
	return &API{
		Config:             cfg,
		Registrar:          registrarSvc,
		Withdrawal:         withdrawalSvc,
		MintAuth:           mintAuthSvc,
		Payout:             payoutEngine,
		Coordinator:        coordinator,
		Stats:              statsSvc,
		Store:              st,
		BurnCache:          burns,
		UTXO:               utxo,
		Signer:             signer,
		Chain:              chain,
		SyncDelay:          cfg.SyncDelayThreshold,
		AuthorityAddresses: addrs,
		CoordinatorAddress: addrs[cfg.PayoutCoordinator],
		Limiter:            ratelimit.New(nil),
	}
}

// Run starts the public (internet-facing) and admin (loopback-only)
// HTTPS listeners, following gigawallet's WebAPI.Run dual-server
// started/stopped/stop-context convention.
func (a *API) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		pubMux, adminMux := a.createRouters()

		pubServer := &http.Server{
			Addr:    a.Config.PublicBind + ":" + a.Config.PublicPort,
			Handler: pubMux,
		}
		go func() {
			var err error
			if a.Config.CertPath != "" && a.Config.KeyPath != "" {
				err = pubServer.ListenAndServeTLS(a.Config.CertPath, a.Config.KeyPath)
			} else {
				err = pubServer.ListenAndServe()
			}
			if err != nil && err != http.ErrServerClosed {
				log.Fatalf("httpapi: public ListenAndServe: %v", err)
			}
		}()

		// /executePayouts binds only to loopback, matching spec.md §6,
		// and only the coordinator node has any use for it.
		var adminServer *http.Server
		if a.Config.IsCoordinator() {
			adminServer = &http.Server{Addr: fmt.Sprintf("127.0.0.1:%s", a.Config.AdminPort), Handler: adminMux}
			go func() {
				var err error
				if a.Config.CertPath != "" && a.Config.KeyPath != "" {
					err = adminServer.ListenAndServeTLS(a.Config.CertPath, a.Config.KeyPath)
				} else {
					err = adminServer.ListenAndServe()
				}
				if err != nil && err != http.ErrServerClosed {
					log.Fatalf("httpapi: admin ListenAndServe: %v", err)
				}
			}()
		}

		started <- true
		ctx := <-stop
		pubServer.Shutdown(ctx)
		if adminServer != nil {
			adminServer.Shutdown(ctx)
		}
		stopped <- true
	}()
	return nil
}

func (a *API) createRouters() (pubMux, adminMux *httprouter.Router) {
	pubMux = httprouter.New()
	adminMux = httprouter.New()

	// Public endpoints (spec §6).
	pubMux.POST("/ping", a.limited("ping", a.ping))
	pubMux.POST("/generateDepositAddress", a.limited("generateDepositAddress", a.generateDepositAddress))
	pubMux.POST("/registerMintDepositAddress", a.limited("registerMintDepositAddress", a.registerMintDepositAddress))
	pubMux.POST("/queryMintBalance", a.limited("queryMintBalance", a.queryMintBalance))
	pubMux.POST("/createMintTransaction", a.limited("createMintTransaction", a.createMintTransaction))
	pubMux.POST("/queryBurnHistory", a.limited("queryBurnHistory", a.queryBurnHistory))
	pubMux.POST("/submitWithdrawal", a.limited("submitWithdrawal", a.submitWithdrawal))
	pubMux.POST("/stats", a.limited("stats", a.getStats))

	// Authority-only endpoints (signed by any configured authority).
	pubMux.POST("/computePendingPayouts", a.computePendingPayouts)
	pubMux.POST("/computeUnspent", a.computeUnspent)
	pubMux.POST("/log", a.getLog)
	pubMux.POST("/dumpDatabase", a.dumpDatabase)
	pubMux.POST("/resetDatabase", a.resetDatabase)
	pubMux.POST("/dingoDoesAHarakiri", a.harakiri)

	// Coordinator-only endpoints (signed by the configured coordinator).
	pubMux.POST("/approvePayouts", a.approvePayouts(false))
	pubMux.POST("/approvePayoutsTest", a.approvePayouts(true))

	// Loopback-only coordinator-internal trigger.
	adminMux.POST("/executePayouts", a.executePayouts)

	return pubMux, adminMux
}

// limited wraps handler with a per-(endpoint, source IP) rate-limit
// check (spec §5/§7, internal/ratelimit).
func (a *API) limited(endpoint string, handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if !a.Limiter.Allow(endpoint, ratelimit.SourceIP(r)) {
			sendErrorResponse(w, http.StatusTooManyRequests, bridgeerr.RateLimited, fmt.Sprintf("%s: rate limit exceeded", endpoint))
			return
		}
		handler(w, r, p)
	}
}
