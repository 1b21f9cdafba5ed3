// Package ratelimit implements the per-endpoint, per-source-IP token
// buckets spec §5/§7 calls for, with the representative budgets of
// spec §5 built in as named defaults.
//
// Grounded on golang.org/x/time/rate (already required by the pack's
// go.mod for other purposes) rather than a hand-rolled bucket, since
// no example repo ships its own limiter and x/time/rate is the
// ecosystem-standard building block for exactly this shape.
package ratelimit

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Budget is one endpoint's token-bucket parameters: n events per
// window, expressed the way spec §5 states its representative budgets
// ("10/10s", "1/20s", ...).
type Budget struct {
	N      int
	Window float64 // seconds
}

func (b Budget) toLimit() rate.Limit {
	return rate.Limit(float64(b.N) / b.Window)
}

// DefaultBudgets are spec §5's representative per-endpoint budgets.
var DefaultBudgets = map[string]Budget{
	"ping":                       {N: 10, Window: 10},
	"generateDepositAddress":     {N: 1, Window: 20},
	"registerMintDepositAddress": {N: 1, Window: 20},
	"queryMintBalance":           {N: 10, Window: 10},
	"createMintTransaction":      {N: 1, Window: 5},
	"queryBurnHistory":           {N: 10, Window: 10},
	"submitWithdrawal":           {N: 5, Window: 1},
	"stats":                      {N: 1, Window: 5},
}

// Limiter holds one token bucket per (endpoint, source IP) pair,
// created lazily and never evicted - authority node deployments see a
// small, effectively-fixed set of peer IPs, so unbounded growth here
// is not a practical concern (spec's Non-goals exclude a general
// public-facing abuse-resistance story).
type Limiter struct {
	budgets map[string]Budget

	mu       sync.Mutex
	perEndpoint map[string]map[string]*rate.Limiter
}

// New builds a Limiter from budgets, falling back to DefaultBudgets
// for any endpoint budgets omits.
func New(budgets map[string]Budget) *Limiter {
	merged := make(map[string]Budget, len(DefaultBudgets))
	for k, v := range DefaultBudgets {
		merged[k] = v
	}
	for k, v := range budgets {
		merged[k] = v
	}
	return &Limiter{
		budgets:     merged,
		perEndpoint: make(map[string]map[string]*rate.Limiter),
	}
}

// Allow reports whether a request to endpoint from sourceIP may
// proceed, consuming one token if so. Unknown endpoints are always
// allowed (they carry no budget to enforce).
func (l *Limiter) Allow(endpoint, sourceIP string) bool {
	budget, ok := l.budgets[endpoint]
	if !ok {
		return true
	}

	l.mu.Lock()
	byIP, ok := l.perEndpoint[endpoint]
	if !ok {
		byIP = make(map[string]*rate.Limiter)
		l.perEndpoint[endpoint] = byIP
	}
	lim, ok := byIP[sourceIP]
	if !ok {
		lim = rate.NewLimiter(budget.toLimit(), budget.N)
		byIP[sourceIP] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// SourceIP extracts the caller's address for rate-limiting purposes,
// preferring RemoteAddr (this bridge sits directly behind TLS
// termination it controls, not a trusted reverse proxy, so
// X-Forwarded-For is deliberately not consulted).
func SourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
