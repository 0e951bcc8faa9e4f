package router

import (
	"sync/atomic"
)

// The process default router lets subsystems with no way to thread a
// Router instance through reach the current one. A node installs its
// router when the runtime starts and replaces it on restart; prefer
// passing routers explicitly where feasible, this registry exists for
// call sites that cannot.
var defaultRouter atomic.Pointer[Router]

// SetDefault installs r as the process default; nil clears it.
func SetDefault(r *Router) {
	defaultRouter.Store(r)
}

// Default returns the process default router, nil when none is installed.
func Default() *Router {
	return defaultRouter.Load()
}

// DefaultOrEmpty never returns nil: when no default is installed, callers
// get a functioning router with no addresses and no mapping.
func DefaultOrEmpty() *Router {
	if r := defaultRouter.Load(); r != nil {
		return r
	}
	return New(nil, "")
}
