package txrouter

import (
	"time"

	"github.com/tranvictor/txrouter/dispatchlog"
	"github.com/tranvictor/txrouter/internal/accountcache"
)

// RouterOption is a function that configures a Router
type RouterOption func(*Router)

// WithTransactionController sets the controller handling externally-owned
// account transactions
func WithTransactionController(c TransactionController) RouterOption {
	return func(r *Router) {
		r.txController = c
	}
}

// WithUserOperationController sets the controller handling smart-contract
// account transactions
func WithUserOperationController(c UserOperationController) RouterOption {
	return func(r *Router) {
		r.userOpController = c
	}
}

// WithAccountInspector sets the account type inspector
func WithAccountInspector(i AccountInspector) RouterOption {
	return func(r *Router) {
		r.inspector = i
	}
}

// WithNetworkResolver sets a custom network resolver for looking up networks
// by network client ID. If not set, the router treats network client IDs as
// decimal chain IDs and resolves them through jarvis' registry of standard
// EVM networks (Ethereum, Polygon, Arbitrum, Optimism, etc.).
func WithNetworkResolver(resolver NetworkResolver) RouterOption {
	return func(r *Router) {
		r.networkResolver = resolver
	}
}

// WithDispatchStore sets a custom dispatch record store. If not set, the
// router uses an in-memory store with no expiry.
func WithDispatchStore(store dispatchlog.Store) RouterOption {
	return func(r *Router) {
		r.store = store
	}
}

// WithIDGenerator sets a custom dispatch ID generator, used when a request
// carries no action ID. Useful for deterministic tests.
func WithIDGenerator(gen IDGenerator) RouterOption {
	return func(r *Router) {
		r.idGenerator = gen
	}
}

// WithDefaultNetworkClientID sets the network client ID used by dispatches
// that don't name one
func WithDefaultNetworkClientID(networkClientID string) RouterOption {
	return func(r *Router) {
		r.defaults.NetworkClientID = networkClientID
	}
}

// WithAccountCacheTTL sets how long account type lookups are cached.
// Zero disables the cache.
func WithAccountCacheTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.defaults.AccountCacheTTL = ttl
		r.accountTypes = accountcache.New(ttl)
	}
}

// WithSubmitWait bounds how long a blocking dispatch waits for the
// submission result when the caller's context has no deadline
func WithSubmitWait(d time.Duration) RouterOption {
	return func(r *Router) {
		r.defaults.SubmitWait = d
	}
}

// WithDefaults sets all default configuration at once
func WithDefaults(defaults RouterDefaults) RouterOption {
	return func(r *Router) {
		r.defaults = defaults
		r.accountTypes = accountcache.New(defaults.AccountCacheTTL)
	}
}
