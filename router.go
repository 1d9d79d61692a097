package txrouter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tranvictor/jarvis/networks"

	"github.com/tranvictor/txrouter/dispatchlog"
	"github.com/tranvictor/txrouter/internal/accountcache"
)

var (
	ErrNoTransactionController   = fmt.Errorf("no transaction controller configured")
	ErrNoUserOperationController = fmt.Errorf("no user operation controller configured")
	ErrNoAccountInspector        = fmt.Errorf("no account inspector configured")
	ErrResolveNetworkFailed      = fmt.Errorf("resolve network failed")
	ErrInspectAccountFailed      = fmt.Errorf("inspect account failed")
	ErrDuplicateRequest          = fmt.Errorf("duplicate transaction request")
	ErrDappOriginMissing         = fmt.Errorf("dapp transaction request has no origin")
	ErrDappOriginReserved        = fmt.Errorf("dapp transaction request uses the wallet origin")
	ErrSubmitWaitTimeout         = fmt.Errorf("timed out waiting for transaction submission")
)

// Router dispatches wallet transaction requests to one of two controllers
// depending on the sender's account type:
//  1. externally-owned accounts go to the transaction controller, which owns
//     the classic sign-and-broadcast lifecycle.
//  2. smart-contract accounts go to the user operation controller, which
//     wraps the request into an ERC-4337 user operation, and the router
//     normalizes the result into the same TransactionMeta shape, with gas
//     fee fields hex-encoded the way the rest of the wallet expects.
//
// The router owns none of the transaction lifecycle itself. It records every
// dispatch in a dispatchlog.Store so replayed requests (same action ID) are
// rejected and so submission outcomes are queryable afterwards.
type Router struct {
	// Lock for defaults access (protects the defaults struct)
	defaultsMu sync.RWMutex

	// Default configuration applied to dispatches that don't specify their own
	defaults RouterDefaults

	txController     TransactionController
	userOpController UserOperationController
	inspector        AccountInspector

	networkResolver NetworkResolver
	idGenerator     IDGenerator

	// Cached account type lookups, keyed by (address, chainID)
	accountTypes *accountcache.Cache

	// Dispatch records; replay suppression and outcome bookkeeping
	store dispatchlog.Store
}

// NewRouter creates a new Router with optional configuration.
// A transaction controller, user operation controller and account inspector
// must be provided via options before dispatching; missing collaborators
// surface as errors at dispatch time, not at construction.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		defaults: RouterDefaults{
			AccountCacheTTL: DefaultAccountCacheTTL,
			SubmitWait:      DefaultSubmitWait,
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.networkResolver == nil {
		r.networkResolver = DefaultNetworkResolver
	}
	if r.idGenerator == nil {
		r.idGenerator = uuid.NewString
	}
	if r.store == nil {
		r.store = dispatchlog.NewInMemoryStore(0)
	}
	if r.accountTypes == nil {
		r.accountTypes = accountcache.New(r.defaults.AccountCacheTTL)
	}

	return r
}

// Defaults returns the current default configuration.
func (r *Router) Defaults() RouterDefaults {
	r.defaultsMu.RLock()
	defer r.defaultsMu.RUnlock()
	return r.defaults
}

// SetDefaults updates the default configuration. Changing the account cache
// TTL rebuilds the cache, so previously cached account types are dropped.
func (r *Router) SetDefaults(defaults RouterDefaults) {
	r.defaultsMu.Lock()
	defer r.defaultsMu.Unlock()
	if defaults.AccountCacheTTL != r.defaults.AccountCacheTTL {
		r.accountTypes = accountcache.New(defaults.AccountCacheTTL)
	}
	r.defaults = defaults
}

// accountCache returns the current account type cache. SetDefaults can swap
// the cache out, so dispatches must not read the field directly.
func (r *Router) accountCache() *accountcache.Cache {
	r.defaultsMu.RLock()
	defer r.defaultsMu.RUnlock()
	return r.accountTypes
}

// Store returns the dispatch record store.
func (r *Router) Store() dispatchlog.Store {
	return r.store
}

// AddTransaction routes a transaction request to the controller matching the
// sender's account type and returns the dispatch outcome.
//
// With opts.WaitForSubmit set, the call blocks until the controller resolves
// the submission: the final hash is stamped into the returned metadata and a
// submission failure is returned as an error. Without it, the call returns
// as soon as the controller accepts the request; submission failures are
// logged and recorded but not surfaced to the caller.
func (r *Router) AddTransaction(ctx context.Context, params TransactionParams, opts AddTransactionOptions) (*AddTransactionOutcome, error) {
	defaults := r.Defaults()

	if opts.NetworkClientID == "" {
		opts.NetworkClientID = defaults.NetworkClientID
	}
	if opts.Origin == "" {
		opts.Origin = WalletOrigin
	}

	network, err := r.networkResolver(opts.NetworkClientID)
	if err != nil {
		return nil, errors.Join(ErrResolveNetworkFailed, fmt.Errorf("network client id %q: %w", opts.NetworkClientID, err))
	}

	dispatchID := opts.ActionID
	if dispatchID == "" {
		dispatchID = r.idGenerator()
	}

	smartAccount, err := r.isSmartContractAccount(ctx, params, network)
	if err != nil {
		return nil, err
	}

	route := RouteTransaction
	if smartAccount {
		route = RouteUserOperation
	}

	rec, err := r.store.Create(ctx, &dispatchlog.Record{
		ID:      dispatchID,
		Origin:  opts.Origin,
		Route:   string(route),
		ChainID: network.GetChainID(),
	})
	if errors.Is(err, dispatchlog.ErrDuplicateID) {
		fields := logger.Fields{
			"dispatch_id": dispatchID,
			"origin":      opts.Origin,
		}
		// Stores return the existing record alongside ErrDuplicateID, but a
		// third-party store may not honor that.
		if rec != nil {
			fields["created_at"] = rec.CreatedAt
		}
		logger.WithFields(fields).Warn("Rejecting replayed transaction request")
		return nil, errors.Join(ErrDuplicateRequest, fmt.Errorf("dispatch %s already exists", dispatchID))
	}
	if err != nil {
		// The store is bookkeeping, not a gate; a broken store must not
		// block user transactions.
		logger.WithFields(logger.Fields{
			"dispatch_id": dispatchID,
			"error":       err,
		}).Error("Couldn't create dispatch record. Ignore and continue")
		rec = nil
	}

	logger.WithFields(logger.Fields{
		"dispatch_id":       dispatchID,
		"origin":            opts.Origin,
		"network_client_id": opts.NetworkClientID,
		"chain_id":          network.GetChainID(),
		"route":             route,
	}).Debug("Dispatching transaction request")

	var outcome *AddTransactionOutcome
	if smartAccount {
		outcome, err = r.addWithUserOperationController(ctx, params, opts, network, dispatchID)
	} else {
		outcome, err = r.addWithTransactionController(ctx, params, opts, dispatchID)
	}
	if err != nil {
		r.recordFailure(rec, err)
		return nil, err
	}

	return r.resolveOutcome(ctx, outcome, opts.WaitForSubmit, rec)
}

// AddDappTransaction dispatches a transaction request coming from a
// connected dapp. The dapp's origin and action ID are injected into the
// dispatch, swap metadata is stripped, and the call always waits for the
// submission result so the dapp receives either a transaction hash or an
// error.
func (r *Router) AddDappTransaction(ctx context.Context, req DappTransactionRequest) (common.Hash, error) {
	if req.Origin == "" {
		return common.Hash{}, ErrDappOriginMissing
	}
	if req.Origin == WalletOrigin {
		return common.Hash{}, errors.Join(ErrDappOriginReserved, fmt.Errorf("origin %q is reserved for wallet-initiated transactions", WalletOrigin))
	}

	outcome, err := r.AddTransaction(ctx, req.Params, dappOptions(req))
	if err != nil {
		return common.Hash{}, err
	}
	return outcome.Meta.Hash, nil
}

// addWithTransactionController is the externally-owned account path: the
// request is delegated as-is, only the router-owned fields of the returned
// metadata are stamped.
func (r *Router) addWithTransactionController(ctx context.Context, params TransactionParams, opts AddTransactionOptions, dispatchID string) (*AddTransactionOutcome, error) {
	if r.txController == nil {
		return nil, ErrNoTransactionController
	}

	outcome, err := r.txController.AddTransaction(ctx, params, opts)
	if err != nil {
		return nil, fmt.Errorf("transaction controller rejected the request: %w", err)
	}
	if outcome == nil || outcome.Meta == nil {
		return nil, fmt.Errorf("transaction controller returned no metadata")
	}

	outcome.Meta.Route = RouteTransaction
	if outcome.Meta.ID == "" {
		outcome.Meta.ID = dispatchID
	}
	return outcome, nil
}

// addWithUserOperationController is the smart-contract account path: the
// request becomes an ERC-4337 user operation, bundler polling is started for
// the target network, and metadata is built here with the operation's gas
// values hex-encoded.
func (r *Router) addWithUserOperationController(ctx context.Context, params TransactionParams, opts AddTransactionOptions, network networks.Network, dispatchID string) (*AddTransactionOutcome, error) {
	if r.userOpController == nil {
		return nil, ErrNoUserOperationController
	}

	result, err := r.userOpController.AddUserOperationFromTransaction(ctx, params, UserOperationRequest{
		NetworkClientID:       opts.NetworkClientID,
		Origin:                opts.Origin,
		Type:                  opts.Type,
		SecurityAlertResponse: opts.SecurityAlertResponse,
		Swaps:                 opts.Swaps,
	})
	if err != nil {
		return nil, fmt.Errorf("user operation controller rejected the request: %w", err)
	}

	r.userOpController.StartPollingByNetworkClientID(opts.NetworkClientID)

	meta := &TransactionMeta{
		ID:                    dispatchID,
		ChainID:               network.GetChainID(),
		Origin:                opts.Origin,
		Type:                  opts.Type,
		Status:                StatusUnapproved,
		Route:                 RouteUserOperation,
		Params:                applyUserOperationGas(hexTxParams(params), result),
		SecurityAlertResponse: opts.SecurityAlertResponse,
		Time:                  time.Now(),
	}
	if result.ID != "" {
		meta.ID = result.ID
	}

	return &AddTransactionOutcome{
		Meta:   meta,
		Result: result.TransactionHash,
	}, nil
}

// isSmartContractAccount answers the routing question, consulting the TTL
// cache before the inspector.
func (r *Router) isSmartContractAccount(ctx context.Context, params TransactionParams, network networks.Network) (bool, error) {
	cache := r.accountCache()
	if smart, ok := cache.Get(params.From, network.GetChainID()); ok {
		return smart, nil
	}

	if r.inspector == nil {
		return false, ErrNoAccountInspector
	}

	smart, err := r.inspector.IsSmartContractAccount(ctx, params.From, network)
	if err != nil {
		return false, errors.Join(ErrInspectAccountFailed, fmt.Errorf("account %s on chain %d: %w", params.From.Hex(), network.GetChainID(), err))
	}

	cache.Set(params.From, network.GetChainID(), smart)
	return smart, nil
}

// resolveOutcome applies the wait semantics. In waiting mode the submission
// result is consumed here, stamped into the metadata and re-exposed on an
// already-resolved channel; otherwise a goroutine drains the result in the
// background, swallowing errors after logging and recording them.
func (r *Router) resolveOutcome(ctx context.Context, outcome *AddTransactionOutcome, wait bool, rec *dispatchlog.Record) (*AddTransactionOutcome, error) {
	if outcome.Result == nil {
		// Controller resolved synchronously; nothing to wait on.
		return outcome, nil
	}

	if !wait {
		src := outcome.Result
		forwarded := make(chan HashEvent, 1)
		go func() {
			defer close(forwarded)
			ev, ok := <-src
			if !ok {
				return
			}
			if ev.Err != nil {
				logger.WithFields(logger.Fields{
					"tx_id":  outcome.Meta.ID,
					"origin": outcome.Meta.Origin,
					"route":  outcome.Meta.Route,
					"error":  ev.Err,
				}).Warn("Transaction submission failed after dispatch returned")
				r.recordFailure(rec, ev.Err)
			} else {
				r.recordSubmission(rec, ev.Hash)
			}
			forwarded <- ev
		}()
		outcome.Result = forwarded
		return outcome, nil
	}

	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.Defaults().SubmitWait)
		defer cancel()
	}

	select {
	case ev, ok := <-outcome.Result:
		if !ok {
			return outcome, nil
		}
		if ev.Err != nil {
			outcome.Meta.Status = StatusFailed
			r.recordFailure(rec, ev.Err)
			return nil, fmt.Errorf("transaction submission failed: %w", ev.Err)
		}
		outcome.Meta.Hash = ev.Hash
		outcome.Meta.Status = StatusSubmitted
		r.recordSubmission(rec, ev.Hash)
		outcome.Result = resolvedHashChan(ev)
		return outcome, nil
	case <-waitCtx.Done():
		err := errors.Join(ErrSubmitWaitTimeout, waitCtx.Err())
		r.recordFailure(rec, err)
		return nil, err
	}
}

func (r *Router) recordSubmission(rec *dispatchlog.Record, hash common.Hash) {
	if rec == nil {
		return
	}
	rec.Status = dispatchlog.StatusSubmitted
	rec.Hash = hash
	if err := r.store.Update(context.Background(), rec); err != nil {
		logger.WithFields(logger.Fields{
			"dispatch_id": rec.ID,
			"error":       err,
		}).Error("Couldn't update dispatch record. Ignore and continue")
	}
}

func (r *Router) recordFailure(rec *dispatchlog.Record, cause error) {
	if rec == nil {
		return
	}
	rec.Status = dispatchlog.StatusFailed
	rec.SubmitError = cause.Error()
	if err := r.store.Update(context.Background(), rec); err != nil {
		logger.WithFields(logger.Fields{
			"dispatch_id": rec.ID,
			"error":       err,
		}).Error("Couldn't update dispatch record. Ignore and continue")
	}
}

// resolvedHashChan wraps an already-resolved submission event in the channel
// shape the outcome promises.
func resolvedHashChan(ev HashEvent) <-chan HashEvent {
	ch := make(chan HashEvent, 1)
	ch <- ev
	close(ch)
	return ch
}
