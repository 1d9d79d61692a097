package txrouter

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/txrouter/dispatchlog"
)

// Dispatcher defines the interface for transaction dispatch operations.
// This interface allows for easy mocking in tests and provides a stable API contract.
type Dispatcher interface {
	// AddTransaction routes a transaction request to the controller matching
	// the sender's account type.
	AddTransaction(ctx context.Context, params TransactionParams, opts AddTransactionOptions) (*AddTransactionOutcome, error)

	// AddDappTransaction dispatches a dapp-originated request and blocks
	// until the submission hash resolves.
	AddDappTransaction(ctx context.Context, req DappTransactionRequest) (common.Hash, error)

	// Dispatch Records
	Store() dispatchlog.Store

	// Default Configuration
	Defaults() RouterDefaults
	SetDefaults(defaults RouterDefaults)
}

// Compile-time check that Router implements Dispatcher
var _ Dispatcher = (*Router)(nil)
