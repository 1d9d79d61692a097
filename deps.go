// deps.go defines minimal interfaces for external dependencies.
// This allows for easy mocking in tests and decouples the library from specific implementations.
package txrouter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tranvictor/jarvis/networks"
)

// TransactionController is the externally-owned-account path. It owns the
// whole transaction lifecycle (approval, signing, nonce, gas, broadcast);
// the router only hands requests to it and passes its outcome through.
type TransactionController interface {
	// AddTransaction registers a transaction request and returns its
	// metadata plus a channel resolving to the submission hash.
	AddTransaction(ctx context.Context, params TransactionParams, opts AddTransactionOptions) (*AddTransactionOutcome, error)
}

// UserOperationRequest carries the dispatch context the user operation
// controller needs beyond the raw transaction parameters.
type UserOperationRequest struct {
	NetworkClientID       string
	Origin                string
	Type                  TransactionType
	SecurityAlertResponse *SecurityAlertResponse

	// Swaps is forwarded so the controller can tag swap bundles. Always nil
	// for dapp-originated requests.
	Swaps *SwapsMeta
}

// UserOperationResult is the controller's answer to a user operation
// submission. Gas values come back as the bundler negotiated them; the
// router is responsible for hex-encoding them into TransactionMeta.
type UserOperationResult struct {
	// ID of the user operation within the controller.
	ID string

	// Gas values effective for the bundled operation.
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	// TransactionHash resolves once the bundler includes the operation in a
	// transaction, or fails. Buffered, closed after one send.
	TransactionHash <-chan HashEvent
}

// UserOperationController is the smart-contract-account path. It wraps the
// request into an ERC-4337 user operation and tracks it via a bundler.
type UserOperationController interface {
	// AddUserOperationFromTransaction converts a transaction request into a
	// user operation and submits it to the bundler.
	AddUserOperationFromTransaction(ctx context.Context, params TransactionParams, req UserOperationRequest) (*UserOperationResult, error)

	// StartPollingByNetworkClientID begins polling bundler state for the
	// given network client. Idempotent.
	StartPollingByNetworkClientID(networkClientID string)
}

// AccountInspector answers whether an address is a smart-contract account
// (has code) on a given network.
type AccountInspector interface {
	IsSmartContractAccount(ctx context.Context, addr common.Address, network networks.Network) (bool, error)
}

// NetworkResolver maps a network client ID to a network definition.
// This allows injecting custom network registries for testing or for
// networks not known to jarvis.
type NetworkResolver func(networkClientID string) (networks.Network, error)

// IDGenerator produces transaction metadata IDs. Injectable for
// deterministic tests.
type IDGenerator func() string
