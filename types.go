package txrouter

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Constants for dispatch behavior
const (
	// DefaultAccountCacheTTL is how long an account type lookup (EOA vs
	// smart-contract account) is cached before the inspector is asked again.
	DefaultAccountCacheTTL = 5 * time.Minute

	// DefaultSubmitWait bounds how long a dispatch waits on the submission
	// result when WaitForSubmit is set and the caller's context has no deadline.
	DefaultSubmitWait = 5 * time.Minute

	// WalletOrigin is the origin recorded for transactions initiated by the
	// wallet itself rather than by a connected dapp.
	WalletOrigin = "wallet"
)

// Route identifies which controller a transaction request was dispatched to.
type Route string

const (
	// RouteTransaction means the request went to the transaction controller
	// (externally-owned account path).
	RouteTransaction Route = "transaction"
	// RouteUserOperation means the request went to the user operation
	// controller (smart-contract account path).
	RouteUserOperation Route = "user_operation"
)

// TransactionType classifies how a transaction entered the wallet.
type TransactionType string

const (
	TypeSimpleSend  TransactionType = "simpleSend"
	TypeContract    TransactionType = "contractInteraction"
	TypeDapp        TransactionType = "dappInteraction"
	TypeSwap        TransactionType = "swap"
	TypeSwapApprove TransactionType = "swapApproval"
)

// TransactionStatus is the lifecycle status reported in transaction metadata.
// The full lifecycle lives inside the controllers; the router only ever
// stamps the statuses below.
type TransactionStatus string

const (
	StatusUnapproved TransactionStatus = "unapproved"
	StatusSubmitted  TransactionStatus = "submitted"
	StatusFailed     TransactionStatus = "failed"
)

// TransactionParams are the raw request parameters as they arrive from the
// caller (wallet UI or dapp). Gas fee fields are big integers in wei; the
// router hex-encodes them when it builds metadata on the user operation path.
type TransactionParams struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte

	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasPrice             *big.Int
}

// SwapsMeta carries swap-flow bookkeeping attached by the wallet's swap
// feature. Dapp-originated transactions must never carry it.
type SwapsMeta struct {
	HasApproveTx     bool
	SourceToken      string
	DestinationToken string
	SourceAmount     *big.Int
}

// SecurityAlertResponse is the verdict of the dapp-request security scanner,
// passed through to the controllers untouched.
type SecurityAlertResponse struct {
	ResultType  string
	Reason      string
	Description string
}

// AddTransactionOptions control a single dispatch.
type AddTransactionOptions struct {
	// NetworkClientID selects the network the transaction targets.
	NetworkClientID string

	// Origin of the request. Empty means WalletOrigin.
	Origin string

	// ActionID deduplicates replayed requests; dispatches sharing an action
	// ID after the first are rejected with ErrDuplicateRequest.
	ActionID string

	// Type is a hint for the wallet UI; controllers may refine it.
	Type TransactionType

	// WaitForSubmit makes the dispatch block until the controller reports
	// the submission hash; submission errors are then returned to the
	// caller instead of being swallowed.
	WaitForSubmit bool

	// Swaps is swap-flow metadata, if this transaction is part of a swap.
	Swaps *SwapsMeta

	// SecurityAlertResponse is attached for dapp requests that went through
	// the scanner.
	SecurityAlertResponse *SecurityAlertResponse
}

// TxParamsHex is the hex-encoded form of the transaction parameters as
// recorded in TransactionMeta. Empty strings mean the field was absent from
// the request.
type TxParamsHex struct {
	From                 string
	To                   string
	Value                string
	Data                 string
	Gas                  string
	MaxFeePerGas         string
	MaxPriorityFeePerGas string
	GasPrice             string
}

// TransactionMeta is the normalized description of a dispatched transaction,
// independent of which controller handled it.
type TransactionMeta struct {
	ID      string
	ChainID uint64
	Origin  string
	Type    TransactionType
	Status  TransactionStatus
	Route   Route

	// Hash is zero until the submission result resolves.
	Hash common.Hash

	Params TxParamsHex

	SecurityAlertResponse *SecurityAlertResponse

	Time time.Time
}

// HashEvent resolves a pending submission: either the transaction hash or
// the error that prevented submission. Channels carrying HashEvent are
// buffered with capacity 1 and closed after the single send.
type HashEvent struct {
	Hash common.Hash
	Err  error
}

// AddTransactionOutcome is what a dispatch returns: metadata known at
// dispatch time plus a channel resolving to the submission hash.
type AddTransactionOutcome struct {
	Meta   *TransactionMeta
	Result <-chan HashEvent
}

// DappTransactionRequest is a transaction request arriving from a connected
// dapp via the RPC pipeline.
type DappTransactionRequest struct {
	Origin          string
	ActionID        string
	NetworkClientID string

	Params TransactionParams

	SecurityAlertResponse *SecurityAlertResponse
}

// RouterDefaults holds default configuration values applied to dispatches
// that don't specify their own.
type RouterDefaults struct {
	// NetworkClientID used when a dispatch doesn't name one.
	NetworkClientID string

	// AccountCacheTTL for cached account type lookups.
	AccountCacheTTL time.Duration

	// SubmitWait bounds blocking dispatches without a caller deadline.
	SubmitWait time.Duration
}
