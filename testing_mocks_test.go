package txrouter

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tranvictor/jarvis/networks"

	"github.com/tranvictor/txrouter/dispatchlog"
)

// ============================================================
// Mock Implementations
// ============================================================

// mockTransactionController implements TransactionController for testing
type mockTransactionController struct {
	mu sync.Mutex

	// Function hook - set this to customize behavior
	AddTransactionFn func(ctx context.Context, params TransactionParams, opts AddTransactionOptions) (*AddTransactionOutcome, error)

	// Call tracking for assertions
	AddTransactionCalls []struct {
		Params TransactionParams
		Opts   AddTransactionOptions
	}
}

func (m *mockTransactionController) AddTransaction(ctx context.Context, params TransactionParams, opts AddTransactionOptions) (*AddTransactionOutcome, error) {
	m.mu.Lock()
	m.AddTransactionCalls = append(m.AddTransactionCalls, struct {
		Params TransactionParams
		Opts   AddTransactionOptions
	}{params, opts})
	m.mu.Unlock()
	if m.AddTransactionFn != nil {
		return m.AddTransactionFn(ctx, params, opts)
	}
	return &AddTransactionOutcome{
		Meta: &TransactionMeta{
			ID:     "ctrl-tx-1",
			Origin: opts.Origin,
			Type:   opts.Type,
			Status: StatusUnapproved,
			Params: hexTxParams(params),
			Time:   time.Now(),
		},
		Result: resolvedHashChan(HashEvent{Hash: testHash1}),
	}, nil
}

// mockUserOperationController implements UserOperationController for testing
type mockUserOperationController struct {
	mu sync.Mutex

	AddUserOperationFromTransactionFn func(ctx context.Context, params TransactionParams, req UserOperationRequest) (*UserOperationResult, error)

	AddUserOperationCalls []struct {
		Params TransactionParams
		Req    UserOperationRequest
	}
	StartPollingCalls []string
}

func (m *mockUserOperationController) AddUserOperationFromTransaction(ctx context.Context, params TransactionParams, req UserOperationRequest) (*UserOperationResult, error) {
	m.mu.Lock()
	m.AddUserOperationCalls = append(m.AddUserOperationCalls, struct {
		Params TransactionParams
		Req    UserOperationRequest
	}{params, req})
	m.mu.Unlock()
	if m.AddUserOperationFromTransactionFn != nil {
		return m.AddUserOperationFromTransactionFn(ctx, params, req)
	}
	return &UserOperationResult{
		ID:                   "userop-1",
		Gas:                  120000,
		MaxFeePerGas:         twentyGwei,
		MaxPriorityFeePerGas: twoGwei,
		TransactionHash:      resolvedHashChan(HashEvent{Hash: testHash2}),
	}, nil
}

func (m *mockUserOperationController) StartPollingByNetworkClientID(networkClientID string) {
	m.mu.Lock()
	m.StartPollingCalls = append(m.StartPollingCalls, networkClientID)
	m.mu.Unlock()
}

// mockAccountInspector implements AccountInspector for testing
type mockAccountInspector struct {
	mu sync.Mutex

	IsSmartContractAccountFn func(ctx context.Context, addr common.Address, network networks.Network) (bool, error)

	InspectCalls []common.Address
}

func (m *mockAccountInspector) IsSmartContractAccount(ctx context.Context, addr common.Address, network networks.Network) (bool, error) {
	m.mu.Lock()
	m.InspectCalls = append(m.InspectCalls, addr)
	m.mu.Unlock()
	if m.IsSmartContractAccountFn != nil {
		return m.IsSmartContractAccountFn(ctx, addr, network)
	}
	return false, nil
}

// mockNetwork is a minimal jarvis network definition for tests
type mockNetwork struct {
	chainID uint64
	name    string
}

func (m *mockNetwork) GetName() string                            { return m.name }
func (m *mockNetwork) GetChainID() uint64                         { return m.chainID }
func (m *mockNetwork) GetAlternativeNames() []string              { return nil }
func (m *mockNetwork) GetNativeTokenSymbol() string               { return "ETH" }
func (m *mockNetwork) GetNativeTokenDecimal() uint64              { return 18 }
func (m *mockNetwork) GetBlockTime() time.Duration                { return 12 * time.Second }
func (m *mockNetwork) GetNodeVariableName() string                { return "MOCK_NODE" }
func (m *mockNetwork) GetDefaultNodes() map[string]string         { return nil }
func (m *mockNetwork) GetBlockExplorerAPIKeyVariableName() string { return "" }
func (m *mockNetwork) GetBlockExplorerAPIURL() string             { return "" }
func (m *mockNetwork) RecommendedGasPrice() (float64, error)      { return 20.0, nil }
func (m *mockNetwork) GetABIString(address string) (string, error) {
	return "", nil
}
func (m *mockNetwork) IsSyncTxSupported() bool   { return false }
func (m *mockNetwork) MultiCallContract() string { return "" }
func (m *mockNetwork) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"chainID":%d}`, m.chainID)), nil
}
func (m *mockNetwork) UnmarshalJSON([]byte) error { return nil }

// ============================================================
// Test Fixtures
// ============================================================

var (
	testAddr1 = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAddr2 = common.HexToAddress("0x2222222222222222222222222222222222222222")

	testHash1 = common.HexToHash("0xaaaa111111111111111111111111111111111111111111111111111111111111")
	testHash2 = common.HexToHash("0xbbbb222222222222222222222222222222222222222222222222222222222222")

	oneEth     = big.NewInt(1000000000000000000)
	twentyGwei = big.NewInt(20000000000)
	twoGwei    = big.NewInt(2000000000)

	testNetworkClientID = "1"
	testNetwork         = &mockNetwork{chainID: 1, name: "mainnet"}
)

func newTestParams() TransactionParams {
	to := testAddr2
	return TransactionParams{
		From:                 testAddr1,
		To:                   &to,
		Value:                oneEth,
		Gas:                  21000,
		MaxFeePerGas:         twentyGwei,
		MaxPriorityFeePerGas: twoGwei,
	}
}

// ============================================================
// Test Helpers
// ============================================================

// testSetup contains all the mocks needed for a typical test
type testSetup struct {
	Router    *Router
	TxCtrl    *mockTransactionController
	UserOps   *mockUserOperationController
	Inspector *mockAccountInspector
	Store     *dispatchlog.InMemoryStore
}

// newTestSetup creates a complete test setup with default mocks.
// The default inspector reports every account as externally owned.
func newTestSetup(t *testing.T, opts ...RouterOption) *testSetup {
	t.Helper()

	txCtrl := &mockTransactionController{}
	userOps := &mockUserOperationController{}
	inspector := &mockAccountInspector{}
	store := dispatchlog.NewInMemoryStore(0)

	idCounter := 0
	base := []RouterOption{
		WithTransactionController(txCtrl),
		WithUserOperationController(userOps),
		WithAccountInspector(inspector),
		WithDispatchStore(store),
		WithDefaultNetworkClientID(testNetworkClientID),
		WithNetworkResolver(func(networkClientID string) (networks.Network, error) {
			if networkClientID != testNetworkClientID {
				return nil, fmt.Errorf("unknown network client id %q", networkClientID)
			}
			return testNetwork, nil
		}),
		WithIDGenerator(func() string {
			idCounter++
			return fmt.Sprintf("dispatch-%d", idCounter)
		}),
	}

	router := NewRouter(append(base, opts...)...)

	return &testSetup{
		Router:    router,
		TxCtrl:    txCtrl,
		UserOps:   userOps,
		Inspector: inspector,
		Store:     store,
	}
}

// useSmartAccount makes the inspector classify every account as a
// smart-contract account.
func (s *testSetup) useSmartAccount() {
	s.Inspector.IsSmartContractAccountFn = func(ctx context.Context, addr common.Address, network networks.Network) (bool, error) {
		return true, nil
	}
}

// pendingHashChan returns a hash channel the test resolves manually.
func pendingHashChan() chan HashEvent {
	return make(chan HashEvent, 1)
}
