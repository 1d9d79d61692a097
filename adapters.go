// adapters.go provides adapter implementations that wrap concrete clients
// to implement the minimal interfaces defined in deps.go.
package txrouter

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/tranvictor/jarvis/networks"
)

// EthClientFactory dials an ethclient for a network. Injectable so tests
// and alternative transports can supply their own clients.
type EthClientFactory func(network networks.Network) (*ethclient.Client, error)

// ethClientInspector answers the account type question with eth_getCode:
// any code at the address means a smart-contract account. Clients are dialed
// lazily per chain and reused.
type ethClientInspector struct {
	factory EthClientFactory

	mu      sync.Mutex
	clients map[uint64]*ethclient.Client
}

// NewEthClientInspector creates an AccountInspector backed by ethclient,
// dialing each network's first alternative RPC endpoint on demand.
func NewEthClientInspector(factory EthClientFactory) AccountInspector {
	if factory == nil {
		factory = defaultEthClientFactory
	}
	return &ethClientInspector{
		factory: factory,
		clients: map[uint64]*ethclient.Client{},
	}
}

func defaultEthClientFactory(network networks.Network) (*ethclient.Client, error) {
	for _, url := range network.GetDefaultNodes() {
		client, err := ethclient.Dial(url)
		if err == nil {
			return client, nil
		}
	}
	return nil, fmt.Errorf("couldn't dial any node of network %s", network.GetName())
}

func (i *ethClientInspector) client(network networks.Network) (*ethclient.Client, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if c, ok := i.clients[network.GetChainID()]; ok {
		return c, nil
	}
	c, err := i.factory(network)
	if err != nil {
		return nil, err
	}
	i.clients[network.GetChainID()] = c
	return c, nil
}

func (i *ethClientInspector) IsSmartContractAccount(ctx context.Context, addr common.Address, network networks.Network) (bool, error) {
	c, err := i.client(network)
	if err != nil {
		return false, fmt.Errorf("couldn't get client for network %s: %w", network.GetName(), err)
	}

	// nil block number = latest
	code, err := c.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("couldn't read code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}

// DefaultNetworkResolver resolves network client IDs of the form
// "<decimal chain id>" (e.g. "1", "137") via jarvis' network registry, which
// supports the standard EVM networks. Wallets with named network clients
// should install their own resolver via WithNetworkResolver.
func DefaultNetworkResolver(networkClientID string) (networks.Network, error) {
	chainID, err := strconv.ParseUint(networkClientID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("network client id %q is not a chain id: %w", networkClientID, err)
	}
	return networks.GetNetworkByID(chainID)
}
