// Package accountcache caches account type lookups per (address, chainID).
//
// Whether an address is a smart-contract account requires an eth_getCode
// round trip; the answer changes rarely (account deployment), so the router
// caches it with a TTL instead of asking the node on every dispatch.
package accountcache

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type key struct {
	addr    common.Address
	chainID uint64
}

type entry struct {
	smartAccount bool
	storedAt     time.Time
}

// Cache is a TTL cache of account types. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache whose entries expire after ttl. A zero ttl disables
// caching entirely: Get never hits.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: map[key]entry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached account type for (addr, chainID) and whether a
// live entry was found.
func (c *Cache) Get(addr common.Address, chainID uint64) (smartAccount bool, ok bool) {
	if c.ttl <= 0 {
		return false, false
	}

	c.mu.RLock()
	e, found := c.entries[key{addr, chainID}]
	c.mu.RUnlock()

	if !found || c.now().Sub(e.storedAt) > c.ttl {
		return false, false
	}
	return e.smartAccount, true
}

// Set stores the account type for (addr, chainID).
func (c *Cache) Set(addr common.Address, chainID uint64, smartAccount bool) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key{addr, chainID}] = entry{smartAccount: smartAccount, storedAt: c.now()}
	c.mu.Unlock()
}

// Purge drops every entry. Used when the wallet switches accounts wholesale
// (e.g. keyring restore) and cached types can't be trusted.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = map[key]entry{}
	c.mu.Unlock()
}
