// Package redis provides a Redis-based implementation of the txrouter
// dispatch record store.
//
// This package lets replay suppression and submission bookkeeping survive
// wallet restarts and be shared between processes. It implements the
// dispatchlog.Store interface.
//
// # Basic Usage
//
//	import (
//	    "github.com/redis/go-redis/v9"
//	    "github.com/tranvictor/txrouter"
//	    redisstore "github.com/tranvictor/txrouter/persistence/redis"
//	)
//
//	// Create Redis client
//	client := redis.NewClient(&redis.Options{
//	    Addr: "localhost:6379",
//	})
//
//	store := redisstore.NewDispatchStore(client)
//
//	// Create Router with persistence
//	r := txrouter.NewRouter(
//	    txrouter.WithDispatchStore(store),
//	)
//
// # Multi-Tenant Usage
//
// Use key prefixes to isolate data for different applications or environments:
//
//	prodStore := redisstore.NewDispatchStore(client, redisstore.WithDispatchStoreKeyPrefix("prod"))
//	testStore := redisstore.NewDispatchStore(client, redisstore.WithDispatchStoreKeyPrefix("test"))
//
// # Redis Key Structure
//
// The store uses the following key patterns:
//
//   - txrouter:dispatch:{id} - Dispatch record data (JSON)
//   - txrouter:dispatch:origin:{origin} - Set of record IDs per origin
//   - txrouter:dispatch:updated_at - Sorted set of record IDs by last update time
//
// # Thread Safety
//
// The store is thread-safe and can be used from multiple goroutines. Redis
// handles the underlying concurrency control; Create uses SetNX so two
// processes racing on the same action ID still produce exactly one record.
//
// # Cleanup
//
// Use DeleteOlderThan to periodically clean up old records:
//
//	deleted, err := store.DeleteOlderThan(ctx, 24*time.Hour)
//
// # Supported Redis Configurations
//
// The store works with standalone Redis, Redis Sentinel and Redis Cluster.
// Simply pass the appropriate redis.UniversalClient implementation to
// NewDispatchStore.
package redis
