package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tranvictor/txrouter/dispatchlog"
)

// Key prefixes for dispatch record storage
const (
	dispatchKeyPrefix       = "txrouter:dispatch:"           // record data by ID
	dispatchOriginKeyPrefix = "txrouter:dispatch:origin:"    // set of IDs per origin
	dispatchUpdatedSetKey   = "txrouter:dispatch:updated_at" // sorted set of IDs by update time
)

// DispatchStore provides Redis-based persistence for dispatch records.
// It implements the dispatchlog.Store interface.
//
// Note: records do not automatically expire unless a TTL is configured.
// Use DeleteOlderThan for periodic cleanup of old records.
type DispatchStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// DispatchStoreOption configures a DispatchStore.
type DispatchStoreOption func(*DispatchStore)

// WithDispatchStoreKeyPrefix sets a custom prefix for all Redis keys.
// Useful for multi-tenant deployments sharing the same Redis instance.
func WithDispatchStoreKeyPrefix(prefix string) DispatchStoreOption {
	return func(s *DispatchStore) {
		s.keyPrefix = prefix
	}
}

// WithDispatchStoreTTL sets a TTL on record keys. Redis will automatically
// expire records after the specified duration. The origin and update-time
// indexes are reconciled lazily and by DeleteOlderThan.
func WithDispatchStoreTTL(ttl time.Duration) DispatchStoreOption {
	return func(s *DispatchStore) {
		s.ttl = ttl
	}
}

// NewDispatchStore creates a new Redis-based dispatch record store.
func NewDispatchStore(client redis.UniversalClient, opts ...DispatchStoreOption) *DispatchStore {
	s := &DispatchStore{
		client: client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key returns the full Redis key with optional prefix.
func (s *DispatchStore) key(parts ...string) string {
	var key string
	for _, p := range parts {
		key += p
	}
	if s.keyPrefix != "" {
		return s.keyPrefix + ":" + key
	}
	return key
}

func (s *DispatchStore) recordKey(id string) string {
	return s.key(dispatchKeyPrefix, id)
}

func (s *DispatchStore) originKey(origin string) string {
	return s.key(dispatchOriginKeyPrefix, origin)
}

func (s *DispatchStore) updatedSetKey() string {
	return s.key(dispatchUpdatedSetKey)
}

// dispatchRecordData is the JSON-serializable form of dispatchlog.Record
type dispatchRecordData struct {
	ID          string `json:"id"`
	Origin      string `json:"origin"`
	Route       string `json:"route"`
	ChainID     uint64 `json:"chain_id"`
	Status      int    `json:"status"`
	Hash        string `json:"hash,omitempty"`
	SubmitError string `json:"submit_error,omitempty"`
	CreatedAt   int64  `json:"created_at"` // Nanoseconds
	UpdatedAt   int64  `json:"updated_at"` // Nanoseconds
}

func serializeRecord(rec *dispatchlog.Record) ([]byte, error) {
	data := dispatchRecordData{
		ID:          rec.ID,
		Origin:      rec.Origin,
		Route:       rec.Route,
		ChainID:     rec.ChainID,
		Status:      int(rec.Status),
		SubmitError: rec.SubmitError,
		CreatedAt:   rec.CreatedAt.UnixNano(),
		UpdatedAt:   rec.UpdatedAt.UnixNano(),
	}
	if rec.Hash != (common.Hash{}) {
		data.Hash = rec.Hash.Hex()
	}
	return json.Marshal(data)
}

func deserializeRecord(data []byte) (*dispatchlog.Record, error) {
	var d dispatchRecordData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	rec := &dispatchlog.Record{
		ID:          d.ID,
		Origin:      d.Origin,
		Route:       d.Route,
		ChainID:     d.ChainID,
		Status:      dispatchlog.Status(d.Status),
		SubmitError: d.SubmitError,
		CreatedAt:   time.Unix(0, d.CreatedAt),
		UpdatedAt:   time.Unix(0, d.UpdatedAt),
	}
	if d.Hash != "" {
		rec.Hash = common.HexToHash(d.Hash)
	}
	return rec, nil
}

// Create inserts a new pending record. Uses Redis SetNX for atomic creation;
// if the ID exists, returns the existing record along with ErrDuplicateID.
func (s *DispatchStore) Create(ctx context.Context, rec *dispatchlog.Record) (*dispatchlog.Record, error) {
	recordKey := s.recordKey(rec.ID)

	now := time.Now()
	stored := *rec
	stored.Status = dispatchlog.StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := serializeRecord(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	created, err := s.client.SetNX(ctx, recordKey, data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	if created {
		// Index the new record
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, s.originKey(stored.Origin), stored.ID)
			pipe.ZAdd(ctx, s.updatedSetKey(), redis.Z{
				Score:  float64(now.UnixNano()),
				Member: stored.ID,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to index record: %w", err)
		}
		return &stored, nil
	}

	// ID already exists - get the existing record
	existingData, err := s.client.Get(ctx, recordKey).Bytes()
	if err == redis.Nil {
		// Race condition: record was deleted between SetNX and Get.
		// Try again (should succeed now).
		return s.Create(ctx, rec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get existing record: %w", err)
	}

	existing, err := deserializeRecord(existingData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize existing record: %w", err)
	}

	return existing, dispatchlog.ErrDuplicateID
}

// Get returns the record for the given ID.
func (s *DispatchStore) Get(ctx context.Context, id string) (*dispatchlog.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, dispatchlog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return deserializeRecord(data)
}

// Update replaces an existing record.
// Uses WATCH/MULTI/EXEC for optimistic locking to prevent race conditions.
func (s *DispatchStore) Update(ctx context.Context, rec *dispatchlog.Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	recordKey := s.recordKey(rec.ID)

	const maxRetries = 10
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		// Exponential backoff with jitter on retries
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Millisecond
			jitter := time.Duration(rand.Int63n(int64(backoff/2 + 1)))
			time.Sleep(backoff + jitter)
		}

		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			existingData, err := rtx.Get(ctx, recordKey).Bytes()
			if err == redis.Nil {
				return dispatchlog.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to check record existence: %w", err)
			}

			existing, err := deserializeRecord(existingData)
			if err != nil {
				return err
			}

			now := time.Now()
			stored := *rec
			stored.CreatedAt = existing.CreatedAt
			stored.UpdatedAt = now

			data, err := serializeRecord(&stored)
			if err != nil {
				return fmt.Errorf("failed to serialize record: %w", err)
			}

			// Execute atomically
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, recordKey, data, s.ttl)
				pipe.ZAdd(ctx, s.updatedSetKey(), redis.Z{
					Score:  float64(now.UnixNano()),
					Member: stored.ID,
				})
				return nil
			})
			return err
		}, recordKey)

		if err == nil {
			return nil
		}
		if errors.Is(err, dispatchlog.ErrNotFound) {
			return err
		}
		if err == redis.TxFailedErr {
			// Optimistic lock failed, retry
			lastErr = err
			continue
		}
		return err
	}

	return fmt.Errorf("failed to update record after %d retries: %w", maxRetries, lastErr)
}

// ListByOrigin returns all records created by the given origin. IDs indexed
// under the origin whose record key has expired are cleaned up on the way.
func (s *DispatchStore) ListByOrigin(ctx context.Context, origin string) ([]*dispatchlog.Record, error) {
	ids, err := s.client.SMembers(ctx, s.originKey(origin)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list origin index: %w", err)
	}

	var out []*dispatchlog.Record
	var orphans []interface{}
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, dispatchlog.ErrNotFound) {
			orphans = append(orphans, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if len(orphans) > 0 {
		// Best effort index cleanup
		s.client.SRem(ctx, s.originKey(origin), orphans...)
	}

	return out, nil
}

// DeleteOlderThan removes records whose last update is older than the given
// age, returning how many were removed.
func (s *DispatchStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age).UnixNano()
	maxScore := strconv.FormatInt(cutoff, 10)

	ids, err := s.client.ZRangeByScore(ctx, s.updatedSetKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to range updated set: %w", err)
	}

	deleted := 0
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil && !errors.Is(err, dispatchlog.ErrNotFound) {
			return deleted, err
		}

		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.recordKey(id))
			pipe.ZRem(ctx, s.updatedSetKey(), id)
			if rec != nil {
				pipe.SRem(ctx, s.originKey(rec.Origin), id)
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete record %s: %w", id, err)
		}
		deleted++
	}

	return deleted, nil
}

// Verify DispatchStore implements dispatchlog.Store
var _ dispatchlog.Store = (*DispatchStore)(nil)
