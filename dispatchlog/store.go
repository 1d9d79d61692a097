// Package dispatchlog records transaction dispatches and suppresses replays.
//
// Every dispatch through the router creates a Record keyed by its ID (the
// dapp action ID when present, otherwise a generated one). Create is
// first-writer-wins: a second Create with the same ID returns the existing
// record together with ErrDuplicateID, which is how replayed dapp requests
// are rejected without hitting the controllers twice.
package dispatchlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when no record exists for the given ID.
	ErrNotFound = fmt.Errorf("dispatch record not found")
	// ErrDuplicateID is returned by Create when a record with the same ID
	// already exists. The existing record is returned alongside.
	ErrDuplicateID = fmt.Errorf("duplicate dispatch id")
)

// Status tracks how far a dispatch got.
type Status int

const (
	// StatusPending means the dispatch was accepted but the submission
	// result has not resolved yet.
	StatusPending Status = iota
	// StatusSubmitted means the controller reported a transaction hash.
	StatusSubmitted
	// StatusFailed means the submission resolved with an error.
	StatusFailed
)

// Record is one dispatched transaction request.
type Record struct {
	ID      string
	Origin  string
	Route   string
	ChainID uint64
	Status  Status

	// Hash is set once the submission resolves successfully.
	Hash common.Hash

	// SubmitError holds the submission failure message, if any.
	SubmitError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists dispatch records.
type Store interface {
	// Create inserts a new pending record. If a record with the same ID
	// exists, the existing record is returned with ErrDuplicateID.
	Create(ctx context.Context, rec *Record) (*Record, error)

	// Get returns the record for the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Update replaces an existing record. Returns ErrNotFound if the record
	// does not exist.
	Update(ctx context.Context, rec *Record) error

	// ListByOrigin returns all records created by the given origin.
	ListByOrigin(ctx context.Context, origin string) ([]*Record, error)

	// DeleteOlderThan removes records whose last update is older than the
	// given age, returning how many were removed.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
}
