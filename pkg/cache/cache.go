// Package cache declares the replay cache consulted before a keyed money movement.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is what a completed keyed request leaves behind.
type Record struct {
	EntryID   uuid.UUID `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IdempotencyCache remembers which ledger entry answered an (owner, key) pair.
//
// The cache only accelerates replays: on a miss or an error callers fall through to the
// ledger's own uniqueness guarantee. Get reports a miss as (nil, nil).
type IdempotencyCache interface {
	Get(ctx context.Context, ownerID uuid.UUID, key string) (*Record, error)
	Set(ctx context.Context, ownerID uuid.UUID, key string, rec Record, ttl time.Duration) error
}
