// Package ratelimit persists a single advisory flag: "the model API has
// rejected us for quota reasons". The flag is read before any remote
// generation attempt and survives restarts. It is never cleared
// automatically; Reset is the manual operator action.
package ratelimit

import (
	"context"
	"time"
)

const flagKey = "llm_rate_limited"

// Store is the persistence boundary for the flag. The production
// implementation is backed by the flags table in sqlite.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Guard is the one narrow interface through which the rest of the system
// touches rate-limit state.
type Guard struct {
	store Store
}

// NewGuard creates a Guard over the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// ShouldSkipRemote reports whether remote generation attempts should be
// skipped. The flag is advisory: on a store read error it answers false so
// a broken local database never disables generation.
func (g *Guard) ShouldSkipRemote(ctx context.Context) bool {
	_, ok, err := g.store.Get(ctx, flagKey)
	if err != nil {
		return false
	}
	return ok
}

// RecordQuotaError marks the API as rate-limited, with the detection time
// as the flag value.
func (g *Guard) RecordQuotaError(ctx context.Context) error {
	return g.store.Set(ctx, flagKey, time.Now().UTC().Format(time.RFC3339))
}

// LimitedSince returns when the flag was set, if it is set.
func (g *Guard) LimitedSince(ctx context.Context) (time.Time, bool) {
	value, ok, err := g.store.Get(ctx, flagKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, true
	}
	return ts, true
}

// Reset clears the flag. This is the only way the flag is ever cleared.
func (g *Guard) Reset(ctx context.Context) error {
	return g.store.Delete(ctx, flagKey)
}
