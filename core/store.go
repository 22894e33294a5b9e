package core

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStore.Get when nothing is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// Store keys shared by the portal. Per-entity keys are built with ScopedKey.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// KeyValueStore is the portal's local state: auth token, current user, answer drafts & quiz start times.
// Implementations live in storage/kvstore.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Clear removes the key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}
