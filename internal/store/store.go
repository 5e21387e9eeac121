// Package store keeps per-visitor state: the bearer token, the signed-in
// user, the cached upload list and the last portfolio snapshot. Every write
// is announced to subscribers of the key so other tabs and components
// observe it without polling.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Well-known keys, always namespaced by visitor with Key
const (
	KeyAuthToken     = "auth_token"
	KeyAuthUser      = "auth_user"
	KeyUploadedFiles = "uploaded_files"
	KeyPortfolio     = "portfolio_data"
)

// Change is a notification that a key was written or deleted
type Change struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Store is a key/value state store with change subscriptions
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns every stored key ending with suffix
	Keys(ctx context.Context, suffix string) ([]string, error)
	// Subscribe delivers changes of key until cancel is called or ctx ends
	Subscribe(ctx context.Context, key string) (changes <-chan Change, cancel func(), err error)
	Close() error
}

// Key namespaces name under a visitor
func Key(visitor, name string) string {
	return visitor + ":" + name
}

// SplitKey returns the visitor and name of a namespaced key
func SplitKey(key string) (visitor, name string) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// GetJSON decodes the value of key into v
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
