// Package storage provides the persisted key-value store backing cart and
// session state. Values are strings, there is no atomicity across keys, and
// changes made by one context are observable by others through Watch.
package storage

import "context"

// Change describes a single key mutation observed from storage.
// Value is empty when the key was removed.
type Change struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Origin string `json:"origin"`
}

type Store interface {
	// Get returns the value for key, and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Watcher delivers changes made by other contexts sharing the same scope.
// The returned stop function tears the subscription down; after stop
// returns no further changes are delivered.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, func())
}
