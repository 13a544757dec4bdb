package interfaces

import "context"

// Cache is a generic TTL key-value store, used for the session journal that lets a
// restarted controller re-adopt running containers.
//
// Implemented by myredis.NewCache. Called from service.LifecycleManager on ready/teardown
// transitions and from Recover at startup.
//
//go:generate moq -stub -out mock/cache.go -pkg mock . Cache
type Cache[T any] interface {
	// WriteValue writes the item under key with the given TTL in milliseconds; ttlMs <= 0
	// stores without expiry (the journal deletes entries explicitly on teardown).
	// Returns: nil on success; internal_server_error when marshalling or the store write fails.
	WriteValue(ctx context.Context, key string, item T, ttlMs int) error

	// ListAllValues returns every value in the cache.
	// Returns: (items, nil) when at least one value exists; (nil, entity_not_found) when the
	// cache is empty; (nil, internal_server_error) when listing keys fails.
	ListAllValues(ctx context.Context) ([]T, error)

	// DeleteValue removes the value for key.
	// Returns: nil on success (including missing key); internal_server_error on store failure.
	DeleteValue(ctx context.Context, key string) error
}
