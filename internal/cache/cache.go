// Package cache holds memoised derived views for the ledger client.
package cache

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Len() int
}

var _ Cache[int] = (*LRUCache[int])(nil)
