// Package storage defines the persisted key-value store the collections are
// backed by. One key per collection, value = JSON array of records.
package storage

// Provider is the interface for reload-surviving key-value persistence.
type Provider interface {
	// Read returns the value stored under key, or apperr.ErrNotFound.
	Read(key string) ([]byte, error)
	// Write stores value under key, overwriting any previous value.
	Write(key string, value []byte) error
	// Keys returns every key currently stored.
	Keys() ([]string, error)
	// Close releases underlying resources.
	Close() error
}
