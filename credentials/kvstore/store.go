// Package kvstore defines the durable key-value storage the persisted credential lives in.
package kvstore

// Store is a durable string key-value store. Values survive process restarts.
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)

	// Set creates or replaces the value for key
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Update applies every write in set and every delete in del as one unit:
	// either all of them take effect or none do.
	Update(set map[string]string, del []string) error
}
