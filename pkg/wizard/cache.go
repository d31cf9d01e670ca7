package wizard

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("wizard")

const cacheKey = "state"

// Cache is a local bbolt-backed mirror of the last-known-good wizard state
// document, consulted when the external key-value store is unreachable.
// One bucket, one key — there is nothing else this service ever reads or
// writes.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if necessary) a bbolt database at path for the
// wizard state cache.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open wizard cache at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize wizard cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores the raw JSON-encoded wizard state document.
func (c *Cache) Put(raw []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(cacheKey), raw)
	})
}

// Get returns the last raw JSON-encoded wizard state document written, if
// any.
func (c *Cache) Get() (raw []byte, found bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(cacheBucket).Get([]byte(cacheKey))
		if value != nil {
			raw = append([]byte{}, value...)
			found = true
		}
		return nil
	})
	return raw, found, err
}
