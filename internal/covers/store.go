// Package covers keeps custom group covers and fetches remote cover images.
package covers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Buckets, one per cover kind
var buckets = map[string][]byte{
	"SOURCE": []byte("source_covers"),
	"AUTHOR": []byte("author_covers"),
}

// ErrUnknownKind is returned for a cover kind without a bucket.
var ErrUnknownKind = errors.New("unknown cover kind")

// Store persists covers attached to a source or an author in a bolt file.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the cover store at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cover store dir: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cover store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cover bytes stored for key, or nil.
func (s *Store) Get(kind, key string) ([]byte, error) {
	bucket, ok := buckets[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}

// Put stores data for key. Empty data removes the entry.
func (s *Store) Put(kind, key string, data []byte) error {
	bucket, ok := buckets[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if len(data) == 0 {
			return b.Delete([]byte(key))
		}
		return b.Put([]byte(key), data)
	})
}

// Keys lists every key with a cover of the given kind, sorted.
func (s *Store) Keys(kind string) ([]string, error) {
	bucket, ok := buckets[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}
