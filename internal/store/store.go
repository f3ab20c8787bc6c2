// Package store provides the local warm-start cache backed by BoltDB. The
// cached queue and settings let the UI render immediately at launch while
// the first engine pull is in flight.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cieldm/ciel/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketQueue    = []byte("queue")
	bucketSettings = []byte("settings")
)

// CacheStore implements domain.QueueCache using BoltDB.
type CacheStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewCacheStore opens (or creates) the cache database under dir. An empty
// dir gives a memory-only store with no persistence.
func NewCacheStore(dir string) (*CacheStore, error) {
	if dir == "" {
		return &CacheStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "ciel.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketQueue, bucketSettings} {
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

	return &CacheStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *CacheStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CacheStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

// GetQueue returns the last cached queue snapshot.
func (s *CacheStore) GetQueue() ([]domain.Download, bool) {
	var downloads []domain.Download
	ok := s.get(bucketQueue, "list", &downloads)
	return downloads, ok
}

// SaveQueue replaces the cached queue snapshot.
func (s *CacheStore) SaveQueue(downloads []domain.Download) error {
	return s.set(bucketQueue, "list", downloads)
}

// GetSettings returns the last cached settings snapshot.
func (s *CacheStore) GetSettings() (domain.Snapshot, bool) {
	var snap domain.Snapshot
	ok := s.get(bucketSettings, "snapshot", &snap)
	return snap, ok
}

// SaveSettings replaces the cached settings snapshot.
func (s *CacheStore) SaveSettings(snap domain.Snapshot) error {
	return s.set(bucketSettings, "snapshot", snap)
}

// InvalidateAll wipes the cache, memory and disk.
func (s *CacheStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketQueue, bucketSettings} {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
