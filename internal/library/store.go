// Package library persists generated clips in a local bbolt database so
// they survive restarts. Items are immutable once saved and keyed by ID.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var itemsBucket = []byte("items")

// Item is one persisted clip. Created only after encoding succeeds; never
// mutated afterwards.
type Item struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
	Mode      string        `json:"mode"`
	Voice     string        `json:"voice"`
	Format    string        `json:"format"` // "mp3" or "wav"
	Audio     []byte        `json:"audio"`
}

// Store is a durable key-value library. The underlying database opens
// lazily on first use; construct with New and tear down with Close.
type Store struct {
	path string

	mu     sync.Mutex
	db     *bolt.DB
	opened bool
}

// New creates a store for the given database path. No I/O happens until
// the first operation.
func New(path string) *Store {
	return &Store{path: path}
}

// ensureOpen opens the database and creates the bucket on first use.
// Idempotent; subsequent calls are no-ops.
func (s *Store) ensureOpen() error {
	if s.opened {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create library directory: %w", err)
		}
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open library database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize library bucket: %w", err)
	}

	s.db = db
	s.opened = true
	return nil
}

// Save upserts an item by ID. Saving an existing ID overwrites it.
func (s *Store) Save(item Item) error {
	if item.ID == "" {
		return fmt.Errorf("item ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).Put([]byte(item.ID), data)
	})
}

// List returns all items. Order is unspecified; callers wanting the
// user-visible order should apply SortNewestFirst.
func (s *Store) List() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).ForEach(func(k, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("corrupt item %q: %w", k, err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one item by ID.
func (s *Store) Get(id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return Item{}, err
	}

	var item Item
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(itemsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("item %q not found", id)
		}
		return json.Unmarshal(v, &item)
	})
	return item, err
}

// Delete removes an item. Deleting an ID that does not exist is not an
// error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).Delete([]byte(id))
	})
}

// Count returns the number of stored items.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(itemsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the database. The store can be reused; the next operation
// reopens it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	db := s.db
	s.db = nil
	return db.Close()
}

// SortNewestFirst orders items by creation time, newest first. This is the
// required user-visible order; the store itself returns items unordered.
func SortNewestFirst(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// ExportFilename builds the download filename for an item: the title with
// whitespace replaced by underscores plus the AI voice suffix.
func ExportFilename(title, ext string) string {
	return whitespacePattern.ReplaceAllString(title, "_") + "_AI_Voice." + ext
}
