package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	DefaultDir      = ".aip/.store"
	DefaultFileName = "aip.db"

	dataBucket = "aip"
	seqBucket  = "seq"
)

var ErrNotFound = errors.New("record not found")

// Store persists runs, tasks, logs and pins in a bbolt file. It is safe for
// concurrent use; bbolt serializes writers.
type Store struct {
	db        *bolt.DB
	path      string
	closeOnce sync.Once
}

// Open opens (creating when missing) the store file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(initStorage); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

type entry struct {
	key   []byte
	value []byte
}

func bucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(dataBucket))
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found", dataBucket)
	}
	return b, nil
}

func nextID(tx *bolt.Tx, kind string) (int64, error) {
	seq := tx.Bucket([]byte(seqBucket))
	if seq == nil {
		return 0, fmt.Errorf("bucket %s not found", seqBucket)
	}
	kb, err := seq.CreateBucketIfNotExists([]byte(kind))
	if err != nil {
		return 0, err
	}
	id, err := kb.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

func getJSON(tx *bolt.Tx, key string, v any) error {
	b, err := bucket(tx)
	if err != nil {
		return err
	}
	raw := b.Get([]byte(key))
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func putJSON(tx *bolt.Tx, key string, v any) error {
	b, err := bucket(tx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}

// list returns the entries under prefix in key order. Keys and values are
// copied out of the transaction.
func list(tx *bolt.Tx, prefix []byte) ([]entry, error) {
	b, err := bucket(tx)
	if err != nil {
		return nil, err
	}

	var result []entry
	cursor := b.Cursor()
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		key := make([]byte, len(k))
		value := make([]byte, len(v))
		copy(key, k)
		copy(value, v)
		result = append(result, entry{key: key, value: value})
	}
	return result, nil
}

func deletePrefix(tx *bolt.Tx, prefix []byte) error {
	entries, err := list(tx, prefix)
	if err != nil {
		return err
	}
	b, err := bucket(tx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := b.Delete(e.key); err != nil {
			return err
		}
	}
	return nil
}

func listJSON[T any](db *bolt.DB, prefix string) ([]*T, error) {
	var out []*T
	err := db.View(func(tx *bolt.Tx) error {
		entries, err := list(tx, []byte(prefix))
		if err != nil {
			return err
		}
		out = make([]*T, 0, len(entries))
		for _, e := range entries {
			if len(e.value) == 0 {
				continue
			}
			var v T
			if err := json.Unmarshal(e.value, &v); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", e.key, err)
			}
			out = append(out, &v)
		}
		return nil
	})
	return out, err
}
