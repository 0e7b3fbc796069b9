package archive

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record exists for a hash.
var ErrNotFound = errors.New("archive record not found")

// Store wraps Badger for archive records.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a store at the given directory.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for hash.
func (s *Store) Get(hash string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(rec.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores the record for hash.
func (s *Store) Put(hash string, rec *Record) error {
	value, err := rec.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(hash), value)
	})
}

// Delete removes the record for hash. Deleting a missing record is not an
// error.
func (s *Store) Delete(hash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(hash))
	})
}

// Each calls fn for every record in key order.
func (s *Store) Each(fn func(hash string, rec *Record) error) error {
	prefix := []byte(keyPrefix)
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			if err := item.Value(rec.Decode); err != nil {
				return err
			}
			if err := fn(ParseKey(item.Key()), &rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of records.
func (s *Store) Count() (int, error) {
	prefix := []byte(keyPrefix)
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// DeleteAll removes every record.
func (s *Store) DeleteAll() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}
