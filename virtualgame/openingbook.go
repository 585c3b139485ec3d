// Package virtualgame is the C3 Virtual Game: a mutable handle wrapping a
// Position and the history needed for 50-move/threefold detection, plus
// the badger-backed opening book self-play seeds itself from.
package virtualgame

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"chessai/rules"

	"github.com/dgraph-io/badger/v4"
)

// variationRecord is the JSON blob stored per opening-book key: a named
// line plus its move sequence from the starting position.
type variationRecord struct {
	Name  string       `json:"name"`
	Moves []rules.Move `json:"moves"`
}

// OpeningBook wraps a badger KV store of named opening variations, opened
// once at process start and shared read-only across self-play workers
// (spec §5: "Opening book loaded once, shared read-only across all
// threads"), grounded on hailam-chessplay's storage.Storage wrapping
// badger for its own at-rest blobs.
type OpeningBook struct {
	db *badger.DB
}

// OpenOpeningBook opens (creating if absent) the badger database at dir.
func OpenOpeningBook(dir string) (*OpeningBook, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("virtualgame: open opening book: %w", err)
	}
	return &OpeningBook{db: db}, nil
}

// Close releases the underlying database handle.
func (b *OpeningBook) Close() error {
	return b.db.Close()
}

// Seed loads a small fixture set of variations, keyed sequentially. Per
// SPEC_FULL §5's Non-goals, the book's seed data is a small fixture, not a
// curated opening database.
func (b *OpeningBook) Seed(variations []variationRecord) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for i, v := range variations {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("book:%04d", i)
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// randomVariation picks a uniformly random variation from a single View
// transaction by reservoir-sampling over the key iterator, avoiding a
// separate count pass.
func (b *OpeningBook) randomVariation() (*variationRecord, error) {
	var picked *variationRecord
	seen := 0

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("book:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			seen++
			if rand.Intn(seen) != 0 {
				continue
			}
			item := it.Item()
			var rec variationRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			picked = &rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if picked == nil {
		return nil, fmt.Errorf("virtualgame: opening book is empty")
	}
	return picked, nil
}
