// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store persists chain data to disk across restarts: block
// headers, full block bodies, the UTXO set, per-block undo data for
// reorgs, and a handful of singleton values (chain tip, fee estimator
// state) under a "meta/" namespace. It is backed by goleveldb, keeping
// every namespace as a key prefix within a single flat database rather
// than bucketing, and groups every write that must land together (a
// connected block's header, body, UTXO delta, undo record, and new tip)
// into one atomic batch.
package store

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by a Get-style accessor when the key is absent.
var ErrNotFound = leveldb.ErrNotFound

// Store wraps a goleveldb handle open on a single directory on disk.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Compression: opt.SnappyCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *Store) get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *Store) delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// iteratePrefix calls fn with the suffix (key with prefix stripped) and
// value of every entry whose key starts with prefix, stopping early if fn
// returns false.
func (s *Store) iteratePrefix(prefix []byte, fn func(suffix, value []byte) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		suffix := iter.Key()[len(prefix):]
		if !fn(suffix, iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Batch accumulates writes across one or more namespaces for a single
// atomic commit, so a caller building up a block's header, body, undo
// record, UTXO delta, and tip pointer never leaves the database with only
// some of them durable.
type Batch struct {
	b *leveldb.Batch
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{b: new(leveldb.Batch)}
}

func (b *Batch) put(key, value []byte) {
	b.b.Put(key, value)
}

func (b *Batch) delete(key []byte) {
	b.b.Delete(key)
}

// Commit writes every operation accumulated in b atomically.
func (s *Store) Commit(b *Batch) error {
	return s.db.Write(b.b, nil)
}
