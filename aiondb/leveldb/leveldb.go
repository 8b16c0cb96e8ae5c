// Copyright 2021 The go-aion Authors
// This file is part of the go-aion library.
//
// The go-aion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-aion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-aion library. If not, see <http://www.gnu.org/licenses/>.
// Package leveldb implements the key-value database layer based on LevelDB.
package leveldb

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/aionnetwork/go-aion/aiondb"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store. Apart from basic data storage
// functionality it also supports batch writes.
type Database struct {
	fn string      // filename for reporting
	db *leveldb.DB // LevelDB instance

	batchWriteMeter metrics.Meter // Meter for measuring the number of batched entries

	quitLock sync.Mutex
	closed   bool

	log log.Logger // Contextual logger tracking the database path
}

// New returns a wrapped LevelDB object. The namespace is the prefix that the
// metrics reporting should use for surfacing internal stats.
func New(file string, cache int, handles int, namespace string, readonly bool) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "cache", common.StorageSize(cache*1024*1024), "handles", handles)

	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		ReadOnly:               readonly,
	}
	// Open the db and recover any potential corruptions
	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	ldb := &Database{
		fn:              file,
		db:              db,
		log:             logger,
		batchWriteMeter: metrics.NewRegisteredMeter(namespace+"db/batch/write", nil),
	}
	return ldb, nil
}

// Close stops the metrics collection, flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
func (db *Database) Close() error {
	db.quitLock.Lock()
	defer db.quitLock.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return db.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, aiondb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dat, nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	return db.db.Put(key, value, nil)
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}

// PutBatch writes every entry in a single leveldb batch. Nil values delete.
func (db *Database) PutBatch(batch map[string][]byte) error {
	b := new(leveldb.Batch)
	for key, value := range batch {
		if value == nil {
			b.Delete([]byte(key))
		} else {
			b.Put([]byte(key), value)
		}
	}
	db.batchWriteMeter.Mark(int64(b.Len()))
	return db.db.Write(b, nil)
}

// DeleteBatch removes every given key in a single leveldb batch.
func (db *Database) DeleteBatch(keys [][]byte) error {
	b := new(leveldb.Batch)
	for _, key := range keys {
		b.Delete(key)
	}
	db.batchWriteMeter.Mark(int64(b.Len()))
	return db.db.Write(b, nil)
}

// Keys returns every key of the database in ascending order.
func (db *Database) Keys() ([][]byte, error) {
	it := db.db.NewIterator(new(util.Range), nil)
	defer it.Release()

	var keys [][]byte
	for it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		keys = append(keys, key)
	}
	return keys, it.Error()
}

// IsEmpty reports whether the database holds no keys.
func (db *Database) IsEmpty() (bool, error) {
	it := db.db.NewIterator(nil, nil)
	defer it.Release()

	if it.First() {
		return false, nil
	}
	return true, it.Error()
}

// Stat returns a particular internal stat of the database.
func (db *Database) Stat(property string) (string, error) {
	return db.db.GetProperty(property)
}

// Compact flattens the underlying data store for the given key range. In essence,
// deleted and overwritten versions are discarded, and the data is rearranged to
// reduce the cost of operations needed to access them.
func (db *Database) Compact(start []byte, limit []byte) error {
	return db.db.CompactRange(util.Range{Start: start, Limit: limit})
}

// Path returns the path to the database directory.
func (db *Database) Path() string {
	return db.fn
}

func (db *Database) String() string {
	return fmt.Sprintf("leveldb(%s)", db.fn)
}
