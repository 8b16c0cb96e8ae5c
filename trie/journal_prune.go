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

package trie

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/aionnetwork/go-aion/aiondb"
)

var (
	journalPrunedMeter   = metrics.NewRegisteredMeter("trie/journal/pruned", nil)
	journalRollbackMeter = metrics.NewRegisteredMeter("trie/journal/rollback", nil)
)

var _ aiondb.KeyValueStore = (*JournalPruneDataSource)(nil)

// blockUpdates are the keys written and deleted while importing one block.
type blockUpdates struct {
	hash     common.Hash
	number   uint64
	inserted mapset.Set // set of string keys
	deleted  mapset.Set // set of string keys
}

func newBlockUpdates() *blockUpdates {
	return &blockUpdates{
		inserted: mapset.NewSet(),
		deleted:  mapset.NewSet(),
	}
}

// ref counts the unpruned blocks that wrote a key and whether the key is
// owned by the backing store outside of the journal.
type ref struct {
	dbRef       bool
	journalRefs int
}

func (r *ref) total() int {
	if r.dbRef {
		return r.journalRefs + 1
	}
	return r.journalRefs
}

// JournalPruneDataSource is a key-value store over a backing store that
// defers deletes until the block that issued them is pruned. Writes reach the
// backing store immediately and are reference counted per block, so that
// writes of blocks on abandoned forks can be rolled back.
//
// With pruning disabled, every operation passes straight through.
type JournalPruneDataSource struct {
	lock sync.RWMutex

	src     aiondb.KeyValueStore
	archive aiondb.KeyValueStore // cold tier when src is an aiondb.Archive

	enabled  bool
	current  *blockUpdates
	blocks   map[common.Hash]*blockUpdates
	refCount map[string]*ref

	logger log.Logger
}

// NewJournalPruneDataSource wraps src. Pruning starts disabled.
func NewJournalPruneDataSource(src aiondb.KeyValueStore) *JournalPruneDataSource {
	db := &JournalPruneDataSource{
		src:      src,
		current:  newBlockUpdates(),
		blocks:   make(map[common.Hash]*blockUpdates),
		refCount: make(map[string]*ref),
		logger:   log.New("module", "journal"),
	}
	if archive, ok := src.(*aiondb.Archive); ok {
		db.archive = archive.ArchiveDatabase()
	}
	return db
}

// SetPruneEnabled switches journalling on or off.
func (db *JournalPruneDataSource) SetPruneEnabled(enabled bool) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.enabled = enabled
}

// PruneEnabled reports whether journalling is on.
func (db *JournalPruneDataSource) PruneEnabled() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.enabled
}

// IsArchiveEnabled reports whether the backing store has an archive tier.
func (db *JournalPruneDataSource) IsArchiveEnabled() bool {
	return db.archive != nil
}

// ArchiveSource returns the archive tier of the backing store, or nil.
func (db *JournalPruneDataSource) ArchiveSource() aiondb.KeyValueStore {
	return db.archive
}

// Source returns the backing store.
func (db *JournalPruneDataSource) Source() aiondb.KeyValueStore {
	return db.src
}

// Put writes the value through to the backing store and journals the key
// under the current block. A nil value is a deferred delete.
func (db *JournalPruneDataSource) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		if value == nil {
			return db.fail("delete", db.src.Delete(key))
		}
		return db.fail("put", db.src.Put(key, value))
	}
	if value == nil {
		db.current.deleted.Add(string(key))
		return nil
	}
	if err := db.insert(string(key)); err != nil {
		return err
	}
	return db.fail("put", db.src.Put(key, value))
}

// Delete journals a deferred delete of key under the current block.
func (db *JournalPruneDataSource) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return db.fail("delete", db.src.Delete(key))
	}
	db.current.deleted.Add(string(key))
	return nil
}

// PutBatch writes the non-nil entries through and journals nil entries as
// deferred deletes.
func (db *JournalPruneDataSource) PutBatch(batch map[string][]byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return db.fail("put batch", db.src.PutBatch(batch))
	}
	inserts := make(map[string][]byte, len(batch))
	for key, value := range batch {
		if value == nil {
			db.current.deleted.Add(key)
			continue
		}
		if err := db.insert(key); err != nil {
			return err
		}
		inserts[key] = value
	}
	return db.fail("put batch", db.src.PutBatch(inserts))
}

// DeleteBatch journals deferred deletes of every key.
func (db *JournalPruneDataSource) DeleteBatch(keys [][]byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return db.fail("delete batch", db.src.DeleteBatch(keys))
	}
	for _, key := range keys {
		db.current.deleted.Add(string(key))
	}
	return nil
}

// insert records key as written by the current block, counting one journal
// reference per block.
func (db *JournalPruneDataSource) insert(key string) error {
	if !db.current.inserted.Add(key) {
		return nil
	}
	r, ok := db.refCount[key]
	if !ok {
		has, err := db.src.Has([]byte(key))
		if err != nil {
			return db.fail("has", err)
		}
		r = &ref{dbRef: has}
		db.refCount[key] = r
	}
	r.journalRefs++
	return nil
}

// decRef drops one journal reference of key, forgetting the key once no
// journal reference is left.
func (db *JournalPruneDataSource) decRef(key string) *ref {
	r, ok := db.refCount[key]
	if !ok {
		return &ref{}
	}
	r.journalRefs--
	if r.journalRefs <= 0 {
		delete(db.refCount, key)
	}
	return r
}

// StoreBlockChanges seals the changes journalled so far under the block.
func (db *JournalPruneDataSource) StoreBlockChanges(hash common.Hash, number uint64) {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return
	}
	db.current.hash = hash
	db.current.number = number
	db.blocks[hash] = db.current
	db.current = newBlockUpdates()
}

// Prune finalises the block: its writes become permanent, its deferred
// deletes are applied unless another unpruned block still writes the key,
// and every other block at the same height is rolled back.
func (db *JournalPruneDataSource) Prune(hash common.Hash, number uint64) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return nil
	}
	updates, ok := db.blocks[hash]
	if !ok {
		return nil
	}
	delete(db.blocks, hash)

	for item := range updates.inserted.Iter() {
		db.decRef(item.(string)).dbRef = true
	}
	var remove [][]byte
	for item := range updates.deleted.Iter() {
		key := item.(string)
		if r, ok := db.refCount[key]; !ok || r.journalRefs == 0 {
			remove = append(remove, []byte(key))
		} else {
			r.dbRef = false
		}
	}
	if err := db.fail("delete batch", db.src.DeleteBatch(remove)); err != nil {
		return err
	}
	journalPrunedMeter.Mark(int64(len(remove)))
	db.logger.Trace("Pruned block changes", "number", number, "hash", hash, "inserted", updates.inserted.Cardinality(), "deleted", len(remove))

	return db.rollbackForks(number)
}

// rollbackForks rolls back every remaining block at the given height.
func (db *JournalPruneDataSource) rollbackForks(number uint64) error {
	var forks []common.Hash
	for hash, updates := range db.blocks {
		if updates.number == number {
			forks = append(forks, hash)
		}
	}
	for _, hash := range forks {
		if err := db.rollback(hash); err != nil {
			return err
		}
	}
	return nil
}

// Rollback undoes the writes of an abandoned block, deleting the keys no
// other block or the backing store still owns. Unknown blocks are ignored.
func (db *JournalPruneDataSource) Rollback(hash common.Hash) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if !db.enabled {
		return nil
	}
	return db.rollback(hash)
}

func (db *JournalPruneDataSource) rollback(hash common.Hash) error {
	updates, ok := db.blocks[hash]
	if !ok {
		return nil
	}
	delete(db.blocks, hash)

	var remove [][]byte
	for item := range updates.inserted.Iter() {
		key := item.(string)
		if db.decRef(key).total() == 0 {
			remove = append(remove, []byte(key))
		}
	}
	journalRollbackMeter.Mark(int64(len(remove)))
	db.logger.Debug("Rolled back fork block changes", "number", updates.number, "hash", hash, "deleted", len(remove))
	return db.fail("delete batch", db.src.DeleteBatch(remove))
}

// InsertedKeysCount returns the number of keys written by the current block.
func (db *JournalPruneDataSource) InsertedKeysCount() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.current.inserted.Cardinality()
}

// DeletedKeysCount returns the number of deletes deferred by the current block.
func (db *JournalPruneDataSource) DeletedKeysCount() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.current.deleted.Cardinality()
}

// Has reports whether the backing store holds key.
func (db *JournalPruneDataSource) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	ok, err := db.src.Has(key)
	return ok, db.fail("has", err)
}

// Get reads key from the backing store.
func (db *JournalPruneDataSource) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	val, err := db.src.Get(key)
	if err == aiondb.ErrNotFound {
		return nil, err
	}
	return val, db.fail("get", err)
}

// Keys returns the keys of the backing store.
func (db *JournalPruneDataSource) Keys() ([][]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	keys, err := db.src.Keys()
	return keys, db.fail("keys", err)
}

// IsEmpty reports whether the backing store is empty. Writes of the current
// block count, deferred deletes do not.
func (db *JournalPruneDataSource) IsEmpty() (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.current.inserted.Cardinality() > 0 {
		return false, nil
	}
	empty, err := db.src.IsEmpty()
	return empty, db.fail("is empty", err)
}

// Close closes the backing store.
func (db *JournalPruneDataSource) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	return db.fail("close", db.src.Close())
}

// fail logs a backing store error. Such errors are not recoverable here and
// are handed back to the caller.
func (db *JournalPruneDataSource) fail(op string, err error) error {
	if err != nil {
		db.logger.Error("Backing store failure", "op", op, "err", err)
	}
	return err
}
