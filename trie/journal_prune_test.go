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
	"bytes"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/aiondb/memorydb"
)

var (
	keyA  = []byte("key-a")
	keyB  = []byte("key-b")
	value = []byte("value")
)

func newJournal() (*JournalPruneDataSource, *memorydb.Database) {
	src := memorydb.New()
	db := NewJournalPruneDataSource(src)
	db.SetPruneEnabled(true)
	return db, src
}

func blockHash(n int) common.Hash {
	return common.BytesToHash([]byte(fmt.Sprintf("block-%d", n)))
}

func present(t *testing.T, src aiondb.KeyValueReader, key []byte) bool {
	t.Helper()
	ok, err := src.Has(key)
	require.NoError(t, err)
	return ok
}

func TestJournalDisabledPassThrough(t *testing.T) {
	src := memorydb.New()
	db := NewJournalPruneDataSource(src)
	assert.False(t, db.PruneEnabled())

	require.NoError(t, db.Put(keyA, value))
	require.NoError(t, db.PutBatch(map[string][]byte{string(keyB): value}))
	assert.True(t, present(t, src, keyA))
	assert.True(t, present(t, src, keyB))

	require.NoError(t, db.Delete(keyA))
	require.NoError(t, db.Put(keyB, nil))
	assert.False(t, present(t, src, keyA))
	assert.False(t, present(t, src, keyB))

	db.StoreBlockChanges(blockHash(1), 1)
	require.NoError(t, db.Prune(blockHash(1), 1))
	assert.Equal(t, 0, db.InsertedKeysCount())
	assert.Equal(t, 0, db.DeletedKeysCount())
}

func TestJournalDeferredDelete(t *testing.T) {
	db, src := newJournal()

	require.NoError(t, db.Put(keyA, value))
	assert.Equal(t, 1, db.InsertedKeysCount())
	db.StoreBlockChanges(blockHash(1), 1)
	assert.Equal(t, 0, db.InsertedKeysCount())

	require.NoError(t, db.Delete(keyA))
	assert.Equal(t, 1, db.DeletedKeysCount())
	db.StoreBlockChanges(blockHash(2), 2)

	got, err := db.Get(keyA)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	require.NoError(t, db.Prune(blockHash(1), 1))
	assert.True(t, present(t, src, keyA), "key dropped before its delete was pruned")

	require.NoError(t, db.Prune(blockHash(2), 2))
	assert.False(t, present(t, src, keyA), "pruned delete not applied")
	assert.Empty(t, db.refCount)
	assert.Empty(t, db.blocks)
}

func TestJournalDeleteKeptByLaterWrite(t *testing.T) {
	db, src := newJournal()

	require.NoError(t, db.Put(keyA, value))
	db.StoreBlockChanges(blockHash(1), 1)
	require.NoError(t, db.Delete(keyA))
	db.StoreBlockChanges(blockHash(2), 2)
	require.NoError(t, db.Put(keyA, value))
	db.StoreBlockChanges(blockHash(3), 3)

	require.NoError(t, db.Prune(blockHash(1), 1))
	require.NoError(t, db.Prune(blockHash(2), 2))
	assert.True(t, present(t, src, keyA), "key rewritten by an unpruned block was deleted")

	require.NoError(t, db.Prune(blockHash(3), 3))
	assert.True(t, present(t, src, keyA))
	assert.Empty(t, db.refCount)
}

func TestJournalRefCountedOncePerBlock(t *testing.T) {
	db, _ := newJournal()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Put(keyA, value))
	}
	assert.Equal(t, 1, db.refCount[string(keyA)].journalRefs)
	db.StoreBlockChanges(blockHash(1), 1)

	require.NoError(t, db.Put(keyA, value))
	assert.Equal(t, 2, db.refCount[string(keyA)].journalRefs)
	assert.False(t, db.refCount[string(keyA)].dbRef)
}

func TestJournalRollbackForks(t *testing.T) {
	db, src := newJournal()
	var (
		canonical = blockHash(1)
		fork      = common.BytesToHash([]byte("fork-1"))
		shared    = []byte("shared")
	)
	require.NoError(t, db.Put(keyA, value))
	require.NoError(t, db.Put(shared, value))
	db.StoreBlockChanges(canonical, 1)

	require.NoError(t, db.Put(keyB, value))
	require.NoError(t, db.Put(shared, value))
	db.StoreBlockChanges(fork, 1)

	require.NoError(t, db.Prune(canonical, 1))
	assert.True(t, present(t, src, keyA))
	assert.True(t, present(t, src, shared), "key written by the canonical block was rolled back")
	assert.False(t, present(t, src, keyB), "fork-only key survived the rollback")
	assert.Empty(t, db.blocks)
	assert.Empty(t, db.refCount)
}

func TestJournalRollbackBeforePrune(t *testing.T) {
	db, src := newJournal()
	var (
		abandoned = blockHash(1)
		kept      = blockHash(2)
		shared    = []byte("shared")
	)
	require.NoError(t, db.Put(keyA, value))
	require.NoError(t, db.Put(shared, value))
	db.StoreBlockChanges(abandoned, 1)

	require.NoError(t, db.Put(keyB, value))
	require.NoError(t, db.Put(shared, value))
	db.StoreBlockChanges(kept, 2)

	require.NoError(t, db.Rollback(abandoned))
	assert.False(t, present(t, src, keyA), "key of the abandoned block survived")
	assert.True(t, present(t, src, shared), "key still written by another block was removed")
	assert.True(t, present(t, src, keyB))

	// Rolling back twice, or an unknown block, is a no-op.
	require.NoError(t, db.Rollback(abandoned))
	require.NoError(t, db.Rollback(common.BytesToHash([]byte("unknown"))))
	require.NoError(t, db.Prune(abandoned, 1))

	require.NoError(t, db.Prune(kept, 2))
	assert.True(t, present(t, src, shared))
	assert.True(t, present(t, src, keyB))
	assert.Empty(t, db.blocks)
	assert.Empty(t, db.refCount)
}

func TestJournalRollbackKeepsPreexisting(t *testing.T) {
	db, src := newJournal()
	require.NoError(t, src.Put(keyB, value))

	require.NoError(t, db.Put(keyA, value))
	db.StoreBlockChanges(blockHash(1), 1)
	require.NoError(t, db.Put(keyB, []byte("other")))
	db.StoreBlockChanges(common.BytesToHash([]byte("fork-1")), 1)

	require.NoError(t, db.Prune(blockHash(1), 1))
	assert.True(t, present(t, src, keyB), "key owned by the store was removed by a rollback")
}

func TestJournalPutBatch(t *testing.T) {
	db, src := newJournal()
	require.NoError(t, src.Put(keyB, value))

	empty, err := db.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, db.PutBatch(map[string][]byte{
		string(keyA): value,
		string(keyB): nil,
	}))
	assert.Equal(t, 1, db.InsertedKeysCount())
	assert.Equal(t, 1, db.DeletedKeysCount())
	assert.True(t, present(t, src, keyB), "batched delete applied before pruning")

	require.NoError(t, db.DeleteBatch([][]byte{keyA}))
	assert.Equal(t, 2, db.DeletedKeysCount())
}

func TestJournalIsEmpty(t *testing.T) {
	db, _ := newJournal()
	empty, err := db.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, db.Put(keyA, value))
	empty, err = db.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestJournalArchiveSource(t *testing.T) {
	db, _ := newJournal()
	assert.False(t, db.IsArchiveEnabled())
	assert.Nil(t, db.ArchiveSource())

	archive := memorydb.New()
	db = NewJournalPruneDataSource(aiondb.NewArchive(memorydb.New(), archive))
	assert.True(t, db.IsArchiveEnabled())
	assert.Equal(t, aiondb.KeyValueStore(archive), db.ArchiveSource())
}

func TestJournalPrunedTrie(t *testing.T) {
	var (
		src   = memorydb.New()
		db    = NewJournalPruneDataSource(src)
		trie  = NewEmpty(NewCache(db, 0)).WithPruning(true)
		roots []common.Hash
	)
	db.SetPruneEnabled(true)

	latest := make(map[string][]byte)
	for block := 1; block <= 20; block++ {
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("account-%02d", (block*7+i*3)%40)
			val := []byte(fmt.Sprintf("balance of %s at block %d", key, block))
			trie.Update([]byte(key), val)
			latest[key] = val
		}
		require.NoError(t, trie.Sync(true))
		db.StoreBlockChanges(blockHash(block), uint64(block))
		roots = append(roots, trie.Hash())

		if block > 4 {
			require.NoError(t, db.Prune(blockHash(block-4), uint64(block-4)))
		}
	}
	for block := 17; block <= 20; block++ {
		require.NoError(t, db.Prune(blockHash(block), uint64(block)))
	}
	assert.False(t, present(t, src, roots[0][:]), "stale root survived pruning")

	missing, err := trie.MissingNodes(trie.Hash())
	require.NoError(t, err)
	require.Empty(t, missing)

	reopened, err := New(trie.Hash(), NewCache(src, 0))
	require.NoError(t, err)
	for key, val := range latest {
		if have := reopened.Get([]byte(key)); !bytes.Equal(have, val) {
			t.Fatalf("key %s: have %q, want %q", key, have, val)
		}
	}
	size, err := reopened.TrieSize(reopened.Hash())
	require.NoError(t, err)
	assert.Equal(t, size, src.Len(), "store holds nodes of stale states")
}
