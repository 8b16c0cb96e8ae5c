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

	"github.com/VictoriaMetrics/fastcache"
	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/core/rawdb"
	"github.com/aionnetwork/go-aion/crypto"
)

var (
	memcacheCleanHitMeter   = metrics.NewRegisteredMeter("trie/memcache/clean/hit", nil)
	memcacheCleanMissMeter  = metrics.NewRegisteredMeter("trie/memcache/clean/miss", nil)
	memcacheCleanReadMeter  = metrics.NewRegisteredMeter("trie/memcache/clean/read", nil)
	memcacheCleanWriteMeter = metrics.NewRegisteredMeter("trie/memcache/clean/write", nil)

	memcacheDirtyHitMeter  = metrics.NewRegisteredMeter("trie/memcache/dirty/hit", nil)
	memcacheDirtyMissMeter = metrics.NewRegisteredMeter("trie/memcache/dirty/miss", nil)

	memcacheCommitNodesMeter   = metrics.NewRegisteredMeter("trie/memcache/commit/nodes", nil)
	memcacheCommitRemovedMeter = metrics.NewRegisteredMeter("trie/memcache/commit/removed", nil)
)

// cachedNode is the encoding of a trie node held by the cache, flagged dirty
// until it is committed to the backing store.
type cachedNode struct {
	blob  []byte
	dirty bool
}

// Cache is the write-back layer between the trie and its backing store. Node
// encodings are keyed by their keccak256 hash. Nodes replaced while pruning
// are collected in a removed set and deleted from the store on commit.
//
// The cache lock also guards every structural operation of the trie built on
// top of it.
type Cache struct {
	lock sync.Mutex

	db      aiondb.KeyValueStore // Backing store, nil for memory only tries
	nodes   map[common.Hash]*cachedNode
	removed mapset.Set // set of common.Hash
	dirty   bool

	cleans *fastcache.Cache // Clean node blobs already in the backing store
	logger log.Logger
}

// NewCache creates a write-back cache over db. If cleanSize is positive, a
// clean cache of that many megabytes is kept in front of the backing store.
func NewCache(db aiondb.KeyValueStore, cleanSize int) *Cache {
	var cleans *fastcache.Cache
	if cleanSize > 0 {
		cleans = fastcache.New(cleanSize * 1024 * 1024)
	}
	return &Cache{
		db:      db,
		nodes:   make(map[common.Hash]*cachedNode),
		removed: mapset.NewSet(),
		cleans:  cleans,
		logger:  log.New("module", "trie"),
	}
}

// put stores the encoding of n if it is 32 bytes or longer and returns the
// reference a parent should hold: the hash of n, or n itself when it is small
// enough to be embedded. The lock must be held.
func (c *Cache) put(n node) node {
	switch n.(type) {
	case nil, hashNode, valueNode:
		return n
	}
	enc := nodeToBytes(n)
	if len(enc) < hashLen {
		return n
	}
	hash := crypto.Keccak256Hash(enc)
	c.nodes[hash] = &cachedNode{blob: enc, dirty: true}
	c.removed.Remove(hash)
	c.dirty = true
	return hashNode(hash.Bytes())
}

// putRoot stores n under its hash regardless of its size, so that small
// roots can be reopened by hash. The lock must be held.
func (c *Cache) putRoot(n node) {
	switch n.(type) {
	case nil, hashNode, valueNode:
		return
	}
	enc := nodeToBytes(n)
	if len(enc) >= hashLen {
		return
	}
	hash := crypto.Keccak256Hash(enc)
	if _, ok := c.nodes[hash]; ok {
		return
	}
	c.nodes[hash] = &cachedNode{blob: enc, dirty: true}
	c.removed.Remove(hash)
	c.dirty = true
}

// get returns the encoding stored under hash, loading it from the clean
// cache or the backing store on a miss. The lock must be held.
func (c *Cache) get(hash common.Hash) []byte {
	if n, ok := c.nodes[hash]; ok {
		memcacheDirtyHitMeter.Mark(1)
		return n.blob
	}
	memcacheDirtyMissMeter.Mark(1)

	if c.cleans != nil {
		if enc := c.cleans.Get(nil, hash[:]); enc != nil {
			memcacheCleanHitMeter.Mark(1)
			memcacheCleanReadMeter.Mark(int64(len(enc)))
			c.nodes[hash] = &cachedNode{blob: enc}
			return enc
		}
	}
	if c.db == nil {
		return nil
	}
	enc := rawdb.ReadTrieNode(c.db, hash)
	if len(enc) == 0 {
		return nil
	}
	if c.cleans != nil {
		memcacheCleanMissMeter.Mark(1)
		memcacheCleanWriteMeter.Mark(int64(len(enc)))
		c.cleans.Set(hash[:], enc)
	}
	c.nodes[hash] = &cachedNode{blob: enc}
	return enc
}

func (c *Cache) markRemoved(hash common.Hash) {
	c.removed.Add(hash)
	// Without a store the synced state only lives here until the removal
	// is committed.
	if c.db != nil {
		delete(c.nodes, hash)
	}
}

func (c *Cache) delete(hash common.Hash) error {
	delete(c.nodes, hash)
	if c.cleans != nil {
		c.cleans.Del(hash[:])
	}
	if c.db != nil {
		return c.db.Delete(hash[:])
	}
	return nil
}

// Get returns the node encoding stored under hash, or nil if it is unknown.
func (c *Cache) Get(hash common.Hash) []byte {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.get(hash)
}

// MarkRemoved schedules the node for deletion from the backing store on the
// next commit and drops it from the cache.
func (c *Cache) MarkRemoved(hash common.Hash) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.markRemoved(hash)
}

// Delete drops the node from the cache and the backing store immediately.
func (c *Cache) Delete(hash common.Hash) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.delete(hash)
}

// Commit writes every dirty node and deletes every removed node in a single
// batch. With flush set, the cached nodes are dropped afterwards unless the
// cache has no backing store.
func (c *Cache) Commit(flush bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.commit(flush)
}

func (c *Cache) commit(flush bool) error {
	if c.db == nil {
		return c.commitMemory()
	}
	if !c.dirty && c.removed.Cardinality() == 0 {
		if flush {
			c.nodes = make(map[common.Hash]*cachedNode)
		}
		return nil
	}
	batch := make(map[string][]byte)
	for hash, n := range c.nodes {
		if n.dirty {
			batch[string(hash.Bytes())] = n.blob
		}
	}
	written := len(batch)
	for item := range c.removed.Iter() {
		hash := item.(common.Hash)
		batch[string(hash.Bytes())] = nil
	}
	if err := c.db.PutBatch(batch); err != nil {
		c.logger.Error("Failed to commit trie nodes", "nodes", written, "removed", c.removed.Cardinality(), "err", err)
		return err
	}
	memcacheCommitNodesMeter.Mark(int64(written))
	memcacheCommitRemovedMeter.Mark(int64(c.removed.Cardinality()))
	c.logger.Trace("Committed trie nodes", "nodes", written, "removed", c.removed.Cardinality(), "flush", flush)

	for hash, n := range c.nodes {
		if n.dirty {
			n.dirty = false
			if c.cleans != nil {
				c.cleans.Set(hash[:], n.blob)
			}
		}
	}
	if c.cleans != nil {
		for item := range c.removed.Iter() {
			hash := item.(common.Hash)
			c.cleans.Del(hash[:])
		}
	}
	c.dirty = false
	if flush {
		c.nodes = make(map[common.Hash]*cachedNode)
	}
	c.removed.Clear()
	return nil
}

// commitMemory commits a cache without a backing store. The cache holds the
// only copy of the committed nodes, so they are kept even when flushing.
func (c *Cache) commitMemory() error {
	for item := range c.removed.Iter() {
		delete(c.nodes, item.(common.Hash))
	}
	for _, n := range c.nodes {
		n.dirty = false
	}
	c.removed.Clear()
	c.dirty = false
	return nil
}

// Undo drops every node written since the last commit.
func (c *Cache) Undo() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.undo()
}

func (c *Cache) undo() {
	for hash, n := range c.nodes {
		if n.dirty {
			delete(c.nodes, hash)
		}
	}
	c.dirty = false
}

// IsDirty reports whether nodes were written since the last commit.
func (c *Cache) IsDirty() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.dirty
}

// Size returns the number of nodes held in memory.
func (c *Cache) Size() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.nodes)
}

// DB returns the backing store.
func (c *Cache) DB() aiondb.KeyValueStore {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.db
}

// SetDB moves the cache onto a new backing store. Without a previous store
// the committed nodes are copied over; otherwise every row of the previous
// store is migrated and the previous store is closed.
func (c *Cache) SetDB(db aiondb.KeyValueStore) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.db == db {
		return nil
	}
	rows := make(map[string][]byte)
	if c.db == nil {
		for hash, n := range c.nodes {
			if !n.dirty {
				rows[string(hash.Bytes())] = n.blob
			}
		}
	} else {
		keys, err := c.db.Keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			val, err := c.db.Get(key)
			if err != nil {
				return err
			}
			rows[string(key)] = val
		}
		if err := c.db.Close(); err != nil {
			c.logger.Error("Unable to close data source", "err", err)
		}
	}
	if err := db.PutBatch(rows); err != nil {
		return err
	}
	c.db = db
	return nil
}

// copy returns a cache with its own node map and removed set over the same
// backing store. Node blobs are shared. The lock must be held.
func (c *Cache) copy() *Cache {
	cpy := &Cache{
		db:      c.db,
		nodes:   make(map[common.Hash]*cachedNode, len(c.nodes)),
		removed: c.removed.Clone(),
		dirty:   c.dirty,
		cleans:  c.cleans,
		logger:  c.logger,
	}
	for hash, n := range c.nodes {
		cpy.nodes[hash] = &cachedNode{blob: n.blob, dirty: n.dirty}
	}
	return cpy
}
