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
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/core/rawdb"
)

// archiveBatchSize is the number of nodes written per batch when copying
// state into another store.
const archiveBatchSize = 1024

var errStopScan = errors.New("stop scan")

// ScanFunc is called for every hashed node reached by a scan.
type ScanFunc func(hash common.Hash, blob []byte) error

// scanner walks the hashed nodes reachable from a root breadth first.
type scanner struct {
	t *Trie

	onNode    ScanFunc
	onMissing func(common.Hash) error // nil: missing nodes are fatal
	skip      func(common.Hash) bool  // children for which skip is true are not visited

	unlocked bool // the cache lock is taken per node instead of held for the walk
}

// run walks the trie at root. Unless the scanner is unlocked, the cache lock
// must be held.
func (s *scanner) run(root common.Hash) error {
	if root == EmptyRoot {
		return nil
	}
	// An unsynced root small enough to be embedded is only held in memory.
	if blob := s.embeddedRoot(root); blob != nil {
		return s.onNode(root, blob)
	}
	var (
		queue   = []common.Hash{root}
		visited = make(map[common.Hash]struct{})
	)
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if _, ok := visited[hash]; ok {
			continue
		}
		visited[hash] = struct{}{}

		blob := s.get(hash)
		if blob == nil {
			if s.onMissing == nil {
				return &MissingNodeError{NodeHash: hash}
			}
			if err := s.onMissing(hash); err != nil {
				return err
			}
			continue
		}
		n, err := decodeNode(hash[:], blob)
		if err != nil {
			return fmt.Errorf("node %x: %w", hash, err)
		}
		hashChildren(n, func(child hashNode) {
			h := common.BytesToHash(child)
			if s.skip == nil || !s.skip(h) {
				queue = append(queue, h)
			}
		})
		if err := s.onNode(hash, blob); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) embeddedRoot(root common.Hash) []byte {
	if s.unlocked {
		s.t.cache.lock.Lock()
		defer s.t.cache.lock.Unlock()
	}
	if n := s.t.root; n != nil {
		if _, ok := n.(hashNode); !ok && s.t.hashRoot() == root {
			return nodeToBytes(n)
		}
	}
	return nil
}

func (s *scanner) get(hash common.Hash) []byte {
	if s.unlocked {
		return s.t.cache.Get(hash)
	}
	return s.t.cache.get(hash)
}

// Scan calls fn for every hashed node reachable from root. A node absent
// from the cache and the backing store aborts the scan with a
// MissingNodeError.
func (t *Trie) Scan(root common.Hash, fn ScanFunc) error {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	return (&scanner{t: t, onNode: fn}).run(root)
}

// TrieSize returns the number of hashed nodes reachable from root.
func (t *Trie) TrieSize(root common.Hash) (int, error) {
	var count int
	err := t.Scan(root, func(common.Hash, []byte) error {
		count++
		return nil
	})
	return count, err
}

// TrieKeys returns the set of node hashes reachable from root.
func (t *Trie) TrieKeys(root common.Hash) (mapset.Set, error) {
	keys := mapset.NewSet()
	err := t.Scan(root, func(hash common.Hash, _ []byte) error {
		keys.Add(hash)
		return nil
	})
	return keys, err
}

// MissingNodes returns the hashes of the nodes referenced below root that
// can not be resolved.
func (t *Trie) MissingNodes(root common.Hash) ([]common.Hash, error) {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	var missing []common.Hash
	s := &scanner{
		t:      t,
		onNode: func(common.Hash, []byte) error { return nil },
		onMissing: func(hash common.Hash) error {
			missing = append(missing, hash)
			return nil
		},
	}
	return missing, s.run(root)
}

// ReferencedNodes returns up to limit node encodings reachable from root,
// keyed by hash.
func (t *Trie) ReferencedNodes(root common.Hash, limit int) (map[common.Hash][]byte, error) {
	refs := make(map[common.Hash][]byte)
	if limit <= 0 {
		return refs, nil
	}
	err := t.Scan(root, func(hash common.Hash, blob []byte) error {
		refs[hash] = blob
		if len(refs) >= limit {
			return errStopScan
		}
		return nil
	})
	if err == errStopScan {
		err = nil
	}
	return refs, err
}

// SaveFullState copies every node reachable from root into db and returns
// the number of nodes written. The cache lock is only held while resolving a
// node, so the trie stays usable during the copy. Nodes below root must not
// be deleted from the store until the copy is done.
func (t *Trie) SaveFullState(root common.Hash, db aiondb.Batcher) (int, error) {
	w := &batchWriter{db: db}
	if err := (&scanner{t: t, onNode: w.put, unlocked: true}).run(root); err != nil {
		return w.count, err
	}
	return w.count, w.flush()
}

// SaveDiffState copies the nodes reachable from root into db, without
// descending below nodes db already holds. It returns the number of nodes
// written. Like SaveFullState, it does not hold the cache lock across the copy.
func (t *Trie) SaveDiffState(root common.Hash, db aiondb.KeyValueStore) (int, error) {
	w := &batchWriter{db: db}
	s := &scanner{
		t:        t,
		unlocked: true,
		onNode:   w.put,
		skip: func(hash common.Hash) bool {
			return rawdb.HasTrieNode(db, hash)
		},
	}
	if err := s.run(root); err != nil {
		return w.count, err
	}
	return w.count, w.flush()
}

type batchWriter struct {
	db    aiondb.Batcher
	batch map[string][]byte
	count int
}

func (w *batchWriter) put(hash common.Hash, blob []byte) error {
	if w.batch == nil {
		w.batch = make(map[string][]byte, archiveBatchSize)
	}
	w.batch[string(hash.Bytes())] = blob
	w.count++
	if len(w.batch) >= archiveBatchSize {
		return w.flush()
	}
	return nil
}

func (w *batchWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	err := w.db.PutBatch(w.batch)
	w.batch = nil
	return err
}

// CleanCache drops every cached node that is not reachable from the current
// root. Unreachable nodes left by updates are garbage once the root moved on.
func (t *Trie) CleanCache() error {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	live := make(map[common.Hash]struct{})
	s := &scanner{
		t: t,
		onNode: func(hash common.Hash, _ []byte) error {
			live[hash] = struct{}{}
			return nil
		},
	}
	if err := s.run(t.hashRoot()); err != nil {
		return err
	}
	for hash := range t.cache.nodes {
		if _, ok := live[hash]; !ok {
			delete(t.cache.nodes, hash)
		}
	}
	return nil
}

// Dump returns a textual dump of every hashed node reachable from the
// current root.
func (t *Trie) Dump() string {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	var b strings.Builder
	root := t.hashRoot()
	fmt.Fprintf(&b, "root: %x\n", root)
	err := (&scanner{t: t, onNode: func(hash common.Hash, blob []byte) error {
		n, err := decodeNode(hash[:], blob)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%x => %v\n", hash, n.fstring(""))
		return nil
	}}).run(root)
	if err != nil {
		fmt.Fprintf(&b, "error: %v\n", err)
	}
	return b.String()
}

// Iterate calls fn for every key and value in ascending key order until fn
// returns false.
func (t *Trie) Iterate(fn func(key, value []byte) bool) error {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	_, err := t.iterate(t.root, nil, fn)
	return err
}

func (t *Trie) iterate(n node, path []byte, fn func(key, value []byte) bool) (bool, error) {
	switch n := n.(type) {
	case nil:
		return true, nil
	case valueNode:
		return fn(hexToKeybytes(path), n), nil
	case *shortNode:
		return t.iterate(n.Val, concat(path, n.Key...), fn)
	case *fullNode:
		// The value slot holds the shortest key below this node.
		if ok, err := t.iterate(n.Children[16], concat(path, 16), fn); !ok || err != nil {
			return ok, err
		}
		for i := 0; i < 16; i++ {
			if ok, err := t.iterate(n.Children[i], concat(path, byte(i)), fn); !ok || err != nil {
				return ok, err
			}
		}
		return true, nil
	case hashNode:
		rn, err := t.resolveHash(n, path)
		if err != nil {
			return false, err
		}
		return t.iterate(rn, path, fn)
	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}
