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
// Package trie implements the pruned Merkle Patricia Trie backing the world
// state.
package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	acommon "github.com/aionnetwork/go-aion/common"
	"github.com/aionnetwork/go-aion/crypto"
)

// EmptyRoot is the known root hash of an empty trie.
var EmptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Trie is a Merkle Patricia Trie writing back through a Cache. Every node
// built by an update is handed to the cache right away; the root and the
// children of every node are references as returned by the cache.
//
// With pruning enabled, hashed nodes replaced by an update are marked for
// removal and deleted from the backing store on the next Sync.
//
// Trie is safe for concurrent use; operations are serialised on the cache.
type Trie struct {
	cache    *Cache
	root     node
	prevRoot node // root at the last Sync, restored by Undo
	pruning  bool
}

// New creates a trie over the given cache, starting from root. If root is
// neither zero nor the empty root, it must be resolvable through the cache or
// a MissingNodeError is returned.
func New(root common.Hash, cache *Cache) (*Trie, error) {
	if cache == nil {
		cache = NewCache(nil, 0)
	}
	t := &Trie{cache: cache}
	if root != (common.Hash{}) && root != EmptyRoot {
		cache.lock.Lock()
		defer cache.lock.Unlock()

		ref := hashNode(root.Bytes())
		if _, err := t.resolveHash(ref, nil); err != nil {
			return nil, err
		}
		t.root, t.prevRoot = ref, ref
	}
	return t, nil
}

// NewEmpty creates an empty trie over the given cache, or over a memory only
// cache if nil.
func NewEmpty(cache *Cache) *Trie {
	t, _ := New(common.Hash{}, cache)
	return t
}

// WithPruning toggles marking of replaced nodes for removal.
func (t *Trie) WithPruning(enabled bool) *Trie {
	t.pruning = enabled
	return t
}

// Pruning reports whether replaced nodes are marked for removal.
func (t *Trie) Pruning() bool {
	return t.pruning
}

// Cache returns the write-back cache of the trie.
func (t *Trie) Cache() *Cache {
	return t.cache
}

// Get returns the value for key stored in the trie.
// The value bytes must not be modified by the caller.
func (t *Trie) Get(key []byte) []byte {
	res, err := t.TryGet(key)
	if err != nil {
		log.Error(fmt.Sprintf("Unhandled trie error: %v", err))
	}
	return res
}

// TryGet returns the value for key stored in the trie.
// The value bytes must not be modified by the caller.
// If a node was not found in the database, a MissingNodeError is returned.
func (t *Trie) TryGet(key []byte) ([]byte, error) {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	return t.tryGet(t.root, keybytesToHex(key), 0)
}

func (t *Trie) tryGet(origNode node, key []byte, pos int) ([]byte, error) {
	switch n := (origNode).(type) {
	case nil:
		return nil, nil
	case valueNode:
		return n, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			// key not found in trie
			return nil, nil
		}
		return t.tryGet(n.Val, key, pos+len(n.Key))
	case *fullNode:
		return t.tryGet(n.Children[key[pos]], key, pos+1)
	case hashNode:
		child, err := t.resolveHash(n, key[:pos])
		if err != nil {
			return nil, err
		}
		return t.tryGet(child, key, pos)
	default:
		panic(fmt.Sprintf("%T: invalid node: %v", origNode, origNode))
	}
}

// Update associates key with value in the trie. Subsequent calls to
// Get will return value.
//
// The value bytes must not be modified by the caller while they are
// stored in the trie.
func (t *Trie) Update(key, value []byte) {
	if err := t.TryUpdate(key, value); err != nil {
		log.Error(fmt.Sprintf("Unhandled trie error: %v", err))
	}
}

// TryUpdate associates key with value in the trie. An empty key is rejected
// with ErrEmptyKey and an empty value with ErrEmptyValue; use TryDelete to
// remove a key.
//
// If a node was not found in the database, a MissingNodeError is returned.
func (t *Trie) TryUpdate(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(value) == 0 {
		return ErrEmptyValue
	}
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	_, n, err := t.insert(t.root, nil, keybytesToHex(key), valueNode(acommon.CopyBytes(value)))
	if err != nil {
		return err
	}
	t.root = t.cache.put(n)
	return nil
}

// insert returns the new node of the subtrie at n with value stored under
// key. A modified node is returned unstored; the caller hands it to the
// cache when linking it into its parent.
func (t *Trie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytes.Equal(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		// If the whole key matches, keep this short node as is
		// and only update the value.
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{n.Key, t.cache.put(nn)}, nil
		}
		// Otherwise branch out at the index where they differ.
		branch := &fullNode{}
		_, old, err := t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		branch.Children[n.Key[matchlen]] = t.cache.put(old)

		_, fresh, err := t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		branch.Children[key[matchlen]] = t.cache.put(fresh)

		// Replace this shortNode with the branch if it occurs at index 0.
		if matchlen == 0 {
			return true, branch, nil
		}
		// Otherwise, replace it with a short node leading up to the branch.
		return true, &shortNode{key[:matchlen], t.cache.put(branch)}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = t.cache.put(nn)
		return true, n, nil

	case nil:
		return true, &shortNode{key, value}, nil

	case hashNode:
		// We've hit a part of the trie that isn't loaded yet. Load
		// the node and insert into it.
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, n, err
		}
		t.markRemoved(n)
		return true, nn, nil

	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// Delete removes any existing value for key from the trie.
func (t *Trie) Delete(key []byte) {
	if err := t.TryDelete(key); err != nil {
		log.Error(fmt.Sprintf("Unhandled trie error: %v", err))
	}
}

// TryDelete removes any existing value for key from the trie.
// If a node was not found in the database, a MissingNodeError is returned.
func (t *Trie) TryDelete(key []byte) error {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	_, n, err := t.delete(t.root, nil, keybytesToHex(key))
	if err != nil {
		return err
	}
	t.root = t.cache.put(n)
	return nil
}

// delete returns the new root of the trie with key deleted.
// It reduces the trie to minimal form by simplifying
// nodes on the way up after deleting recursively.
func (t *Trie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil // don't replace n on mismatch
		}
		if matchlen == len(key) {
			return true, nil, nil // remove n entirely for whole matches
		}
		// The key is longer than n.Key. Remove the remaining suffix
		// from the subtrie. Child can never be nil here since the
		// subtrie must contain at least two other values with keys
		// longer than n.Key.
		dirty, child, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			// Deleting from the subtrie reduced it to another
			// short node. Merge the nodes to avoid creating a
			// shortNode{..., shortNode{...}}. Use concat (which
			// always creates a new slice) instead of append to
			// avoid modifying n.Key since it might be shared with
			// other nodes.
			return true, &shortNode{concat(n.Key, child.Key...), child.Val}, nil
		default:
			return true, &shortNode{n.Key, t.cache.put(child)}, nil
		}

	case *fullNode:
		dirty, nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = t.cache.put(nn)

		// Because n is a full node, it must've contained at least two children
		// before the delete operation. If the new child value is non-nil, n still
		// has at least two children after the deletion, and cannot be reduced to
		// a short node.
		if nn != nil {
			return true, n, nil
		}
		// Reduction:
		// Check how many non-nil entries are left after deleting and
		// reduce the full node to a short node if only one entry is
		// left. Since n must've contained at least two children
		// before deletion (otherwise it would not be a full node) n
		// can never be reduced to nil.
		//
		// When the loop is done, pos contains the index of the single
		// value that is left in n or -2 if n contains at least two
		// values.
		pos := -1
		for i, cld := range &n.Children {
			if cld != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				// If the remaining entry is a short node, it replaces
				// n and its key gets the missing nibble tacked to the
				// front. This avoids creating an invalid
				// shortNode{..., shortNode{...}}.
				cnode, err := t.resolve(n.Children[pos], append(prefix, byte(pos)))
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					if ref, ok := n.Children[pos].(hashNode); ok {
						t.markRemoved(ref)
					}
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{k, cnode.Val}, nil
				}
			}
			// Otherwise, n is replaced by a one-nibble short node
			// containing the child.
			return true, &shortNode{[]byte{byte(pos)}, n.Children[pos]}, nil
		}
		// n still contains at least two values and cannot be reduced.
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		// We've hit a part of the trie that isn't loaded yet. Load
		// the node and delete from it.
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(rn, prefix, key)
		if !dirty || err != nil {
			return false, n, err
		}
		t.markRemoved(n)
		return true, nn, nil

	default:
		panic(fmt.Sprintf("%T: invalid node: %v (%v)", n, n, key))
	}
}

func concat(s1 []byte, s2 ...byte) []byte {
	r := make([]byte, len(s1)+len(s2))
	copy(r, s1)
	copy(r[len(s1):], s2)
	return r
}

func (t *Trie) markRemoved(n hashNode) {
	if t.pruning {
		t.cache.markRemoved(common.BytesToHash(n))
	}
}

func (t *Trie) resolve(n node, prefix []byte) (node, error) {
	if n, ok := n.(hashNode); ok {
		return t.resolveHash(n, prefix)
	}
	return n, nil
}

func (t *Trie) resolveHash(n hashNode, prefix []byte) (node, error) {
	hash := common.BytesToHash(n)
	if enc := t.cache.get(hash); enc != nil {
		return decodeNode(n, enc)
	}
	return nil, &MissingNodeError{NodeHash: hash, Path: prefix}
}

// Hash returns the root hash of the trie: the empty root for an empty trie,
// otherwise the keccak256 hash of the root node's encoding.
func (t *Trie) Hash() common.Hash {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	return t.hashRoot()
}

func (t *Trie) hashRoot() common.Hash {
	switch n := t.root.(type) {
	case nil:
		return EmptyRoot
	case hashNode:
		return common.BytesToHash(n)
	default:
		return crypto.Keccak256Hash(nodeToBytes(n))
	}
}

// SetRoot points the trie at another root without checking that it exists.
func (t *Trie) SetRoot(root common.Hash) {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	if root == EmptyRoot || root == (common.Hash{}) {
		t.root = nil
		return
	}
	t.root = hashNode(root.Bytes())
}

// IsValidRoot reports whether root is the empty root or a node the cache
// can resolve.
func (t *Trie) IsValidRoot(root common.Hash) bool {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	return root == EmptyRoot || t.cache.get(root) != nil
}

// Sync commits the cache to the backing store and makes the current root the
// one Undo returns to. With flush set, the cached nodes are dropped.
func (t *Trie) Sync(flush bool) error {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	t.cache.putRoot(t.root)
	if err := t.cache.commit(flush); err != nil {
		return err
	}
	t.prevRoot = t.root
	return nil
}

// Undo discards every change made since the last Sync.
func (t *Trie) Undo() {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	t.cache.undo()
	t.cache.removed.Clear()
	t.root = t.prevRoot
}

// Copy returns a trie at the same root with its own cache. The node map and
// removed set are copied, the backing store and node encodings are shared.
func (t *Trie) Copy() *Trie {
	t.cache.lock.Lock()
	defer t.cache.lock.Unlock()

	return &Trie{
		cache:    t.cache.copy(),
		root:     t.root,
		prevRoot: t.root,
		pruning:  t.pruning,
	}
}

func (t *Trie) String() string {
	return fmt.Sprintf("trie(%x)", t.Hash())
}
