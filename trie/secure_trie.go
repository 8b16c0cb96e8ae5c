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
	"github.com/ethereum/go-ethereum/common"

	"github.com/aionnetwork/go-aion/crypto"
)

// SecureTrie wraps a trie with key hashing. In a secure trie, all
// access operations hash the key using keccak256. This prevents
// calling code from creating long chains of nodes that
// increase the access time.
type SecureTrie struct {
	trie Trie
}

// NewSecure creates a trie with an existing root node from a backing cache.
//
// If root is the zero hash or the keccak256 hash of an empty string, the
// trie is initially empty. Otherwise, it returns a MissingNodeError if the
// root node cannot be found.
func NewSecure(root common.Hash, cache *Cache) (*SecureTrie, error) {
	trie, err := New(root, cache)
	if err != nil {
		return nil, err
	}
	return &SecureTrie{trie: *trie}, nil
}

// Get returns the value for key stored in the trie.
// The value bytes must not be modified by the caller.
func (t *SecureTrie) Get(key []byte) []byte {
	return t.trie.Get(t.hashKey(key))
}

// TryGet returns the value for key stored in the trie.
// If a node was not found in the database, a MissingNodeError is returned.
func (t *SecureTrie) TryGet(key []byte) ([]byte, error) {
	return t.trie.TryGet(t.hashKey(key))
}

// Update associates key with value in the trie.
func (t *SecureTrie) Update(key, value []byte) {
	t.trie.Update(t.hashKey(key), value)
}

// TryUpdate associates key with value in the trie.
// If a node was not found in the database, a MissingNodeError is returned.
func (t *SecureTrie) TryUpdate(key, value []byte) error {
	return t.trie.TryUpdate(t.hashKey(key), value)
}

// Delete removes any existing value for key from the trie.
func (t *SecureTrie) Delete(key []byte) {
	t.trie.Delete(t.hashKey(key))
}

// TryDelete removes any existing value for key from the trie.
// If a node was not found in the database, a MissingNodeError is returned.
func (t *SecureTrie) TryDelete(key []byte) error {
	return t.trie.TryDelete(t.hashKey(key))
}

// Hash returns the root hash of SecureTrie.
func (t *SecureTrie) Hash() common.Hash {
	return t.trie.Hash()
}

// Sync commits the underlying trie.
func (t *SecureTrie) Sync(flush bool) error {
	return t.trie.Sync(flush)
}

// Undo discards every change made since the last Sync.
func (t *SecureTrie) Undo() {
	t.trie.Undo()
}

// Trie returns the underlying trie, keyed by hashed keys.
func (t *SecureTrie) Trie() *Trie {
	return &t.trie
}

// Copy returns a copy of SecureTrie.
func (t *SecureTrie) Copy() *SecureTrie {
	return &SecureTrie{trie: *t.trie.Copy()}
}

func (t *SecureTrie) hashKey(key []byte) []byte {
	return crypto.Keccak256(key)
}
