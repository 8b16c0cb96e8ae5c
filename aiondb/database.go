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
// Package aiondb defines the interfaces for the key-value stores backing the
// trie and the journal prune data source.
package aiondb

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key is absent from the store.
var ErrNotFound = errors.New("not found")

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put method of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// Batcher wraps the batched write operations of a backing data store.
type Batcher interface {
	// PutBatch writes every entry atomically. A nil value deletes the key.
	PutBatch(batch map[string][]byte) error

	// DeleteBatch removes every given key atomically.
	DeleteBatch(keys [][]byte) error
}

// KeyValueStore contains all the methods required to allow handling different
// key-value data stores backing the trie.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Batcher

	// Keys returns every key currently held by the store.
	Keys() ([][]byte, error)

	// IsEmpty reports whether the store holds no keys at all.
	IsEmpty() (bool, error)

	io.Closer
}
