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

package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/aionnetwork/go-aion/aiondb"
)

var (
	trieNodeWriteCounter  = metrics.NewRegisteredCounter("rawdb/trienode/write", nil)
	trieNodeDeleteCounter = metrics.NewRegisteredCounter("rawdb/trienode/delete", nil)
)

// ReadTrieNode retrieves the trie node of the provided hash.
func ReadTrieNode(db aiondb.KeyValueReader, hash common.Hash) []byte {
	data, _ := db.Get(hash.Bytes())
	return data
}

// HasTrieNode checks if the trie node with the provided hash is present in db.
func HasTrieNode(db aiondb.KeyValueReader, hash common.Hash) bool {
	ok, _ := db.Has(hash.Bytes())
	return ok
}

// WriteTrieNode writes the provided trie node database.
func WriteTrieNode(db aiondb.KeyValueWriter, hash common.Hash, node []byte) {
	if err := db.Put(hash.Bytes(), node); err != nil {
		log.Crit("Failed to store trie node", "err", err)
	}
	trieNodeWriteCounter.Inc(1)
}

// WriteTrieNodes writes the provided trie nodes in one batch.
func WriteTrieNodes(db aiondb.Batcher, nodes map[common.Hash][]byte) {
	batch := make(map[string][]byte, len(nodes))
	for hash, node := range nodes {
		batch[string(hash.Bytes())] = node
	}
	if err := db.PutBatch(batch); err != nil {
		log.Crit("Failed to store trie nodes", "err", err)
	}
	trieNodeWriteCounter.Inc(int64(len(nodes)))
}

// DeleteTrieNode deletes the specified trie node from the database.
func DeleteTrieNode(db aiondb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(hash.Bytes()); err != nil {
		log.Crit("Failed to delete trie node", "err", err)
	}
	trieNodeDeleteCounter.Inc(1)
}
