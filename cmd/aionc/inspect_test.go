// Copyright 2021 The go-aion Authors
// This file is part of go-aion.
//
// go-aion is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-aion is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-aion. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/aionnetwork/go-aion/aiondb/memorydb"
	"github.com/aionnetwork/go-aion/trie"
)

func TestUnreferencedRows(t *testing.T) {
	db := memorydb.New()
	state := trie.NewEmpty(trie.NewCache(db, 0))
	for i := 0; i < 100; i++ {
		state.Update([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("value-%03d-padded-past-embedding", i)))
	}
	require.NoError(t, state.Sync(true))
	root := state.Hash()

	size, err := state.TrieSize(root)
	require.NoError(t, err)
	rows, err := db.Keys()
	require.NoError(t, err)
	require.Len(t, rows, size)

	count, err := unreferencedRows(state, root, size, rows)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, db.Put([]byte("meta"), []byte{1}))
	require.NoError(t, db.Put(common.HexToHash("0xdeadbeef").Bytes(), []byte{2}))
	rows, err = db.Keys()
	require.NoError(t, err)

	count, err = unreferencedRows(state, root, size, rows)
	require.NoError(t, err)
	// A stray hash may collide in the filter, the short key never does.
	require.GreaterOrEqual(t, count, 1)
	require.LessOrEqual(t, count, 2)
}
