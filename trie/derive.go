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
	"github.com/ethereum/go-ethereum/rlp"
)

// DeriveRoot returns the root hash of a memory only trie holding the given
// encodings under their RLP encoded list index, as used for the transaction
// and receipt roots of a block.
func DeriveRoot(list [][]byte) common.Hash {
	t := NewEmpty(nil)
	for i, item := range list {
		key, _ := rlp.EncodeToBytes(uint(i))
		t.Update(key, item)
	}
	return t.Hash()
}
