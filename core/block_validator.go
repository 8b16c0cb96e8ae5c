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

package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/trie"
)

// ValidateTxTrieRoot checks the transaction root of a header against the
// encoded transactions of its body.
func ValidateTxTrieRoot(header types.Header, txs [][]byte) error {
	return checkRoot("transaction", header, header.Base().TxHash, trie.DeriveRoot(txs))
}

// ValidateReceiptsRoot checks the receipt root of a header against the
// encoded receipts produced by executing its body.
func ValidateReceiptsRoot(header types.Header, receipts [][]byte) error {
	return checkRoot("receipt", header, header.Base().ReceiptHash, trie.DeriveRoot(receipts))
}

// ValidateStateRoot checks the state root of a header against the root of the
// state trie after executing its body.
func ValidateStateRoot(header types.Header, root common.Hash) error {
	return checkRoot("state", header, header.Base().Root, root)
}

// ValidateEnergyUsed checks the energy consumed declared by a header against
// the energy used executing its body.
func ValidateEnergyUsed(header types.Header, used uint64) error {
	if have := header.Base().EnergyConsumed; have != used {
		log.Warn("Invalid energy consumed", "number", header.Base().Number, "have", have, "want", used)
		return fmt.Errorf("invalid energy used (remote: %d local: %d)", have, used)
	}
	return nil
}

func checkRoot(kind string, header types.Header, have, want common.Hash) error {
	if have != want {
		log.Warn("Invalid "+kind+" root", "number", header.Base().Number, "have", have, "want", want)
		return fmt.Errorf("invalid %s root (remote: %x local: %x)", kind, have, want)
	}
	return nil
}
