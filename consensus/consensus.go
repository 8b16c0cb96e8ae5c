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

// Package consensus holds the collaborators shared by the Aion header
// validation pipeline.
package consensus

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

// ChainHeaderReader defines a small collection of methods needed to access the
// local blockchain during header verification.
type ChainHeaderReader interface {
	// Config retrieves the blockchain's chain configuration.
	Config() *params.ChainConfig

	// CurrentHeader retrieves the current header from the local chain.
	CurrentHeader() types.Header

	// GetHeaderByHash retrieves a block header from the database by its hash,
	// whether or not it is on the main chain.
	GetHeaderByHash(hash common.Hash) types.Header

	// GetHeaderByNumber retrieves a main chain block header by number.
	GetHeaderByNumber(number uint64) types.Header

	// IsMainChain reports whether the block with the given hash is on the main
	// chain.
	IsMainChain(hash common.Hash) bool
}
