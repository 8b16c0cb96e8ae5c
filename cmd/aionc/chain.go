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
	"github.com/ethereum/go-ethereum/common"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

// headerChain is an in-memory header store. The header inserted last at a
// height is the main chain one.
type headerChain struct {
	config    *params.ChainConfig
	headers   map[common.Hash]types.Header
	canonical map[uint64]common.Hash
	head      types.Header
}

func newHeaderChain(config *params.ChainConfig) *headerChain {
	return &headerChain{
		config:    config,
		headers:   make(map[common.Hash]types.Header),
		canonical: make(map[uint64]common.Hash),
	}
}

func (c *headerChain) insert(h types.Header) {
	hash := h.Hash()
	c.headers[hash] = h
	c.canonical[h.Base().Number] = hash
	if c.head == nil || h.Base().Number >= c.head.Base().Number {
		c.head = h
	}
}

// insertSide stores a header without making it canonical.
func (c *headerChain) insertSide(h types.Header) {
	c.headers[h.Hash()] = h
}

func (c *headerChain) Config() *params.ChainConfig                   { return c.config }
func (c *headerChain) CurrentHeader() types.Header                   { return c.head }
func (c *headerChain) GetHeaderByHash(hash common.Hash) types.Header { return c.headers[hash] }

func (c *headerChain) GetHeaderByNumber(number uint64) types.Header {
	if hash, ok := c.canonical[number]; ok {
		return c.headers[hash]
	}
	return nil
}

func (c *headerChain) IsMainChain(hash common.Hash) bool {
	h, ok := c.headers[hash]
	return ok && c.canonical[h.Base().Number] == hash
}
