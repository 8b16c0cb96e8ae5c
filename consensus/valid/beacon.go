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

package valid

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/aionnetwork/go-aion/consensus"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

const inmemoryBeaconHeaders = 512 // Number of recent side chain headers to keep in memory

// BeaconHashValidator decides whether the beacon hash of a transaction names
// a block on the chain the transaction is included in.
type BeaconHashValidator struct {
	chain   consensus.ChainHeaderReader
	fork050 int64

	headers *lru.ARCCache // hash -> types.Header
	logger  log.Logger
}

// NewBeaconHashValidator creates a validator activating at the given fork
// block. Pass params.Fork050Disabled to reject every beacon hash.
func NewBeaconHashValidator(chain consensus.ChainHeaderReader, fork050 int64) (*BeaconHashValidator, error) {
	if chain == nil {
		return nil, errors.New("beacon hash validator needs a chain")
	}
	if fork050 < 0 {
		return nil, fmt.Errorf("invalid fork 0.5.0 block number %d", fork050)
	}
	headers, _ := lru.NewARC(inmemoryBeaconHeaders)
	return &BeaconHashValidator{
		chain:   chain,
		fork050: fork050,
		headers: headers,
		logger:  log.New("module", "beacon"),
	}, nil
}

// IsAfterFork050 reports whether beacon hashes are allowed at the given
// height.
func (v *BeaconHashValidator) IsAfterFork050(number uint64) bool {
	return v.fork050 != params.Fork050Disabled && number >= uint64(v.fork050)
}

// ValidateTxForBlock reports whether a transaction with the given beacon hash
// may be included in block. A nil beacon hash is always valid. Otherwise the
// fork must be active and the beacon must be an ancestor of block's parent,
// on the main chain or on block's side chain.
//
// An error is returned if the side chain of block can not be walked back to
// the main chain.
func (v *BeaconHashValidator) ValidateTxForBlock(beaconHash *common.Hash, block types.Header) (bool, error) {
	if beaconHash == nil {
		return true, nil
	}
	start := time.Now()
	defer func() {
		v.logger.Trace("Validated beacon hash for block", "number", block.Base().Number, "elapsed", common.PrettyDuration(time.Since(start)))
	}()

	if !v.IsAfterFork050(block.Base().Number) {
		return false, nil
	}
	parentHash := block.Base().ParentHash
	if v.chain.IsMainChain(parentHash) {
		ok := v.chain.IsMainChain(*beaconHash)
		v.logger.Debug("Checked beacon hash on the main chain", "beacon", *beaconHash, "ok", ok)
		return ok, nil
	}
	ok, err := v.checkSideChain(*beaconHash, parentHash)
	v.logger.Debug("Checked beacon hash on a side chain", "beacon", *beaconHash, "parent", parentHash, "ok", ok, "err", err)
	return ok, err
}

// ValidateTxForPendingState reports whether a transaction with the given beacon
// hash may enter the pending state, built on top of the current head.
func (v *BeaconHashValidator) ValidateTxForPendingState(beaconHash *common.Hash) bool {
	if beaconHash == nil {
		return true
	}
	// The next block may be higher than head+1; false negatives are tolerated.
	next := v.chain.CurrentHeader().Base().Number + 1
	if !v.IsAfterFork050(next) {
		return false
	}
	return v.chain.IsMainChain(*beaconHash)
}

func (v *BeaconHashValidator) checkSideChain(beaconHash, parentHash common.Hash) (bool, error) {
	beacon := v.header(beaconHash)
	if beacon == nil {
		return false, nil
	}
	beaconNumber := beacon.Base().Number
	for cur := v.header(parentHash); cur != nil; cur = v.header(cur.Base().ParentHash) {
		hash := cur.Hash()
		switch {
		case hash == beaconHash:
			return true, nil
		case beaconNumber >= cur.Base().Number:
			v.logger.Trace("Reached the height of the beacon block", "hash", hash)
			return false, nil
		case v.chain.IsMainChain(hash):
			v.logger.Trace("Found the fork point to the main chain", "hash", hash)
			return v.chain.IsMainChain(beaconHash), nil
		}
	}
	// Genesis is on the main chain, so the walk can only end here on a
	// corrupted or incomplete database.
	return false, fmt.Errorf("%w: side chain walk from %x ended before the main chain", consensus.ErrUnknownBlock, parentHash)
}

// header retrieves a header by hash, memoised since headers are immutable.
func (v *BeaconHashValidator) header(hash common.Hash) types.Header {
	if h, ok := v.headers.Get(hash); ok {
		return h.(types.Header)
	}
	h := v.chain.GetHeaderByHash(hash)
	if h != nil {
		v.headers.Add(hash, h)
	}
	return h
}
