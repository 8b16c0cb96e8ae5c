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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/aionnetwork/go-aion/consensus"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
	"github.com/aionnetwork/go-aion/trie"
)

var errNoArchive = errors.New("state archiving needs an archive backed store")

// StatePruner feeds imported blocks to the journal prune data source backing
// the state trie. A block is pruned once the chain is CurrentCount blocks past
// it, and every ArchiveRate-th state is copied to the archive tier.
type StatePruner struct {
	config params.PruneConfig
	chain  consensus.ChainHeaderReader
	db     *trie.JournalPruneDataSource
	cache  *trie.Cache

	archiving *errgroup.Group // copy in flight, nil when idle
	archived  uint64          // number of the block last sent to the archive
	lock      sync.Mutex      // serialises block imports
	logger    log.Logger
}

// NewStatePruner creates a pruner over db. cache must be the trie cache
// writing through db.
func NewStatePruner(chain consensus.ChainHeaderReader, db *trie.JournalPruneDataSource, cache *trie.Cache, config params.PruneConfig) (*StatePruner, error) {
	config = config.Sanitize()
	if config.Archived && !db.IsArchiveEnabled() {
		return nil, errNoArchive
	}
	db.SetPruneEnabled(config.Enabled)
	return &StatePruner{
		config: config,
		chain:  chain,
		db:     db,
		cache:  cache,
		logger: log.New("module", "pruner"),
	}, nil
}

// Config returns the sanitized prune configuration.
func (p *StatePruner) Config() params.PruneConfig {
	return p.config
}

// BlockImported records the state changes of an imported block, flushed to
// the data source beforehand, and prunes the block falling out of the
// journal window. The error of a failed archive copy is returned once, by
// the import that waits for it, after that import pruned its block.
func (p *StatePruner) BlockImported(header types.Header) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	number := header.Base().Number
	p.db.StoreBlockChanges(header.Hash(), number)

	if p.config.Archived && number%p.config.ArchiveRate == 0 {
		p.archive(number, header.Base().Root)
	}
	if !p.config.Enabled || number < p.config.CurrentCount {
		return nil
	}
	pruned := number - p.config.CurrentCount
	// Pruning past an archived block may delete nodes the copy still reads.
	var archiveErr error
	if p.archiving != nil && pruned >= p.archived {
		archiveErr = p.waitArchive()
	}
	canonical := p.chain.GetHeaderByNumber(pruned)
	if canonical == nil {
		return fmt.Errorf("%w: main chain block %d", consensus.ErrUnknownBlock, pruned)
	}
	if err := p.db.Prune(canonical.Hash(), pruned); err != nil {
		return err
	}
	return archiveErr
}

// archive copies the state at root to the archive tier in the background.
// A copy still running is waited for first; its failure was already logged.
func (p *StatePruner) archive(number uint64, root common.Hash) {
	if p.archiving != nil {
		p.waitArchive()
	}
	g := new(errgroup.Group)
	p.archiving, p.archived = g, number

	g.Go(func() error {
		start := time.Now()
		t, err := trie.New(root, p.cache)
		if err != nil {
			p.logger.Error("Failed to open archived state", "number", number, "root", root, "err", err)
			return err
		}
		nodes, err := t.SaveFullState(root, p.db.ArchiveSource())
		if err != nil {
			p.logger.Error("Failed to archive state", "number", number, "root", root, "err", err)
			return err
		}
		p.logger.Info("Archived state", "number", number, "root", root, "nodes", nodes, "elapsed", common.PrettyDuration(time.Since(start)))
		return nil
	})
}

// waitArchive blocks until the copy in flight is done and returns its error.
// The lock must be held.
func (p *StatePruner) waitArchive() error {
	g := p.archiving
	p.archiving = nil
	return g.Wait()
}

// Wait blocks until the pending archive copy is done and returns its error.
// Each copy reports its error once.
func (p *StatePruner) Wait() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.archiving == nil {
		return nil
	}
	return p.waitArchive()
}
