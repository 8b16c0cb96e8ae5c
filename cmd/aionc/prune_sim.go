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
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fjl/memsize"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/time/rate"
	"gopkg.in/urfave/cli.v1"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/aiondb/memorydb"
	"github.com/aionnetwork/go-aion/core"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
	"github.com/aionnetwork/go-aion/trie"
)

var (
	pruneSimCommand = cli.Command{
		Action:   pruneSim,
		Name:     "prune-sim",
		Usage:    "Simulate journal pruning of a state trie",
		Flags:    []cli.Flag{blocksFlag, accountsFlag, updatesFlag, forkRateFlag, randSeedFlag, pruneArchiveFlag},
		Category: "DATABASE COMMANDS",
		Description: `
The prune-sim command imports random state changes into an in-memory state
trie through the journal prune data source, with a side block every
--fork.rate blocks, and reports the resulting database sizes.`,
	}

	blocksFlag = cli.IntFlag{
		Name:  "blocks",
		Usage: "Number of blocks to import",
		Value: 2000,
	}
	accountsFlag = cli.IntFlag{
		Name:  "accounts",
		Usage: "Number of distinct state keys",
		Value: 1000,
	}
	updatesFlag = cli.IntFlag{
		Name:  "updates",
		Usage: "State updates per block",
		Value: 20,
	}
	forkRateFlag = cli.IntFlag{
		Name:  "fork.rate",
		Usage: "Import a side block every this many blocks (0 = never)",
		Value: 10,
	}
	randSeedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed of the random state changes",
		Value: 1,
	}
)

// simulator imports random blocks on top of a genesis state.
type simulator struct {
	rand     *rand.Rand
	accounts int
	updates  int

	chain  *headerChain
	state  *trie.Trie
	pruner *core.StatePruner
	head   types.Header
}

func (s *simulator) update(t *trie.Trie, number uint64) error {
	for i := 0; i < s.updates; i++ {
		key := []byte(fmt.Sprintf("account-%06d", s.rand.Intn(s.accounts)))
		val := []byte(fmt.Sprintf("balance %d at block %d", s.rand.Int63(), number))
		if err := t.TryUpdate(key, val); err != nil {
			return err
		}
	}
	return t.Sync(true)
}

func (s *simulator) header(parent types.Header, root common.Hash, salt uint64) types.Header {
	return &types.MiningHeader{
		BaseHeader: types.BaseHeader{
			Version:    params.HeaderVersion,
			Seal:       types.SealTypePoW,
			Number:     parent.Base().Number + 1,
			ParentHash: parent.Hash(),
			Root:       root,
			Time:       parent.Base().Time + 10 + salt,
		},
	}
}

// importSide imports a side block next to the coming main block.
func (s *simulator) importSide() error {
	side := s.state.Copy()
	number := s.head.Base().Number + 1
	if err := s.update(side, number); err != nil {
		return err
	}
	h := s.header(s.head, side.Hash(), 1)
	s.chain.insertSide(h)
	return s.pruner.BlockImported(h)
}

func (s *simulator) importBlock() error {
	if err := s.update(s.state, s.head.Base().Number+1); err != nil {
		return err
	}
	h := s.header(s.head, s.state.Hash(), 0)
	s.chain.insert(h)
	s.head = h
	return s.pruner.BlockImported(h)
}

func pruneSim(ctx *cli.Context) error {
	cfg := makeConfig(ctx)

	var (
		hot                        = memorydb.New()
		cold                       = memorydb.New()
		store aiondb.KeyValueStore = hot
	)
	if cfg.Prune.Archived {
		store = aiondb.NewArchive(hot, cold)
	}
	db := trie.NewJournalPruneDataSource(store)
	cache := trie.NewCache(db, 0)
	chain := newHeaderChain(&cfg.Chain)

	pruner, err := core.NewStatePruner(chain, db, cache, cfg.Prune)
	if err != nil {
		return err
	}
	sim := &simulator{
		rand:     rand.New(rand.NewSource(ctx.Int64(randSeedFlag.Name))),
		accounts: ctx.Int(accountsFlag.Name),
		updates:  ctx.Int(updatesFlag.Name),
		chain:    chain,
		state:    trie.NewEmpty(cache).WithPruning(cfg.Prune.Enabled),
		pruner:   pruner,
	}
	if sim.accounts <= 0 || sim.updates <= 0 {
		return fmt.Errorf("need positive account and update counts")
	}
	if err := sim.update(sim.state, 0); err != nil {
		return err
	}
	genesis := &types.MiningHeader{BaseHeader: types.BaseHeader{Version: params.HeaderVersion, Seal: types.SealTypePoW, Root: sim.state.Hash()}}
	chain.insert(genesis)
	sim.head = genesis
	if err := pruner.BlockImported(genesis); err != nil {
		return err
	}

	var (
		start    = time.Now()
		blocks   = ctx.Int(blocksFlag.Name)
		forkRate = ctx.Int(forkRateFlag.Name)
		sides    int
		progress = rate.NewLimiter(rate.Every(8*time.Second), 1)
	)
	for i := 1; i <= blocks; i++ {
		if forkRate > 0 && i%forkRate == 0 {
			if err := sim.importSide(); err != nil {
				return err
			}
			sides++
		}
		if err := sim.importBlock(); err != nil {
			return err
		}
		if progress.Allow() {
			log.Info("Imported blocks", "number", i, "rows", hot.Len(), "elapsed", common.PrettyDuration(time.Since(start)))
		}
	}
	if err := pruner.Wait(); err != nil {
		return err
	}
	root := sim.state.Hash()
	live, err := sim.state.TrieSize(root)
	if err != nil {
		return err
	}
	missing, err := sim.state.MissingNodes(root)
	if err != nil {
		return err
	}
	cached := memsize.Scan(cache)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Value"})
	table.AppendBulk([][]string{
		{"Blocks", strconv.Itoa(blocks)},
		{"Side blocks", strconv.Itoa(sides)},
		{"Journal window", strconv.FormatUint(pruner.Config().CurrentCount, 10)},
		{"Head root", root.Hex()},
		{"Live nodes", strconv.Itoa(live)},
		{"Database rows", strconv.Itoa(hot.Len())},
		{"Archive rows", strconv.Itoa(cold.Len())},
		{"Missing nodes", strconv.Itoa(len(missing))},
		{"Cached nodes", strconv.Itoa(cache.Size())},
		{"Cache memory", common.StorageSize(cached.Total).String()},
		{"Elapsed", common.PrettyDuration(time.Since(start)).String()},
	})
	table.Render()
	return nil
}
