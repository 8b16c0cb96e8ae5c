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
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	bloomfilter "github.com/holiman/bloomfilter/v2"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/aiondb/leveldb"
	"github.com/aionnetwork/go-aion/trie"
)

var (
	inspectCommand = cli.Command{
		Action:    inspect,
		Name:      "inspect",
		Usage:     "Inspect the state trie at a root",
		ArgsUsage: "<root>",
		Flags:     []cli.Flag{missingLimitFlag},
		Category:  "DATABASE COMMANDS",
		Description: `
The inspect command walks the state trie at the given root and prints the size
of the trie and of the database, and the nodes that can not be resolved.`,
	}

	missingLimitFlag = cli.IntFlag{
		Name:  "missing.limit",
		Usage: "Maximum number of missing nodes to list",
		Value: 16,
	}
)

// openDatabase opens the state database, backed by the archive database if
// one is configured.
func openDatabase(cfg databaseConfig, readonly bool) (aiondb.KeyValueStore, error) {
	if cfg.Dir == "" {
		return nil, errors.New("no database directory configured, use --datadir")
	}
	db, err := leveldb.New(cfg.Dir, cfg.Cache, cfg.Handles, "aionc/db/state/", readonly)
	if err != nil {
		return nil, err
	}
	if cfg.ArchiveDir == "" {
		return db, nil
	}
	archive, err := leveldb.New(cfg.ArchiveDir, cfg.Cache, cfg.Handles, "aionc/db/archive/", readonly)
	if err != nil {
		db.Close()
		return nil, err
	}
	return aiondb.NewArchive(db, archive), nil
}

func parseRoot(arg string) (common.Hash, error) {
	b, err := hexutil.Decode(arg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid root %q: %v", arg, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid root length %d, want %d", len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

// nodeBloomHasher is a node hash fed to the bloom filter. Node hashes are
// uniformly distributed, so the first 8 bytes serve as the filter hash.
type nodeBloomHasher []byte

func (f nodeBloomHasher) Write(p []byte) (n int, err error) { panic("not implemented") }
func (f nodeBloomHasher) Sum(b []byte) []byte               { panic("not implemented") }
func (f nodeBloomHasher) Reset()                            { panic("not implemented") }
func (f nodeBloomHasher) BlockSize() int                    { panic("not implemented") }
func (f nodeBloomHasher) Size() int                         { return 8 }
func (f nodeBloomHasher) Sum64() uint64                     { return binary.BigEndian.Uint64(f) }

// unreferencedRows counts the rows holding no node reachable from root. False
// positives of the filter can only make the count fall short.
func unreferencedRows(t *trie.Trie, root common.Hash, size int, rows [][]byte) (int, error) {
	bloom, err := bloomfilter.NewOptimal(uint64(size)+1, 0.0001)
	if err != nil {
		return 0, err
	}
	err = t.Scan(root, func(hash common.Hash, _ []byte) error {
		bloom.Add(nodeBloomHasher(common.CopyBytes(hash[:])))
		return nil
	})
	if err != nil {
		return 0, err
	}
	var count int
	for _, key := range rows {
		if len(key) != common.HashLength || !bloom.Contains(nodeBloomHasher(key)) {
			count++
		}
	}
	return count, nil
}

func inspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the state root to inspect")
	}
	root, err := parseRoot(ctx.Args().First())
	if err != nil {
		return err
	}
	cfg := makeConfig(ctx)
	db, err := openDatabase(cfg.Database, true)
	if err != nil {
		return err
	}
	defer db.Close()

	t, err := trie.New(root, trie.NewCache(db, 0))
	if err != nil {
		return err
	}
	missing, err := t.MissingNodes(root)
	if err != nil {
		return err
	}
	rows, err := db.Keys()
	if err != nil {
		return err
	}
	stats := [][]string{
		{"Root", root.Hex()},
		{"Database rows", strconv.Itoa(len(rows))},
		{"Missing nodes", strconv.Itoa(len(missing))},
	}
	if len(missing) == 0 {
		size, err := t.TrieSize(root)
		if err != nil {
			return err
		}
		var leaves, valueBytes int
		if err := t.Iterate(func(key, value []byte) bool {
			leaves++
			valueBytes += len(value)
			return true
		}); err != nil {
			return err
		}
		stats = append(stats,
			[]string{"Trie nodes", strconv.Itoa(size)},
			[]string{"Values", strconv.Itoa(leaves)},
			[]string{"Value size", common.StorageSize(valueBytes).String()},
		)
		unreferenced, err := unreferencedRows(t, root, size, rows)
		if err != nil {
			return err
		}
		stats = append(stats, []string{"Unreferenced rows", strconv.Itoa(unreferenced)})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Value"})
	table.AppendBulk(stats)
	table.Render()

	limit := ctx.Int(missingLimitFlag.Name)
	for i, hash := range missing {
		if i == limit {
			fmt.Printf("... %d more\n", len(missing)-limit)
			break
		}
		fmt.Println("missing", hash.Hex())
	}
	return nil
}
