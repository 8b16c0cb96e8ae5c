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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/aionnetwork/go-aion/params"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[<file>]",
		Flags:       []cli.Flag{pruneArchiveFlag},
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	pruneArchiveFlag = cli.BoolFlag{
		Name:  "prune.archive",
		Usage: "Copy a full state to the archive database every ArchiveRate blocks",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type databaseConfig struct {
	Dir        string `toml:",omitempty"`
	ArchiveDir string `toml:",omitempty"` // archive tier, enables state archiving
	Cache      int    // megabytes of leveldb cache
	Handles    int    // open file handles
}

type aioncConfig struct {
	Chain    params.ChainConfig
	Prune    params.PruneConfig
	Database databaseConfig
}

func defaultConfig() aioncConfig {
	return aioncConfig{
		Chain: *params.MainnetChainConfig,
		Prune: params.DefaultPruneConfig,
		Database: databaseConfig{
			Cache:   256,
			Handles: 256,
		},
	}
}

func loadConfig(file string, cfg *aioncConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the defaults, the configuration file and the command line
// flags, in that order.
func makeConfig(ctx *cli.Context) aioncConfig {
	cfg := defaultConfig()

	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			Fatalf("%v", err)
		}
	}
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.Database.Dir = ctx.GlobalString(dataDirFlag.Name)
	}
	if ctx.Bool(pruneArchiveFlag.Name) {
		cfg.Prune.Archived = true
	}
	if err := cfg.Chain.CheckConfigForkOrder(); err != nil {
		Fatalf("Invalid chain config: %v", err)
	}
	sanitized := cfg.Prune.Sanitize()
	if sanitized != cfg.Prune {
		log.Warn("Sanitizing prune config", "provided", fmt.Sprintf("%+v", cfg.Prune), "updated", fmt.Sprintf("%+v", sanitized))
		cfg.Prune = sanitized
	}
	return cfg
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)

	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)

	return nil
}
