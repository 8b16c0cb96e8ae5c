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

// aionc is a command line tool for the Aion header validation and state
// pruning core: it checks header chains, inspects state tries and simulates
// journal pruning.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

const clientIdentifier = "aionc"

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory of the state database",
	}

	app = cli.NewApp()
)

func init() {
	app.Name = clientIdentifier
	app.Usage = "the go-aion header validation and state pruning tool"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		dataDirFlag,
	}
	app.Commands = []cli.Command{
		dumpConfigCommand,
		inspectCommand,
		validateCommand,
		pruneSimCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		setupLogging(ctx.GlobalInt(verbosityFlag.Name))
		return nil
	}
}

func setupLogging(verbosity int) {
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), handler))
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Fatalf formats a message to standard error and exits the program.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}
