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
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/aionnetwork/go-aion/consensus/valid"
	"github.com/aionnetwork/go-aion/core"
	"github.com/aionnetwork/go-aion/core/types"
)

var (
	validateCommand = cli.Command{
		Action:    validate,
		Name:      "validate",
		Usage:     "Validate a chain of headers",
		ArgsUsage: "<headers file>",
		Flags: []cli.Flag{
			trustedFlag,
			stakeFlag,
			fakePowFlag,
			dumpFlag,
		},
		Category: "VALIDATION COMMANDS",
		Description: `
The validate command reads an RLP list of encoded headers, binary or 0x
prefixed hex, and verifies every header against its ancestors in the file.
The leading --trusted headers are accepted as they are and must include the
genesis or enough history to reach the previous header of each seal type.`,
	}

	trustedFlag = cli.IntFlag{
		Name:  "trusted",
		Usage: "Number of leading headers accepted without validation",
		Value: 1,
	}
	stakeFlag = cli.StringFlag{
		Name:  "stake",
		Usage: "Stake of the signer of every staking header, in base units",
	}
	fakePowFlag = cli.BoolFlag{
		Name:  "pow.fake",
		Usage: "Accept any proof-of-work seal of the right size",
	}
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the headers failing validation",
	}

	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
)

func readHeaders(file string) ([]types.Header, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if text := bytes.TrimSpace(data); bytes.HasPrefix(text, []byte("0x")) {
		if data, err = hexutil.Decode(string(text)); err != nil {
			return nil, err
		}
	}
	return types.DecodeHeaders(data)
}

func validate(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the headers file to validate")
	}
	headers, err := readHeaders(ctx.Args().First())
	if err != nil {
		return err
	}
	trusted := ctx.Int(trustedFlag.Name)
	if trusted < 1 || trusted > len(headers) {
		return fmt.Errorf("invalid trusted header count %d for %d headers", trusted, len(headers))
	}
	var stake *big.Int
	if s := ctx.String(stakeFlag.Name); s != "" {
		var ok bool
		if stake, ok = new(big.Int).SetString(s, 10); !ok || stake.Sign() <= 0 {
			return fmt.Errorf("invalid stake %q", s)
		}
	}
	cfg := makeConfig(ctx)
	chain := newHeaderChain(&cfg.Chain)
	for _, h := range headers[:trusted] {
		chain.insert(h)
	}
	var opts valid.Options
	if ctx.Bool(fakePowFlag.Name) {
		opts.PowHash = func(...[]byte) []byte { return make([]byte, 32) }
	}
	verifier, err := core.NewHeaderVerifier(chain, opts)
	if err != nil {
		return err
	}
	pending := headers[trusted:]
	stakes := make([]*big.Int, len(pending))
	for i, h := range pending {
		if _, ok := h.(*types.StakingHeader); ok {
			stakes[i] = stake
		}
	}
	abort, results := verifier.VerifyHeaders(pending, stakes)
	defer close(abort)

	var failed int
	for i, h := range pending {
		err := <-results
		if err == nil {
			fmt.Printf("%8d %x %v %s\n", h.Base().Number, h.Hash(), h.Base().Seal, okColor.Sprint("ok"))
			continue
		}
		failed++
		fmt.Printf("%8d %x %v %s\n", h.Base().Number, h.Hash(), h.Base().Seal, failColor.Sprint("FAILED"))
		var verr *valid.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors {
				fmt.Printf("         %s\n", e)
			}
		} else {
			fmt.Printf("         error: %v\n", err)
		}
		if ctx.Bool(dumpFlag.Name) {
			fmt.Println(spew.Sdump(pending[i]))
		}
	}
	fmt.Printf("%d headers checked, %d failed\n", len(pending), failed)
	if failed > 0 {
		return fmt.Errorf("%d invalid headers", failed)
	}
	return nil
}
