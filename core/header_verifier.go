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

// Package core wires the header validation rules to a chain: ancestor
// lookups, batched verification, block body checks and state pruning.
package core

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"

	"github.com/aionnetwork/go-aion/consensus"
	"github.com/aionnetwork/go-aion/consensus/valid"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

const ruleSetCacheLimit = 8 // Number of fork phases whose rule sets are kept

var (
	errNilHeader = errors.New("nil header")

	invalidHeaderMeter = metrics.NewRegisteredMeter("core/verifier/invalid", nil)
	fatalHeaderMeter   = metrics.NewRegisteredMeter("core/verifier/fatal", nil)
)

// Ancestry holds the ancestors a header is validated against.
type Ancestry struct {
	Parent           types.Header // direct parent
	GreatGrandParent types.Header // parent of the grandparent, may be nil

	// SameType and SameTypeParent are the two most recent ancestors sharing
	// the header's seal type. SameTypeParent is nil below genesis.
	SameType       types.Header
	SameTypeParent types.Header

	// Staking is the most recent staking ancestor, or the seed genesis
	// header if there is none since the Unity fork.
	Staking types.Header
}

// phase identifies the rule set in force at a height.
type phase struct {
	unity, alternating, signatum, seedBinding bool
}

// HeaderVerifier checks headers against the rules of their fork phase.
type HeaderVerifier struct {
	chain  consensus.ChainHeaderReader
	config *params.ChainConfig
	opts   valid.Options

	seedGenesis *types.StakingHeader
	beacon      *valid.BeaconHashValidator
	rules       *lru.Cache // phase -> *valid.ChainRules
	logger      log.Logger
}

// NewHeaderVerifier creates a verifier for the headers of chain.
func NewHeaderVerifier(chain consensus.ChainHeaderReader, opts valid.Options) (*HeaderVerifier, error) {
	config := chain.Config()
	if config == nil {
		return nil, errors.New("missing chain config")
	}
	if err := config.CheckConfigForkOrder(); err != nil {
		return nil, err
	}
	initial := config.Unity.InitialStakeDifficulty
	if initial == nil {
		initial = params.InitialStakeDifficulty
	}
	beacon, err := valid.NewBeaconHashValidator(chain, config.Fork050Number())
	if err != nil {
		return nil, err
	}
	rules, _ := lru.New(ruleSetCacheLimit)
	return &HeaderVerifier{
		chain:       chain,
		config:      config,
		opts:        opts,
		seedGenesis: types.NewSeedGenesisHeader(initial),
		beacon:      beacon,
		rules:       rules,
		logger:      log.New("module", "verifier"),
	}, nil
}

// SeedGenesis returns the synthetic staking header used as the staking
// ancestor of the first staking block.
func (v *HeaderVerifier) SeedGenesis() *types.StakingHeader {
	return v.seedGenesis
}

// Beacon returns the beacon hash validator activating at the configured
// fork 0.5.0 block.
func (v *HeaderVerifier) Beacon() *valid.BeaconHashValidator {
	return v.beacon
}

// Rules returns the rule set in force at the given height.
func (v *HeaderVerifier) Rules(number uint64) *valid.ChainRules {
	key := phase{
		unity:       v.config.IsUnity(number),
		alternating: v.config.UnityBlock != nil && new(big.Int).SetUint64(number).Cmp(v.config.UnityBlock) > 0,
		signatum:    v.config.IsSignatum(number),
		seedBinding: v.config.IsSeedBinding(number),
	}
	if rules, ok := v.rules.Get(key); ok {
		return rules.(*valid.ChainRules)
	}
	rules := valid.NewChainRules(v.config, number, v.opts)
	v.rules.Add(key, rules)
	return rules
}

// VerifyHeader checks whether a header conforms to the consensus rules. The
// stake of the signer is required for staking headers and ignored otherwise.
//
// The returned error is a *valid.ValidationError if the header was rejected
// by a rule.
func (v *HeaderVerifier) VerifyHeader(header types.Header, stake *big.Int) error {
	if header == nil {
		return errNilHeader
	}
	// Short circuit if the header is known.
	if v.chain.GetHeaderByHash(header.Hash()) != nil {
		return nil
	}
	return v.verifyHeader(header, stake, v.chain.GetHeaderByHash)
}

// VerifyHeaders is similar to VerifyHeader, but verifies a batch of headers
// concurrently. Headers may reference earlier headers of the batch as
// ancestors. The method returns a quit channel to abort the operations and a
// results channel to retrieve the async verifications, in input order.
func (v *HeaderVerifier) VerifyHeaders(headers []types.Header, stakes []*big.Int) (chan<- struct{}, <-chan error) {
	if len(headers) == 0 {
		return make(chan struct{}), make(chan error)
	}
	workers := runtime.GOMAXPROCS(0)
	if len(headers) < workers {
		workers = len(headers)
	}
	batch := make(map[common.Hash]types.Header, len(headers))
	for _, h := range headers {
		if h != nil {
			batch[h.Hash()] = h
		}
	}
	lookup := func(hash common.Hash) types.Header {
		if h, ok := batch[hash]; ok {
			return h
		}
		return v.chain.GetHeaderByHash(hash)
	}
	var (
		inputs = make(chan int)
		done   = make(chan int, workers)
		errs   = make([]error, len(headers))
		abort  = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		go func() {
			for index := range inputs {
				errs[index] = v.verifyHeaderWorker(headers, stakes, index, lookup)
				done <- index
			}
		}()
	}

	errorsOut := make(chan error, len(headers))
	go func() {
		defer close(inputs)
		var (
			in, out = 0, 0
			checked = make([]bool, len(headers))
			inputs  = inputs
		)
		for {
			select {
			case inputs <- in:
				if in++; in == len(headers) {
					inputs = nil
				}
			case index := <-done:
				for checked[index] = true; checked[out]; out++ {
					errorsOut <- errs[out]
					if out == len(headers)-1 {
						return
					}
				}
			case <-abort:
				return
			}
		}
	}()
	return abort, errorsOut
}

func (v *HeaderVerifier) verifyHeaderWorker(headers []types.Header, stakes []*big.Int, index int, lookup func(common.Hash) types.Header) error {
	var stake *big.Int
	if index < len(stakes) {
		stake = stakes[index]
	}
	if headers[index] == nil {
		return errNilHeader
	}
	return v.verifyHeader(headers[index], stake, lookup)
}

func (v *HeaderVerifier) verifyHeader(header types.Header, stake *big.Int, lookup func(common.Hash) types.Header) error {
	if err := types.SanityCheck(header); err != nil {
		return err
	}
	number := header.Base().Number
	if number == 0 {
		return fmt.Errorf("%w: genesis header", consensus.ErrInvalidNumber)
	}
	anc, err := v.ancestry(header, lookup)
	if err != nil {
		return err
	}
	err = v.check(v.Rules(number), header, anc, stake)
	switch {
	case err == nil:
		v.logger.Trace("Verified header", "number", number, "seal", header.Base().Seal)
	case errors.Is(err, valid.ErrFatal):
		fatalHeaderMeter.Mark(1)
		v.logger.Error("Header verification error", "number", number, "hash", header.Hash(), "err", err)
	default:
		invalidHeaderMeter.Mark(1)
		v.logger.Warn("Invalid header", "number", number, "hash", header.Hash(), "err", err)
	}
	return err
}

func (v *HeaderVerifier) check(rules *valid.ChainRules, header types.Header, anc *Ancestry, stake *big.Int) error {
	var extra interface{}
	if stake != nil {
		extra = stake
	}
	if err := rules.Header.Check(header); err != nil {
		return err
	}
	if err := rules.Parent.Check(header, anc.Parent, extra); err != nil {
		return err
	}
	if err := rules.Difficulty.Check(header, anc.SameType, anc.SameTypeParent); err != nil {
		return err
	}
	if _, ok := header.(*types.StakingHeader); !ok {
		return nil
	}
	if rules.Seed != nil {
		if err := rules.Seed.Check(header, anc.Parent, anc.Staking); err != nil {
			return err
		}
	}
	if rules.SeedCreation != nil {
		great := anc.GreatGrandParent
		if great == nil {
			great = v.seedGenesis
		}
		if err := rules.SeedCreation.Check(header, anc.Parent, anc.Staking, great); err != nil {
			return err
		}
	}
	return nil
}

// Ancestry collects the ancestors of a header from the chain.
func (v *HeaderVerifier) Ancestry(header types.Header) (*Ancestry, error) {
	return v.ancestry(header, v.chain.GetHeaderByHash)
}

func (v *HeaderVerifier) ancestry(header types.Header, lookup func(common.Hash) types.Header) (*Ancestry, error) {
	parent := lookup(header.Base().ParentHash)
	if parent == nil {
		return nil, consensus.ErrUnknownAncestor
	}
	anc := &Ancestry{Parent: parent}
	if parent.Base().Number > 0 {
		if grand := lookup(parent.Base().ParentHash); grand != nil && grand.Base().Number > 0 {
			anc.GreatGrandParent = lookup(grand.Base().ParentHash)
		}
	}
	// Staking ancestors are only searched for since the fork.
	var floor uint64
	if v.config.UnityBlock != nil {
		floor = v.config.UnityBlock.Uint64()
	}
	if v.config.IsUnity(header.Base().Number) {
		anc.Staking = v.previous(types.SealTypePoS, parent, floor, lookup)
	}
	if anc.Staking == nil {
		anc.Staking = v.seedGenesis
	}
	switch types.VariantSealType(header) {
	case types.SealTypePoW:
		anc.SameType = v.previous(types.SealTypePoW, parent, 0, lookup)
		if anc.SameType == nil {
			return nil, fmt.Errorf("%w: no mining ancestor", consensus.ErrUnknownAncestor)
		}
		if anc.SameType.Base().Number > 0 {
			anc.SameTypeParent = v.previous(types.SealTypePoW, lookup(anc.SameType.Base().ParentHash), 0, lookup)
		}
	case types.SealTypePoS:
		anc.SameType = anc.Staking
		if anc.SameType != v.seedGenesis {
			anc.SameTypeParent = v.previous(types.SealTypePoS, lookup(anc.SameType.Base().ParentHash), floor, lookup)
			if anc.SameTypeParent == nil {
				anc.SameTypeParent = v.seedGenesis
			}
		}
	}
	return anc, nil
}

// previous walks back from h to the first header of the given seal type at or
// above floor.
func (v *HeaderVerifier) previous(seal types.SealType, h types.Header, floor uint64, lookup func(common.Hash) types.Header) types.Header {
	for h != nil && h.Base().Number >= floor {
		if types.VariantSealType(h) == seal {
			return h
		}
		if h.Base().Number == 0 {
			return nil
		}
		h = lookup(h.Base().ParentHash)
	}
	return nil
}
