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
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aionnetwork/go-aion/consensus/unity"
	"github.com/aionnetwork/go-aion/consensus/valid"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/crypto/ed25519"
	"github.com/aionnetwork/go-aion/crypto/vrf"
	"github.com/aionnetwork/go-aion/params"
)

var (
	testKey   = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x42}, ed25519.SeedSize))
	testStake = big.NewInt(1_000_000_000)
)

// testChain is an in-memory chain whose canonical headers are the ones
// inserted last at each height.
type testChain struct {
	config    *params.ChainConfig
	headers   map[common.Hash]types.Header
	canonical map[uint64]common.Hash
	head      types.Header
}

func newTestChain(config *params.ChainConfig, genesis types.Header) *testChain {
	c := &testChain{
		config:    config,
		headers:   make(map[common.Hash]types.Header),
		canonical: make(map[uint64]common.Hash),
	}
	c.insert(genesis)
	return c
}

func (c *testChain) insert(headers ...types.Header) {
	for _, h := range headers {
		hash := h.Hash()
		c.headers[hash] = h
		c.canonical[h.Base().Number] = hash
		c.head = h
	}
}

func (c *testChain) Config() *params.ChainConfig                   { return c.config }
func (c *testChain) CurrentHeader() types.Header                   { return c.head }
func (c *testChain) GetHeaderByHash(hash common.Hash) types.Header { return c.headers[hash] }

func (c *testChain) GetHeaderByNumber(number uint64) types.Header {
	hash, ok := c.canonical[number]
	if !ok {
		return nil
	}
	return c.headers[hash]
}

func (c *testChain) IsMainChain(hash common.Hash) bool {
	h, ok := c.headers[hash]
	return ok && c.canonical[h.Base().Number] == hash
}

func testGenesis() *types.MiningHeader {
	return &types.MiningHeader{
		BaseHeader: types.BaseHeader{
			Version:     params.HeaderVersion,
			Seal:        types.SealTypePoW,
			Time:        1_000_000,
			Difficulty:  new(big.Int).Set(params.GenesisDifficulty),
			EnergyLimit: params.GenesisEnergyLimit,
		},
		Nonce:    make([]byte, params.NonceLength),
		Solution: make([]byte, params.SolutionLength),
	}
}

// chainMaker produces valid headers on top of a parent: mining and staking
// blocks alternate from the Unity fork on. Proof-of-work seals are only
// valid under a zero hash function.
type chainMaker struct {
	t      *testing.T
	config *params.ChainConfig
	seed   *types.StakingHeader
}

func newChainMaker(t *testing.T, config *params.ChainConfig) *chainMaker {
	return &chainMaker{t: t, config: config, seed: types.NewSeedGenesisHeader(config.Unity.InitialStakeDifficulty)}
}

// previous returns the latest header of the given type among the ancestors.
func previous(seal types.SealType, chain []types.Header) types.Header {
	for i := len(chain) - 1; i >= 0; i-- {
		if types.VariantSealType(chain[i]) == seal {
			return chain[i]
		}
	}
	return nil
}

// makeChain extends ancestors, which must start at genesis, by n headers.
func (m *chainMaker) makeChain(ancestors []types.Header, n int) []types.Header {
	chain := append([]types.Header{}, ancestors...)
	for i := 0; i < n; i++ {
		parent := chain[len(chain)-1]
		number := parent.Base().Number + 1
		if m.config.IsUnity(number) && types.VariantSealType(parent) == types.SealTypePoW {
			chain = append(chain, m.staking(chain))
		} else {
			chain = append(chain, m.mining(chain))
		}
	}
	return chain[len(ancestors):]
}

func (m *chainMaker) mining(chain []types.Header) *types.MiningHeader {
	parent := chain[len(chain)-1]
	number := parent.Base().Number + 1

	same := previous(types.SealTypePoW, chain)
	var difficulty *big.Int
	switch {
	case same.Base().Number == 0:
		difficulty = same.Base().Difficulty
	case m.config.IsUnity(number):
		grand := previous(types.SealTypePoW, chain[:same.Base().Number])
		difficulty = unity.NewUnityDifficulty(m.config.Unity).Calculate(same, grand)
	default:
		difficulty = unity.NewAionDifficulty(m.config.Difficulty).Calculate(parent, chain[len(chain)-2])
	}
	return &types.MiningHeader{
		BaseHeader: types.BaseHeader{
			Version:     params.HeaderVersion,
			Seal:        types.SealTypePoW,
			Number:      number,
			ParentHash:  parent.Hash(),
			Time:        parent.Base().Time + 7,
			Difficulty:  new(big.Int).Set(difficulty),
			EnergyLimit: parent.Base().EnergyLimit,
		},
		Nonce:    bytes.Repeat([]byte{byte(number)}, params.NonceLength),
		Solution: make([]byte, params.SolutionLength),
	}
}

func (m *chainMaker) staking(chain []types.Header) *types.StakingHeader {
	parent := chain[len(chain)-1]
	number := parent.Base().Number + 1

	var prev types.Header = m.seed
	if p := previous(types.SealTypePoS, chain); p != nil {
		prev = p
	}
	var difficulty *big.Int
	if prev.Base().Number == 0 {
		difficulty = prev.Base().Difficulty
	} else {
		var grand types.Header = m.seed
		if g := previous(types.SealTypePoS, chain[:prev.Base().Number]); g != nil {
			grand = g
		}
		difficulty = unity.NewUnityDifficulty(m.config.Unity).Calculate(prev, grand)
	}
	h := &types.StakingHeader{
		BaseHeader: types.BaseHeader{
			Version:     params.HeaderVersion,
			Seal:        types.SealTypePoS,
			Number:      number,
			ParentHash:  parent.Hash(),
			Difficulty:  new(big.Int).Set(difficulty),
			EnergyLimit: parent.Base().EnergyLimit,
		},
		SigningKey: []byte(testKey.Public().(ed25519.PublicKey)),
	}
	prevSeed := prev.(*types.StakingHeader).Seed
	switch {
	case m.config.IsSeedBinding(number):
		h.Seed = valid.CreateStakingSeed(prevSeed, h.SigningKey, parent.(*types.MiningHeader))
	case m.config.IsSignatum(number):
		alpha := prevSeed
		if len(alpha) != params.SeedLength {
			out, err := vrf.ProofToHash(alpha)
			if err != nil {
				m.t.Fatalf("proof to hash: %v", err)
			}
			alpha = out
		}
		proof, err := vrf.Prove(testKey, alpha)
		if err != nil {
			m.t.Fatalf("vrf prove: %v", err)
		}
		h.Seed = proof
	default:
		h.Seed = ed25519.Sign(testKey, prevSeed)
	}
	delta, err := unity.StakingDelta(h.Seed, h.Difficulty, testStake)
	if err != nil {
		m.t.Fatalf("staking delta: %v", err)
	}
	h.Time = parent.Base().Time + delta
	h.Signature = ed25519.Sign(testKey, h.MineHash())
	return h
}

// stakes returns the stake argument for each header.
func stakes(headers []types.Header) []*big.Int {
	out := make([]*big.Int, len(headers))
	for i, h := range headers {
		if _, ok := h.(*types.StakingHeader); ok {
			out[i] = testStake
		}
	}
	return out
}
