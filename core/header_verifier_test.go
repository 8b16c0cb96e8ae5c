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
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/aionnetwork/go-aion/consensus"
	"github.com/aionnetwork/go-aion/consensus/valid"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

var testOptions = valid.Options{
	PowHash: func(...[]byte) []byte { return make([]byte, 32) },
	Now:     func() time.Time { return time.Unix(1<<40, 0) },
}

func newTestVerifier(t *testing.T, config *params.ChainConfig) (*testChain, *HeaderVerifier, types.Header) {
	genesis := testGenesis()
	chain := newTestChain(config, genesis)
	v, err := NewHeaderVerifier(chain, testOptions)
	require.NoError(t, err)
	return chain, v, genesis
}

func verifyAll(t *testing.T, v *HeaderVerifier, headers []types.Header) []error {
	t.Helper()
	_, results := v.VerifyHeaders(headers, stakes(headers))
	errs := make([]error, len(headers))
	for i := range headers {
		select {
		case errs[i] = <-results:
		case <-time.After(10 * time.Second):
			t.Fatalf("header %d: verification timed out", i)
		}
	}
	return errs
}

func ruleOf(t *testing.T, err error) string {
	t.Helper()
	var verr *valid.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, have %v", err)
	}
	return verr.Rule
}

func TestVerifyPreUnityChain(t *testing.T) {
	config := *params.TestChainConfig
	config.UnityBlock, config.SignatumBlock = nil, nil

	chain, v, genesis := newTestVerifier(t, &config)
	headers := newChainMaker(t, &config).makeChain([]types.Header{genesis}, 8)
	for _, h := range headers {
		require.IsType(t, &types.MiningHeader{}, h)
	}
	for i, err := range verifyAll(t, v, headers) {
		require.NoError(t, err, "header %d", i+1)
	}
	for _, h := range headers {
		require.NoError(t, v.VerifyHeader(h, nil))
		chain.insert(h)
	}
}

func TestVerifyUnityChain(t *testing.T) {
	chain, v, genesis := newTestVerifier(t, params.TestChainConfig)
	headers := newChainMaker(t, params.TestChainConfig).makeChain([]types.Header{genesis}, 12)

	for i, err := range verifyAll(t, v, headers) {
		require.NoError(t, err, "header %d", i+1)
	}
	for i, h := range headers {
		require.NoError(t, v.VerifyHeader(h, stakes(headers)[i]), "header %d", i+1)
		chain.insert(h)
	}
}

func TestVerifyForkTransitions(t *testing.T) {
	config := *params.TestChainConfig
	config.UnityBlock = big.NewInt(4)
	config.SignatumBlock = big.NewInt(10)
	config.SeedBindingBlock = big.NewInt(16)

	_, v, genesis := newTestVerifier(t, &config)
	headers := newChainMaker(t, &config).makeChain([]types.Header{genesis}, 24)

	require.IsType(t, &types.MiningHeader{}, headers[2])
	require.IsType(t, &types.StakingHeader{}, headers[3])
	require.Len(t, headers[9].(*types.StakingHeader).Seed, params.ProofLength)
	require.Len(t, headers[15].(*types.StakingHeader).Seed, params.SeedLength)

	for i, err := range verifyAll(t, v, headers) {
		require.NoError(t, err, "header %d", i+1)
	}
}

func TestVerifyRejectsDifficulty(t *testing.T) {
	_, v, genesis := newTestVerifier(t, params.TestChainConfig)
	headers := newChainMaker(t, params.TestChainConfig).makeChain([]types.Header{genesis}, 6)

	bad := types.CopyHeader(headers[3]).(*types.MiningHeader)
	bad.Difficulty.Add(bad.Difficulty, common.Big1)
	headers[3] = bad

	errs := verifyAll(t, v, headers)
	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
	}
	require.Equal(t, "UnityDifficultyRule", ruleOf(t, errs[3]))
	require.ErrorIs(t, errs[4], consensus.ErrUnknownAncestor)
}

func TestVerifyRejectsSameType(t *testing.T) {
	_, v, genesis := newTestVerifier(t, params.TestChainConfig)
	maker := newChainMaker(t, params.TestChainConfig)
	headers := maker.makeChain([]types.Header{genesis}, 2)

	// A mining block on top of a mining block.
	h := maker.mining(append([]types.Header{genesis}, headers...))
	batch := append(headers, h)
	errs := verifyAll(t, v, batch)
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, "ParentOppositeTypeRule", ruleOf(t, errs[2]))
}

func TestVerifyMissingStake(t *testing.T) {
	_, v, genesis := newTestVerifier(t, params.TestChainConfig)
	headers := newChainMaker(t, params.TestChainConfig).makeChain([]types.Header{genesis}, 1)

	err := v.VerifyHeader(headers[0], nil)
	require.Equal(t, "StakingBlockTimeStampRule", ruleOf(t, err))
	require.NoError(t, v.VerifyHeader(headers[0], testStake))
}

func TestVerifyUnknownAncestor(t *testing.T) {
	_, v, genesis := newTestVerifier(t, params.TestChainConfig)
	headers := newChainMaker(t, params.TestChainConfig).makeChain([]types.Header{genesis}, 2)

	require.ErrorIs(t, v.VerifyHeader(headers[1], nil), consensus.ErrUnknownAncestor)
	require.NoError(t, v.VerifyHeader(genesis, nil))
	require.Error(t, v.VerifyHeader(nil, nil))
}

func TestAncestry(t *testing.T) {
	chain, v, genesis := newTestVerifier(t, params.TestChainConfig)
	headers := newChainMaker(t, params.TestChainConfig).makeChain([]types.Header{genesis}, 5)
	chain.insert(headers...)

	// The first staking block descends from the seed genesis.
	anc, err := v.Ancestry(headers[0])
	require.NoError(t, err)
	require.Same(t, v.SeedGenesis(), anc.Staking)
	require.Same(t, v.SeedGenesis(), anc.SameType)
	require.Nil(t, anc.SameTypeParent)
	require.True(t, types.IsSeedGenesis(anc.Staking))

	anc, err = v.Ancestry(headers[2])
	require.NoError(t, err)
	require.Equal(t, headers[0].Hash(), anc.SameType.Hash())
	require.Same(t, v.SeedGenesis(), anc.SameTypeParent)

	anc, err = v.Ancestry(headers[3])
	require.NoError(t, err)
	require.Equal(t, headers[2].Hash(), anc.Parent.Hash())
	require.Equal(t, headers[1].Hash(), anc.SameType.Hash())
	require.Equal(t, genesis.Hash(), anc.SameTypeParent.Hash())
	require.Equal(t, headers[0].Hash(), anc.GreatGrandParent.Hash())
	require.Equal(t, headers[2].Hash(), anc.Staking.Hash())
}

func TestRuleSetCache(t *testing.T) {
	config := *params.TestChainConfig
	config.UnityBlock = big.NewInt(4)
	config.SignatumBlock = big.NewInt(50)
	_, v, _ := newTestVerifier(t, &config)

	require.Same(t, v.Rules(1), v.Rules(3))
	require.Same(t, v.Rules(5), v.Rules(40))
	require.NotSame(t, v.Rules(40), v.Rules(50))
	require.NotSame(t, v.Rules(4), v.Rules(5))
	require.Nil(t, v.Rules(3).Seed)
	require.NotNil(t, v.Rules(4).Seed)
}

func TestBeaconFromConfig(t *testing.T) {
	config := *params.TestChainConfig
	config.Fork050Block = big.NewInt(3)
	chain, v, genesis := newTestVerifier(t, &config)

	require.False(t, v.Beacon().IsAfterFork050(2))
	require.True(t, v.Beacon().IsAfterFork050(3))

	hash := genesis.Hash()
	block := &types.MiningHeader{BaseHeader: types.BaseHeader{Number: 3, ParentHash: hash}}
	require.True(t, chain.IsMainChain(hash))
	ok, err := v.Beacon().ValidateTxForBlock(&hash, block)
	require.NoError(t, err)
	require.True(t, ok)

	config.Fork050Block = nil
	_, v, _ = newTestVerifier(t, &config)
	require.False(t, v.Beacon().IsAfterFork050(1<<40))
}
