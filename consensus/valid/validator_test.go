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
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

// failingRule rejects every header with two errors.
type failingRule struct{}

func (failingRule) Name() string { return "failingRule" }

func (r failingRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	errs.add(r.Name(), "first")
	errs.add(r.Name(), "second")
	return false, nil
}

// brokenRule fails with an internal error.
type brokenRule struct{}

func (brokenRule) Name() string { return "brokenRule" }

func (brokenRule) Validate(types.Header, *RuleErrors) (bool, error) {
	return false, errors.New("broken")
}

// silentRule rejects without saying why.
type silentRule struct{}

func (silentRule) Name() string { return "silentRule" }

func (silentRule) Validate(types.Header, *RuleErrors) (bool, error) { return false, nil }

func TestValidatorMissingHeaders(t *testing.T) {
	header := NewBlockHeaderValidator(nil)
	require.Equal(t, []string{"header is nil"}, messages(t, header.Check(nil)))
	require.False(t, header.Validate(nil, nil))

	parent := NewParentBlockHeaderValidator(nil)
	require.Equal(t, []string{"parent is nil"}, messages(t, parent.Check(miningHeader(1, 10, 16), nil, nil)))

	grand := NewGrandParentBlockHeaderValidator(nil)
	require.Equal(t, []string{"grandparent is nil"}, messages(t, grand.Check(miningHeader(2, 20, 16), miningHeader(1, 10, 16), nil)))

	great := NewGreatGrandParentBlockHeaderValidator(nil)
	require.Equal(t, []string{"great grandparent is nil"},
		messages(t, great.Check(stakingHeader(3, 30, 16), miningHeader(2, 20, 16), stakingHeader(1, 10, 16), nil)))
}

func TestValidatorNoRules(t *testing.T) {
	v := NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
		types.SealTypePoW: {EnergyConsumedRule{}},
	})
	err := v.Check(stakingHeader(1, 10, 16))
	require.ErrorIs(t, err, ErrNoRules)
	require.ErrorIs(t, err, ErrFatal)
	require.False(t, v.Validate(stakingHeader(1, 10, 16), nil))
}

func TestValidatorFirstFailure(t *testing.T) {
	v := NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
		types.SealTypePoW: {EnergyConsumedRule{}, failingRule{}, brokenRule{}},
	})
	err := v.Check(miningHeader(1, 10, 16))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "failingRule", verr.Rule)
	require.Equal(t, "failingRule: first\nfailingRule: second", err.Error())
	require.NotErrorIs(t, err, ErrFatal)

	// Reruns report the same errors.
	require.Equal(t, err.Error(), v.Check(miningHeader(1, 10, 16)).Error())
}

func TestValidatorRuleError(t *testing.T) {
	v := NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
		types.SealTypePoW: {brokenRule{}},
	})
	err := v.Check(miningHeader(1, 10, 16))
	require.Error(t, err)

	var verr *ValidationError
	require.False(t, errors.As(err, &verr))
	require.False(t, v.Validate(miningHeader(1, 10, 16), nil))
}

func TestValidatorSilentRejection(t *testing.T) {
	v := NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
		types.SealTypePoW: {silentRule{}},
	})
	require.Equal(t, []string{"rejected"}, messages(t, v.Check(miningHeader(1, 10, 16))))
}

func TestGrandParentOfGenesisChild(t *testing.T) {
	v := NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
		types.SealTypePoW: {},
	})
	require.NoError(t, v.Check(miningHeader(1, 10, 16), miningHeader(0, 0, 16), nil))
}

func TestChainRulesPhases(t *testing.T) {
	config := &params.ChainConfig{
		UnityBlock:    big.NewInt(10),
		SignatumBlock: big.NewInt(20),
		Energy:        params.DefaultEnergyConfig,
		Difficulty:    params.DefaultDifficultyConfig,
		Unity:         params.DefaultUnityConfig,
	}
	pre := NewChainRules(config, 5, Options{})
	require.Nil(t, pre.Seed)
	require.Nil(t, pre.SeedCreation)
	require.ErrorIs(t, pre.Header.Check(stakingHeader(5, 50, 16)), ErrNoRules)

	fork := NewChainRules(config, 10, Options{})
	for _, rule := range fork.Parent.rules[types.SealTypePoW] {
		require.NotEqual(t, "ParentOppositeTypeRule", rule.Name())
	}
	require.IsType(t, StakingSeedRule{}, fork.Seed.rules[types.SealTypePoS][0])

	unity := NewChainRules(config, 11, Options{})
	var names []string
	for _, rule := range unity.Parent.rules[types.SealTypePoS] {
		names = append(names, rule.Name())
	}
	require.Contains(t, names, "ParentOppositeTypeRule")
	require.Contains(t, names, "StakingBlockTimeStampRule")

	signatum := NewChainRules(config, 25, Options{})
	require.IsType(t, VRFProofRule{}, signatum.Seed.rules[types.SealTypePoS][0])
	require.Nil(t, signatum.SeedCreation)

	config.SeedBindingBlock = big.NewInt(30)
	binding := NewChainRules(config, 30, Options{})
	require.Nil(t, binding.Seed)
	require.IsType(t, StakingSeedCreationRule{}, binding.SeedCreation.rules[types.SealTypePoS][0])
}
