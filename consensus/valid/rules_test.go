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
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/aionnetwork/go-aion/consensus/unity"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

func miningHeader(number, time uint64, difficulty int64) *types.MiningHeader {
	return &types.MiningHeader{
		BaseHeader: types.BaseHeader{
			Version:     params.HeaderVersion,
			Seal:        types.SealTypePoW,
			Number:      number,
			Time:        time,
			Difficulty:  big.NewInt(difficulty),
			EnergyLimit: params.GenesisEnergyLimit,
		},
		Nonce:    make([]byte, params.NonceLength),
		Solution: make([]byte, params.SolutionLength),
	}
}

func stakingHeader(number, time uint64, difficulty int64) *types.StakingHeader {
	return &types.StakingHeader{
		BaseHeader: types.BaseHeader{
			Version:     params.HeaderVersion,
			Seal:        types.SealTypePoS,
			Number:      number,
			Time:        time,
			Difficulty:  big.NewInt(difficulty),
			EnergyLimit: params.GenesisEnergyLimit,
		},
	}
}

// messages returns the rule error messages carried by err.
func messages(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, have %v", err)
	}
	msgs := make([]string, len(verr.Errors))
	for i, e := range verr.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

func TestHeaderSealTypeRule(t *testing.T) {
	h := miningHeader(1, 10, 16)
	var errs RuleErrors
	ok, err := HeaderSealTypeRule{}.Validate(h, &errs)
	require.NoError(t, err)
	require.True(t, ok)

	h.Seal = types.SealTypePoS
	ok, err = HeaderSealTypeRule{}.Validate(h, &errs)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "seal type (pos) does not match header variant (pow)", errs[0].Message)
}

func TestFutureBlockRule(t *testing.T) {
	now := time.Unix(1000, 0)
	rule := NewFutureBlockRule(func() time.Time { return now })

	var errs RuleErrors
	ok, _ := rule.Validate(miningHeader(1, 1000+params.AllowedFutureBlockTime, 16), &errs)
	require.True(t, ok)
	ok, _ = rule.Validate(miningHeader(1, 1001+params.AllowedFutureBlockTime, 16), &errs)
	require.False(t, ok)
	require.Len(t, errs, 1)
}

func TestHeaderBounds(t *testing.T) {
	h := miningHeader(1, 10, 16)
	h.EnergyConsumed = h.EnergyLimit + 1
	h.Extra = make([]byte, params.MaximumExtraDataSize+1)
	h.Version = 7

	var errs RuleErrors
	for _, rule := range []HeaderRule{
		EnergyConsumedRule{},
		AionExtraDataRule{Max: int(params.MaximumExtraDataSize)},
		AionHeaderVersionRule{Versions: []byte{params.HeaderVersion}},
	} {
		ok, err := rule.Validate(h, &errs)
		require.NoError(t, err)
		require.False(t, ok, rule.Name())
	}
	require.Len(t, errs, 3)
	require.Equal(t, "EnergyConsumedRule", errs[0].Rule)
	require.Equal(t, "AionExtraDataRule", errs[1].Rule)
	require.Equal(t, "AionHeaderVersionRule", errs[2].Rule)
}

func TestBlockNumberRule(t *testing.T) {
	parent := miningHeader(5, 50, 16)

	var errs RuleErrors
	ok, _ := BlockNumberRule{}.Validate(miningHeader(6, 60, 16), parent, nil, &errs)
	require.True(t, ok)
	ok, _ = BlockNumberRule{}.Validate(miningHeader(7, 60, 16), parent, nil, &errs)
	require.False(t, ok)
	require.Equal(t, "block number (7) != parent number (5) + 1", errs[0].Message)
}

func TestTimeStampRule(t *testing.T) {
	parent := miningHeader(5, 50, 16)

	var errs RuleErrors
	ok, _ := TimeStampRule{}.Validate(miningHeader(6, 51, 16), parent, nil, &errs)
	require.True(t, ok)
	ok, _ = TimeStampRule{}.Validate(miningHeader(6, 50, 16), parent, nil, &errs)
	require.False(t, ok)
}

func TestParentOppositeTypeRule(t *testing.T) {
	var errs RuleErrors
	ok, _ := ParentOppositeTypeRule{}.Validate(stakingHeader(6, 60, 16), miningHeader(5, 50, 16), nil, &errs)
	require.True(t, ok)
	ok, _ = ParentOppositeTypeRule{}.Validate(miningHeader(7, 70, 16), miningHeader(6, 60, 16), nil, &errs)
	require.False(t, ok)
	require.Equal(t, "seal type (pow) must differ from parent seal type (pow)", errs[0].Message)
}

func TestEnergyLimitRule(t *testing.T) {
	rule := EnergyLimitRule{Divisor: params.EnergyLimitBoundDivisor, LowerBound: params.MinEnergyLimit}
	parent := miningHeader(5, 50, 16)

	header := miningHeader(6, 60, 16)
	header.EnergyLimit = parent.EnergyLimit + parent.EnergyLimit/params.EnergyLimitBoundDivisor - 1

	var errs RuleErrors
	ok, _ := rule.Validate(header, parent, nil, &errs)
	require.True(t, ok)

	header.EnergyLimit = parent.EnergyLimit * 2
	ok, _ = rule.Validate(header, parent, nil, &errs)
	require.False(t, ok)
}

func TestDifficultyAfterGenesis(t *testing.T) {
	genesis := miningHeader(0, 0, 1<<14)
	validator := NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
		types.SealTypePoW: {AionDifficultyRule{Calculator: unity.NewAionDifficulty(params.DefaultDifficultyConfig)}},
	})
	require.NoError(t, validator.Check(miningHeader(1, 10, 1<<14), genesis, nil))

	err := validator.Check(miningHeader(1, 10, 100), genesis, nil)
	require.Equal(t, []string{"difficulty (100) != expected difficulty (16384)"}, messages(t, err))

	err = validator.Check(miningHeader(1, 10, 0), genesis, nil)
	require.Equal(t, []string{"difficulty (0) is not allowed"}, messages(t, err))
}

func TestDifficultyCalculated(t *testing.T) {
	calc := unity.NewAionDifficulty(params.DefaultDifficultyConfig)
	grandParent := miningHeader(1, 100, 1<<20)
	parent := miningHeader(2, 101, 1<<20)
	want := calc.Calculate(parent, grandParent)

	rule := AionDifficultyRule{Calculator: calc}
	header := miningHeader(3, 110, 0)
	header.Difficulty = new(big.Int).Set(want)

	var errs RuleErrors
	ok, err := rule.Validate(header, parent, grandParent, &errs)
	require.NoError(t, err)
	require.True(t, ok)

	header.Difficulty = new(big.Int).Add(want, common.Big1)
	ok, err = rule.Validate(header, parent, grandParent, &errs)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDifficultyVariants(t *testing.T) {
	calc := unity.NewUnityDifficulty(params.DefaultUnityConfig)
	var errs RuleErrors

	_, err := AionDifficultyRule{Calculator: calc}.Validate(stakingHeader(3, 30, 16), miningHeader(2, 20, 16), miningHeader(1, 10, 16), &errs)
	require.ErrorIs(t, err, ErrWrongVariant)
	require.ErrorIs(t, err, ErrFatal)

	_, err = StakingDifficultyRule{Calculator: calc}.Validate(stakingHeader(5, 50, 16), miningHeader(4, 40, 16), stakingHeader(2, 20, 16), &errs)
	require.ErrorIs(t, err, ErrWrongVariant)

	ok, err := UnityDifficultyRule{Calculator: calc}.Validate(miningHeader(5, 50, 16), stakingHeader(4, 40, 16), miningHeader(2, 20, 16), &errs)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, strings.HasPrefix(errs[len(errs)-1].Message, "ancestor seal type (pos)"))
}
