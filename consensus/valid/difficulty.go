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
	"math/big"

	"github.com/aionnetwork/go-aion/consensus/unity"
	"github.com/aionnetwork/go-aion/core/types"
)

// checkDifficulty compares the header difficulty with the calculated one. A
// child of the genesis block keeps the genesis difficulty.
func checkDifficulty(rule string, calc unity.DifficultyCalculator, header, parent, grandParent types.Header, errs *RuleErrors) bool {
	have := header.Base().Difficulty
	if have == nil || have.Sign() == 0 {
		errs.add(rule, "difficulty (0) is not allowed")
		return false
	}
	var want *big.Int
	if parent.Base().Number == 0 {
		want = parent.Base().Difficulty
		if want == nil {
			want = new(big.Int)
		}
	} else {
		want = calc.Calculate(parent, grandParent)
	}
	if have.Cmp(want) != 0 {
		errs.add(rule, "difficulty (%v) != expected difficulty (%v)", have, want)
		return false
	}
	return true
}

// AionDifficultyRule checks the proof-of-work difficulty before Unity.
type AionDifficultyRule struct {
	Calculator unity.DifficultyCalculator
}

func (AionDifficultyRule) Name() string { return "AionDifficultyRule" }

func (r AionDifficultyRule) Validate(header, parent, grandParent types.Header, errs *RuleErrors) (bool, error) {
	for _, h := range []types.Header{header, parent, grandParent} {
		if _, ok := h.(*types.MiningHeader); !ok && h != nil {
			return false, wrongVariant(r.Name(), "mining headers", h)
		}
	}
	return checkDifficulty(r.Name(), r.Calculator, header, parent, grandParent, errs), nil
}

// StakingDifficultyRule checks the difficulty of a staking header against the
// previous staking headers.
type StakingDifficultyRule struct {
	Calculator unity.DifficultyCalculator
}

func (StakingDifficultyRule) Name() string { return "StakingDifficultyRule" }

func (r StakingDifficultyRule) Validate(header, parent, grandParent types.Header, errs *RuleErrors) (bool, error) {
	for _, h := range []types.Header{header, parent, grandParent} {
		if _, ok := h.(*types.StakingHeader); !ok && h != nil {
			return false, wrongVariant(r.Name(), "staking headers", h)
		}
	}
	return checkDifficulty(r.Name(), r.Calculator, header, parent, grandParent, errs), nil
}

// UnityDifficultyRule checks the difficulty of either seal type against the
// previous headers of the same type. Mixed ancestors are a rejection.
type UnityDifficultyRule struct {
	Calculator unity.DifficultyCalculator
}

func (UnityDifficultyRule) Name() string { return "UnityDifficultyRule" }

func (r UnityDifficultyRule) Validate(header, parent, grandParent types.Header, errs *RuleErrors) (bool, error) {
	seal := types.VariantSealType(header)
	for _, h := range []types.Header{parent, grandParent} {
		if h != nil && types.VariantSealType(h) != seal {
			errs.add(r.Name(), "ancestor seal type (%v) differs from header seal type (%v)", types.VariantSealType(h), seal)
			return false, nil
		}
	}
	return checkDifficulty(r.Name(), r.Calculator, header, parent, grandParent, errs), nil
}
