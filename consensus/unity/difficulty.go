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

package unity

import (
	"math/big"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/params"
)

// DifficultyCalculator derives the difficulty a header must carry from its
// parent and grandparent. Both ancestors are of the header's own seal type;
// grandParent is nil when the parent is the first block of its kind.
type DifficultyCalculator interface {
	Calculate(parent, grandParent types.Header) *big.Int
}

// AionDifficulty is the pre-Unity proof-of-work adjustment: the parent
// difficulty moves by parent/BoundDivisor for every ExpectedBlockTime the
// parent took, capped at -99 steps, and never drops below Minimum.
type AionDifficulty struct {
	config params.DifficultyConfig
}

// NewAionDifficulty creates the calculator for the given parameters.
func NewAionDifficulty(config params.DifficultyConfig) *AionDifficulty {
	return &AionDifficulty{config: config}
}

// Calculate implements DifficultyCalculator.
func (c *AionDifficulty) Calculate(parent, grandParent types.Header) *big.Int {
	pd := difficultyOf(parent)
	if grandParent == nil {
		return pd
	}
	// x = max(1 - (parent.ts - grandParent.ts) // expected, -99)
	elapsed := timeDelta(parent, grandParent)
	x := big.NewInt(1 - int64(elapsed/c.config.ExpectedBlockTime))
	if x.Cmp(bigMinus99) < 0 {
		x.Set(bigMinus99)
	}
	step := new(big.Int).Quo(pd, new(big.Int).SetUint64(c.config.BoundDivisor))
	diff := new(big.Int).Add(pd, step.Mul(step, x))

	if min := c.config.Minimum; min != nil && diff.Cmp(min) < 0 {
		diff.Set(min)
	}
	return diff
}

// UnityDifficulty adjusts each seal type independently: the difficulty rises
// by 1/DifficultyDivisor when the parent followed its own predecessor faster
// than TargetBlockTime, and falls by the same fraction otherwise.
type UnityDifficulty struct {
	config params.UnityConfig
}

// NewUnityDifficulty creates the calculator for the given parameters.
func NewUnityDifficulty(config params.UnityConfig) *UnityDifficulty {
	return &UnityDifficulty{config: config}
}

// Calculate implements DifficultyCalculator. A missing or synthetic seed
// genesis grandparent carries no timing information and keeps the parent
// difficulty.
func (c *UnityDifficulty) Calculate(parent, grandParent types.Header) *big.Int {
	pd := difficultyOf(parent)
	if grandParent == nil || types.IsSeedGenesis(grandParent) {
		return pd
	}
	step := new(big.Int).Quo(pd, new(big.Int).SetUint64(c.config.DifficultyDivisor))
	if step.Sign() == 0 {
		step.Set(big1)
	}
	if timeDelta(parent, grandParent) < c.config.TargetBlockTime {
		return pd.Add(pd, step)
	}
	pd.Sub(pd, step)
	if pd.Cmp(big1) < 0 {
		pd.Set(big1)
	}
	return pd
}

var bigMinus99 = big.NewInt(-99)

func difficultyOf(h types.Header) *big.Int {
	if d := h.Base().Difficulty; d != nil {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

// timeDelta returns parent.Time - grandParent.Time, or zero for a grandparent
// stamped after its child.
func timeDelta(parent, grandParent types.Header) uint64 {
	p, g := parent.Base().Time, grandParent.Base().Time
	if p < g {
		return 0
	}
	return p - g
}
