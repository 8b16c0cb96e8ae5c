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
	"time"

	"github.com/aionnetwork/go-aion/consensus/unity"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/crypto"
	"github.com/aionnetwork/go-aion/params"
)

// ChainRules are the validators in force at one block height.
//
// Header and Parent see the header and its direct parent. Difficulty sees the
// header with the two previous headers of its own seal type. Seed sees the
// header, its parent and the previous staking header; SeedCreation in
// addition the positional great-grandparent; both only hold staking rules.
// Validators that do not apply at the height are nil.
type ChainRules struct {
	Header       *BlockHeaderValidator
	Parent       *ParentBlockHeaderValidator
	Difficulty   *GrandParentBlockHeaderValidator
	Seed         *GrandParentBlockHeaderValidator
	SeedCreation *GreatGrandParentBlockHeaderValidator
}

// Options tweak the rules built by NewChainRules.
type Options struct {
	PowHash crypto.HashFunc  // proof-of-work hash, Blake2b-256 if nil
	Now     func() time.Time // clock of the future block check, time.Now if nil
}

// NewChainRules assembles the validators for a header at the given height.
func NewChainRules(config *params.ChainConfig, number uint64, opts Options) *ChainRules {
	versions := config.ActiveHeaderVersions
	if len(versions) == 0 {
		versions = []byte{params.HeaderVersion}
	}
	common := []HeaderRule{
		HeaderSealTypeRule{},
		NewFutureBlockRule(opts.Now),
		EnergyConsumedRule{},
		AionExtraDataRule{Max: int(params.MaximumExtraDataSize)},
		AionHeaderVersionRule{Versions: versions},
	}
	parent := []ParentRule{
		BlockNumberRule{},
		TimeStampRule{},
		EnergyLimitRule{Divisor: config.Energy.LimitDivisor, LowerBound: config.Energy.LowerBound},
	}
	powHeader := append(append([]HeaderRule{}, common...), NewAionPOWRule(opts.PowHash))

	if !config.IsUnity(number) {
		return &ChainRules{
			Header: NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
				types.SealTypePoW: powHeader,
			}),
			Parent: NewParentBlockHeaderValidator(map[types.SealType][]ParentRule{
				types.SealTypePoW: parent,
			}),
			Difficulty: NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
				types.SealTypePoW: {AionDifficultyRule{Calculator: unity.NewAionDifficulty(config.Difficulty)}},
			}),
		}
	}
	// The fork block itself may follow a block of either type.
	if number > config.UnityBlock.Uint64() {
		parent = append(parent, ParentOppositeTypeRule{})
	}
	posHeader := append(append([]HeaderRule{}, common...), SignatureRule{})
	posParent := append(append([]ParentRule{}, parent...), StakingBlockTimeStampRule{})
	calc := unity.NewUnityDifficulty(config.Unity)

	rules := &ChainRules{
		Header: NewBlockHeaderValidator(map[types.SealType][]HeaderRule{
			types.SealTypePoW: powHeader,
			types.SealTypePoS: posHeader,
		}),
		Parent: NewParentBlockHeaderValidator(map[types.SealType][]ParentRule{
			types.SealTypePoW: parent,
			types.SealTypePoS: posParent,
		}),
		Difficulty: NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
			types.SealTypePoW: {UnityDifficultyRule{Calculator: calc}},
			types.SealTypePoS: {StakingDifficultyRule{Calculator: calc}},
		}),
	}
	switch {
	case config.IsSeedBinding(number):
		rules.SeedCreation = NewGreatGrandParentBlockHeaderValidator(map[types.SealType][]GreatGrandParentRule{
			types.SealTypePoS: {StakingSeedCreationRule{}},
		})
	case config.IsSignatum(number):
		rules.Seed = NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
			types.SealTypePoS: {VRFProofRule{}},
		})
	default:
		rules.Seed = NewGrandParentBlockHeaderValidator(map[types.SealType][]GrandParentRule{
			types.SealTypePoS: {StakingSeedRule{}},
		})
	}
	return rules
}
