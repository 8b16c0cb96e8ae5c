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

package params

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Fork050Disabled is the beacon hash activation number used when the fork is
// not scheduled.
const Fork050Disabled = math.MaxInt64

var (
	// MainnetChainConfig is the chain parameters to run a node on the main network.
	MainnetChainConfig = &ChainConfig{
		ChainID:              big.NewInt(256),
		UnityBlock:           big.NewInt(9200000),
		SignatumBlock:        big.NewInt(9500000),
		Fork050Block:         big.NewInt(9700000),
		Energy:               DefaultEnergyConfig,
		Difficulty:           DefaultDifficultyConfig,
		Unity:                DefaultUnityConfig,
		ActiveHeaderVersions: []byte{HeaderVersion},
	}

	// TestChainConfig activates every fork from genesis. Tests rely on it.
	TestChainConfig = &ChainConfig{
		ChainID:              big.NewInt(1),
		UnityBlock:           big.NewInt(0),
		SignatumBlock:        big.NewInt(0),
		Fork050Block:         big.NewInt(0),
		Energy:               DefaultEnergyConfig,
		Difficulty:           DefaultDifficultyConfig,
		Unity:                DefaultUnityConfig,
		ActiveHeaderVersions: []byte{HeaderVersion},
	}

	DefaultEnergyConfig = EnergyConfig{
		Strategy:     "clamped",
		LimitDivisor: EnergyLimitBoundDivisor,
		LowerBound:   MinEnergyLimit,
		UpperBound:   20000000,
		TargetLimit:  TargetEnergyLimit,
	}

	DefaultDifficultyConfig = DifficultyConfig{
		BoundDivisor:      DifficultyBoundDivisor,
		Minimum:           MinimumDifficulty,
		ExpectedBlockTime: ExpectedBlockTime,
	}

	DefaultUnityConfig = UnityConfig{
		TargetBlockTime:        ExpectedBlockTime,
		DifficultyDivisor:      UnityDifficultyDivisor,
		InitialStakeDifficulty: InitialStakeDifficulty,
	}
)

// ChainConfig is the core config which determines the header validation
// settings. It is handed to the validator and calculator constructors.
type ChainConfig struct {
	ChainID *big.Int `toml:",omitempty"`

	UnityBlock       *big.Int `toml:",omitempty"` // Unity switch block (nil = no fork), alternating PoW/PoS from here on
	SignatumBlock    *big.Int `toml:",omitempty"` // Staking seeds become VRF proofs (nil = no fork)
	SeedBindingBlock *big.Int `toml:",omitempty"` // Staking seeds are derived from the latest mining output (nil = no fork)
	Fork050Block     *big.Int `toml:",omitempty"` // Transactions may carry a beacon hash (nil = no fork)

	Energy     EnergyConfig
	Difficulty DifficultyConfig
	Unity      UnityConfig

	// ActiveHeaderVersions lists the header versions accepted by the validators.
	ActiveHeaderVersions []byte
}

// EnergyConfig holds the energy limit bounds and the strategy used when
// assembling block templates.
type EnergyConfig struct {
	Strategy     string // one of "monotonic", "target", "clamped"
	LimitDivisor uint64
	LowerBound   uint64
	UpperBound   uint64
	TargetLimit  uint64
}

// DifficultyConfig holds the proof-of-work difficulty adjustment parameters.
type DifficultyConfig struct {
	BoundDivisor      uint64
	Minimum           *big.Int
	ExpectedBlockTime uint64
}

// UnityConfig holds the parameters of the hybrid difficulty model.
type UnityConfig struct {
	TargetBlockTime        uint64
	DifficultyDivisor      uint64
	InitialStakeDifficulty *big.Int
}

// String implements the fmt.Stringer interface.
func (c *ChainConfig) String() string {
	return fmt.Sprintf("{ChainID: %v Unity: %v Signatum: %v SeedBinding: %v Fork050: %v}",
		c.ChainID,
		c.UnityBlock,
		c.SignatumBlock,
		c.SeedBindingBlock,
		c.Fork050Block,
	)
}

// IsUnity returns whether num is either equal to the unity fork block or greater.
func (c *ChainConfig) IsUnity(num uint64) bool {
	return isForked(c.UnityBlock, num)
}

// IsSignatum returns whether num is either equal to the signatum fork block or greater.
func (c *ChainConfig) IsSignatum(num uint64) bool {
	return isForked(c.SignatumBlock, num)
}

// IsSeedBinding returns whether num is either equal to the seed binding fork block or greater.
func (c *ChainConfig) IsSeedBinding(num uint64) bool {
	return isForked(c.SeedBindingBlock, num)
}

// Fork050Number returns the beacon hash activation number, or Fork050Disabled.
func (c *ChainConfig) Fork050Number() int64 {
	if c.Fork050Block == nil || !c.Fork050Block.IsInt64() {
		return Fork050Disabled
	}
	return c.Fork050Block.Int64()
}

// CheckConfigForkOrder checks that the forks are scheduled in order and that
// the divisors of the difficulty and energy calculations are non-zero.
func (c *ChainConfig) CheckConfigForkOrder() error {
	type fork struct {
		name  string
		block *big.Int
	}
	var last fork
	for _, cur := range []fork{
		{"unityBlock", c.UnityBlock},
		{"signatumBlock", c.SignatumBlock},
		{"seedBindingBlock", c.SeedBindingBlock},
	} {
		if cur.block == nil {
			continue
		}
		if last.name == "" && cur.name != "unityBlock" {
			return fmt.Errorf("unsupported fork ordering: %v enabled at %v, but unityBlock not enabled", cur.name, cur.block)
		}
		if last.block != nil && last.block.Cmp(cur.block) > 0 {
			return fmt.Errorf("unsupported fork ordering: %v enabled at %v, but %v enabled at %v",
				last.name, last.block, cur.name, cur.block)
		}
		last = cur
	}
	if c.Energy.LimitDivisor == 0 {
		return errors.New("energy limit divisor must be positive")
	}
	if c.Difficulty.BoundDivisor == 0 {
		return errors.New("difficulty bound divisor must be positive")
	}
	if c.Difficulty.ExpectedBlockTime == 0 {
		return errors.New("expected block time must be positive")
	}
	if c.Unity.DifficultyDivisor == 0 && c.UnityBlock != nil {
		return errors.New("unity difficulty divisor must be positive")
	}
	return nil
}

func isForked(s *big.Int, head uint64) bool {
	if s == nil {
		return false
	}
	return s.Cmp(new(big.Int).SetUint64(head)) <= 0
}

const (
	MinimumCurrentCount = 128  // Minimum number of blocks kept in the prune journal.
	MinimumArchiveRate  = 1000 // Minimum distance between two archived states.
)

// PruneConfig configures the state trie journal pruning.
type PruneConfig struct {
	Enabled      bool
	Archived     bool
	CurrentCount uint64 // Blocks kept in the journal before their deletes are applied
	ArchiveRate  uint64 // A full state copy is archived every ArchiveRate blocks
}

// DefaultPruneConfig enables journal pruning without archiving.
var DefaultPruneConfig = PruneConfig{
	Enabled:      true,
	CurrentCount: MinimumCurrentCount,
	ArchiveRate:  MinimumArchiveRate,
}

// Sanitize raises the journal depth and archive rate to their minimums.
func (c PruneConfig) Sanitize() PruneConfig {
	if c.CurrentCount < MinimumCurrentCount {
		c.CurrentCount = MinimumCurrentCount
	}
	if c.ArchiveRate < MinimumArchiveRate {
		c.ArchiveRate = MinimumArchiveRate
	}
	if !c.Enabled {
		c.Archived = false
	}
	return c
}
