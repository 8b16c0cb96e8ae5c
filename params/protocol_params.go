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

import "math/big"

const (
	MaximumExtraDataSize uint64 = 32 // Maximum size extra data may be after Genesis.

	EnergyLimitBoundDivisor uint64 = 1024 // The bound divisor of the energy limit, used in update calculations.
	MinEnergyLimit          uint64 = 5000 // Minimum the energy limit may ever be.
	GenesisEnergyLimit      uint64 = 10000000
	TargetEnergyLimit       uint64 = 15000000

	DifficultyBoundDivisor uint64 = 2048 // The bound divisor of the difficulty, used in the update calculations.
	ExpectedBlockTime      uint64 = 10 // Desired seconds between two blocks of the same seal type.

	UnityDifficultyDivisor uint64 = 20 // Difficulty moves by 1/20 per block after the unity fork.

	// AllowedFutureBlockTime is the clock drift tolerated for incoming headers, in seconds.
	AllowedFutureBlockTime uint64 = 1

	// Seal field sizes.
	NonceLength     = 32
	SolutionLength  = 1408
	SeedLength      = 64
	ProofLength     = 80
	SignatureLength = 64
	PubkeyLength    = 32

	// HeaderVersion is the only header version accepted by the validators.
	HeaderVersion byte = 1
)

var (
	MinimumDifficulty      = big.NewInt(16)      // The minimum that the difficulty may ever be.
	GenesisDifficulty      = big.NewInt(1 << 14) // Difficulty of the genesis block.
	InitialStakeDifficulty = big.NewInt(2 << 30) // Difficulty of the first staking block after the unity fork.
)
