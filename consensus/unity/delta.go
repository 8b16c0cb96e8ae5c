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
	"errors"
	"math/big"

	"github.com/aionnetwork/go-aion/crypto"
)

// ErrNonPositiveStake is returned when a staking delay is requested for a
// stake that is zero or negative.
var ErrNonPositiveStake = errors.New("stake must be positive")

var (
	big1     = big.NewInt(1)
	logScale = new(big.Int).Lsh(big1, LogPrecision)
)

// StakingDelta returns the number of seconds a staker holding stake has to
// wait after the parent block before sealing a staking block with the given
// seed and difficulty:
//
//	max(1, floor(difficulty * ln(2^256 / keccak256(seed)) / stake))
//
// The logarithm is evaluated in fixed point so that every node derives the
// same delay.
func StakingDelta(seed []byte, difficulty, stake *big.Int) (uint64, error) {
	if stake == nil || stake.Sign() <= 0 {
		return 0, ErrNonPositiveStake
	}
	if difficulty == nil || difficulty.Sign() <= 0 {
		return 1, nil
	}
	hash := new(big.Int).SetBytes(crypto.Keccak256(seed))
	if hash.Sign() == 0 {
		hash.Set(big1)
	}
	lnRatio := new(big.Int).Sub(LnMaxHash, Log(hash))

	delta := new(big.Int).Mul(difficulty, lnRatio)
	delta.Quo(delta, new(big.Int).Mul(stake, logScale))
	if delta.Cmp(big1) < 0 {
		return 1, nil
	}
	if !delta.IsUint64() {
		return ^uint64(0), nil
	}
	return delta.Uint64(), nil
}
