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

// Package unity implements the consensus arithmetic of the Unity hybrid
// chain: difficulty adjustment for both seal types and the staking delay.
package unity

import (
	"math/big"
)

// LogPrecision is the number of fractional bits of the fixed point values
// returned by Log.
const LogPrecision = 64

// workBits is the precision the series is evaluated with before rounding down
// to LogPrecision.
const workBits = LogPrecision + 32

var (
	workOne = new(big.Int).Lsh(big.NewInt(1), workBits)
	ln2Work = lnMantissa(new(big.Int).Lsh(big.NewInt(2), workBits))

	// Ln2 is ln(2) scaled by 2^LogPrecision.
	Ln2 = new(big.Int).Rsh(ln2Work, workBits-LogPrecision)

	// LnMaxHash is ln(2^256) scaled by 2^LogPrecision.
	LnMaxHash = new(big.Int).Rsh(new(big.Int).Mul(ln2Work, big.NewInt(256)), workBits-LogPrecision)
)

// Log returns the natural logarithm of x scaled by 2^LogPrecision and
// rounded down. StakingDelta is computed with it against LnMaxHash. x must be
// positive; Log panics otherwise.
//
// x is written as 2^k * m with m in [1, 2), so ln(x) = k*ln(2) + ln(m).
// ln(m) is evaluated with the series 2*atanh((m-1)/(m+1)), whose argument
// stays below 1/3, in integer arithmetic only.
func Log(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		panic("unity: logarithm of a non-positive number")
	}
	k := x.BitLen() - 1

	// m = x / 2^k at workBits fractional bits.
	m := new(big.Int).Lsh(x, workBits)
	m.Rsh(m, uint(k))

	res := new(big.Int).Mul(ln2Work, big.NewInt(int64(k)))
	res.Add(res, lnMantissa(m))
	return res.Rsh(res, workBits-LogPrecision)
}

// lnMantissa returns ln(m) for m in [1, 2], both at workBits fractional bits.
func lnMantissa(m *big.Int) *big.Int {
	num := new(big.Int).Sub(m, workOne)
	if num.Sign() == 0 {
		return new(big.Int)
	}
	den := new(big.Int).Add(m, workOne)

	// z = (m-1)/(m+1)
	z := new(big.Int).Lsh(num, workBits)
	z.Quo(z, den)
	z2 := new(big.Int).Mul(z, z)
	z2.Rsh(z2, workBits)

	var (
		sum  = new(big.Int)
		pow  = new(big.Int).Set(z)
		term = new(big.Int)
	)
	for i := int64(1); pow.Sign() > 0; i += 2 {
		term.Quo(pow, big.NewInt(i))
		sum.Add(sum, term)
		pow.Mul(pow, z2)
		pow.Rsh(pow, workBits)
	}
	return sum.Lsh(sum, 1)
}
