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
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/crypto"
	"github.com/aionnetwork/go-aion/params"
)

func toFloat(fixed *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(fixed), new(big.Float).SetInt(logScale)).Float64()
	return f
}

func TestLog(t *testing.T) {
	tests := []*big.Int{
		big.NewInt(1),
		big.NewInt(2),
		big.NewInt(3),
		big.NewInt(10),
		big.NewInt(1000003),
		new(big.Int).Lsh(big.NewInt(1), 100),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
		new(big.Int).SetBytes(crypto.Keccak256([]byte("seed"))),
	}
	for _, x := range tests {
		have := toFloat(Log(x))
		f, _ := new(big.Float).SetInt(x).Float64()
		want := math.Log(f)
		if math.Abs(have-want) > 1e-9 {
			t.Errorf("ln(%v): have %v, want %v", x, have, want)
		}
	}
	if Log(big.NewInt(1)).Sign() != 0 {
		t.Errorf("ln(1) not zero")
	}
	if have := toFloat(Ln2); math.Abs(have-math.Ln2) > 1e-15 {
		t.Errorf("ln2: have %v", have)
	}
	if have := toFloat(LnMaxHash); math.Abs(have-256*math.Ln2) > 1e-12 {
		t.Errorf("ln(2^256): have %v", have)
	}
	if have := Log(new(big.Int).Lsh(big.NewInt(1), 256)); have.Cmp(LnMaxHash) != 0 {
		t.Errorf("ln(2^256) drifts from the precomputed constant: have %v, want %v", have, LnMaxHash)
	}
}

func TestLogMonotonic(t *testing.T) {
	prev := Log(big.NewInt(1))
	for i := int64(2); i < 2000; i++ {
		cur := Log(big.NewInt(i))
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("ln(%d) <= ln(%d)", i, i-1)
		}
		prev = cur
	}
}

func TestStakingDelta(t *testing.T) {
	difficulty := big.NewInt(1_000_000_000)
	for i := 0; i < 32; i++ {
		seed := []byte(fmt.Sprintf("seed-%d", i))
		stake := big.NewInt(50_000_000)

		delta, err := StakingDelta(seed, difficulty, stake)
		if err != nil {
			t.Fatal(err)
		}
		if delta < 1 {
			t.Fatalf("delta below one: %d", delta)
		}
		h, _ := new(big.Float).SetInt(new(big.Int).SetBytes(crypto.Keccak256(seed))).Float64()
		want := 1e9 * (256*math.Ln2 - math.Log(h)) / 5e7
		if math.Abs(float64(delta)-math.Max(1, math.Floor(want))) > 1 {
			t.Errorf("seed %d: have %d, want about %v", i, delta, want)
		}

		halved, err := StakingDelta(seed, difficulty, new(big.Int).Mul(stake, big.NewInt(2)))
		if err != nil {
			t.Fatal(err)
		}
		if halved < 1 || (delta > 2 && (2*halved > delta+1 || 2*halved+1 < delta)) {
			t.Errorf("seed %d: doubling the stake moved delta from %d to %d", i, delta, halved)
		}
	}
}

func TestStakingDeltaFloor(t *testing.T) {
	delta, err := StakingDelta([]byte("seed"), big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), 200))
	if err != nil {
		t.Fatal(err)
	}
	if delta != 1 {
		t.Fatalf("delta for a huge stake: have %d, want 1", delta)
	}
}

func TestStakingDeltaStake(t *testing.T) {
	for _, stake := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if _, err := StakingDelta([]byte("seed"), big.NewInt(100), stake); err != ErrNonPositiveStake {
			t.Errorf("stake %v: have %v, want %v", stake, err, ErrNonPositiveStake)
		}
	}
}

func mining(number, time uint64, difficulty int64) types.Header {
	return &types.MiningHeader{BaseHeader: types.BaseHeader{
		Seal:       types.SealTypePoW,
		Number:     number,
		Time:       time,
		Difficulty: big.NewInt(difficulty),
	}}
}

func staking(number, time uint64, difficulty int64) types.Header {
	return &types.StakingHeader{
		BaseHeader: types.BaseHeader{
			Seal:       types.SealTypePoS,
			Number:     number,
			Time:       time,
			Difficulty: big.NewInt(difficulty),
		},
		SigningKey: make([]byte, params.PubkeyLength),
	}
}

func TestAionDifficulty(t *testing.T) {
	calc := NewAionDifficulty(params.DefaultDifficultyConfig)
	tests := []struct {
		parent, grandParent types.Header
		want                int64
	}{
		{mining(1, 100, 2048000), nil, 2048000},
		{mining(2, 105, 2048000), mining(1, 100, 0), 2049000},
		{mining(2, 110, 2048000), mining(1, 100, 0), 2048000},
		{mining(2, 125, 2048000), mining(1, 100, 0), 2047000},
		{mining(2, 100000, 2048000), mining(1, 100, 0), 2048000 - 99*1000},
		{mining(2, 110, 10), mining(1, 100, 0), 16},
	}
	for i, tt := range tests {
		if have := calc.Calculate(tt.parent, tt.grandParent); have.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("test %d: have %v, want %d", i, have, tt.want)
		}
	}
}

func TestUnityDifficulty(t *testing.T) {
	calc := NewUnityDifficulty(params.DefaultUnityConfig)
	genesis := types.NewSeedGenesisHeader(params.InitialStakeDifficulty)
	tests := []struct {
		parent, grandParent types.Header
		want                int64
	}{
		{staking(2, 100, 2000), nil, 2000},
		{staking(2, 100, 2000), genesis, 2000},
		{staking(4, 105, 2000), staking(2, 100, 0), 2100},
		{staking(4, 110, 2000), staking(2, 100, 0), 1900},
		{mining(5, 130, 2000), mining(3, 100, 0), 1900},
		{mining(5, 130, 10), mining(3, 100, 0), 9},
		{mining(5, 130, 1), mining(3, 100, 0), 1},
		{mining(5, 101, 10), mining(3, 100, 0), 11},
	}
	for i, tt := range tests {
		if have := calc.Calculate(tt.parent, tt.grandParent); have.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("test %d: have %v, want %d", i, have, tt.want)
		}
	}
}
