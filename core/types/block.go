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

// Package types contains data types related to Aion consensus.
package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	acommon "github.com/aionnetwork/go-aion/common"
	"github.com/aionnetwork/go-aion/crypto"
	"github.com/aionnetwork/go-aion/params"
)

var (
	EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// GenesisSeed is the seed of the staking chain before the first staking block.
	GenesisSeed = make([]byte, params.SeedLength)

	maxBoundary = new(uint256.Int).SetAllOne()
)

// SealType tags a header as proof-of-work mined or proof-of-stake signed.
type SealType byte

const (
	SealTypePoW SealType = 0x01
	SealTypePoS SealType = 0x02
)

func (s SealType) String() string {
	switch s {
	case SealTypePoW:
		return "pow"
	case SealTypePoS:
		return "pos"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// BloomByteLength represents the number of bytes used in a header log bloom.
const BloomByteLength = 256

// Bloom represents a 2048 bit bloom filter.
type Bloom [BloomByteLength]byte

// BaseHeader holds the fields shared by both header variants.
type BaseHeader struct {
	Version        byte
	Seal           SealType // declared seal type, checked against the variant
	Number         uint64
	ParentHash     common.Hash
	Coinbase       acommon.Address
	Root           common.Hash
	TxHash         common.Hash
	ReceiptHash    common.Hash
	Bloom          Bloom
	Difficulty     *big.Int
	Extra          []byte
	EnergyConsumed uint64
	EnergyLimit    uint64
	Time           uint64
}

// Header is a block header of either variant. The set of implementations is
// closed: *MiningHeader and *StakingHeader.
type Header interface {
	// Base returns the shared header fields.
	Base() *BaseHeader

	// Hash returns the keccak256 hash of the header's canonical encoding.
	Hash() common.Hash

	// MineHash returns the hash sealed by the miner or signed by the staker.
	MineHash() []byte

	sealed()
}

// MiningHeader is the header of a proof-of-work block.
type MiningHeader struct {
	BaseHeader
	Nonce    []byte // 32 bytes
	Solution []byte // Equihash solution, 1408 bytes
}

// StakingHeader is the header of a proof-of-stake block.
type StakingHeader struct {
	BaseHeader
	Seed       []byte // 64 byte seed or 80 byte VRF proof
	SigningKey []byte // Ed25519 public key
	Signature  []byte // Ed25519 signature over MineHash
}

func (h *MiningHeader) Base() *BaseHeader  { return &h.BaseHeader }
func (h *StakingHeader) Base() *BaseHeader { return &h.BaseHeader }
func (h *MiningHeader) sealed()            {}
func (h *StakingHeader) sealed()           {}

// Hash returns the keccak256 hash of the header's encoding.
func (h *MiningHeader) Hash() common.Hash { return headerHash(h) }

// Hash returns the keccak256 hash of the header's encoding.
func (h *StakingHeader) Hash() common.Hash { return headerHash(h) }

// MineHash hashes every field except the seal.
func (h *MiningHeader) MineHash() []byte {
	return crypto.Keccak256(h.miningBytes())
}

// MineHash hashes every field except the signature, including the seed.
func (h *StakingHeader) MineHash() []byte {
	return crypto.Keccak256(h.miningBytes(), h.Seed)
}

// PowBoundary returns 2^256 / difficulty, the exclusive upper bound a valid
// proof-of-work hash must stay below.
func (h *MiningHeader) PowBoundary() *uint256.Int {
	if h.Difficulty == nil || h.Difficulty.Cmp(common.Big1) <= 0 {
		return maxBoundary.Clone()
	}
	d, overflow := uint256.FromBig(h.Difficulty)
	if overflow {
		return new(uint256.Int)
	}
	// 2^256 / d == (2^256 - 1) / d unless d divides 2^256, i.e. is a power of two.
	q := new(uint256.Int).Div(maxBoundary, d)
	if new(uint256.Int).And(d, new(uint256.Int).SubUint64(d, 1)).IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}

// VariantSealType returns the seal type implied by the concrete header variant.
func VariantSealType(h Header) SealType {
	switch h.(type) {
	case *MiningHeader:
		return SealTypePoW
	case *StakingHeader:
		return SealTypePoS
	default:
		return 0
	}
}

// SanityCheck checks a few basic things -- these checks are way beyond what
// any 'sane' production values should hold, and can mainly be used to prevent
// that the unbounded fields are stuffed with junk data to add processing
// overhead
func SanityCheck(h Header) error {
	b := h.Base()
	if b.Difficulty != nil {
		if diffLen := b.Difficulty.BitLen(); diffLen > 256 {
			return fmt.Errorf("too large block difficulty: bitlen %d", diffLen)
		}
	}
	if eLen := len(b.Extra); eLen > 100*1024 {
		return fmt.Errorf("too large block extradata: size %d", eLen)
	}
	switch h := h.(type) {
	case *MiningHeader:
		if len(h.Solution) > 2*params.SolutionLength {
			return fmt.Errorf("too large solution: size %d", len(h.Solution))
		}
	case *StakingHeader:
		if len(h.Seed) > params.ProofLength {
			return fmt.Errorf("too large seed: size %d", len(h.Seed))
		}
	}
	return nil
}

// CopyHeader creates a deep copy of a block header to prevent side effects from
// modifying a header variable.
func CopyHeader(h Header) Header {
	switch h := h.(type) {
	case *MiningHeader:
		cpy := *h
		cpy.BaseHeader = copyBase(&h.BaseHeader)
		cpy.Nonce = acommon.CopyBytes(h.Nonce)
		cpy.Solution = acommon.CopyBytes(h.Solution)
		return &cpy
	case *StakingHeader:
		cpy := *h
		cpy.BaseHeader = copyBase(&h.BaseHeader)
		cpy.Seed = acommon.CopyBytes(h.Seed)
		cpy.SigningKey = acommon.CopyBytes(h.SigningKey)
		cpy.Signature = acommon.CopyBytes(h.Signature)
		return &cpy
	default:
		panic(fmt.Sprintf("unknown header variant %T", h))
	}
}

func copyBase(b *BaseHeader) BaseHeader {
	cpy := *b
	if b.Difficulty != nil {
		cpy.Difficulty = new(big.Int).Set(b.Difficulty)
	}
	cpy.Extra = acommon.CopyBytes(b.Extra)
	return cpy
}

// NewSeedGenesisHeader returns the synthetic staking header standing in for
// the staking ancestor of the first staking block.
func NewSeedGenesisHeader(difficulty *big.Int) *StakingHeader {
	return &StakingHeader{
		BaseHeader: BaseHeader{
			Version:    params.HeaderVersion,
			Seal:       SealTypePoS,
			Difficulty: new(big.Int).Set(difficulty),
		},
		Seed: acommon.CopyBytes(GenesisSeed),
	}
}

// IsSeedGenesis reports whether h is the synthetic seed genesis header.
func IsSeedGenesis(h Header) bool {
	s, ok := h.(*StakingHeader)
	return ok && s.Number == 0 && len(s.SigningKey) == 0 && len(s.Seed) == params.SeedLength && isZero(s.Seed)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func headerHash(h Header) (hash common.Hash) {
	enc, err := EncodeHeader(h)
	if err != nil {
		panic("can't encode: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}

// miningBytes is the RLP list of the fields covered by the seal.
func (b *BaseHeader) miningBytes() []byte {
	enc, err := rlp.EncodeToBytes([]interface{}{
		b.Seal,
		b.Number,
		b.ParentHash,
		b.Coinbase,
		b.Root,
		b.TxHash,
		b.ReceiptHash,
		b.Bloom,
		bigOrZero(b.Difficulty),
		b.Extra,
		b.EnergyConsumed,
		b.EnergyLimit,
		b.Time,
	})
	if err != nil {
		panic("can't encode: " + err.Error())
	}
	return enc
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
