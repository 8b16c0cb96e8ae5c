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

package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	acommon "github.com/aionnetwork/go-aion/common"
)

var errEmptyHeader = errors.New("empty header encoding")

// baseRLP is the flattened wire layout of BaseHeader.
type baseRLP struct {
	Version        byte
	Seal           SealType
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

type miningRLP struct {
	Base     baseRLP
	Nonce    []byte
	Solution []byte
}

type stakingRLP struct {
	Base       baseRLP
	Seed       []byte
	SigningKey []byte
	Signature  []byte
}

func toRLP(b *BaseHeader) baseRLP {
	return baseRLP{
		Version:        b.Version,
		Seal:           b.Seal,
		Number:         b.Number,
		ParentHash:     b.ParentHash,
		Coinbase:       b.Coinbase,
		Root:           b.Root,
		TxHash:         b.TxHash,
		ReceiptHash:    b.ReceiptHash,
		Bloom:          b.Bloom,
		Difficulty:     bigOrZero(b.Difficulty),
		Extra:          b.Extra,
		EnergyConsumed: b.EnergyConsumed,
		EnergyLimit:    b.EnergyLimit,
		Time:           b.Time,
	}
}

func fromRLP(r *baseRLP) BaseHeader {
	return BaseHeader{
		Version:        r.Version,
		Seal:           r.Seal,
		Number:         r.Number,
		ParentHash:     r.ParentHash,
		Coinbase:       r.Coinbase,
		Root:           r.Root,
		TxHash:         r.TxHash,
		ReceiptHash:    r.ReceiptHash,
		Bloom:          r.Bloom,
		Difficulty:     r.Difficulty,
		Extra:          r.Extra,
		EnergyConsumed: r.EnergyConsumed,
		EnergyLimit:    r.EnergyLimit,
		Time:           r.Time,
	}
}

// EncodeHeader returns the canonical encoding of a header: the variant's seal
// type byte followed by the RLP list of its fields.
func EncodeHeader(h Header) ([]byte, error) {
	var (
		enc []byte
		err error
	)
	switch h := h.(type) {
	case *MiningHeader:
		enc, err = rlp.EncodeToBytes(&miningRLP{Base: toRLP(&h.BaseHeader), Nonce: h.Nonce, Solution: h.Solution})
	case *StakingHeader:
		enc, err = rlp.EncodeToBytes(&stakingRLP{Base: toRLP(&h.BaseHeader), Seed: h.Seed, SigningKey: h.SigningKey, Signature: h.Signature})
	default:
		return nil, fmt.Errorf("unknown header variant %T", h)
	}
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(VariantSealType(h))}, enc...), nil
}

// DecodeHeader parses a header produced by EncodeHeader.
func DecodeHeader(enc []byte) (Header, error) {
	if len(enc) == 0 {
		return nil, errEmptyHeader
	}
	switch SealType(enc[0]) {
	case SealTypePoW:
		var dec miningRLP
		if err := rlp.DecodeBytes(enc[1:], &dec); err != nil {
			return nil, err
		}
		return &MiningHeader{BaseHeader: fromRLP(&dec.Base), Nonce: dec.Nonce, Solution: dec.Solution}, nil
	case SealTypePoS:
		var dec stakingRLP
		if err := rlp.DecodeBytes(enc[1:], &dec); err != nil {
			return nil, err
		}
		return &StakingHeader{BaseHeader: fromRLP(&dec.Base), Seed: dec.Seed, SigningKey: dec.SigningKey, Signature: dec.Signature}, nil
	default:
		return nil, fmt.Errorf("unknown header seal type %d", enc[0])
	}
}

// DecodeHeaders parses an RLP list of encoded headers.
func DecodeHeaders(enc []byte) ([]Header, error) {
	var raw [][]byte
	if err := rlp.DecodeBytes(enc, &raw); err != nil {
		return nil, err
	}
	headers := make([]Header, 0, len(raw))
	for i, r := range raw {
		h, err := DecodeHeader(r)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// EncodeHeaders is the inverse of DecodeHeaders.
func EncodeHeaders(headers []Header) ([]byte, error) {
	raw := make([][]byte, 0, len(headers))
	for _, h := range headers {
		enc, err := EncodeHeader(h)
		if err != nil {
			return nil, err
		}
		raw = append(raw, enc)
	}
	return rlp.EncodeToBytes(raw)
}
