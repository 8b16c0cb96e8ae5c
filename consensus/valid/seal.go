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
	"bytes"
	"math/big"

	"github.com/holiman/uint256"

	acommon "github.com/aionnetwork/go-aion/common"
	"github.com/aionnetwork/go-aion/consensus"
	"github.com/aionnetwork/go-aion/consensus/unity"
	"github.com/aionnetwork/go-aion/core/types"
	"github.com/aionnetwork/go-aion/crypto"
	"github.com/aionnetwork/go-aion/crypto/ed25519"
	"github.com/aionnetwork/go-aion/crypto/vrf"
	"github.com/aionnetwork/go-aion/params"
)

// powInputLength is the size of the proof-of-work hash input:
// mine hash, nonce and Equihash solution.
const powInputLength = crypto.DigestLength + params.NonceLength + params.SolutionLength

// AionPOWRule checks the proof-of-work seal of a mining header: the hash of
// mine hash, nonce and solution must be below the difficulty boundary.
type AionPOWRule struct {
	hash crypto.HashFunc
}

// NewAionPOWRule creates the rule over the given hash function, or Blake2b-256
// if nil.
func NewAionPOWRule(hash crypto.HashFunc) *AionPOWRule {
	if hash == nil {
		hash = crypto.Blake2b256
	}
	return &AionPOWRule{hash: hash}
}

func (*AionPOWRule) Name() string { return "AionPOWRule" }

func (r *AionPOWRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	h, ok := header.(*types.MiningHeader)
	if !ok {
		return false, wrongVariant(r.Name(), "a mining header", header)
	}
	if err := acommon.ValidateLength(h.Nonce, params.NonceLength, "nonce"); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	if err := acommon.ValidateLength(h.Solution, params.SolutionLength, "solution"); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	input := make([]byte, 0, powInputLength)
	input = append(input, h.MineHash()...)
	input = append(input, h.Nonce...)
	input = append(input, h.Solution...)

	value := new(uint256.Int).SetBytes(r.hash(input))
	boundary := h.PowBoundary()
	if !value.Lt(boundary) {
		errs.add(r.Name(), "pow hash (%s) >= boundary (%s)", value.Hex(), boundary.Hex())
		return false, nil
	}
	return true, nil
}

// SignatureRule checks the Ed25519 signature of a staking header over its
// mine hash.
type SignatureRule struct{}

func (SignatureRule) Name() string { return "SignatureRule" }

func (r SignatureRule) Validate(header types.Header, errs *RuleErrors) (bool, error) {
	h, ok := header.(*types.StakingHeader)
	if !ok {
		return false, wrongVariant(r.Name(), "a staking header", header)
	}
	if err := acommon.ValidateLength(h.SigningKey, params.PubkeyLength, "signing key"); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	if err := acommon.ValidateLength(h.Signature, params.SignatureLength, "signature"); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	if !ed25519.Verify(h.SigningKey, h.MineHash(), h.Signature) {
		errs.add(r.Name(), "signature verification failed")
		return false, nil
	}
	return true, nil
}

// stakingPair asserts the header and the previous staking header.
func stakingPair(rule string, header, previous types.Header) (*types.StakingHeader, *types.StakingHeader, error) {
	h, ok := header.(*types.StakingHeader)
	if !ok {
		return nil, nil, wrongVariant(rule, "a staking header", header)
	}
	prev, ok := previous.(*types.StakingHeader)
	if !ok {
		return nil, nil, wrongVariant(rule, "a staking ancestor", previous)
	}
	return h, prev, nil
}

// StakingSeedRule checks a signature seed: the seed of a staking header must
// be the signer's signature of the seed of the previous staking header, here
// passed as grandParent.
type StakingSeedRule struct{}

func (StakingSeedRule) Name() string { return "StakingSeedRule" }

func (r StakingSeedRule) Validate(header, _, grandParent types.Header, errs *RuleErrors) (bool, error) {
	h, prev, err := stakingPair(r.Name(), header, grandParent)
	if err != nil {
		return false, err
	}
	if err := acommon.ValidateLength(h.Seed, params.SeedLength, "seed"); err != nil {
		errs.add(r.Name(), "%v", err)
		return false, nil
	}
	if !ed25519.Verify(h.SigningKey, prev.Seed, h.Seed) {
		errs.add(r.Name(), "seed is not a signature of the previous seed by the signing key")
		return false, nil
	}
	return true, nil
}

// VRFProofRule checks a VRF seed: the seed of a staking header must be a VRF
// proof by the signer over the previous staking seed, or over the output of
// the previous proof once the chain moved past signature seeds.
type VRFProofRule struct{}

func (VRFProofRule) Name() string { return "VRFProofRule" }

func (r VRFProofRule) Validate(header, _, grandParent types.Header, errs *RuleErrors) (bool, error) {
	h, prev, err := stakingPair(r.Name(), header, grandParent)
	if err != nil {
		return false, err
	}
	if len(h.Seed) != params.ProofLength {
		errs.add(r.Name(), "vrf proof length (%d) != expected length (%d)", len(h.Seed), params.ProofLength)
		return false, nil
	}
	alpha := prev.Seed
	if len(prev.Seed) != params.SeedLength {
		if alpha, err = vrf.ProofToHash(prev.Seed); err != nil {
			errs.add(r.Name(), "previous seed (%d bytes) is neither a seed nor a vrf proof", len(prev.Seed))
			return false, nil
		}
	}
	if !vrf.Verify(h.SigningKey, alpha, h.Seed) {
		errs.add(r.Name(), "vrf proof verification failed")
		return false, nil
	}
	return true, nil
}

// CreateStakingSeed derives the seed bound to the latest mining block:
// H(c || 0) || H(c || 1) with c = parentSeed || signer || mine hash || nonce
// and H Keccak-256.
func CreateStakingSeed(parentSeed, signingKey []byte, pow *types.MiningHeader) []byte {
	signer := crypto.PubkeyToAddress(signingKey)
	c := acommon.ConcatBytes(parentSeed, signer.Bytes(), pow.MineHash(), pow.Nonce)
	return acommon.ConcatBytes(
		crypto.Keccak256(c, []byte{0}),
		crypto.Keccak256(c, []byte{1}),
	)
}

// StakingSeedCreationRule checks a seed bound to the mining output: parent is
// the mining block sealed before the header and grandParent the previous
// staking header. The great-grandparent is not consulted.
type StakingSeedCreationRule struct{}

func (StakingSeedCreationRule) Name() string { return "StakingSeedCreationRule" }

func (r StakingSeedCreationRule) Validate(header, parent, grandParent, _ types.Header, errs *RuleErrors) (bool, error) {
	h, prev, err := stakingPair(r.Name(), header, grandParent)
	if err != nil {
		return false, err
	}
	pow, ok := parent.(*types.MiningHeader)
	if !ok {
		return false, wrongVariant(r.Name(), "a mining parent", parent)
	}
	if want := CreateStakingSeed(prev.Seed, h.SigningKey, pow); !bytes.Equal(h.Seed, want) {
		errs.add(r.Name(), "seed (%x) != expected seed (%x)", h.Seed, want)
		return false, nil
	}
	return true, nil
}

// StakingBlockTimeStampRule enforces the stake dependent delay between a
// staking block and its parent. The stake of the signer is passed as the
// extra argument, a positive *big.Int.
type StakingBlockTimeStampRule struct{}

func (StakingBlockTimeStampRule) Name() string { return "StakingBlockTimeStampRule" }

func (r StakingBlockTimeStampRule) Validate(header, parent types.Header, extra interface{}, errs *RuleErrors) (bool, error) {
	h, ok := header.(*types.StakingHeader)
	if !ok {
		return false, wrongVariant(r.Name(), "a staking header", header)
	}
	stake, ok := extra.(*big.Int)
	if !ok || stake == nil {
		errs.add(r.Name(), "%v: have %T", consensus.ErrMissingStake, extra)
		return false, nil
	}
	delta, err := unity.StakingDelta(h.Seed, h.Difficulty, stake)
	if err != nil {
		errs.add(r.Name(), "%v: have %v", err, stake)
		return false, nil
	}
	if parentTs := parent.Base().Time; h.Time < parentTs+delta {
		errs.add(r.Name(), "timestamp (%d) < parent timestamp (%d) + delta (%d)", h.Time, parentTs, delta)
		return false, nil
	}
	return true, nil
}
