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

// Package vrf implements ECVRF-EDWARDS25519-SHA512-TAI (suite 0x03 of
// draft-irtf-cfrg-vrf-03). Keys are ordinary Ed25519 keys, proofs are 80
// bytes and outputs 64 bytes.
package vrf

import (
	"crypto/sha512"
	"errors"

	"filippo.io/edwards25519"

	"github.com/aionnetwork/go-aion/crypto/ed25519"
)

const (
	ProofSize  = 80 // Gamma (32) || c (16) || s (32)
	OutputSize = 64 // SHA-512 digest

	suite         = 0x03
	challengeSize = 16
)

var (
	ErrInvalidProof     = errors.New("vrf: malformed proof")
	ErrInvalidPublicKey = errors.New("vrf: invalid public key")
	ErrInvalidKey       = errors.New("vrf: invalid private key")

	errHashToCurve = errors.New("vrf: hash to curve failed")
)

// Prove computes the VRF proof of alpha under the given Ed25519 private key.
func Prove(sk ed25519.PrivateKey, alpha []byte) ([]byte, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey
	}
	h := sha512.Sum512(sk.Seed())
	x, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, ErrInvalidKey
	}
	pk := new(edwards25519.Point).ScalarBaseMult(x).Bytes()

	H, err := hashToCurve(pk, alpha)
	if err != nil {
		return nil, err
	}
	gamma := new(edwards25519.Point).ScalarMult(x, H)

	nonce := sha512.New()
	nonce.Write(h[32:])
	nonce.Write(H.Bytes())
	k, err := edwards25519.NewScalar().SetUniformBytes(nonce.Sum(nil))
	if err != nil {
		return nil, err
	}
	kB := new(edwards25519.Point).ScalarBaseMult(k)
	kH := new(edwards25519.Point).ScalarMult(k, H)

	cBytes := hashPoints(H, gamma, kB, kH)
	c, err := challengeScalar(cBytes)
	if err != nil {
		return nil, err
	}
	s := edwards25519.NewScalar().MultiplyAdd(c, x, k)

	proof := make([]byte, 0, ProofSize)
	proof = append(proof, gamma.Bytes()...)
	proof = append(proof, cBytes...)
	proof = append(proof, s.Bytes()...)
	return proof, nil
}

// Verify reports whether proof is a valid VRF proof of alpha under pk.
func Verify(pk, alpha, proof []byte) bool {
	ok, _ := verify(pk, alpha, proof)
	return ok
}

func verify(pk, alpha, proof []byte) (bool, error) {
	Y, err := decodePublicKey(pk)
	if err != nil {
		return false, err
	}
	gamma, cBytes, s, err := decodeProof(proof)
	if err != nil {
		return false, err
	}
	c, err := challengeScalar(cBytes)
	if err != nil {
		return false, err
	}
	H, err := hashToCurve(pk, alpha)
	if err != nil {
		return false, err
	}
	negC := edwards25519.NewScalar().Negate(c)

	// U = s*B - c*Y, V = s*H - c*Gamma
	U := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(negC, Y, s)
	sH := new(edwards25519.Point).ScalarMult(s, H)
	cGamma := new(edwards25519.Point).ScalarMult(c, gamma)
	V := new(edwards25519.Point).Subtract(sH, cGamma)

	expect := hashPoints(H, gamma, U, V)
	for i := range expect {
		if expect[i] != cBytes[i] {
			return false, nil
		}
	}
	return true, nil
}

// ProofToHash returns the 64 byte VRF output of a well formed proof. It does
// not verify the proof.
func ProofToHash(proof []byte) ([]byte, error) {
	gamma, _, _, err := decodeProof(proof)
	if err != nil {
		return nil, err
	}
	d := sha512.New()
	d.Write([]byte{suite, 0x03})
	d.Write(new(edwards25519.Point).MultByCofactor(gamma).Bytes())
	return d.Sum(nil), nil
}

func decodePublicKey(pk []byte) (*edwards25519.Point, error) {
	if len(pk) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	Y, err := new(edwards25519.Point).SetBytes(pk)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	// Reject keys of small order.
	if new(edwards25519.Point).MultByCofactor(Y).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, ErrInvalidPublicKey
	}
	return Y, nil
}

func decodeProof(proof []byte) (*edwards25519.Point, []byte, *edwards25519.Scalar, error) {
	if len(proof) != ProofSize {
		return nil, nil, nil, ErrInvalidProof
	}
	gamma, err := new(edwards25519.Point).SetBytes(proof[:32])
	if err != nil {
		return nil, nil, nil, ErrInvalidProof
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(proof[32+challengeSize:])
	if err != nil {
		return nil, nil, nil, ErrInvalidProof
	}
	return gamma, proof[32 : 32+challengeSize], s, nil
}

// hashToCurve maps (pk, alpha) to a curve point by try-and-increment.
func hashToCurve(pk, alpha []byte) (*edwards25519.Point, error) {
	for ctr := 0; ctr < 256; ctr++ {
		d := sha512.New()
		d.Write([]byte{suite, 0x01})
		d.Write(pk)
		d.Write(alpha)
		d.Write([]byte{byte(ctr)})
		digest := d.Sum(nil)

		p, err := new(edwards25519.Point).SetBytes(digest[:32])
		if err != nil {
			continue
		}
		p.MultByCofactor(p)
		if p.Equal(edwards25519.NewIdentityPoint()) == 1 {
			continue
		}
		return p, nil
	}
	return nil, errHashToCurve
}

// hashPoints returns the 16 byte challenge over the given points.
func hashPoints(points ...*edwards25519.Point) []byte {
	d := sha512.New()
	d.Write([]byte{suite, 0x02})
	for _, p := range points {
		d.Write(p.Bytes())
	}
	return d.Sum(nil)[:challengeSize]
}

func challengeScalar(c []byte) (*edwards25519.Scalar, error) {
	var buf [32]byte
	copy(buf[:], c)
	return edwards25519.NewScalar().SetCanonicalBytes(buf[:])
}
