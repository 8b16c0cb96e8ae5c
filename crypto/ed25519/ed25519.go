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

// Package ed25519 signs with the standard library and verifies with the
// ZIP-215 rules, so that every node agrees on the validity of edge-case
// signatures.
package ed25519

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"io"

	consensus "github.com/hdevalence/ed25519consensus"
)

const (
	SeedSize       = stded25519.SeedSize
	PublicKeySize  = stded25519.PublicKeySize
	PrivateKeySize = stded25519.PrivateKeySize
	SignatureSize  = stded25519.SignatureSize
)

type (
	PublicKey  = stded25519.PublicKey
	PrivateKey = stded25519.PrivateKey
)

// NewKeyFromSeed calculates a private key from a 32 byte seed.
func NewKeyFromSeed(seed []byte) PrivateKey {
	return stded25519.NewKeyFromSeed(seed)
}

// GenerateKey generates a key pair using r, or crypto/rand when r is nil.
func GenerateKey(r io.Reader) (PublicKey, PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	return stded25519.GenerateKey(r)
}

// Sign signs the message with privateKey.
func Sign(privateKey PrivateKey, message []byte) []byte {
	return stded25519.Sign(privateKey, message)
}

// Verify reports whether sig is a valid signature of message by publicKey.
// Malformed keys or signatures are reported as invalid.
func Verify(publicKey []byte, message, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return consensus.Verify(PublicKey(publicKey), message, sig)
}
