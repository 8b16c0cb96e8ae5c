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

package crypto

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/aionnetwork/go-aion/common"
)

func TestKeccak256Hash(t *testing.T) {
	want := hexutil.MustDecode("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if have := Keccak256(); !bytes.Equal(have, want) {
		t.Fatalf("empty keccak mismatch: have %x, want %x", have, want)
	}
	if have := Keccak256Hash([]byte("ab"), []byte("c")); have != Keccak256Hash([]byte("abc")) {
		t.Fatalf("keccak is not a hash over the concatenated inputs")
	}
}

func TestBlake2b256(t *testing.T) {
	want := hexutil.MustDecode("0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8")
	if have := Blake2b256(); !bytes.Equal(have, want) {
		t.Fatalf("empty blake2b mismatch: have %x, want %x", have, want)
	}
	if !bytes.Equal(Blake2b256([]byte("a"), []byte("b")), Blake2b256([]byte("ab"))) {
		t.Fatalf("blake2b is not a hash over the concatenated inputs")
	}
}

func TestPubkeyToAddress(t *testing.T) {
	pub := hexutil.MustDecode("0xd75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a")
	addr := PubkeyToAddress(pub)
	if addr[0] != common.AccountPrefix {
		t.Fatalf("address prefix mismatch: have %#x", addr[0])
	}
	if !bytes.Equal(addr[1:], Blake2b256(pub)[1:]) {
		t.Fatalf("address body mismatch: %x", addr)
	}
}

func TestLoadEd25519File(t *testing.T) {
	dir, err := ioutil.TempDir("", "aion-key")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	_, key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "key")
	if err := SaveEd25519(file, key); err != nil {
		t.Fatalf("failed to save key: %v", err)
	}
	loaded, err := LoadEd25519(file)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	if !bytes.Equal(loaded, key) {
		t.Fatalf("loaded key mismatch")
	}

	// Trailing newlines are tolerated, garbage is not.
	ioutil.WriteFile(file, append([]byte(hexutil.Encode(key.Seed())[2:]), '\n', '\n'), 0600)
	if _, err := LoadEd25519(file); err != nil {
		t.Fatalf("newline terminated key rejected: %v", err)
	}
	ioutil.WriteFile(file, append([]byte(hexutil.Encode(key.Seed())[2:]), 'x'), 0600)
	if _, err := LoadEd25519(file); err == nil {
		t.Fatalf("key with trailing garbage accepted")
	}
	ioutil.WriteFile(file, []byte("abcd"), 0600)
	if _, err := LoadEd25519(file); err == nil {
		t.Fatalf("short key accepted")
	}
}
