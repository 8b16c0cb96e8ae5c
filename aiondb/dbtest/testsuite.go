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
// Package dbtest holds the behaviour checks shared by every store
// implementation.
package dbtest

import (
	"bytes"
	"testing"

	"github.com/aionnetwork/go-aion/aiondb"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() aiondb.KeyValueStore) {
	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
		if _, err := db.Get(key); err != aiondb.ErrNotFound {
			t.Errorf("expected not found, got %v", err)
		}

		value := []byte("hello world")
		if err := db.Put(key, value); err != nil {
			t.Error(err)
		}
		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if !got {
			t.Errorf("wrong value: %t", got)
		}
		if got, err := db.Get(key); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, value) {
			t.Errorf("wrong value: %q", got)
		}

		if err := db.Delete(key); err != nil {
			t.Error(err)
		}
		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
		if empty, err := db.IsEmpty(); err != nil || !empty {
			t.Errorf("store not empty after delete: %t %v", empty, err)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.PutBatch(map[string][]byte{"1": []byte("a"), "2": []byte("b"), "3": []byte("c")}); err != nil {
			t.Fatal(err)
		}
		if err := db.PutBatch(map[string][]byte{"1": nil, "4": []byte("d")}); err != nil {
			t.Fatal(err)
		}
		if err := db.DeleteBatch([][]byte{[]byte("2")}); err != nil {
			t.Fatal(err)
		}
		keys, err := db.Keys()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"3", "4"}
		if len(keys) != len(want) {
			t.Fatalf("key count mismatch: have %d, want %d", len(keys), len(want))
		}
		for i, key := range keys {
			if string(key) != want[i] {
				t.Errorf("key %d: have %q, want %q", i, key, want[i])
			}
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.Put([]byte("k"), []byte("v")); err != nil {
			t.Fatal(err)
		}
		got, _ := db.Get([]byte("k"))
		got[0] = 'x'
		if again, _ := db.Get([]byte("k")); string(again) != "v" {
			t.Fatalf("stored value modified through returned slice: %q", again)
		}
	})
}
