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

package leveldb

import (
	"testing"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/aionnetwork/go-aion/aiondb"
	"github.com/aionnetwork/go-aion/aiondb/dbtest"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() aiondb.KeyValueStore {
			db, err := leveldb.Open(storage.NewMemStorage(), nil)
			if err != nil {
				t.Fatal(err)
			}
			return &Database{
				db:              db,
				batchWriteMeter: metrics.NilMeter{},
			}
		})
	})
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, 0, 0, "test/", false)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	db, err = New(dir, 0, 0, "test/", true)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
	if val, err := db.Get([]byte("key")); err != nil || string(val) != "value" {
		t.Fatalf("value lost across reopen: %q %v", val, err)
	}
}
