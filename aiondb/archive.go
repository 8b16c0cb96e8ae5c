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

package aiondb

// Archive is a two tier store. Reads fall back from the hot tier to the
// archive tier, while writes and deletes only touch the hot tier. The archive
// tier is filled explicitly through ArchiveDatabase.
type Archive struct {
	KeyValueStore
	archive KeyValueStore
}

// NewArchive wraps a hot store and its archive tier.
func NewArchive(hot, archive KeyValueStore) *Archive {
	return &Archive{KeyValueStore: hot, archive: archive}
}

// ArchiveDatabase returns the cold tier.
func (a *Archive) ArchiveDatabase() KeyValueStore {
	return a.archive
}

// Has reports whether either tier holds the key.
func (a *Archive) Has(key []byte) (bool, error) {
	ok, err := a.KeyValueStore.Has(key)
	if err != nil || ok {
		return ok, err
	}
	return a.archive.Has(key)
}

// Get retrieves the key from the hot tier, then from the archive.
func (a *Archive) Get(key []byte) ([]byte, error) {
	val, err := a.KeyValueStore.Get(key)
	if err == nil {
		return val, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	return a.archive.Get(key)
}

// Close closes both tiers, returning the first error.
func (a *Archive) Close() error {
	err := a.KeyValueStore.Close()
	if aerr := a.archive.Close(); err == nil {
		err = aerr
	}
	return err
}
