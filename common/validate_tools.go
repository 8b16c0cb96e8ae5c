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

package common

import "fmt"

// ValidateLength returns an error if data is not exactly want bytes long.
func ValidateLength(data []byte, want int, msg string) error {
	if len(data) != want {
		return fmt.Errorf("%s must be %d bytes, have %d", msg, want, len(data))
	}
	return nil
}

// ValidateMaxLength returns an error if data is longer than max bytes.
func ValidateMaxLength(data []byte, max int, msg string) error {
	if len(data) > max {
		return fmt.Errorf("%s exceeds %d bytes, have %d", msg, max, len(data))
	}
	return nil
}

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

// ConcatBytes joins the given slices into a freshly allocated one.
func ConcatBytes(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
