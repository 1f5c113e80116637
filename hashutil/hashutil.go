/*
Copyright (C) 2026  d4 Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package hashutil provides the deterministic, process-identity-independent
// hash used to place shard values onto nodes and to derive synthetic
// document identities for the LRU page-buffer simulator.
package hashutil

import (
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// seed is an arbitrary fixed constant: any fixed value works, as long as it
// never changes between runs, since StableHash's whole contract is
// reproducibility across process invocations.
const seed = 0x64345f736565643f

// StableHash hashes the string form of v to a 64-bit digest. It must never
// depend on map iteration order, pointer identity or process randomness —
// the same value always hashes to the same digest, in this run or the next.
func StableHash(v any) uint64 {
	return xxhash.ChecksumString64S(toString(v), seed)
}

// StableHashTuple hashes an ordered tuple of values as a single digest,
// order-sensitive: (a, b) and (b, a) hash differently.
func StableHashTuple(values ...any) uint64 {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(toString(v))
		b.WriteByte(0) // separator so ("ab","c") != ("a","bc")
	}
	return xxhash.ChecksumString64S(b.String(), seed)
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
