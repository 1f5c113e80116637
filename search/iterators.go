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

package search

import "github.com/launix-de/d4/design"

// simpleKeyIterator walks a collection's denormalization-parent candidates,
// always yielding "no parent" (nil) first. Grounded on bbsearch.py's
// SimpleKeyIterator.
type simpleKeyIterator struct {
	values []string
	idx    int // -1 before the leading nil, then index into values
}

func newSimpleKeyIterator(values []string) *simpleKeyIterator {
	return &simpleKeyIterator{values: values, idx: -1}
}

func (it *simpleKeyIterator) hasNext() bool {
	return it.idx < len(it.values)
}

func (it *simpleKeyIterator) next() *string {
	if it.idx == -1 {
		it.idx = 0
		return nil
	}
	v := it.values[it.idx]
	it.idx++
	return &v
}

// compoundKeyIterator walks a collection's shard-key or index candidates in
// increasing size order (as designcandidates.Generate already produces
// them), skipping any candidate that extends a prefix already found
// infeasible. Grounded on bbsearch.py's CompoundKeyIterator and its
// precomputed invalidCombinations redundant-prefix pruning.
type compoundKeyIterator struct {
	keys      []design.Key
	idx       int
	infeasible []design.Key
}

func newCompoundKeyIterator(keys []design.Key) *compoundKeyIterator {
	return &compoundKeyIterator{keys: keys}
}

func (it *compoundKeyIterator) hasNext() bool {
	it.skipInfeasible()
	return it.idx < len(it.keys)
}

func (it *compoundKeyIterator) next() design.Key {
	it.skipInfeasible()
	k := it.keys[it.idx]
	it.idx++
	return k
}

// markInfeasible records that key violated a feasibility constraint, so any
// later candidate extending key as a prefix is skipped without being tried
// — extending an infeasible prefix can only still be infeasible for the
// same structural reason (e.g. a shard key field that doesn't exist).
func (it *compoundKeyIterator) markInfeasible(key design.Key) {
	it.infeasible = append(it.infeasible, append(design.Key(nil), key...))
}

func (it *compoundKeyIterator) skipInfeasible() {
	for it.idx < len(it.keys) && it.hasInfeasiblePrefix(it.keys[it.idx]) {
		it.idx++
	}
}

func (it *compoundKeyIterator) hasInfeasiblePrefix(k design.Key) bool {
	for _, p := range it.infeasible {
		if len(p) <= len(k) && p.Equal(k[:len(p)]) {
			return true
		}
	}
	return false
}
