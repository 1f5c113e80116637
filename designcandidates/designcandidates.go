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

// Package designcandidates narrows the search space the branch-and-bound
// tree actually explores: for each collection, which shard keys, indexes
// and denormalization parents are worth trying at all. Adapted from
// original_source/src/search/designer.py's generateDesignCandidates and its
// __remove_single_keys_with_low_selectivity__ filter.
package designcandidates

import (
	"github.com/google/btree"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/workload"
)

// MinSelectivity is the floor below which a field is dropped from the
// ranked list that shard-key and index candidates are built from, alone or
// as part of a compound (it would scatter reads too broadly to ever win
// against a more selective choice).
// designer.py hardcodes an equivalent threshold; kept as a named constant
// here rather than buried in the filter so FieldRanking callers can reuse
// it for reporting.
const MinSelectivity = 0.1

// MaxCompoundSize bounds how many fields a generated compound (shard key or
// index) candidate may combine, keeping the branch-and-bound tree's
// per-collection branching factor tractable (spec.md §4.I, §9 Design
// Notes).
const MaxCompoundSize = 3

// fieldRank orders one collection's fields by how often the workload
// references them (equality predicates weighted highest, since those are
// what make a shard key or index actually selective), backed by a
// google/btree so ties resolve deterministically by field name rather than
// by map iteration order.
type fieldRank struct {
	field       string
	score       float64
	selectivity float64
}

func (f *fieldRank) Less(than btree.Item) bool {
	o := than.(*fieldRank)
	if f.score != o.score {
		return f.score > o.score // higher score sorts first
	}
	return f.field < o.field
}

// FieldRanking is a collection's fields ordered by workload usage score
// (see fieldRank), most promising first, ties broken by field name.
type FieldRanking struct {
	tree   *btree.BTree
	byName map[string]*fieldRank
}

func newFieldRanking() *FieldRanking {
	return &FieldRanking{tree: btree.New(8), byName: make(map[string]*fieldRank)}
}

func (fr *FieldRanking) bump(field string, selectivity float64, weight float64) {
	r, ok := fr.byName[field]
	if !ok {
		r = &fieldRank{field: field, selectivity: selectivity}
		fr.byName[field] = r
	} else {
		fr.tree.Delete(r)
	}
	r.score += weight
	r.selectivity = selectivity
	fr.tree.ReplaceOrInsert(r)
}

// Fields returns every ranked field, most promising first.
func (fr *FieldRanking) Fields() []string {
	out := make([]string, 0, fr.tree.Len())
	fr.tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(*fieldRank).field)
		return true
	})
	return out
}

// Selectivity returns field's workload-observed selectivity, or 0 if it was
// never ranked.
func (fr *FieldRanking) Selectivity(field string) float64 {
	if r, ok := fr.byName[field]; ok {
		return r.selectivity
	}
	return 0
}

// Candidates is the filtered set of shard-key, index and denormalization
// choices worth exploring for one collection.
type Candidates struct {
	ShardKeys []design.Key
	Indexes   []design.Key
	DenormTo  []string // candidate parent collection names
	Ranking   *FieldRanking
}

// Set maps collection name -> its Candidates.
type Set map[string]*Candidates

// Generate builds a Set entry for every collection in cat (a collection the
// workload never touches gets empty candidate lists), grounded on
// designer.py's candidate generation: rank fields by how the workload uses
// them, drop fields below MinSelectivity, then build compound candidates by
// combining the top
// MaxCompoundSize ranked fields in ranked order (designer.py builds
// compounds the same way — by prefixing further fields onto the
// highest-ranked ones rather than trying every permutation).
func Generate(cat *catalog.Catalog, wl *workload.Workload) Set {
	rankings := make(map[string]*FieldRanking)
	denormVotes := make(map[string]map[string]int)

	for si := range wl.Sessions {
		for oi := range wl.Sessions[si].Operations {
			op := &wl.Sessions[si].Operations[oi]
			col := cat.Get(op.Collection)
			if col == nil {
				continue
			}
			fr, ok := rankings[op.Collection]
			if !ok {
				fr = newFieldRanking()
				rankings[op.Collection] = fr
			}
			for field, pred := range op.Predicates {
				sel := fieldSelectivity(col, field)
				weight := 1.0
				if pred == workload.PredEquality {
					weight = 3.0
				}
				fr.bump(field, sel, weight)
			}
			for field := range op.QueryFields {
				if f, ok := col.GetField(field); ok && f.ParentCol != "" {
					if denormVotes[op.Collection] == nil {
						denormVotes[op.Collection] = make(map[string]int)
					}
					denormVotes[op.Collection][f.ParentCol]++
				}
			}
		}
	}

	out := make(Set)
	for _, col := range cat.All() {
		fr, ok := rankings[col.Name]
		if !ok {
			fr = newFieldRanking()
		}
		c := &Candidates{Ranking: fr}

		ranked := filterLowSelectivity(fr)
		c.ShardKeys = compoundCandidates(ranked)
		c.Indexes = compoundCandidates(ranked)

		for parent, votes := range denormVotes[col.Name] {
			if votes > 0 && cat.Has(parent) {
				c.DenormTo = append(c.DenormTo, parent)
			}
		}
		insertionSortStrings(c.DenormTo)

		out[col.Name] = c
	}
	return out
}

func fieldSelectivity(col *catalog.Collection, field string) float64 {
	if f, ok := col.GetField(field); ok {
		return f.Selectivity
	}
	return 0
}

// filterLowSelectivity drops any field ranked on its own merit below
// MinSelectivity (designer.py's __remove_single_keys_with_low_selectivity__),
// but always keeps at least the single top-ranked field: a collection with
// no selective fields at all still needs a best-effort candidate to fall
// back to, matching designer.py's "never return an empty candidate list for
// a collection actually present in the workload" behavior.
func filterLowSelectivity(fr *FieldRanking) []string {
	all := fr.Fields()
	var kept []string
	for _, f := range all {
		if fr.Selectivity(f) >= MinSelectivity {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 && len(all) > 0 {
		kept = all[:1]
	}
	return kept
}

// compoundCandidates returns every non-empty ordered prefix of ranked, up to
// MaxCompoundSize fields, each prefix being one candidate key — the
// increasing-size enumeration the branch-and-bound iterators
// (SimpleKeyIterator/CompoundKeyIterator) walk over.
func compoundCandidates(ranked []string) []design.Key {
	var out []design.Key
	limit := len(ranked)
	if limit > MaxCompoundSize {
		limit = MaxCompoundSize
	}
	for size := 1; size <= limit; size++ {
		out = append(out, append(design.Key(nil), ranked[:size]...))
	}
	return out
}

func insertionSortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
