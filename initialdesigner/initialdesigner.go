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

// Package initialdesigner builds the branch-and-bound search's starting
// point: a complete, feasible Design with no indexes and no
// denormalization, one workload-weighted shard key per collection. Adapted
// from designer.py's role of seeding BBSearch with a first candidate before
// the tree walk begins (original_source/src/search/designer.py).
package initialdesigner

import (
	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/designcandidates"
)

// Build returns a complete Design: every collection in cat is added,
// recovered out of the relaxed state, and given the best single-field
// shard key its ranking turned up (the field the workload references most
// selectively), with no indexes and no denormalization. Callers that want
// indexes or denormalization in the seed design add them on top of this
// one; Build's only job is to guarantee IsComplete() before the search's
// first BBNode is ever evaluated (spec.md §4.I).
func Build(cat *catalog.Catalog, candidates designcandidates.Set) *design.Design {
	d := design.New()
	for _, name := range cat.Names() {
		d.AddCollection(name)
		if c, ok := candidates[name]; ok && len(c.ShardKeys) > 0 {
			d.AddShardKey(name, c.ShardKeys[0])
		}
		_ = d.Recover(name)
	}
	return d
}
