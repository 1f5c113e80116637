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

package costmodel

import (
	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/nodeestimator"
	"github.com/launix-de/d4/workload"
)

// NetworkComponent estimates the network round-trip cost of a design's
// choices: every operation that isn't merged away by denormalization adds
// |NodeEstimator(D, op)| to the running total. Grounded on
// original_source/src/costmodel/costmodel.py's partialNetworkCost.
type NetworkComponent struct {
	estimator *nodeestimator.Estimator
}

// NewNetworkComponent returns a NetworkComponent sharing estimator's node
// attribution with the other cost components.
func NewNetworkComponent(estimator *nodeestimator.Estimator) *NetworkComponent {
	return &NetworkComponent{estimator: estimator}
}

// netStats is one collection's raw (summed node count, processed op count)
// tally, matching partialNetworkCost's (result, query_count) pair.
type netStats struct {
	total float64
	ops   int
}

// Cost returns sum(|NodeEstimator(D,op)|) / (query_count · N) over every
// session in wl (spec.md §4.G), 0 if no operation was counted.
func (nc *NetworkComponent) Cost(d *design.Design, cat *catalog.Catalog, wl *workload.Workload) float64 {
	var total float64
	var n int
	for _, s := range nc.CostByCollection(d, cat, wl) {
		total += s.total
		n += s.ops
	}
	if n == 0 {
		return 0
	}
	return total / float64(n*nc.estimator.NumNodes)
}

// CostByCollection returns each collection's raw (summed node count,
// processed op count) tally, bucketed by the operation's OWN collection —
// see DiskComponent.CostByCollection for why this shape supports
// incremental caching across nearby candidate designs. The session-ordered
// merge walk below still runs over the whole session (merge decisions are
// inherently cross-collection), but each op's contribution is filed under
// its own collection's bucket.
func (nc *NetworkComponent) CostByCollection(d *design.Design, cat *catalog.Catalog, wl *workload.Workload) map[string]netStats {
	out := make(map[string]netStats)
	for si := range wl.Sessions {
		session := &wl.Sessions[si]
		var previous *workload.Operation
		for oi := range session.Operations {
			op := &session.Operations[oi]

			// Collection not in the design: skip entirely, and don't let it
			// participate in merge detection (costmodel.py: the `continue`
			// runs before `previous_op = op`).
			if !d.HasCollection(op.Collection) {
				continue
			}
			col := cat.Get(op.Collection)
			if col == nil {
				continue
			}

			process := true
			if previous != nil {
				parent := d.GetDenormalizationParent(op.Collection)
				switch {
				case parent == nil:
					process = true
				case previous.Type != workload.OpQuery || op.Type != workload.OpQuery:
					process = true
				case previous.Collection != *parent:
					process = true
				default:
					process = false // merged into the preceding same-session parent QUERY
				}
			}

			if process {
				s := out[op.Collection]
				s.ops++
				s.total += float64(len(nc.estimator.EstimateNodes(d, col, op)))
				out[op.Collection] = s
			}
			previous = op
		}
	}
	return out
}
