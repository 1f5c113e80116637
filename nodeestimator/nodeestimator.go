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

// Package nodeestimator answers, for a Design and an Operation, which cluster
// node IDs would receive that operation (spec.md §4.C). Adapted from
// original_source/src/costmodel/nodeestimator.py: EstimateNodes maps each
// shard key field, in order, to a node bucket and combines the buckets into
// one node per content document.
package nodeestimator

import (
	"sort"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/hashutil"
	"github.com/launix-de/d4/histogram"
	"github.com/launix-de/d4/workload"
)

// Estimator estimates, for one collection's shard key, which of NumNodes
// cluster nodes hold documents touched by a given operation.
type Estimator struct {
	NumNodes   int
	nodeCounts *histogram.Histogram[int]
}

// New returns an Estimator over a cluster of numNodes nodes.
func New(numNodes int) *Estimator {
	if numNodes < 1 {
		numNodes = 1
	}
	return &Estimator{NumNodes: numNodes, nodeCounts: histogram.New[int]()}
}

// NodeCounts returns how many times EstimateNodes attributed an operation
// to each node so far, across every call made on this Estimator.
func (e *Estimator) NodeCounts() *histogram.Histogram[int] { return e.nodeCounts }

// EstimateNodes returns the sorted, deduplicated set of node IDs estimated
// to receive op, given d's shard key choice for col. When col has no shard
// key in d, every request is routed to the designated primary node, node 0
// (spec.md §4.C rule 1; nodeestimator.py: "if len(shardingKeys)==0:
// results.add(0)" — no shard key means no way to distribute, not a reason
// to broadcast). The result is recorded into NodeCounts for later
// reporting.
func (e *Estimator) EstimateNodes(d *design.Design, col *catalog.Collection, op *workload.Operation) []int {
	shardKey := d.ShardKeys(col.Name)
	if len(shardKey) == 0 {
		e.nodeCounts.Put(0)
		return []int{0}
	}

	nodes := map[int]bool{}
	for _, content := range workload.Contents(op) {
		for _, n := range e.computeTouchedNode(shardKey, op, content) {
			nodes[n] = true
		}
	}
	if len(nodes) == 0 {
		// no content documents (e.g. a DELETE with only a predicate, or a
		// scan): fall back to broadcasting, matching nodeestimator.py's
		// "no values to hash, so hit every node" behavior.
		return e.allNodes()
	}
	out := make([]int, 0, len(nodes))
	for n := range nodes {
		out = append(out, n)
		e.nodeCounts.Put(n)
	}
	sort.Ints(out)
	return out
}

func (e *Estimator) allNodes() []int {
	out := make([]int, e.NumNodes)
	for i := range out {
		out[i] = i
		e.nodeCounts.Put(i)
	}
	return out
}

// computeTouchedNode resolves the node(s) touched by one content document
// against one shard key. A REGEX predicate or a missing value on any
// shard-key field touches every node. Otherwise each field is mapped to a
// bucket by computeTouchedRange and the buckets are combined mixed-radix
// style, floor(Σ bucket_i·N^i / N^(k-1)) for a k-field key, which for a
// single-field key is that field's bucket (matching nodeestimator.py's
// computeTouchedNode). Nothing is recorded into NodeCounts here;
// EstimateNodes records the final node set once.
func (e *Estimator) computeTouchedNode(shardKey design.Key, op *workload.Operation, content map[string]any) []int {
	values := workload.FieldValues(shardKey, content)
	for i, field := range shardKey {
		if workload.IsRegex(op, field) || values[i] == nil {
			out := make([]int, e.NumNodes)
			for n := range out {
				out[n] = n
			}
			return out
		}
	}
	n := uint64(e.NumNodes)
	var sum, radix uint64 = 0, 1
	for i, field := range shardKey {
		sum += uint64(e.computeTouchedRange(field, op, values[i])[0]) * radix
		if i < len(shardKey)-1 {
			radix *= n
		}
	}
	return []int{int(sum / radix)}
}

// computeTouchedRange estimates the touched node set for a single shard-key
// field when explicit range boundaries are known (e.g. a range-partitioned
// shard key). This project has no explicit range-partitioning config (only
// hashed shard keys, spec.md §4.A "cluster config lists node count, no
// range table"), so this always falls back to the hash branch of
// nodeestimator.py's computeTouchedRange. computeTouchedNode calls it once
// per shard-key field.
func (e *Estimator) computeTouchedRange(field string, op *workload.Operation, value any) []int {
	if workload.IsRegex(op, field) || value == nil {
		return e.allNodes()
	}
	h := hashutil.StableHash(value)
	return []int{int(h % uint64(e.NumNodes))}
}

// GuessNodes estimates the *number* of nodes an operation touches without
// enumerating content documents, for use when only predicate selectivity is
// known (spec.md §12, supplementing nodeestimator.py's guessNodes). equality
// predicates on every shard-key field narrow to one node; any range or regex
// predicate on a shard-key field, or no shard key at all, broadcasts.
func (e *Estimator) GuessNodes(d *design.Design, col *catalog.Collection, op *workload.Operation) int {
	shardKey := d.ShardKeys(col.Name)
	if len(shardKey) == 0 {
		return e.NumNodes
	}
	for _, field := range shardKey {
		pred, ok := op.Predicates[field]
		if !ok || pred != workload.PredEquality {
			return e.NumNodes
		}
	}
	return 1
}
