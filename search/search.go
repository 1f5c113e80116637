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

// Package search is the branch-and-bound engine: given a starting Design and
// the per-collection candidates designcandidates.Generate produced, it walks
// the tree of (denormParent, shardKey, indexSet) choices one collection at a
// time, pruning any branch whose optimistic bound is already worse than the
// best complete design found so far. Adapted from
// original_source/src/search/bbsearch.py's BBSearch/BBNode.
package search

import (
	"context"

	"github.com/google/uuid"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/designcandidates"
	"github.com/launix-de/d4/workload"
)

// MaxIndexesPerCollection bounds how many indexes a single collection may
// carry in one candidate design, keeping the index-subset branching factor
// tractable (spec.md §4.I). bbsearch.py has an equivalent cap expressed as
// a recursion-depth limit on its own index-combination generator.
const MaxIndexesPerCollection = 2

// Options configures one BBSearch run.
type Options struct {
	// LeaderboardSize is how many of the cheapest complete designs to keep.
	LeaderboardSize int
	// Order fixes the collection processing order; callers should pass
	// catalog.Catalog.Names() (or another deterministic order) so repeated
	// runs over the same input are reproducible (spec.md §4.I).
	Order []string
}

// BBSearch walks the branch-and-bound tree once per Run call. Its
// Leaderboard and its best-so-far carry over from one Run call to the next;
// RunParallel (parallel.go) creates one Model per worker to keep cost-model
// memoization private, matching the concurrency model in SPEC_FULL §5.
type BBSearch struct {
	cat        *catalog.Catalog
	wl         *workload.Workload
	candidates designcandidates.Set
	model      *costmodel.Model
	opts       Options
	shared     *SharedBest

	board *Leaderboard
}

// New returns a BBSearch over cat/wl, scoring candidate designs with model
// and branching over candidates. Its best-cost tracking is private to this
// BBSearch; use NewWithShared to have several BBSearch instances (e.g. one
// per RunParallel worker) race for the same best-so-far.
func New(cat *catalog.Catalog, wl *workload.Workload, candidates designcandidates.Set, model *costmodel.Model, opts Options) *BBSearch {
	return NewWithShared(cat, wl, candidates, model, opts, NewSharedBest())
}

// NewWithShared is New, but the resulting BBSearch prunes and commits
// against shared rather than an instance-private best, so multiple workers
// evaluating disjoint branches of the same tree converge on one true best
// design (SPEC_FULL §5 / parallel.go's RunParallel).
func NewWithShared(cat *catalog.Catalog, wl *workload.Workload, candidates designcandidates.Set, model *costmodel.Model, opts Options, shared *SharedBest) *BBSearch {
	if len(opts.Order) == 0 {
		opts.Order = cat.Names()
	}
	if opts.LeaderboardSize < 1 {
		opts.LeaderboardSize = 1
	}
	return &BBSearch{
		cat:        cat,
		wl:         wl,
		candidates: candidates,
		model:      model,
		opts:       opts,
		shared:     shared,
		board:      NewLeaderboard(opts.LeaderboardSize),
	}
}

// RunID is an opaque identifier for one search run, used to correlate a
// report with its log lines and dashboard feed (SPEC_FULL §10.2, §12).
// Generated the way fast_uuid.go's low-entropy deterministic generator
// illustrates the pattern (sequential, collision-free within a process),
// but via the standard random UUID generator: a search run ID has no
// determinism requirement, unlike the teacher's storage engine row IDs.
type RunID = uuid.UUID

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID { return uuid.New() }

// Run walks the branch-and-bound tree starting from seed (expected to be
// IsComplete(); typically initialdesigner.Build's output) and returns the
// cheapest complete design found plus its cost. ctx cancellation stops the
// walk early, returning whatever best candidate has been found so far.
func (s *BBSearch) Run(ctx context.Context, seed *design.Design) (*design.Design, float64) {
	s.solve(ctx, 0, seed)
	if d, cost, ok := s.shared.Get(); ok {
		return d, cost
	}
	return seed, s.model.Evaluate(seed, s.cat, s.wl)
}

// Leaderboard returns the top Options.LeaderboardSize designs seen across
// every Run call made on this BBSearch so far.
func (s *BBSearch) Leaderboard() *Leaderboard { return s.board }

func (s *BBSearch) solve(ctx context.Context, depth int, d *design.Design) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(s.opts.Order) {
		cost := s.model.Evaluate(d, s.cat, s.wl)
		s.commit(d, cost)
		return
	}

	// Bound: the cost of d as it stands (remaining collections still carry
	// whatever seed assigned them) is an optimistic stand-in for "best
	// achievable below this node" — not a formally admissible lower bound,
	// since adding indexes can only reduce disk cost further, but cheap to
	// compute and effective in practice for pruning obviously-worse branches
	// early (bbsearch.py's BBNode.evaluate serves the same role).
	if s.prune(s.model.Evaluate(d, s.cat, s.wl)) {
		return
	}

	col := s.opts.Order[depth]
	cands := s.candidates[col]
	if cands == nil {
		s.solve(ctx, depth+1, d)
		return
	}

	denormIter := newSimpleKeyIterator(cands.DenormTo)
	for denormIter.hasNext() {
		parent := denormIter.next()
		branch := d.Copy()
		if err := branch.SetDenormalizationParent(col, parent); err != nil {
			continue
		}
		if !isAcyclic(branch, col) {
			continue
		}

		if parent != nil {
			branch.AddShardKey(col, nil) // embedded: no shard key of its own
			s.branchIndexes(ctx, depth, col, branch, cands.Indexes)
			continue
		}

		shardIter := newCompoundKeyIterator(cands.ShardKeys)
		if !shardIter.hasNext() {
			branch.AddShardKey(col, nil)
			s.branchIndexes(ctx, depth, col, branch, cands.Indexes)
			continue
		}
		for shardIter.hasNext() {
			key := shardIter.next()
			shardBranch := branch.Copy()
			if err := shardBranch.AddShardKey(col, key); err != nil {
				shardIter.markInfeasible(key)
				continue
			}
			s.branchIndexes(ctx, depth, col, shardBranch, cands.Indexes)
		}
	}
}

func (s *BBSearch) branchIndexes(ctx context.Context, depth int, col string, d *design.Design, indexes []design.Key) {
	for _, idxSet := range indexSetCandidates(indexes) {
		branch := d.Copy()
		if err := branch.SetIndexes(col, idxSet); err != nil {
			continue
		}
		s.solve(ctx, depth+1, branch)
	}
}

func (s *BBSearch) prune(bound float64) bool {
	return s.shared.WorseThanBest(bound)
}

func (s *BBSearch) commit(d *design.Design, cost float64) {
	s.board.Add(d, cost)
	s.shared.Offer(d, cost)
}

// isAcyclic reports whether col's denormalization ancestor chain is free of
// cycles, walking GetDenormalizationParent with an explicit seen-set rather
// than relying on Design.GetDenormalizationHierarchy's defensive truncation
// (which silently returns a partial chain instead of signaling infeasible).
func isAcyclic(d *design.Design, col string) bool {
	seen := map[string]bool{col: true}
	cur := col
	for {
		parent := d.GetDenormalizationParent(cur)
		if parent == nil {
			return true
		}
		if seen[*parent] {
			return false
		}
		seen[*parent] = true
		cur = *parent
	}
}

// indexSetCandidates enumerates the index sets worth trying for one
// collection: none, each single candidate alone, and (up to
// MaxIndexesPerCollection) every pair — a bounded subset of the full power
// set, matching the branching-factor cap bbsearch.py's index generator
// applies.
func indexSetCandidates(indexes []design.Key) [][]design.Key {
	out := [][]design.Key{{}}
	for _, idx := range indexes {
		out = append(out, []design.Key{idx})
	}
	if MaxIndexesPerCollection >= 2 {
		for i := 0; i < len(indexes); i++ {
			for j := i + 1; j < len(indexes); j++ {
				out = append(out, []design.Key{indexes[i], indexes[j]})
			}
		}
	}
	return out
}
