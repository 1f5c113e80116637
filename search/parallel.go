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

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/designcandidates"
	"github.com/launix-de/d4/workload"
)

// SharedBest is the monotone best-cost/best-design pair several BBSearch
// workers race to update, each holding their own Model and buffer state
// (disk/skew/network simulation is never shared across goroutines) but
// pruning and committing against the same winner (SPEC_FULL §5).
type SharedBest struct {
	mu    sync.Mutex
	have  bool
	cost  float64
	d     *design.Design
}

// NewSharedBest returns an empty SharedBest.
func NewSharedBest() *SharedBest { return &SharedBest{} }

// WorseThanBest reports whether bound is worse (higher) than the current
// best, i.e. whether a branch bounded by it can be pruned. An empty
// SharedBest prunes nothing.
func (s *SharedBest) WorseThanBest(bound float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have && bound > s.cost
}

// Offer replaces the best if cost improves on it.
func (s *SharedBest) Offer(d *design.Design, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have || cost < s.cost {
		s.have = true
		s.cost = cost
		s.d = d
	}
}

// Get returns the current best, or ok=false if nothing has been offered
// yet.
func (s *SharedBest) Get() (*design.Design, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d, s.cost, s.have
}

// RunParallel splits the branch-and-bound tree across the first collection
// in opts.Order's candidate choices — one goroutine per (denorm parent,
// shard key, index set) choice for that collection, each then running the rest of the
// tree below it sequentially — and returns the best design any worker
// found, all of them pruning against one SharedBest (bbsearch.py's search
// is single-threaded; this is the outer parallelism layer SPEC_FULL §11
// adds on top of it, the way server-node-golang's request handling fans out
// goroutines over independent units of work). ctx cancellation (e.g. a
// timeout) stops every worker early; RunParallel still returns whatever
// best candidate had been found by then.
func RunParallel(ctx context.Context, cat *catalog.Catalog, wl *workload.Workload, candidates designcandidates.Set, seed *design.Design, opts Options, newModel func() *costmodel.Model) (*design.Design, float64) {
	order := opts.Order
	if len(order) == 0 {
		order = cat.Names()
	}
	shared := NewSharedBest()

	if len(order) == 0 {
		return seed, newModel().Evaluate(seed, cat, wl)
	}
	first := order[0]
	branches := firstCollectionBranches(candidates[first], seed, first)

	g, gctx := errgroup.WithContext(ctx)
	for _, branch := range branches {
		branch := branch
		g.Go(func() error {
			workerOpts := opts
			workerOpts.Order = order
			s := NewWithShared(cat, wl, candidates, newModel(), workerOpts, shared)
			s.solve(gctx, 1, branch)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error; only ctx cancellation stops them early

	if d, cost, ok := shared.Get(); ok {
		return d, cost
	}
	return seed, newModel().Evaluate(seed, cat, wl)
}

// firstCollectionBranches enumerates every (denorm parent, shard key, index
// set) choice for col against seed, the same branching solve() performs for
// one collection — factored out so RunParallel can fan the first level out
// across goroutines instead of walking it on a single one.
func firstCollectionBranches(cands *designcandidates.Candidates, seed *design.Design, col string) []*design.Design {
	if cands == nil {
		return []*design.Design{seed.Copy()}
	}
	var out []*design.Design

	denormIter := newSimpleKeyIterator(cands.DenormTo)
	for denormIter.hasNext() {
		parent := denormIter.next()
		branch := seed.Copy()
		if err := branch.SetDenormalizationParent(col, parent); err != nil {
			continue
		}
		if !isAcyclic(branch, col) {
			continue
		}
		if parent != nil {
			branch.AddShardKey(col, nil)
			out = append(out, expandIndexBranches(branch, col, cands.Indexes)...)
			continue
		}
		shardIter := newCompoundKeyIterator(cands.ShardKeys)
		if !shardIter.hasNext() {
			branch.AddShardKey(col, nil)
			out = append(out, expandIndexBranches(branch, col, cands.Indexes)...)
			continue
		}
		for shardIter.hasNext() {
			key := shardIter.next()
			shardBranch := branch.Copy()
			if err := shardBranch.AddShardKey(col, key); err != nil {
				continue
			}
			out = append(out, expandIndexBranches(shardBranch, col, cands.Indexes)...)
		}
	}
	if len(out) == 0 {
		out = append(out, seed.Copy())
	}
	return out
}

func expandIndexBranches(d *design.Design, col string, indexes []design.Key) []*design.Design {
	var out []*design.Design
	for _, idxSet := range indexSetCandidates(indexes) {
		branch := d.Copy()
		if err := branch.SetIndexes(col, idxSet); err != nil {
			continue
		}
		out = append(out, branch)
	}
	return out
}
