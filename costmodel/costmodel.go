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

// Package costmodel scores a candidate Design against a recorded Workload
// (spec.md §4.D/E/F/G): a weighted composite of disk, skew and network
// sub-costs, each delegated to its own component so the search can evaluate
// thousands of candidate designs per run without recomputing everything
// from scratch on every node (the per-collection memoization cache below).
package costmodel

import (
	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/nodeestimator"
	"github.com/launix-de/d4/workload"
)

// Weights are the relative importance of each cost component, combined as a
// weighted sum (spec.md §4.G). They need not sum to 1.
type Weights struct {
	Disk    float64
	Skew    float64
	Network float64
}

// Component is one named, independently pluggable cost dimension.
type Component interface {
	Cost(d *design.Design, cat *catalog.Catalog, wl *workload.Workload) float64
}

// Model combines the disk, skew and network components into a single
// weighted score. Disk and network costs are naturally per-collection (an
// operation touches exactly one collection's documents plus, for disk, the
// collections denormalized into it), so Model memoizes their per-collection
// tallies. Every call still replays the whole workload through both
// components; only the tallies of collections the previous call's
// Design.Delta names as changed are replaced by the fresh ones, the others
// are kept from earlier calls (spec.md §4.H). Skew is not decomposable this way — a
// single window's skew depends on every collection's node hits landing in
// that window together — so it is always recomputed in full; it is also
// the cheapest of the three components to evaluate. One Model instance is
// not safe for concurrent use: the search gives each worker its own Model,
// mirroring storage/cache.go's single-goroutine-owns-its-state discipline.
type Model struct {
	weights  Weights
	numNodes int
	disk     *DiskComponent
	skew     *SkewComponent
	network  *NetworkComponent

	lastDesign  *design.Design
	diskCache   map[string]stats
	netCache    map[string]netStats
}

// New returns a Model sharing one nodeestimator.Estimator across its disk,
// skew and network components, so node attribution is counted consistently.
func New(weights Weights, windowSize, skewWindows, numNodes int) *Model {
	est := nodeestimator.New(numNodes)
	return &Model{
		weights:   weights,
		numNodes:  est.NumNodes,
		disk:      NewDiskComponent(windowSize, est),
		skew:      NewSkewComponent(est, skewWindows),
		network:   NewNetworkComponent(est),
		diskCache: make(map[string]stats),
		netCache:  make(map[string]netStats),
	}
}

// Evaluate returns the weighted total cost of d against wl, divided by the
// sum of the weights. The disk and network components replay the whole
// workload on every call; after the first call, only the collections
// Design.Delta reports as changed take their tallies from that replay, and
// every other collection keeps its memoized tally.
func (m *Model) Evaluate(d *design.Design, cat *catalog.Catalog, wl *workload.Workload) float64 {
	var changed map[string]bool
	if m.lastDesign != nil {
		changed = toSet(m.lastDesign.Delta(d))
	}
	m.refreshDisk(d, cat, wl, changed)
	m.refreshNetwork(d, cat, wl, changed)
	m.lastDesign = d

	diskCost := averageRatio(m.diskCache)
	var netTotal float64
	var netOps int
	for _, s := range m.netCache {
		netTotal += s.total
		netOps += s.ops
	}
	networkCost := 0.0
	if netOps > 0 {
		networkCost = netTotal / float64(netOps*m.numNodes)
	}
	skewCost := m.skew.Cost(d, cat, wl)

	weighted := m.weights.Disk*diskCost + m.weights.Skew*skewCost + m.weights.Network*networkCost
	sumWeights := m.weights.Disk + m.weights.Skew + m.weights.Network
	if sumWeights == 0 {
		return 0
	}
	return weighted / sumWeights
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (m *Model) refreshDisk(d *design.Design, cat *catalog.Catalog, wl *workload.Workload, changed map[string]bool) {
	if changed == nil {
		m.diskCache = m.disk.CostByCollection(d, cat, wl)
		return
	}
	fresh := m.disk.CostByCollection(d, cat, wl)
	for name := range changed {
		if s, ok := fresh[name]; ok {
			m.diskCache[name] = s
		} else {
			delete(m.diskCache, name)
		}
	}
	for name := range m.diskCache {
		if !d.HasCollection(name) {
			delete(m.diskCache, name)
		}
	}
}

func (m *Model) refreshNetwork(d *design.Design, cat *catalog.Catalog, wl *workload.Workload, changed map[string]bool) {
	if changed == nil {
		m.netCache = m.network.CostByCollection(d, cat, wl)
		return
	}
	fresh := m.network.CostByCollection(d, cat, wl)
	for name := range changed {
		if s, ok := fresh[name]; ok {
			m.netCache[name] = s
		} else {
			delete(m.netCache, name)
		}
	}
	for name := range m.netCache {
		if !d.HasCollection(name) {
			delete(m.netCache, name)
		}
	}
}

// Reset clears every memoized entry and forgets the last evaluated design,
// e.g. between independent search runs sharing one Model instance.
func (m *Model) Reset() {
	m.lastDesign = nil
	m.diskCache = make(map[string]stats)
	m.netCache = make(map[string]netStats)
}
