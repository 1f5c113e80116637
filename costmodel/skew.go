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
	"math"
	"time"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/histogram"
	"github.com/launix-de/d4/nodeestimator"
	"github.com/launix-de/d4/workload"
)

// SkewComponent scores how unevenly a design spreads operations across
// cluster nodes. The workload is cut into `windows` fixed time windows
// spanning its earliest session start_time to its latest session end_time;
// each session is assigned, whole, to the window containing its start_time.
// Per window the Pavlo-style log-ratio skew factor (Alg.#3,
// http://hstore.cs.brown.edu/papers/hstore-partitioning.pdf, as ported in
// original_source/src/costmodel/costmodel.py's calculateSkew) scores how far
// the busiest nodes are from an even 1/N share; the overall skew is the
// weighted average of the per-window factors, weighted by how many
// operations landed in each window (costmodel.py's skewCost).
type SkewComponent struct {
	estimator *nodeestimator.Estimator
	windows   int
}

// NewSkewComponent splits the workload into `windows` equal time buckets
// (minimum 1) to measure skew over.
func NewSkewComponent(estimator *nodeestimator.Estimator, windows int) *SkewComponent {
	if windows < 1 {
		windows = 1
	}
	return &SkewComponent{estimator: estimator, windows: windows}
}

// Cost returns the workload's op-count-weighted average per-window skew
// factor, 0 when the workload is empty (spec.md §4.F). When every session
// shares one start and end time, all sessions land in the first window and
// are scored there. Result lies in [0,1].
func (sc *SkewComponent) Cost(d *design.Design, cat *catalog.Catalog, wl *workload.Workload) float64 {
	if len(wl.Sessions) == 0 {
		return 0
	}
	start, end := sessionTimeRange(wl)
	span := end.Sub(start)
	if span <= 0 {
		span = 1
	}

	buckets := make([][]*workload.Session, sc.windows)
	for i := range wl.Sessions {
		session := &wl.Sessions[i]
		w := windowIndex(session.StartTime, start, span, sc.windows)
		buckets[w] = append(buckets[w], session)
	}

	var weightedSum float64
	var totalOps int
	for _, sessions := range buckets {
		if len(sessions) == 0 {
			continue
		}
		skew, ops := sc.windowSkew(d, cat, sessions)
		if ops == 0 {
			continue
		}
		weightedSum += skew * float64(ops)
		totalOps += ops
	}
	if totalOps == 0 {
		return 0
	}
	return weightedSum / float64(totalOps)
}

// windowSkew computes the Pavlo-style log-ratio skew factor for one window's
// sessions: a Histogram of (op -> estimated node set) over every node in
// [0, N), best = 1/N, p_i = touchCount_i/total (pulled up to
// best+(1-p_i/best)(1-best) when under-touched), skew = Σ log(p_i/best) /
// (N·log(1/best)). Also returns the window's raw operation count, used by
// Cost as the weight for this window's contribution.
func (sc *SkewComponent) windowSkew(d *design.Design, cat *catalog.Catalog, sessions []*workload.Session) (float64, int) {
	counts := histogram.New[int]()
	ops := 0
	for _, session := range sessions {
		for i := range session.Operations {
			op := &session.Operations[i]
			col := cat.Get(op.Collection)
			if col == nil {
				continue
			}
			ops++
			for _, node := range sc.estimator.EstimateNodes(d, col, op) {
				counts.Put(node)
			}
		}
	}

	total := counts.GetSampleCount()
	n := sc.estimator.NumNodes
	if total == 0 || n <= 1 {
		// a single-node cluster has nowhere to skew toward: best = 1/N = 1
		// would make log(1/best) = log(1) = 0, an undefined ratio rather than
		// a meaningful "no skew" answer, so short-circuit to 0 directly.
		return 0, ops
	}
	best := 1.0 / float64(n)
	var skew float64
	for i := 0; i < n; i++ {
		ratio := float64(counts.Get(i)) / float64(total)
		if ratio < best {
			ratio = best + (1-ratio/best)*(1-best)
		}
		skew += math.Log(ratio / best)
	}
	return skew / (math.Log(1/best) * float64(n)), ops
}

func sessionTimeRange(wl *workload.Workload) (start, end time.Time) {
	start = wl.Sessions[0].StartTime
	end = wl.Sessions[0].EndTime
	for i := range wl.Sessions[1:] {
		session := &wl.Sessions[i+1]
		if session.StartTime.Before(start) {
			start = session.StartTime
		}
		if session.EndTime.After(end) {
			end = session.EndTime
		}
	}
	return start, end
}

func windowIndex(t time.Time, start time.Time, span time.Duration, windows int) int {
	if span <= 0 {
		return 0
	}
	offset := t.Sub(start)
	idx := int(float64(offset) / float64(span) * float64(windows))
	if idx < 0 {
		idx = 0
	}
	if idx >= windows {
		idx = windows - 1
	}
	return idx
}
