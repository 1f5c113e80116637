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
	"github.com/google/btree"

	"github.com/launix-de/d4/design"
)

// Result is one evaluated candidate design and its total cost.
type Result struct {
	Design *design.Design
	Cost   float64
}

type leaderboardItem struct {
	result Result
	seq    int64 // insertion order, breaks cost ties deterministically
}

func (a *leaderboardItem) Less(than btree.Item) bool {
	b := than.(*leaderboardItem)
	if a.result.Cost != b.result.Cost {
		return a.result.Cost < b.result.Cost
	}
	return a.seq < b.seq
}

// Leaderboard keeps the K cheapest designs seen so far, backed by a
// google/btree so inserting a new candidate and evicting the current worst
// are both O(log K) instead of a linear scan over a slice.
type Leaderboard struct {
	tree *btree.BTree
	k    int
	seq  int64
}

// NewLeaderboard returns a Leaderboard retaining the k cheapest designs
// added to it.
func NewLeaderboard(k int) *Leaderboard {
	if k < 1 {
		k = 1
	}
	return &Leaderboard{tree: btree.New(8), k: k}
}

// Add records one evaluated design, evicting the current worst entry if the
// leaderboard is already at capacity and this one is cheaper.
func (l *Leaderboard) Add(d *design.Design, cost float64) {
	item := &leaderboardItem{result: Result{Design: d, Cost: cost}, seq: l.seq}
	l.seq++
	if l.tree.Len() < l.k {
		l.tree.ReplaceOrInsert(item)
		return
	}
	worst := l.tree.Max().(*leaderboardItem)
	if item.Less(worst) {
		l.tree.DeleteMax()
		l.tree.ReplaceOrInsert(item)
	}
}

// Top returns every retained result, cheapest first.
func (l *Leaderboard) Top() []Result {
	out := make([]Result, 0, l.tree.Len())
	l.tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(*leaderboardItem).result)
		return true
	})
	return out
}

// Len returns how many results are currently retained.
func (l *Leaderboard) Len() int { return l.tree.Len() }
