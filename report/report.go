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

// Package report turns a finished search.BBSearch run into the JSON result
// document an operator (or the dashboard) reads: the winning Design, its
// cost, and the leaderboard of runner-up alternatives (spec.md §12
// supplemental feature). Adapted from the teacher's habit of giving every
// persisted artifact a plain JSON-tagged struct plus a dedicated Marshal
// path (storage/persistence-s3.go's schema.json), rather than serializing
// the internal search/design types directly.
package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/search"
)

// CollectionDesign is the JSON-friendly projection of one collection's
// choices within a Design. design.Design keeps its fields unexported, so
// this is built from its accessor methods rather than reflected directly.
type CollectionDesign struct {
	Collection string     `json:"collection"`
	ShardKey   []string   `json:"shard_key,omitempty"`
	Indexes    [][]string `json:"indexes,omitempty"`
	DenormTo   string     `json:"denormalized_into,omitempty"`
}

// Snapshot converts a design.Design into its ordered JSON projection.
func Snapshot(d *design.Design) []CollectionDesign {
	names := d.Collections()
	out := make([]CollectionDesign, 0, len(names))
	for _, name := range names {
		cd := CollectionDesign{Collection: name}
		if sk := d.ShardKeys(name); len(sk) > 0 {
			cd.ShardKey = []string(sk)
		}
		for _, idx := range d.Indexes(name) {
			cd.Indexes = append(cd.Indexes, []string(idx))
		}
		if parent := d.GetDenormalizationParent(name); parent != nil {
			cd.DenormTo = *parent
		}
		out = append(out, cd)
	}
	return out
}

// Alternative is one runner-up design from the search's Leaderboard,
// reported alongside the winner so an operator can see how close the next
// best candidates were.
type Alternative struct {
	Cost   float64            `json:"cost"`
	Design []CollectionDesign `json:"design"`
}

// Result is the complete, persistable outcome of one search.BBSearch /
// search.RunParallel run.
type Result struct {
	RunID        uuid.UUID          `json:"run_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Weights      costmodel.Weights  `json:"weights"`
	Cost         float64            `json:"cost"`
	Design       []CollectionDesign `json:"design"`
	Alternatives []Alternative      `json:"alternatives,omitempty"`
}

// NewResult builds a Result from a search run's winning design/cost plus its
// Leaderboard (the winner itself is excluded from Alternatives: it's the
// leaderboard's own cheapest entry and would otherwise be reported twice).
func NewResult(runID search.RunID, generatedAt time.Time, weights costmodel.Weights, best *design.Design, cost float64, board *search.Leaderboard) *Result {
	r := &Result{
		RunID:       uuid.UUID(runID),
		GeneratedAt: generatedAt,
		Weights:     weights,
		Cost:        cost,
		Design:      Snapshot(best),
	}
	if board != nil {
		for _, entry := range board.Top() {
			if entry.Design == best {
				continue
			}
			r.Alternatives = append(r.Alternatives, Alternative{
				Cost:   entry.Cost,
				Design: Snapshot(entry.Design),
			})
		}
	}
	return r
}

// ToJSON renders the Result as indented JSON, the shape written to disk or
// archived to S3.
func (r *Result) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
