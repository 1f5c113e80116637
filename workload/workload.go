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

// Package workload holds the recorded client sessions the core scores a
// Design against: ordered sequences of typed operations with predicates and
// touched fields (spec.md §3, §6). Ingestion/parsing of raw traces into this
// shape is explicitly out of scope (spec.md §1) — this package only defines
// the finished shape and a few read-only helpers over it.
package workload

import "time"

// OpType is the type of a recorded operation.
type OpType string

const (
	OpQuery  OpType = "QUERY"
	OpInsert OpType = "INSERT"
	OpUpdate OpType = "UPDATE"
	OpDelete OpType = "DELETE"
)

// PredicateType is the kind of comparison a predicate performs.
type PredicateType string

const (
	PredEquality PredicateType = "eq"
	PredRange    PredicateType = "range"
	PredRegex    PredicateType = "regex"
)

// Operation is one recorded client call against a collection.
type Operation struct {
	QueryID      int64                    `json:"query_id"`
	QueryHash    uint64                   `json:"query_hash"`
	Collection   string                   `json:"collection"`
	Type         OpType                   `json:"type"`
	Predicates   map[string]PredicateType `json:"predicates"`
	QueryContent []map[string]any         `json:"query_content"` // one or more documents/filters
	QueryFields  map[string]int           `json:"query_fields,omitempty"` // projection
	QueryTime    time.Time                `json:"query_time"`
	RespTime     *time.Time               `json:"resp_time,omitempty"`
	Upsert       bool                     `json:"upsert,omitempty"`
	Multi        bool                     `json:"multi,omitempty"`
}

// Session is an ordered sequence of operations recorded from one client
// connection.
type Session struct {
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
	Operations []Operation `json:"operations"`
}

// Workload is the unordered collection of recorded sessions.
type Workload struct {
	Sessions []Session `json:"sessions"`
}

// Contents returns the operation's content documents, i.e. the set of
// documents/filters this operation applies to, as recorded in QueryContent
// (original_source/src/workload/utilmethods.py's getOpContents). An
// operation recorded without content documents yields an empty slice.
func Contents(op *Operation) []map[string]any {
	return op.QueryContent
}

// IsRegex reports whether the named field is matched via a REGEX predicate
// on this operation.
func IsRegex(op *Operation, field string) bool {
	return op.Predicates[field] == PredRegex
}

// FieldValues extracts the value of each field in fields, in order, from a
// content document. A missing field yields a nil value at that position.
func FieldValues(fields []string, content map[string]any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = content[f]
	}
	return out
}

// AllValues returns every scalar value present in a content document, in a
// stable (sorted-by-key) order so the resulting hash is deterministic
// regardless of map iteration order.
func AllValues(content map[string]any) []any {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	insertionSortStrings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = content[k]
	}
	return out
}

// ReferencedFields returns the set of fields an operation reads: predicate
// fields union projection fields (spec.md §4.E "guessIndex"), in a stable
// order (predicate fields first, alphabetically, then projection fields not
// already included, alphabetically).
func ReferencedFields(op *Operation) []string {
	seen := make(map[string]bool)
	var out []string
	predKeys := make([]string, 0, len(op.Predicates))
	for k := range op.Predicates {
		predKeys = append(predKeys, k)
	}
	insertionSortStrings(predKeys)
	for _, k := range predKeys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	projKeys := make([]string, 0, len(op.QueryFields))
	for k := range op.QueryFields {
		projKeys = append(projKeys, k)
	}
	insertionSortStrings(projKeys)
	for _, k := range projKeys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
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
