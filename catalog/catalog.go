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

// Package catalog holds the read-only Collection Catalog the core consumes:
// per-collection document counts, sizes, workload share and per-field
// statistics. Nothing in this package mutates a Catalog after it has been
// populated with Add; it is
// shared by reference across every concurrent search worker (SPEC_FULL §5).
package catalog

import (
	nlrm "github.com/launix-de/NonLockingReadMap"
)

// FieldType is one of the scalar tags SPEC_FULL §6 enumerates.
type FieldType string

const (
	TypeInt      FieldType = "int"
	TypeLong     FieldType = "long"
	TypeFloat    FieldType = "float"
	TypeBool     FieldType = "bool"
	TypeString   FieldType = "str"
	TypeDatetime FieldType = "datetime"
	TypeList     FieldType = "list"
	TypeDict     FieldType = "dict"
)

// Field describes one (possibly nested) field of a Collection.
type Field struct {
	Name        string           `json:"name"`
	Type        FieldType        `json:"type"`
	Cardinality int64            `json:"cardinality"`
	Selectivity float64          `json:"selectivity"` // in [0,1]
	AvgSize     int64            `json:"avg_size"`     // bytes
	Ranges      []any            `json:"ranges,omitempty"`
	Fields      map[string]*Field `json:"fields,omitempty"` // nested document/list fields

	// Denormalization hints (§3).
	ParentCol  string `json:"parent_col,omitempty"`
	ParentKey  string `json:"parent_key,omitempty"`
	ParentConf float64 `json:"parent_conf,omitempty"`
}

// Collection is one entry of the catalog. It satisfies NonLockingReadMap's
// KeyGetter so the whole catalog can live in a read-optimized map shared
// without locking across concurrent search workers.
type Collection struct {
	Name            string            `json:"name"`
	DocCount        int64             `json:"doc_count"`
	AvgDocSize      int64             `json:"avg_doc_size"`
	WorkloadPercent float64           `json:"workload_percent"`
	Fields          map[string]*Field `json:"fields"`
	Interesting     []string          `json:"interesting"`

	// EmbeddingRatio maps a child collection name to the fraction of this
	// (parent) collection's page budget one embedded child document
	// consumes, used by the disk cost component's slot-size inflation
	// (spec.md §4.E).
	EmbeddingRatio map[string]float64 `json:"embedding_ratio,omitempty"`
}

// GetKey implements NonLockingReadMap.KeyGetter. Value receiver: the map
// constraint binds the stored type itself, not a pointer to it.
func (c Collection) GetKey() string { return c.Name }

// ComputeSize implements NonLockingReadMap.Sizable with a rough estimate;
// it only needs to be monotonic in the number/size of fields, not exact.
func (c Collection) ComputeSize() uint {
	sz := uint(64 + len(c.Name))
	for name, f := range c.Fields {
		sz += uint(len(name)) + fieldSize(f)
	}
	return sz
}

func fieldSize(f *Field) uint {
	sz := uint(48 + len(f.Name) + len(f.ParentCol) + len(f.ParentKey))
	for name, nested := range f.Fields {
		sz += uint(len(name)) + fieldSize(nested)
	}
	return sz
}

// GetField looks up a (possibly dotted, for nested documents) field path.
func (c *Collection) GetField(path string) (*Field, bool) {
	return lookupField(c.Fields, path)
}

func lookupField(fields map[string]*Field, path string) (*Field, bool) {
	name, rest, nested := splitPath(path)
	f, ok := fields[name]
	if !ok {
		return nil, false
	}
	if !nested {
		return f, true
	}
	return lookupField(f.Fields, rest)
}

func splitPath(path string) (head, rest string, hasRest bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}

// Catalog is the read-only collection of all Collections in a design
// problem. It is safe to read concurrently from multiple goroutines without
// any external locking (NonLockingReadMap's whole point); it is built once
// with New and Add and never mutated by the core afterward.
type Catalog struct {
	m nlrm.NonLockingReadMap[Collection, string]
}

// New returns an empty Catalog, ready to be populated with Add.
func New() *Catalog {
	c := &Catalog{m: nlrm.New[Collection, string]()}
	return c
}

// Add inserts or replaces a collection. Only meant to be called while
// constructing the catalog, before any search worker reads it.
func (c *Catalog) Add(col *Collection) {
	c.m.Set(col)
}

// Get returns the collection by name, or nil if it doesn't exist.
func (c *Catalog) Get(name string) *Collection {
	return c.m.Get(name)
}

// Has reports whether the named collection exists in the catalog.
func (c *Catalog) Has(name string) bool {
	return c.m.Get(name) != nil
}

// All returns every collection in the catalog, in an unspecified order.
func (c *Catalog) All() []*Collection {
	return c.m.GetAll()
}

// Names returns the names of every collection in the catalog, sorted, so
// callers that need deterministic iteration order (the search's fixed
// collection ordering, SPEC_FULL §4.I) can rely on it.
func (c *Catalog) Names() []string {
	all := c.All()
	names := make([]string, len(all))
	for i, col := range all {
		names[i] = col.Name
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	// small, allocation-free insertion sort: catalogs are small (tens to
	// low hundreds of collections), so the sort package is not used here.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
