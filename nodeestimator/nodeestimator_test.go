package nodeestimator

import (
	"testing"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/workload"
)

func newFixture(shardKey design.Key) (*design.Design, *catalog.Collection) {
	col := &catalog.Collection{Name: "orders"}
	d := design.New()
	d.AddCollection("orders")
	if shardKey != nil {
		d.AddShardKey("orders", shardKey)
	}
	return d, col
}

func TestNoShardKeyRoutesToPrimaryNode(t *testing.T) {
	e := New(4)
	d, col := newFixture(nil)
	op := &workload.Operation{
		Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
		QueryContent: []map[string]any{{"id": 1}},
	}
	got := e.EstimateNodes(d, col, op)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("no shard key should route to the primary node {0}, got %v", got)
	}
}

func TestEqualityShardKeyTouchesSingleNode(t *testing.T) {
	e := New(8)
	d, col := newFixture(design.Key{"id"})
	op := &workload.Operation{
		Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
		QueryContent: []map[string]any{{"id": 42}},
	}
	got := e.EstimateNodes(d, col, op)
	if len(got) != 1 {
		t.Fatalf("a single equality value on the full shard key must touch exactly one node, got %v", got)
	}
}

func TestRegexShardKeyBroadcasts(t *testing.T) {
	e := New(5)
	d, col := newFixture(design.Key{"id"})
	op := &workload.Operation{
		Predicates:   map[string]workload.PredicateType{"id": workload.PredRegex},
		QueryContent: []map[string]any{{"id": "foo.*"}},
	}
	got := e.EstimateNodes(d, col, op)
	if len(got) != 5 {
		t.Fatalf("a regex predicate on a shard-key field must broadcast, got %v", got)
	}
}

func TestEstimateNodesDeterministicForSameValue(t *testing.T) {
	e := New(16)
	d, col := newFixture(design.Key{"id"})
	op := &workload.Operation{
		Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
		QueryContent: []map[string]any{{"id": 7}},
	}
	a := e.EstimateNodes(d, col, op)
	b := e.EstimateNodes(d, col, op)
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("identical shard key values must hash to the same node: %v vs %v", a, b)
	}
}

func TestGuessNodesMatchesEstimateNodesShape(t *testing.T) {
	e := New(4)
	d, col := newFixture(design.Key{"id"})
	opEq := &workload.Operation{Predicates: map[string]workload.PredicateType{"id": workload.PredEquality}}
	if got := e.GuessNodes(d, col, opEq); got != 1 {
		t.Fatalf("GuessNodes with a full equality shard key = %d, want 1", got)
	}
	opRange := &workload.Operation{Predicates: map[string]workload.PredicateType{"id": workload.PredRange}}
	if got := e.GuessNodes(d, col, opRange); got != e.NumNodes {
		t.Fatalf("GuessNodes with a range predicate on the shard key = %d, want %d", got, e.NumNodes)
	}
}
