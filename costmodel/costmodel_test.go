package costmodel

import (
	"testing"
	"time"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/nodeestimator"
	"github.com/launix-de/d4/workload"
)

func fixtureCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Add(&catalog.Collection{
		Name:     "orders",
		DocCount: 1000,
		Fields: map[string]*catalog.Field{
			"id":          {Name: "id", Type: catalog.TypeInt, Cardinality: 1000, Selectivity: 1.0},
			"customer_id": {Name: "customer_id", Type: catalog.TypeInt, ParentCol: "customers", ParentKey: "id"},
		},
	})
	cat.Add(&catalog.Collection{Name: "customers", DocCount: 100})
	return cat
}

func fixtureWorkload(n int) *workload.Workload {
	var ops []workload.Operation
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ops = append(ops, workload.Operation{
			Collection:   "orders",
			Type:         workload.OpQuery,
			Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
			QueryContent: []map[string]any{{"id": i}},
			QueryTime:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	return &workload.Workload{Sessions: []workload.Session{{Operations: ops}}}
}

func fixtureDesign() *design.Design {
	d := design.New()
	d.AddCollection("orders")
	d.AddCollection("customers")
	d.AddShardKey("orders", design.Key{"id"})
	return d
}

func TestDiskComponentCostIsNonNegative(t *testing.T) {
	cat := fixtureCatalog()
	wl := fixtureWorkload(20)
	d := fixtureDesign()
	dc := NewDiskComponent(8, nodeestimator.New(4))
	cost := dc.Cost(d, cat, wl)
	if cost < 0 {
		t.Fatalf("disk cost must not be negative, got %f", cost)
	}
}

func TestDiskComponentFewerMissesWithLargerWindow(t *testing.T) {
	cat := fixtureCatalog()
	wl := fixtureWorkload(50)
	d := fixtureDesign()
	small := NewDiskComponent(2, nodeestimator.New(1))
	large := NewDiskComponent(1000, nodeestimator.New(1))
	if large.Cost(d, cat, wl) > small.Cost(d, cat, wl) {
		t.Fatalf("a larger working set should never miss more than a smaller one")
	}
}

func TestSkewComponentZeroForSingleNodeCluster(t *testing.T) {
	cat := fixtureCatalog()
	wl := fixtureWorkload(40)
	d := fixtureDesign()
	sc := NewSkewComponent(nodeestimator.New(1), 4)
	if got := sc.Cost(d, cat, wl); got != 0 {
		t.Fatalf("a single-node cluster has no skew, got %f", got)
	}
}

func TestNetworkComponentMergesChildIntoPrecedingParentQuery(t *testing.T) {
	cat := fixtureCatalog()
	wl := &workload.Workload{Sessions: []workload.Session{{Operations: []workload.Operation{
		{
			Collection:   "customers",
			Type:         workload.OpQuery,
			Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
			QueryContent: []map[string]any{{"id": 1}},
		},
		{
			Collection:   "orders",
			Type:         workload.OpQuery,
			Predicates:   map[string]workload.PredicateType{"customer_id": workload.PredEquality},
			QueryContent: []map[string]any{{"customer_id": 1}},
		},
	}}}}
	d := fixtureDesign()
	nc := NewNetworkComponent(nodeestimator.New(4))
	withoutDenorm := nc.Cost(d, cat, wl)

	parent := "customers"
	d2 := d.Copy()
	d2.SetDenormalizationParent("orders", &parent)
	withDenorm := nc.Cost(d2, cat, wl)

	// Without denormalization both ops are counted separately. Once "orders"
	// is denormalized into "customers", the orders QUERY immediately
	// following the customers QUERY in the same session is merged away
	// (spec.md §4.G): it contributes neither to query_count nor result.
	if withDenorm >= withoutDenorm {
		t.Fatalf("merging a denormalized child's query into its preceding parent query should lower network cost: %f vs %f", withDenorm, withoutDenorm)
	}
}

func TestNetworkComponentSingleNodeEqualityApproachesInverseNodeCount(t *testing.T) {
	cat := fixtureCatalog()
	var ops []workload.Operation
	for i := 0; i < 100; i++ {
		ops = append(ops, workload.Operation{
			Collection:   "orders",
			Type:         workload.OpQuery,
			Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
			QueryContent: []map[string]any{{"id": i}},
		})
	}
	wl := &workload.Workload{Sessions: []workload.Session{{Operations: ops}}}
	d := fixtureDesign()
	nc := NewNetworkComponent(nodeestimator.New(4))
	got := nc.Cost(d, cat, wl)
	want := 0.25 // 1/N: every op touches exactly one node
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("100 single-node-equality QUERYs should give networkCost ~= 1/N = %f, got %f", want, got)
	}
}

func TestModelEvaluateCombinesWeightedComponents(t *testing.T) {
	cat := fixtureCatalog()
	wl := fixtureWorkload(10)
	d := fixtureDesign()
	m := New(Weights{Disk: 1, Skew: 1, Network: 1}, 100, 2, 2)
	cost := m.Evaluate(d, cat, wl)
	if cost < 0 {
		t.Fatalf("combined cost must not be negative, got %f", cost)
	}
}

func TestModelEvaluateIncrementalMatchesFresh(t *testing.T) {
	cat := fixtureCatalog()
	wl := fixtureWorkload(15)
	d1 := fixtureDesign()
	m := New(Weights{Disk: 1, Skew: 1, Network: 1}, 100, 2, 2)
	_ = m.Evaluate(d1, cat, wl)

	d2 := d1.Copy()
	d2.AddIndex("orders", design.Key{"id"})
	incremental := m.Evaluate(d2, cat, wl)

	fresh := New(Weights{Disk: 1, Skew: 1, Network: 1}, 100, 2, 2)
	want := fresh.Evaluate(d2, cat, wl)

	if incremental != want {
		t.Fatalf("incremental Evaluate = %f, want %f (matching a from-scratch Model)", incremental, want)
	}
}
