package search

import (
	"context"
	"testing"
	"time"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/designcandidates"
	"github.com/launix-de/d4/workload"
)

func fixture() (*catalog.Catalog, *workload.Workload, designcandidates.Set) {
	cat := catalog.New()
	cat.Add(&catalog.Collection{
		Name:     "orders",
		DocCount: 500,
		Fields: map[string]*catalog.Field{
			"id":     {Name: "id", Selectivity: 0.95},
			"region": {Name: "region", Selectivity: 0.2},
		},
	})

	var ops []workload.Operation
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		ops = append(ops, workload.Operation{
			Collection:   "orders",
			Predicates:   map[string]workload.PredicateType{"id": workload.PredEquality},
			QueryContent: []map[string]any{{"id": i % 10, "region": i % 3}},
			QueryTime:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	wl := &workload.Workload{Sessions: []workload.Session{{Operations: ops}}}
	candidates := designcandidates.Generate(cat, wl)
	return cat, wl, candidates
}

func seedDesign(cat *catalog.Catalog) *design.Design {
	d := design.New()
	for _, name := range cat.Names() {
		d.AddCollection(name)
		d.Recover(name)
	}
	return d
}

func TestRunReturnsACompleteDesign(t *testing.T) {
	cat, wl, candidates := fixture()
	model := costmodel.New(costmodel.Weights{Disk: 1, Skew: 1, Network: 1}, 50, 2, 2)
	s := New(cat, wl, candidates, model, Options{LeaderboardSize: 3})

	got, cost := s.Run(context.Background(), seedDesign(cat))
	if !got.IsComplete() {
		t.Fatalf("Run must return a complete design")
	}
	if cost < 0 {
		t.Fatalf("cost must not be negative, got %f", cost)
	}
	if s.Leaderboard().Len() == 0 {
		t.Fatalf("expected at least one leaderboard entry after Run")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	cat, wl, candidates := fixture()
	model := costmodel.New(costmodel.Weights{Disk: 1, Skew: 1, Network: 1}, 50, 2, 2)
	s := New(cat, wl, candidates, model, Options{LeaderboardSize: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, _ := s.Run(ctx, seedDesign(cat))
	if got == nil {
		t.Fatalf("Run must still return a design when cancelled immediately")
	}
}

func TestRunParallelFindsAtLeastAsGoodAsSequential(t *testing.T) {
	cat, wl, candidates := fixture()
	seed := seedDesign(cat)

	seqModel := costmodel.New(costmodel.Weights{Disk: 1, Skew: 1, Network: 1}, 50, 2, 2)
	seq := New(cat, wl, candidates, seqModel, Options{LeaderboardSize: 3})
	_, seqCost := seq.Run(context.Background(), seed)

	_, parCost := RunParallel(context.Background(), cat, wl, candidates, seed, Options{}, func() *costmodel.Model {
		return costmodel.New(costmodel.Weights{Disk: 1, Skew: 1, Network: 1}, 50, 2, 2)
	})

	if parCost > seqCost+1e-9 {
		t.Fatalf("parallel search found a worse cost (%f) than sequential (%f)", parCost, seqCost)
	}
}
