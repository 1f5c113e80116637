package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/design"
	"github.com/launix-de/d4/search"
)

func fixtureDesign() *design.Design {
	d := design.New()
	d.AddCollection("orders")
	d.AddShardKey("orders", design.Key{"customerId"})
	d.AddIndex("orders", design.Key{"region"})
	d.Recover("orders")
	return d
}

func TestSnapshotProjectsShardKeyAndIndexes(t *testing.T) {
	got := Snapshot(fixtureDesign())
	if len(got) != 1 {
		t.Fatalf("Snapshot len = %d, want 1", len(got))
	}
	cd := got[0]
	if cd.Collection != "orders" {
		t.Fatalf("Collection = %q", cd.Collection)
	}
	if len(cd.ShardKey) != 1 || cd.ShardKey[0] != "customerId" {
		t.Fatalf("ShardKey = %v", cd.ShardKey)
	}
	if len(cd.Indexes) != 1 || cd.Indexes[0][0] != "region" {
		t.Fatalf("Indexes = %v", cd.Indexes)
	}
}

func TestNewResultExcludesWinnerFromAlternatives(t *testing.T) {
	best := fixtureDesign()
	board := search.NewLeaderboard(3)
	board.Add(best, 10.0)
	other := design.New()
	other.AddCollection("orders")
	other.Recover("orders")
	board.Add(other, 20.0)

	runID := search.NewRunID()
	weights := costmodel.Weights{Disk: 1, Skew: 1, Network: 1}
	result := NewResult(runID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), weights, best, 10.0, board)

	if result.RunID != runID {
		t.Fatalf("RunID mismatch")
	}
	if len(result.Alternatives) != 1 {
		t.Fatalf("Alternatives len = %d, want 1 (winner excluded)", len(result.Alternatives))
	}
	if result.Alternatives[0].Cost != 20.0 {
		t.Fatalf("Alternatives[0].Cost = %f, want 20", result.Alternatives[0].Cost)
	}
}

func TestResultToJSONRoundTrips(t *testing.T) {
	best := fixtureDesign()
	runID := search.NewRunID()
	result := NewResult(runID, time.Now().UTC(), costmodel.Weights{Disk: 1}, best, 5.0, nil)

	raw, err := result.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.RunID != runID {
		t.Fatalf("round-tripped RunID mismatch")
	}
	if decoded.Cost != 5.0 {
		t.Fatalf("round-tripped Cost = %f, want 5", decoded.Cost)
	}
}
