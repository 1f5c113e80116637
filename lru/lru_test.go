package lru

import "testing"

func TestMissThenHit(t *testing.T) {
	b := New(10)
	if misses := b.GetDocumentFromCollection("users", 1, 1); misses != 1 {
		t.Fatalf("first touch of a page must miss, got %d", misses)
	}
	if misses := b.GetDocumentFromCollection("users", 1, 1); misses != 0 {
		t.Fatalf("repeat touch of a resident page must hit, got %d misses", misses)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEvictionUnderPressure(t *testing.T) {
	b := New(2)
	b.GetDocumentFromCollection("c", 1, 1)
	b.GetDocumentFromCollection("c", 2, 1)
	if b.FreeSlots() != 0 {
		t.Fatalf("expected buffer full, free_slots=%d", b.FreeSlots())
	}
	// third distinct page must evict doc 1 (LRU)
	b.GetDocumentFromCollection("c", 3, 1)
	if b.Evicted() != 1 {
		t.Fatalf("expected one eviction, got %d", b.Evicted())
	}
	if misses := b.GetDocumentFromCollection("c", 2, 1); misses != 0 {
		t.Fatalf("doc 2 should still be resident (only doc 1 was evicted)")
	}
	if misses := b.GetDocumentFromCollection("c", 1, 1); misses != 1 {
		t.Fatalf("doc 1 should have been evicted and miss again")
	}
}

func TestIndexTouchAlsoTouchesPrefixes(t *testing.T) {
	b := New(100)
	b.GetDocumentFromIndex("c", []string{"a", "b"}, 1, 1)
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// full key + two prefixes ("a", "a,b") => 3 distinct pages allocated
	used := b.WindowSize() - b.FreeSlots()
	if used != 3 {
		t.Fatalf("expected 3 slots used for a 2-field index touch, got %d", used)
	}
}

func TestResetClearsCounters(t *testing.T) {
	b := New(1)
	b.GetDocumentFromCollection("c", 1, 1)
	b.GetDocumentFromCollection("c", 2, 1)
	if b.Evicted() == 0 {
		t.Fatalf("expected at least one eviction before reset")
	}
	b.Reset()
	if b.Evicted() != 0 || b.Refreshed() != 0 || b.FreeSlots() != b.WindowSize() {
		t.Fatalf("Reset did not restore zero state")
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate after Reset: %v", err)
	}
}

func TestValidateCatchesOutOfRangeFreeSlots(t *testing.T) {
	b := New(5)
	b.freeSlots = -1
	if err := b.Validate(); err == nil {
		t.Fatalf("expected Validate to reject negative free_slots")
	}
}
