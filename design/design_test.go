package design

import "testing"

func strptr(s string) *string { return &s }

func TestAddCollectionRelaxedThenComplete(t *testing.T) {
	d := New()
	d.AddCollection("users")
	if !d.IsRelaxed("users") {
		t.Fatalf("newly added collection should be relaxed")
	}
	if d.IsComplete() {
		t.Fatalf("design with a relaxed collection should not be complete")
	}
	if err := d.Recover("users"); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if d.IsRelaxed("users") {
		t.Fatalf("recovered collection should no longer be relaxed")
	}
	if !d.IsComplete() {
		t.Fatalf("design with only recovered collections should be complete")
	}
}

func TestUnknownCollectionLookupError(t *testing.T) {
	d := New()
	if err := d.AddIndex("missing", Key{"a"}); err == nil {
		t.Fatalf("expected LookupError for unknown collection")
	} else if _, ok := err.(*LookupError); !ok {
		t.Fatalf("expected *LookupError, got %T", err)
	}
}

func TestAddIndexRejectsEmptyAndDuplicate(t *testing.T) {
	d := New()
	d.AddCollection("c")
	if err := d.AddIndex("c", Key{}); err == nil {
		t.Fatalf("expected InvariantError for empty index key")
	}
	if err := d.AddIndex("c", Key{"a", "b"}); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	if err := d.AddIndex("c", Key{"a", "b"}); err == nil {
		t.Fatalf("expected InvariantError for duplicate index")
	}
	if got := d.Indexes("c"); len(got) != 1 {
		t.Fatalf("Indexes(c) = %v, want 1 entry", got)
	}
}

func TestShardKeyAndPattern(t *testing.T) {
	d := New()
	d.AddCollection("c")
	d.AddShardKey("c", Key{"a", "b"})
	if !d.InShardKeyPattern("c", "a") || !d.InShardKeyPattern("c", "b") {
		t.Fatalf("expected a,b in shard key pattern")
	}
	if d.InShardKeyPattern("c", "z") {
		t.Fatalf("did not expect z in shard key pattern")
	}
	// replaces, does not append
	d.AddShardKey("c", Key{"x"})
	if got := d.ShardKeys("c"); len(got) != 1 || got[0] != "x" {
		t.Fatalf("ShardKeys(c) = %v, want [x]", got)
	}
}

func TestDenormalizationSelfLoopIgnored(t *testing.T) {
	d := New()
	d.AddCollection("c")
	d.SetDenormalizationParent("c", strptr("c"))
	if d.IsDenormalized("c") {
		t.Fatalf("a collection denormalized into itself must not count as denormalized")
	}
}

func TestDenormalizationHierarchy(t *testing.T) {
	d := New()
	d.AddCollection("grandparent")
	d.AddCollection("parent")
	d.AddCollection("child")
	d.SetDenormalizationParent("parent", strptr("grandparent"))
	d.SetDenormalizationParent("child", strptr("parent"))
	chain := d.GetDenormalizationHierarchy("child")
	if len(chain) != 2 || chain[0] != "grandparent" || chain[1] != "parent" {
		t.Fatalf("GetDenormalizationHierarchy(child) = %v, want [grandparent parent]", chain)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	d := New()
	d.AddCollection("c")
	d.AddIndex("c", Key{"a"})
	d.AddShardKey("c", Key{"a"})

	c2 := d.Copy()
	c2.AddIndex("c", Key{"b"})
	c2.AddShardKey("c", Key{"z"})

	if len(d.Indexes("c")) != 1 {
		t.Fatalf("mutating the copy leaked back into the original design")
	}
	if d.ShardKeys("c")[0] != "a" {
		t.Fatalf("mutating the copy's shard key leaked back into the original")
	}
}

func TestSetIndexesReplacesWhole(t *testing.T) {
	d := New()
	d.AddCollection("c")
	d.AddIndex("c", Key{"a"})
	if err := d.SetIndexes("c", []Key{{"x"}, {"y", "z"}}); err != nil {
		t.Fatalf("SetIndexes: %v", err)
	}
	got := d.Indexes("c")
	if len(got) != 2 || !got[0].Equal(Key{"x"}) || !got[1].Equal(Key{"y", "z"}) {
		t.Fatalf("Indexes(c) = %v, want [[x] [y z]]", got)
	}
}

func TestDelta(t *testing.T) {
	d1 := New()
	d1.AddCollection("a")
	d1.AddCollection("b")
	d2 := d1.Copy()
	d2.AddIndex("a", Key{"x"})

	delta := d1.Delta(d2)
	if len(delta) != 1 || delta[0] != "a" {
		t.Fatalf("Delta = %v, want [a]", delta)
	}
}
