package catalog

import "testing"

func TestAddGetHas(t *testing.T) {
	c := New()
	c.Add(&Collection{Name: "users", DocCount: 10, Fields: map[string]*Field{
		"email": {Name: "email", Type: TypeString, Selectivity: 1.0},
	}})
	if !c.Has("users") {
		t.Fatalf("expected catalog to have 'users'")
	}
	if c.Has("missing") {
		t.Fatalf("did not expect catalog to have 'missing'")
	}
	got := c.Get("users")
	if got == nil || got.DocCount != 10 {
		t.Fatalf("Get(users) = %+v", got)
	}
}

func TestNamesSorted(t *testing.T) {
	c := New()
	c.Add(&Collection{Name: "zebra"})
	c.Add(&Collection{Name: "apple"})
	c.Add(&Collection{Name: "mango"})
	names := c.Names()
	want := []string{"apple", "mango", "zebra"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestNestedFieldLookup(t *testing.T) {
	col := &Collection{
		Name: "orders",
		Fields: map[string]*Field{
			"shipping": {Name: "shipping", Type: TypeDict, Fields: map[string]*Field{
				"zip": {Name: "zip", Type: TypeString, Selectivity: 0.5},
			}},
		},
	}
	f, ok := col.GetField("shipping.zip")
	if !ok || f.Selectivity != 0.5 {
		t.Fatalf("GetField(shipping.zip) = %+v, %v", f, ok)
	}
	if _, ok := col.GetField("shipping.missing"); ok {
		t.Fatalf("expected lookup miss for shipping.missing")
	}
}
