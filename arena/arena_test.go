package arena

import "testing"

func TestInsertGetRemove(t *testing.T) {
	r := New[string]()

	a := r.Insert("alpha")
	b := r.Insert("beta")

	if v, ok := r.Get(a); !ok || v != "alpha" {
		t.Fatalf("Get(a) = %q, %v; want alpha, true", v, ok)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	removed, ok := r.Remove(a)
	if !ok || removed != "alpha" {
		t.Fatalf("Remove(a) = %q, %v; want alpha, true", removed, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after remove = %d, want 1", r.Len())
	}

	if _, ok := r.Get(a); ok {
		t.Fatal("Get(a) after remove should fail")
	}
	if v, ok := r.Get(b); !ok || v != "beta" {
		t.Fatalf("Get(b) = %q, %v; want beta, true", v, ok)
	}
}

func TestSlotReuseBumpsVersion(t *testing.T) {
	r := New[int]()

	a := r.Insert(1)
	r.Remove(a)
	c := r.Insert(2)

	if c.Index != a.Index {
		t.Fatalf("expected slot reuse, got new index %d vs old %d", c.Index, a.Index)
	}
	if c.Version == a.Version {
		t.Fatal("reused slot must bump version")
	}
	if _, ok := r.Get(a); ok {
		t.Fatal("stale handle a must not resolve after slot reuse")
	}
	if v, ok := r.Get(c); !ok || v != 2 {
		t.Fatalf("Get(c) = %d, %v; want 2, true", v, ok)
	}
}

func TestNilNeverResolves(t *testing.T) {
	r := New[int]()
	r.Insert(42)

	if _, ok := r.Get(Nil); ok {
		t.Fatal("Nil entry must never resolve")
	}
	if !Nil.IsNil() {
		t.Fatal("Nil.IsNil() should be true")
	}
}

func TestUpdate(t *testing.T) {
	r := New[int]()
	a := r.Insert(1)

	if !r.Update(a, 2) {
		t.Fatal("Update should succeed on live entry")
	}
	if v, _ := r.Get(a); v != 2 {
		t.Fatalf("Get(a) = %d, want 2", v)
	}

	r.Remove(a)
	if r.Update(a, 3) {
		t.Fatal("Update should fail on stale entry")
	}
}

func TestEachVisitsLiveOnly(t *testing.T) {
	r := New[string]()
	a := r.Insert("a")
	r.Insert("b")
	r.Remove(a)
	r.Insert("c")

	seen := map[string]bool{}
	r.Each(func(e Entry, v string) { seen[v] = true })

	if seen["a"] {
		t.Fatal("removed entry a should not be visited")
	}
	if !seen["b"] || !seen["c"] {
		t.Fatalf("expected b and c visited, got %v", seen)
	}
}

func TestOutOfRangeEntry(t *testing.T) {
	r := New[int]()
	if _, ok := r.Get(Entry{Index: 999, Version: 1}); ok {
		t.Fatal("out of range entry must not resolve")
	}
}
