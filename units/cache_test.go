package units

import (
	"testing"

	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/syntax"
)

func TestCacheTableInsertLookupRemove(t *testing.T) {
	c := newCacheTable()

	entry := &syntax.CacheEntry{Rule: 3, AnchorSite: 10}
	c.Insert(10, entry)

	got, ok := c.Lookup(10, 3)
	if !ok || got != entry {
		t.Fatalf("Lookup(10, 3) = %v, %v; want the inserted entry", got, ok)
	}

	if _, ok := c.Lookup(10, 4); ok {
		t.Fatal("Lookup(10, 4): want false for a rule never inserted at that site")
	}

	c.Remove(10, 3)
	if _, ok := c.Lookup(10, 3); ok {
		t.Fatal("Lookup after Remove: want false")
	}
	if c.len() != 0 {
		t.Fatalf("len() after removing the only entry = %d, want 0", c.len())
	}
}

func TestCacheTableRemoveIsScopedToOneRule(t *testing.T) {
	c := newCacheTable()

	entryA := &syntax.CacheEntry{Rule: 1, AnchorSite: 5}
	entryB := &syntax.CacheEntry{Rule: 2, AnchorSite: 5}
	c.Insert(5, entryA)
	c.Insert(5, entryB)

	c.Remove(5, 1)

	if _, ok := c.Lookup(5, 1); ok {
		t.Fatal("Lookup(5, 1) after removing rule 1: want false")
	}
	got, ok := c.Lookup(5, 2)
	if !ok || got != entryB {
		t.Fatal("Lookup(5, 2): removing a sibling rule at the same anchor site must not disturb rule 2's entry")
	}
}

func TestCacheTableEachVisitsEveryEntry(t *testing.T) {
	c := newCacheTable()
	c.Insert(0, &syntax.CacheEntry{Rule: 1, AnchorSite: 0})
	c.Insert(0, &syntax.CacheEntry{Rule: 2, AnchorSite: 0})
	c.Insert(10, &syntax.CacheEntry{Rule: 1, AnchorSite: 10})

	seen := map[lexis.Site]int{}
	c.Each(func(site lexis.Site, entry *syntax.CacheEntry) {
		seen[site]++
	})

	if seen[0] != 2 || seen[10] != 1 {
		t.Fatalf("Each visited %v, want {0:2, 10:1}", seen)
	}
	if c.len() != 3 {
		t.Fatalf("len() = %d, want 3", c.len())
	}
}
