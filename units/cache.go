package units

import (
	"github.com/odvcencio/increparse/lexis"
	"github.com/odvcencio/increparse/syntax"
)

// cacheTable is a plain map-backed implementation of syntax.CacheTable,
// keyed by anchor site and then by rule. One unit owns exactly one
// cacheTable for its whole lifetime.
type cacheTable struct {
	bySite map[lexis.Site]map[syntax.Rule]*syntax.CacheEntry
}

func newCacheTable() *cacheTable {
	return &cacheTable{bySite: make(map[lexis.Site]map[syntax.Rule]*syntax.CacheEntry)}
}

func (c *cacheTable) Lookup(anchorSite lexis.Site, rule syntax.Rule) (*syntax.CacheEntry, bool) {
	byRule, ok := c.bySite[anchorSite]
	if !ok {
		return nil, false
	}
	entry, ok := byRule[rule]
	return entry, ok
}

func (c *cacheTable) Insert(anchorSite lexis.Site, entry *syntax.CacheEntry) {
	byRule, ok := c.bySite[anchorSite]
	if !ok {
		byRule = make(map[syntax.Rule]*syntax.CacheEntry, 1)
		c.bySite[anchorSite] = byRule
	}
	byRule[entry.Rule] = entry
}

func (c *cacheTable) Remove(anchorSite lexis.Site, rule syntax.Rule) {
	byRule, ok := c.bySite[anchorSite]
	if !ok {
		return
	}
	delete(byRule, rule)
	if len(byRule) == 0 {
		delete(c.bySite, anchorSite)
	}
}

func (c *cacheTable) Each(fn func(anchorSite lexis.Site, entry *syntax.CacheEntry)) {
	for site, byRule := range c.bySite {
		for _, entry := range byRule {
			fn(site, entry)
		}
	}
}

func (c *cacheTable) len() int {
	n := 0
	for _, byRule := range c.bySite {
		n += len(byRule)
	}
	return n
}
