package syntax

import "github.com/odvcencio/increparse/lexis"

// CacheEntry is a persisted parse result attached to the chunk where its
// rule began, ready for reuse by a later parse reaching the same spot.
type CacheEntry struct {
	Rule Rule

	// ParseEnd is the ref of the first chunk after the rule's last
	// consumed token (or the EOI sentinel token).
	ParseEnd TokenRef

	// Lookahead is max_site_peeked - parse_end.site: how far past
	// ParseEnd the parser's token(n) calls looked, tracked by the
	// session's token cursor while this rule was being parsed.
	Lookahead lexis.Length

	PrimaryNode    NodeRef
	SecondaryNodes []NodeRef
	Errors         []ErrorRef

	// Depth is the rule-invocation nesting depth at which this entry
	// was created (the root rule is 0). Reparse uses it to pick the
	// structurally innermost of two covering entries whose anchor and
	// covered span coincide — a rule and the child it immediately
	// descends into can be indistinguishable by span alone.
	Depth int

	// AnchorSite is the start site of the anchor chunk, cached here so
	// invalidation doesn't need a tree lookup per entry.
	AnchorSite lexis.Site
	// CoveredEnd is AnchorSite + covered length + Lookahead: the site
	// one past the last character this entry's validity depends on.
	CoveredEnd lexis.Site
}

// Span returns the entry's dependence span, [anchor site, anchor site +
// covered length + lookahead) — the character range whose content this
// entry's validity depends on.
func (c *CacheEntry) Span() lexis.Span {
	return lexis.Span{Start: c.AnchorSite, End: c.CoveredEnd}
}
