package lexis

import (
	"fmt"

	"github.com/rivo/uniseg"
)

// Line is a 1-based line number. Line 0 is treated the same as line 1.
type Line = int

// Column is a 1-based, character-counted column within a line. Column 0
// is treated the same as column 1. The line delimiter itself (\n, and
// the \r of \r\n) is part of the line's tail.
type Column = int

// Position is a 1-based (line, column) pair. A Position is always
// "valid": ToSite clamps out-of-range lines to the text end and
// out-of-range columns to the line end.
type Position struct {
	Line   Line
	Column Column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Less orders positions first by line, then by column.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// PositionSpan is a range addressed by (line, column) pairs instead of
// sites. Units accept either form at the write boundary; a
// PositionSpan resolves to a site Span against the document's current
// line index, inheriting Position's clamping for out-of-range lines
// and columns.
type PositionSpan struct {
	Start Position
	End   Position
}

// ToSpan resolves the position range to site coordinates against li.
// An inverted range (End before Start) resolves to an inverted Span,
// which the write boundary rejects the same way it rejects an inverted
// site span.
func (ps PositionSpan) ToSpan(li *LineIndex) Span {
	return Span{Start: li.ToSite(ps.Start), End: li.ToSite(ps.End)}
}

// LineIndex maps between Site offsets and (Line, Column) positions in
// O(log lines) by keeping a sorted table of line-start sites. Lines are
// counted in characters (runes), matching the Site/Length coordinate
// system, not bytes or grapheme clusters.
//
// LineIndex additionally exposes a grapheme-cluster-counted column
// (DisplayColumn) for hosts that need visual alignment (e.g. a terminal
// or editor gutter); it does not participate in the Site<->Position
// round trip, which is defined purely in characters.
type LineIndex struct {
	// lineStarts[i] is the Site of the first character of line i+1
	// (lineStarts[0] == 0 is always the start of line 1).
	lineStarts []Site
	length     Site
}

// NewLineIndex builds a LineIndex by scanning text for line terminators.
// \n, \r\n, and a lone \r all count as a single line break, and the
// break characters belong to the line they terminate.
func NewLineIndex(text []rune) *LineIndex {
	idx := &LineIndex{lineStarts: []Site{0}}
	var site Site
	for i := 0; i < len(text); i++ {
		r := text[i]
		switch r {
		case '\n':
			site++
			idx.lineStarts = append(idx.lineStarts, site)
		case '\r':
			site++
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
				site++
			}
			idx.lineStarts = append(idx.lineStarts, site)
		default:
			site++
		}
	}
	idx.length = site
	return idx
}

// Lines returns the number of lines in the indexed text (always >= 1).
func (li *LineIndex) Lines() int { return len(li.lineStarts) }

// Length returns the total character count of the indexed text.
func (li *LineIndex) Length() Site { return li.length }

// LineSpan returns the [start, end) character span of the given 1-based
// line. Lines beyond the last line clamp to an empty span at text end.
func (li *LineIndex) LineSpan(line Line) Span {
	if line < 1 {
		line = 1
	}
	n := len(li.lineStarts)
	i := line - 1
	if i >= n {
		return Span{Start: li.length, End: li.length}
	}
	start := li.lineStarts[i]
	end := li.length
	if i+1 < n {
		end = li.lineStarts[i+1]
	}
	return Span{Start: start, End: end}
}

// lineOf returns the 0-based index into lineStarts covering site via
// binary search over the sorted line-start table.
func (li *LineIndex) lineOf(site Site) int {
	lo, hi := 0, len(li.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineStarts[mid] <= site {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// ToPosition converts a Site to a (Line, Column) pair. Sites beyond the
// text end clamp to the position just past the last character.
func (li *LineIndex) ToPosition(site Site) Position {
	if site > li.length {
		site = li.length
	}
	lineIdx := li.lineOf(site)
	return Position{Line: lineIdx + 1, Column: int(site-li.lineStarts[lineIdx]) + 1}
}

// ToSite converts a Position to a Site, clamping a too-large line to the
// text end and a too-large column to the line's end: the line's last
// break character, or the text end on the last line.
func (li *LineIndex) ToSite(pos Position) Site {
	span := li.LineSpan(pos.Line)
	col := pos.Column
	if col < 0 {
		col = 0
	}
	offset := Site(col)
	if col > 0 {
		offset = Site(col - 1)
	}
	limit := span.End
	if max(pos.Line, 1) < li.Lines() {
		limit = span.End - 1
	}
	site := span.Start + offset
	if site > limit {
		site = limit
	}
	return site
}

// DisplayColumn returns the 1-based column of site on its line, counted
// in user-perceived characters (grapheme clusters, via
// github.com/rivo/uniseg) rather than runes: a combining accent or a
// multi-rune emoji sequence occupies one column. text must be the same
// text the index was built from. This is a display-oriented measurement
// for hosts rendering a gutter or cursor column; ToSite/ToPosition stay
// rune-counted.
func (li *LineIndex) DisplayColumn(text []rune, site Site) Column {
	if site > li.length {
		site = li.length
	}
	span := li.LineSpan(li.ToPosition(site).Line)
	prefix := string(text[span.Start:site])

	count := 0
	state := -1
	for len(prefix) > 0 {
		_, rest, _, newState := uniseg.FirstGraphemeClusterInString(prefix, state)
		prefix = rest
		state = newState
		count++
	}
	return count + 1
}
