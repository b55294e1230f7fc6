package lexer

import (
	"github.com/clipperhouse/uax29/v2/words"

	"github.com/odvcencio/increparse/lexis"
)

// wordBoundaries returns the set of rune offsets in text that lie on a
// Unicode word-segmentation boundary (UAX #29), used by the resync-point
// tightening in Relex. Best-effort: grammars
// that need this precision are expected to be the exception, not the
// rule, so we don't try to make this incremental.
func wordBoundaries(text []rune) map[lexis.Site]bool {
	bounds := map[lexis.Site]bool{0: true, lexis.Site(len(text)): true}

	s := string(text)
	seg := words.FromString(s)
	var runeOffset lexis.Site
	for seg.Next() {
		runeOffset += lexis.Site(len([]rune(seg.Value())))
		bounds[runeOffset] = true
	}
	return bounds
}
