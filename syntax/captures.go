package syntax

import orderedmap "github.com/wk8/go-ordered-map/v2"

// CaptureValue is whatever a node capture can hold: a single NodeRef or
// TokenRef, or a slice of either (e.g. the JSON grammar's Object
// "entries").
type CaptureValue = any

// Captures is an insertion-ordered map from a node's capture field name
// to its value, as returned by Node.Captures. Concrete node types are
// plain Go structs for normal field access; Captures exists for generic
// tree-walking code (the cmd/increparse dumper, say) that needs to
// enumerate a node's fields without knowing its concrete Go type, in
// the declared field order the grammar author wrote them in — which is
// why the representation is an ordered map and not a plain one.
type Captures = *orderedmap.OrderedMap[string, CaptureValue]

// NewCaptures returns an empty, insertion-ordered capture map.
func NewCaptures() Captures {
	return orderedmap.New[string, CaptureValue]()
}
