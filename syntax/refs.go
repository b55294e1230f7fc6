// Package syntax implements the parser-visible runtime: the
// Node/Grammar production tables, the Session parser productions are
// driven through, the syntax cache entries incremental reparsing
// reuses, and the weak reference types
// (NodeRef/ErrorRef/TokenRef) the rest of the system uses to address
// into a unit's parse tree without holding Go pointers across edits.
package syntax

import (
	"github.com/google/uuid"

	"github.com/odvcencio/increparse/arena"
)

// UnitID identifies the document a ref belongs to, so a stale ref from
// one unit is never silently resolved against another.
type UnitID = uuid.UUID

// NodeRef is a weak, versioned reference to a parsed Node, scoped to one
// unit. It survives edits to unrelated parts of the tree; dereferencing
// it after its node has been freed (by cache invalidation or deletion)
// reports ok=false rather than returning stale data.
type NodeRef struct {
	Unit  UnitID
	Entry arena.Entry
}

// NilNodeRef is returned by operations that have no node to reference
// (e.g. a capture that a recovered production could not fill).
var NilNodeRef = NodeRef{Entry: arena.Nil}

func (r NodeRef) IsNil() bool { return r.Entry.IsNil() }

// ErrorRef is a weak reference to a recorded SyntaxError.
type ErrorRef struct {
	Unit  UnitID
	Entry arena.Entry
}

func (r ErrorRef) IsNil() bool { return r.Entry.IsNil() }

// TokenRef is a weak reference to a lexed token snapshot (kind, span,
// text) captured during parsing — e.g. the $String token an Entry node
// keeps as its key. It is a copy taken at parse time, not a live cursor
// into the storage tree, so it remains valid (though stale) even after
// the tree it was read from is spliced; callers that need liveness
// should re-resolve through the owning Unit.
type TokenRef struct {
	Unit  UnitID
	Entry arena.Entry
}

func (r TokenRef) IsNil() bool { return r.Entry.IsNil() }
