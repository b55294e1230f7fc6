package units

import (
	"github.com/odvcencio/increparse/internal/obslog"
	"github.com/odvcencio/increparse/syntax"
)

// DebugWatcher logs every node/error report and removal through
// internal/obslog at Debug level. Useful when diagnosing a reparse that
// seems to rebuild more of the tree than expected; silent by default
// since obslog discards unless a host calls obslog.SetHandler.
type DebugWatcher struct{}

func (DebugWatcher) ReportNode(ref syntax.NodeRef, n syntax.Node) {
	rule := syntax.Rule(0)
	if n != nil {
		rule = n.Rule()
	}
	obslog.Debug("node reported", "index", ref.Entry.Index, "version", ref.Entry.Version, "rule", rule)
}

func (DebugWatcher) ReportError(ref syntax.ErrorRef, err syntax.SyntaxError) {
	obslog.Debug("error reported", "index", ref.Entry.Index, "err", syntax.ParseError{SyntaxError: err})
}

func (DebugWatcher) ReportNodeRemoved(ref syntax.NodeRef) {
	obslog.Debug("node removed", "index", ref.Entry.Index, "version", ref.Entry.Version)
}

func (DebugWatcher) ReportErrorRemoved(ref syntax.ErrorRef) {
	obslog.Debug("error removed", "index", ref.Entry.Index, "version", ref.Entry.Version)
}
