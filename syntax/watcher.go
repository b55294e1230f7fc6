package syntax

// Watcher is notified of every tree alteration during a write: new or
// reused nodes/errors, and removals caused by cache invalidation, so
// an external semantic layer can invalidate whatever it derived from
// them. A semantic attribute graph is the intended consumer; the
// runtime itself only requires events to be emitted in topological
// order (a node is reported before any node that captures it).
type Watcher interface {
	ReportNode(ref NodeRef, n Node)
	ReportError(ref ErrorRef, err SyntaxError)
	ReportNodeRemoved(ref NodeRef)
	ReportErrorRemoved(ref ErrorRef)
}

// VoidWatcher discards every event. It is the default for callers with
// no attached semantic layer.
type VoidWatcher struct{}

func (VoidWatcher) ReportNode(NodeRef, Node)          {}
func (VoidWatcher) ReportError(ErrorRef, SyntaxError) {}
func (VoidWatcher) ReportNodeRemoved(NodeRef)         {}
func (VoidWatcher) ReportErrorRemoved(ErrorRef)       {}
