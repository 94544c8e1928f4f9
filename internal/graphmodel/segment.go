package graphmodel

// Segment is a named SQL predicate attached to a model. The core's filter
// rewriting treats a reference to `{model}.{segment}` as an opaque boolean
// expression; adapters (out of scope here) are the other consumer spec.md §3
// names.
type Segment struct {
	Name string
	SQL  string
}
