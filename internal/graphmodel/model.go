// Package graphmodel holds the plain data types that make up a semantic
// catalog: Model, Dimension, Metric, Relationship, Parameter, and Segment.
// These are value types owned by a SemanticGraph (package graph); nothing in
// this package does lookups or compilation — see internal/graph for that.
package graphmodel

// Model is a named logical relation: either a physical table or an inline
// SQL source, never both, per spec.md §3.
type Model struct {
	Name string

	// Physical source: exactly one of Table/SQL is set.
	Table string
	SQL   string

	// PrimaryKey names the single column identifying a row of this model.
	// Defaults to "id" when constructed via NewModel.
	PrimaryKey string

	Dimensions    []Dimension
	Metrics       []Metric
	Relationships []Relationship
	Segments      []Segment

	DefaultTimeDimension string
	DefaultGrain         string
}

// NewModel builds a Model with the spec.md default PrimaryKey of "id". Use
// struct literals directly when a non-default primary key is needed from
// the start; this constructor just saves repeating the default.
func NewModel(name string) *Model {
	return &Model{Name: name, PrimaryKey: "id"}
}

// Source reports the model's physical source, and whether it is an inline
// SQL source (true) or a table reference (false).
func (m *Model) Source() (src string, isSQL bool) {
	if m.SQL != "" {
		return m.SQL, true
	}
	return m.Table, false
}

// Dimension looks up a dimension by name on this model.
func (m *Model) Dimension(name string) (*Dimension, bool) {
	for i := range m.Dimensions {
		if m.Dimensions[i].Name == name {
			return &m.Dimensions[i], true
		}
	}
	return nil, false
}

// Metric looks up a metric by name on this model.
func (m *Model) Metric(name string) (*Metric, bool) {
	for i := range m.Metrics {
		if m.Metrics[i].Name == name {
			return &m.Metrics[i], true
		}
	}
	return nil, false
}

// Relationship looks up a relationship by its target model name.
func (m *Model) Relationship(targetName string) (*Relationship, bool) {
	for i := range m.Relationships {
		if m.Relationships[i].Name == targetName {
			return &m.Relationships[i], true
		}
	}
	return nil, false
}

// Segment looks up a named predicate on this model.
func (m *Model) Segment(name string) (*Segment, bool) {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i], true
		}
	}
	return nil, false
}
