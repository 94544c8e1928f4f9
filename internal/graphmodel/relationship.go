package graphmodel

// RelationshipType is the join cardinality discriminator, per spec.md §3.
type RelationshipType string

const (
	ManyToOne  RelationshipType = "many_to_one"
	OneToOne   RelationshipType = "one_to_one"
	OneToMany  RelationshipType = "one_to_many"
	ManyToMany RelationshipType = "many_to_many"
)

// Relationship is a directed join definition attached to the owning model.
// Column lists support composite keys; the common single-column case is
// []string of length 1.
type Relationship struct {
	Type RelationshipType

	// Name is the target model's name.
	Name string

	// ForeignKey names the column(s) on the "many" side (the side that owns
	// the FK). For many_to_one this defaults to "{Name}_id" on the owning
	// model; other types default to "id".
	ForeignKey []string

	// PrimaryKey names the column(s) on the target model the FK points at.
	// Defaults to the target model's own PrimaryKey.
	PrimaryKey []string

	// Through-table fields, only meaningful for many_to_many.
	Through            string
	ThroughForeignKey  string
	RelatedForeignKey  string
}

// ResolvedForeignKey returns the foreign key column, defaulting per
// spec.md §3's relationship defaults: many_to_one defaults to
// "{target}_id" on the owning model; everything else defaults to "id".
// Composite keys (len > 1) are returned as-is without defaulting.
func (r *Relationship) ResolvedForeignKey() []string {
	if len(r.ForeignKey) > 0 {
		return r.ForeignKey
	}
	if r.Type == ManyToOne {
		return []string{r.Name + "_id"}
	}
	return []string{"id"}
}

// ResolvedPrimaryKey returns the target-side key column(s), defaulting to
// the target model's own primary key when unset.
func (r *Relationship) ResolvedPrimaryKey(targetPK string) []string {
	if len(r.PrimaryKey) > 0 {
		return r.PrimaryKey
	}
	return []string{targetPK}
}

// Invert returns the relationship type as seen from the other side of the
// join: many_to_one <-> one_to_many; one_to_one and many_to_many are
// self-inverse.
func (t RelationshipType) Invert() RelationshipType {
	switch t {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	default:
		return t
	}
}

// IsToMany reports whether the "many" side of this relationship, from the
// owning model's point of view, is the target model (fan-out risk).
func (t RelationshipType) IsToMany() bool {
	return t == OneToMany || t == ManyToMany
}
