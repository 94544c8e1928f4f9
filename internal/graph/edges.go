package graph

import "github.com/sidequery/sidemantic-sub003/internal/graphmodel"

// edge is one relationship's contribution to the undirected join adjacency.
// owner is the model that declared the relationship; target is the model it
// names (r.Name). Column hosting follows the "many" side owns the FK"
// invariant from spec.md §3: for many_to_one/one_to_one the FK lives on the
// owner, for one_to_many it lives on the target (the child collection); the
// other side's column defaults to that side's own primary key.
type edge struct {
	owner, target string
	relType       graphmodel.RelationshipType

	ownerCols, targetCols []string

	// many_to_many only: the join passes through this table, matching
	// ownerCols against throughOwnerCol and targetCols against
	// throughTargetCol.
	through          string
	throughOwnerCol  string
	throughTargetCol string
}

func (e *edge) other(node string) string {
	if node == e.owner {
		return e.target
	}
	return e.owner
}

func (e *edge) colsFor(node string) []string {
	if node == e.owner {
		return e.ownerCols
	}
	return e.targetCols
}

// relTypeFrom returns the relationship type as it reads from node's point of
// view: unchanged if node is the declaring (owner) side, inverted otherwise.
func (e *edge) relTypeFrom(node string) graphmodel.RelationshipType {
	if node == e.owner {
		return e.relType
	}
	return e.relType.Invert()
}

func buildEdge(m *graphmodel.Model, r *graphmodel.Relationship, models map[string]*graphmodel.Model) (edge, bool) {
	target, ok := models[r.Name]
	if !ok {
		return edge{}, false
	}

	e := edge{owner: m.Name, target: r.Name, relType: r.Type}

	switch r.Type {
	case graphmodel.ManyToOne, graphmodel.OneToOne:
		e.ownerCols = r.ResolvedForeignKey()
		e.targetCols = r.ResolvedPrimaryKey(target.PrimaryKey)
	case graphmodel.OneToMany:
		e.targetCols = r.ResolvedForeignKey()
		e.ownerCols = r.ResolvedPrimaryKey(m.PrimaryKey)
	case graphmodel.ManyToMany:
		e.through = r.Through
		e.throughOwnerCol = r.ThroughForeignKey
		e.throughTargetCol = r.RelatedForeignKey
		e.ownerCols = []string{m.PrimaryKey}
		e.targetCols = []string{target.PrimaryKey}
	default:
		return edge{}, false
	}

	n := len(e.ownerCols)
	if len(e.targetCols) < n {
		n = len(e.targetCols)
	}
	e.ownerCols, e.targetCols = e.ownerCols[:n], e.targetCols[:n]
	if n == 0 {
		return edge{}, false
	}
	return e, true
}
