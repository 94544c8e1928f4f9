package graph

import (
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// JoinHop is one edge of a relationship path, per spec.md §4.1.
type JoinHop struct {
	FromModel string
	ToModel   string

	// Columns are paired positionally; len > 1 means a composite key.
	FromColumns []string
	ToColumns   []string

	// RelType is the relationship's cardinality as read FromModel -> ToModel.
	RelType graphmodel.RelationshipType

	// Through table fields, set only when RelType == ManyToMany.
	Through          string
	ThroughFromCol   string
	ThroughToCol     string
}

type pathKey struct{ from, to string }

// FindRelationshipPath returns the shortest ordered sequence of join hops
// connecting from to to. Returns an empty slice when from == to. Fails with
// NotFound when either model is missing, NoJoinPath when unreachable.
func (g *SemanticGraph) FindRelationshipPath(from, to string) ([]JoinHop, error) {
	g.mu.RLock()
	_, fromOK := g.models[from]
	_, toOK := g.models[to]
	g.mu.RUnlock()
	if !fromOK {
		return nil, semerr.NewNotFound("model", from)
	}
	if !toOK {
		return nil, semerr.NewNotFound("model", to)
	}
	if from == to {
		return []JoinHop{}, nil
	}

	g.ensureAdjacency()

	key := pathKey{from, to}
	if cached, ok := g.pathCache.Get(key); ok {
		return cloneHops(cached), nil
	}

	g.mu.RLock()
	adj := g.adj
	g.mu.RUnlock()

	type frame struct {
		node string
		path []JoinHop
	}

	visited := map[string]bool{from: true}
	queue := []frame{{node: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range adj[cur.node] {
			next := e.other(cur.node)
			if visited[next] {
				continue
			}

			hop := JoinHop{
				FromModel:      cur.node,
				ToModel:        next,
				FromColumns:    e.colsFor(cur.node),
				ToColumns:      e.colsFor(next),
				RelType:        e.relTypeFrom(cur.node),
				Through:        e.through,
				ThroughFromCol: e.throughOwnerColFor(cur.node),
				ThroughToCol:   e.throughOwnerColFor(next),
			}

			newPath := make([]JoinHop, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = hop

			if next == to {
				g.pathCache.Add(key, cloneHops(newPath))
				return newPath, nil
			}

			visited[next] = true
			queue = append(queue, frame{node: next, path: newPath})
		}
	}

	return nil, semerr.NewNoJoinPath(from, to)
}

// throughOwnerColFor returns the many_to_many through-table column
// associated with node (owner side gets throughOwnerCol, target side gets
// throughTargetCol); empty for non-many_to_many edges.
func (e *edge) throughOwnerColFor(node string) string {
	if e.through == "" {
		return ""
	}
	if node == e.owner {
		return e.throughOwnerCol
	}
	return e.throughTargetCol
}

func cloneHops(hops []JoinHop) []JoinHop {
	out := make([]JoinHop, len(hops))
	copy(out, hops)
	return out
}
