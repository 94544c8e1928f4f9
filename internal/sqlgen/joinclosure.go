package sqlgen

import "github.com/sidequery/sidemantic-sub003/internal/graph"

// joinPlan is the result of expanding the join closure from the base model
// to every other initially-discovered model, per spec.md §4.2 step 3.
type joinPlan struct {
	base string

	// order is the full required-model set (initial discoveries plus every
	// intermediate model pulled in by a join path), in first-seen order.
	order []string

	// pathTo holds, for every non-base model in the *initial* discovery
	// set, the ordered hops connecting it to base.
	pathTo map[string][]graph.JoinHop
}

func expandJoinClosure(g *graph.SemanticGraph, initial []string) (*joinPlan, error) {
	base := initial[0]
	jp := &joinPlan{base: base, order: []string{base}, pathTo: make(map[string][]graph.JoinHop)}
	seen := map[string]bool{base: true}

	for _, other := range initial[1:] {
		if other == base {
			continue
		}
		path, err := g.FindRelationshipPath(base, other)
		if err != nil {
			return nil, err
		}
		jp.pathTo[other] = path
		for _, hop := range path {
			for _, mn := range [2]string{hop.FromModel, hop.ToModel} {
				if !seen[mn] {
					seen[mn] = true
					jp.order = append(jp.order, mn)
				}
			}
		}
		if !seen[other] {
			seen[other] = true
			jp.order = append(jp.order, other)
		}
	}

	return jp, nil
}

// joinHops returns every hop to emit as a LEFT JOIN, in emission order,
// skipping models already joined by an earlier path (spec.md §4.2 step 5).
func (jp *joinPlan) joinHops(initialOthers []string) []graph.JoinHop {
	joined := map[string]bool{jp.base: true}
	var hops []graph.JoinHop
	for _, other := range initialOthers {
		if other == jp.base {
			continue
		}
		for _, hop := range jp.pathTo[other] {
			if joined[hop.ToModel] {
				continue
			}
			joined[hop.ToModel] = true
			hops = append(hops, hop)
		}
	}
	return hops
}
