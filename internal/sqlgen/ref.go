// Package sqlgen compiles a structured request against a semantic graph into
// a single physical SQL string, per spec.md §4.2. Grounded on
// original_source/sidemantic/sql/generator_v2.py for the state-machine shape
// (parse -> model discovery -> window-class detection -> straight-line|window
// -> join expansion -> CTE emission -> main select -> done), and on the
// teacher's internal/repository/query.go for the Masterminds/squirrel
// text-assembly idiom reused here purely to build SQL text (no RunWith, no
// DB handle — this layer never executes anything).
package sqlgen

import (
	"strings"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// metricRef is a parsed metrics[] or dependency entry: either "model.name"
// (a measure on model, or a qualified metric/raw-column dependency) or a
// bare graph-level metric name.
type metricRef struct {
	Model string // "" for an unqualified (graph-level) reference
	Name  string
}

func parseMetricRef(raw string) metricRef {
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		return metricRef{Model: raw[:dot], Name: raw[dot+1:]}
	}
	return metricRef{Name: raw}
}

func (r metricRef) String() string {
	if r.Model == "" {
		return r.Name
	}
	return r.Model + "." + r.Name
}

// resolveMetricRef resolves ref to its *graphmodel.Metric definition and the
// model that owns it ("" for a graph-level metric).
func resolveMetricRef(g *graph.SemanticGraph, ref metricRef) (*graphmodel.Metric, string, error) {
	if ref.Model != "" {
		m, err := g.GetModel(ref.Model)
		if err != nil {
			return nil, "", semerr.NewUnknownReference("model", ref.Model, "")
		}
		metric, ok := m.Metric(ref.Name)
		if !ok {
			return nil, "", semerr.NewUnknownReference("metric", ref.Name, ref.Model)
		}
		return metric, ref.Model, nil
	}
	metric, err := g.GetMetric(ref.Name)
	if err != nil {
		return nil, "", semerr.NewUnknownReference("metric", ref.Name, "")
	}
	return metric, "", nil
}
