package graph

import (
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/internal/sqlast"
)

// DependenciesOf returns the direct dependency references for metric (as
// "model.metric"/"model.field" or bare metric names), per spec.md §4.1.
// modelContext is the owning model's name when metric is a measure on a
// model, or "" for a graph-level metric.
func (g *SemanticGraph) DependenciesOf(metric *graphmodel.Metric, modelContext string) ([]string, error) {
	switch metric.Type {
	case graphmodel.MetricRatio:
		return dedupeStrings([]string{metric.Numerator, metric.Denominator}), nil
	case graphmodel.MetricTimeComparison:
		return []string{metric.BaseMetric}, nil
	case graphmodel.MetricCumulative, graphmodel.MetricDerived:
		return g.extractSQLDependencies(metric.SQL, modelContext)
	default:
		// aggregation and conversion metrics are leaves: an aggregation
		// measures a raw column directly, and a conversion metric's
		// entity/base_event/conversion_event name columns and segments, not
		// other metrics.
		return nil, nil
	}
}

// extractSQLDependencies implements spec.md §4.1's derived/untyped-with-sql
// extraction rules.
func (g *SemanticGraph) extractSQLDependencies(sql, modelContext string) ([]string, error) {
	if qualifier, name, ok := sqlast.IsSingleQualifiedIdentifier(sql); ok {
		return []string{qualifier + "." + name}, nil
	}

	expr, err := sqlast.ParseExpr(sql)
	if err != nil {
		return nil, err
	}

	if sqlast.ContainsAggregateCall(expr) {
		// Self-contained expression metric: inline aggregations are its
		// children, not graph dependencies.
		return nil, nil
	}

	refs := sqlast.ColumnRefs(expr)
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		var resolved string
		if r.Qualifier != "" {
			resolved = r.Qualifier + "." + r.Name
		} else {
			resolved = g.resolveBareName(r.Name, modelContext)
		}
		if !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	}
	return out, nil
}

// ResolveBareMetricName exposes resolveBareName for callers outside this
// package (the generator's derived-metric textual substitution needs the
// same bare-name resolution order used during dependency extraction).
func (g *SemanticGraph) ResolveBareMetricName(name, modelContext string) string {
	return g.resolveBareName(name, modelContext)
}

// resolveBareName implements spec.md §4.1's bare-name resolution order:
// graph-level metric, then the contextual model's own metric, then any
// model's matching metric. Returns the name unchanged (unresolved) when none
// match, for error-surfacing downstream.
func (g *SemanticGraph) resolveBareName(name, modelContext string) string {
	if _, err := g.GetMetric(name); err == nil {
		return name
	}
	if modelContext != "" {
		if _, ok := g.FindModelMetric(modelContext, name); ok {
			return modelContext + "." + name
		}
	}
	for _, mn := range g.ModelNames() {
		if _, ok := g.FindModelMetric(mn, name); ok {
			return mn + "." + name
		}
	}
	return name
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
