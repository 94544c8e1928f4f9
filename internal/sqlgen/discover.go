package sqlgen

import (
	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// plan accumulates model discovery state across a single Generate call:
// required models in first-seen order, and the raw measure/column names
// each model's CTE must project, per spec.md §4.2 steps 1-2.
type plan struct {
	g *graph.SemanticGraph

	modelOrder []string
	modelSeen  map[string]bool

	measuresByModel map[string][]string
	measureSeen     map[string]bool
}

func newPlan(g *graph.SemanticGraph) *plan {
	return &plan{
		g:               g,
		modelSeen:       make(map[string]bool),
		measuresByModel: make(map[string][]string),
		measureSeen:     make(map[string]bool),
	}
}

func (p *plan) addModel(name string) error {
	if p.modelSeen[name] {
		return nil
	}
	if _, err := p.g.GetModel(name); err != nil {
		return semerr.NewUnknownReference("model", name, "")
	}
	p.modelSeen[name] = true
	p.modelOrder = append(p.modelOrder, name)
	return nil
}

func (p *plan) addMeasure(model, col string) {
	key := model + "." + col
	if p.measureSeen[key] {
		return
	}
	p.measureSeen[key] = true
	p.measuresByModel[model] = append(p.measuresByModel[model], col)
}

// walkDimension pulls in the dimension's owning model.
func (p *plan) walkDimension(ref string) error {
	dr, ok := query.ParseDimensionRef(ref)
	if !ok {
		return semerr.NewUnknownReference("dimension", ref, "")
	}
	return p.addModel(dr.Model)
}

// walkMetric resolves ref, registers its owning model (if any) and, for an
// aggregation metric, its raw measure column; for composite metric types it
// recurses through dependencies_of, detecting cycles via chain.
func (p *plan) walkMetric(ref metricRef, chain []string) error {
	metric, modelCtx, err := resolveMetricRef(p.g, ref)
	if err != nil {
		return err
	}

	key := ref.String()
	if modelCtx != "" && ref.Model == "" {
		key = modelCtx + "." + ref.Name
	}
	for _, c := range chain {
		if c == key {
			return semerr.NewUnresolvableDependency(key, append(append([]string{}, chain...), key))
		}
	}

	if modelCtx != "" {
		if err := p.addModel(modelCtx); err != nil {
			return err
		}
	}

	if metric.Type == graphmodel.MetricAggregation {
		if modelCtx != "" {
			p.addMeasure(modelCtx, metric.Name)
		}
		return nil
	}

	deps, err := p.g.DependenciesOf(metric, modelCtx)
	if err != nil {
		return err
	}
	nextChain := append(append([]string{}, chain...), key)
	for _, dep := range deps {
		if err := p.walkDependency(dep, modelCtx, nextChain); err != nil {
			return err
		}
	}
	return nil
}

// walkDependency handles one dependencies_of() entry, which may be a genuine
// metric reference (recurse) or a raw model column (terminal: register as a
// measure to project, e.g. a cumulative metric's base column).
func (p *plan) walkDependency(dep, fallbackModel string, chain []string) error {
	depRef := parseMetricRef(dep)

	if depRef.Model != "" {
		if err := p.addModel(depRef.Model); err != nil {
			return err
		}
		if _, ok := p.g.FindModelMetric(depRef.Model, depRef.Name); ok {
			return p.walkMetric(depRef, chain)
		}
		// Not a declared metric: a raw column reference (e.g. a cumulative
		// metric's base expression). The owning CTE projects it directly.
		p.addMeasure(depRef.Model, depRef.Name)
		return nil
	}

	if _, err := p.g.GetMetric(depRef.Name); err == nil {
		return p.walkMetric(depRef, chain)
	}

	return semerr.NewUnknownReference("metric", dep, fallbackModel)
}

// discoverModels implements spec.md §4.2 steps 1-2: parse dimensions, then
// walk dimensions first and metrics (recursively through dependencies)
// second, in first-seen order. The first model encountered is the base
// model.
func discoverModels(g *graph.SemanticGraph, req *query.Request) (*plan, error) {
	p := newPlan(g)

	for _, d := range req.Dimensions {
		if err := p.walkDimension(d); err != nil {
			return nil, err
		}
	}
	for _, m := range req.Metrics {
		if err := p.walkMetric(parseMetricRef(m), nil); err != nil {
			return nil, err
		}
	}
	for _, model := range extractFilterModels(req.Filters) {
		if err := p.addModel(model); err != nil {
			return nil, err
		}
	}

	if len(p.modelOrder) == 0 {
		return nil, semerr.NewUnknownReference("request", "", "no model could be discovered from dimensions or metrics")
	}
	return p, nil
}
