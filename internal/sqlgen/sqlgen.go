package sqlgen

import (
	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semconfig"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// generator holds the per-call state threaded through the Parsing request ->
// Model discovery -> Window-class detection -> (Straight-line | Window-path)
// -> Join expansion -> CTE emission -> Main select emission -> Done pipeline
// of spec.md §4.2.
type generator struct {
	g       *graph.SemanticGraph
	req     *query.Request
	dialect dialect.Dialect

	jp     *joinPlan
	ctes   map[string]*cteBuild
	fanOut bool

	dims []dimRef
}

// dimRef is a parsed dimension request, resolved against its owning model.
type dimRef struct {
	Model       string
	Dim         string
	Granularity string
}

// Generate compiles req against g into a single physical SQL string, per
// spec.md §4.2. g must already be sealed.
func Generate(g *graph.SemanticGraph, req *query.Request) (string, error) {
	d := req.EffectiveDialect()
	if !d.Valid() {
		return "", semerr.NewUnsupportedMetricType("dialect:" + string(d))
	}

	gn := &generator{g: g, req: req, dialect: d}

	if err := gn.parseDimensions(); err != nil {
		return "", err
	}

	// Conversion metrics render via their own self-contained three-CTE
	// template (spec.md §4.2's last bullet) and never join the generic
	// CTE-per-model pipeline below.
	for _, raw := range req.Metrics {
		metric, modelCtx, err := resolveMetricRef(g, parseMetricRef(raw))
		if err != nil {
			return "", err
		}
		if metric.Type == graphmodel.MetricConversion {
			return gn.generateConversion(metric, modelCtx)
		}
	}

	p, err := discoverModels(g, req)
	if err != nil {
		return "", err
	}

	windowed, err := gn.anyWindowed(req.Metrics)
	if err != nil {
		return "", err
	}

	jp, err := expandJoinClosure(g, p.modelOrder)
	if err != nil {
		return "", err
	}
	gn.jp = jp

	gn.fanOut = semconfig.Default.SymmetricAggregatesEnabled && computeFanOut(jp)

	requestedGranular := make(map[string][]query_dimGran)
	for _, dr := range gn.dims {
		if dr.Granularity != "" {
			requestedGranular[dr.Model] = append(requestedGranular[dr.Model], query_dimGran{dim: dr.Dim, grain: dr.Granularity})
		}
	}

	ctes, err := buildCTEs(g, jp, p.measuresByModel, requestedGranular, d)
	if err != nil {
		return "", err
	}
	gn.ctes = ctes

	if err := gn.validateGranularities(); err != nil {
		return "", err
	}

	if windowed {
		return gn.generateWindowed(p)
	}
	return gn.generateStraightLine(p)
}

// parseDimensions splits every requested dimension reference into its model,
// name, and optional granularity suffix.
func (gn *generator) parseDimensions() error {
	for _, d := range gn.req.Dimensions {
		ref, ok := query.ParseDimensionRef(d)
		if !ok {
			return semerr.NewUnknownReference("dimension", d, "")
		}
		gn.dims = append(gn.dims, dimRef{Model: ref.Model, Dim: ref.Dim, Granularity: ref.Granularity})
	}
	return nil
}

// validateGranularities enforces a dimension's supported_granularities
// allow-list (spec.md §4.2 "Numerics / ties / edge cases").
func (gn *generator) validateGranularities() error {
	for _, dr := range gn.dims {
		if dr.Granularity == "" {
			continue
		}
		m, err := gn.g.GetModel(dr.Model)
		if err != nil {
			return err
		}
		dim, ok := m.Dimension(dr.Dim)
		if !ok {
			return semerr.NewUnknownReference("dimension", dr.Dim, dr.Model)
		}
		if !dim.SupportsGranularity(graphmodel.Granularity(dr.Granularity)) {
			allowed := make([]string, len(dim.SupportedGranularities))
			for i, g := range dim.SupportedGranularities {
				allowed[i] = string(g)
			}
			return semerr.NewUnsupportedGranularity(dr.Model+"."+dr.Dim, dr.Granularity, allowed)
		}
	}
	return nil
}

// anyWindowed reports whether any top-level requested metric forces the
// window-function path (spec.md §4.2).
func (gn *generator) anyWindowed(refs []string) (bool, error) {
	for _, raw := range refs {
		metric, _, err := resolveMetricRef(gn.g, parseMetricRef(raw))
		if err != nil {
			return false, err
		}
		if metric.IsWindowed() {
			return true, nil
		}
	}
	return false, nil
}

// computeFanOut implements spec.md §4.2's fan-out detection: count the base
// model's direct one_to_many edges into other required models; >= 2 triggers
// symmetric aggregates for the base model's measures.
func computeFanOut(jp *joinPlan) bool {
	toMany := make(map[string]bool)
	for _, path := range jp.pathTo {
		for _, hop := range path {
			if hop.FromModel == jp.base && hop.RelType == graphmodel.OneToMany {
				toMany[hop.ToModel] = true
			}
		}
	}
	return len(toMany) >= 2
}

// outputAlias returns the output column alias for a requested dimension
// reference: "{dim}__{granularity}" for a granular time dimension, else the
// bare dimension name.
func (dr dimRef) outputAlias() string {
	if dr.Granularity != "" {
		return dr.Dim + "__" + dr.Granularity
	}
	return dr.Dim
}
