// Package graph owns the in-memory semantic catalog: the SemanticGraph type,
// its Build/Serve lifecycle, relationship path-finding, and metric dependency
// extraction. Nothing in this package emits SQL; see internal/sqlgen for
// that.
package graph

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/log"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// pathCacheSize bounds the LRU used to memoize FindRelationshipPath results.
// This is topology memoization over an immutable catalog, not a cache of
// query results (see DESIGN.md).
const pathCacheSize = 4096

// SemanticGraph is the catalog of models, graph-level metrics, and
// parameters. It has two lifecycle phases: Build (mutation allowed, no
// concurrent reads) and Serve (read-only, arbitrary concurrent reads),
// entered via Seal(). This mirrors the teacher's sync.Once-guarded
// connection singleton (internal/repository/dbConnection.go) generalized
// into an explicit two-phase lifecycle per spec.md §5/§9.
type SemanticGraph struct {
	mu sync.RWMutex

	models     map[string]*graphmodel.Model
	modelOrder []string

	metrics     map[string]*graphmodel.Metric
	metricOrder []string

	parameters map[string]*graphmodel.Parameter

	sealed bool

	adjDirty bool
	adj      map[string][]edge

	sealOnce  sync.Once
	rebuildSF singleflight.Group
	pathCache *lru.Cache[pathKey, []JoinHop]
}

// New returns an empty graph in the Build phase.
func New() *SemanticGraph {
	g := &SemanticGraph{
		models:     make(map[string]*graphmodel.Model),
		metrics:    make(map[string]*graphmodel.Metric),
		parameters: make(map[string]*graphmodel.Parameter),
		adjDirty:   true,
	}
	c, err := lru.New[pathKey, []JoinHop](pathCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which pathCacheSize never is.
		panic(err)
	}
	g.pathCache = c
	return g
}

// AddModel registers a model. Fails with DuplicateName if the name is
// already taken. Auto-promotes any time_comparison/conversion metric found
// on the model into the graph-level metric registry when the name isn't
// already taken, per spec.md §4.1.
func (g *SemanticGraph) AddModel(m *graphmodel.Model) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sealed {
		log.Warnf("graph: AddModel(%s) called after Seal()", m.Name)
		return semerr.NewDuplicateName("model", m.Name) // mutation after seal is a programming error; surfaced uniformly
	}
	if _, exists := g.models[m.Name]; exists {
		return semerr.NewDuplicateName("model", m.Name)
	}

	g.models[m.Name] = m
	g.modelOrder = append(g.modelOrder, m.Name)
	g.adjDirty = true

	for i := range m.Metrics {
		met := &m.Metrics[i]
		if met.Type == graphmodel.MetricTimeComparison || met.Type == graphmodel.MetricConversion {
			if _, taken := g.metrics[met.Name]; !taken {
				g.metrics[met.Name] = met
				g.metricOrder = append(g.metricOrder, met.Name)
			}
		}
	}

	log.Debugf("graph: added model %q (%d dimensions, %d metrics, %d relationships)",
		m.Name, len(m.Dimensions), len(m.Metrics), len(m.Relationships))
	return nil
}

// AddMetric registers a graph-level metric. Fails with DuplicateName if the
// name is already taken.
func (g *SemanticGraph) AddMetric(m *graphmodel.Metric) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sealed {
		log.Warnf("graph: AddMetric(%s) called after Seal()", m.Name)
		return semerr.NewDuplicateName("metric", m.Name)
	}
	if _, exists := g.metrics[m.Name]; exists {
		return semerr.NewDuplicateName("metric", m.Name)
	}
	g.metrics[m.Name] = m
	g.metricOrder = append(g.metricOrder, m.Name)
	return nil
}

// AddParameter registers a parameter. Fails with DuplicateName if the name
// is already taken.
func (g *SemanticGraph) AddParameter(p *graphmodel.Parameter) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sealed {
		log.Warnf("graph: AddParameter(%s) called after Seal()", p.Name)
		return semerr.NewDuplicateName("parameter", p.Name)
	}
	if _, exists := g.parameters[p.Name]; exists {
		return semerr.NewDuplicateName("parameter", p.Name)
	}
	g.parameters[p.Name] = p
	return nil
}

// GetModel looks up a model by name.
func (g *SemanticGraph) GetModel(name string) (*graphmodel.Model, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.models[name]
	if !ok {
		return nil, semerr.NewNotFound("model", name)
	}
	return m, nil
}

// GetMetric looks up a graph-level metric by name.
func (g *SemanticGraph) GetMetric(name string) (*graphmodel.Metric, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.metrics[name]
	if !ok {
		return nil, semerr.NewNotFound("metric", name)
	}
	return m, nil
}

// GetParameter looks up a parameter by name.
func (g *SemanticGraph) GetParameter(name string) (*graphmodel.Parameter, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.parameters[name]
	if !ok {
		return nil, semerr.NewNotFound("parameter", name)
	}
	return p, nil
}

// ModelNames returns model names in insertion order.
func (g *SemanticGraph) ModelNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.modelOrder))
	copy(out, g.modelOrder)
	return out
}

// Models returns every registered model in insertion order.
func (g *SemanticGraph) Models() []*graphmodel.Model {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*graphmodel.Model, 0, len(g.modelOrder))
	for _, n := range g.modelOrder {
		out = append(out, g.models[n])
	}
	return out
}

// FindModelMetric resolves a metric that may live on a model (a "measure")
// by name, independent of the graph-level metric registry.
func (g *SemanticGraph) FindModelMetric(modelName, metricName string) (*graphmodel.Metric, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.models[modelName]
	if !ok {
		return nil, false
	}
	return m.Metric(metricName)
}

// Seal transitions the graph from Build to Serve: it recomputes the
// adjacency index once and thereafter AddModel/AddMetric/AddParameter are
// rejected. Calling Seal multiple times is safe (idempotent after the
// first call), matching the teacher's sync.Once-guarded singleton init.
func (g *SemanticGraph) Seal() {
	g.sealOnce.Do(func() {
		g.mu.Lock()
		g.rebuildAdjacencyLocked()
		g.sealed = true
		g.mu.Unlock()
		log.Infof("graph: sealed with %d models, %d graph-level metrics", len(g.modelOrder), len(g.metricOrder))
	})
}

// Sealed reports whether the graph has completed Build and entered Serve.
func (g *SemanticGraph) Sealed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sealed
}

// ensureAdjacency rebuilds the lazy adjacency index on first read after a
// mutation, collapsing concurrent first-callers onto a single rebuild via
// singleflight, per spec.md §5's "one-time initialization primitive" clause.
// Safe to call whether or not the graph has been Sealed.
func (g *SemanticGraph) ensureAdjacency() {
	g.mu.RLock()
	dirty := g.adjDirty
	g.mu.RUnlock()
	if !dirty {
		return
	}

	_, _, _ = g.rebuildSF.Do("adjacency", func() (interface{}, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.adjDirty {
			g.rebuildAdjacencyLocked()
		}
		return nil, nil
	})
}

// rebuildAdjacencyLocked recomputes the undirected join adjacency from every
// model's relationships. Caller must hold g.mu for writing.
func (g *SemanticGraph) rebuildAdjacencyLocked() {
	adj := make(map[string][]edge, len(g.models))
	for _, name := range g.modelOrder {
		m := g.models[name]
		for i := range m.Relationships {
			r := &m.Relationships[i]
			e, ok := buildEdge(m, r, g.models)
			if !ok {
				continue
			}
			adj[e.owner] = append(adj[e.owner], e)
			if e.owner != e.target {
				adj[e.target] = append(adj[e.target], e)
			}
		}
	}
	g.adj = adj
	g.adjDirty = false
	g.pathCache.Purge()
}
