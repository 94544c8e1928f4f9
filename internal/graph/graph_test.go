package graph

import (
	"errors"
	"testing"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

func ordersModel() *graphmodel.Model {
	m := graphmodel.NewModel("orders")
	m.Table = "orders"
	m.Dimensions = []graphmodel.Dimension{
		{Name: "status", Type: graphmodel.Categorical},
		{Name: "created_at", Type: graphmodel.Time, SupportedGranularities: []graphmodel.Granularity{graphmodel.Day, graphmodel.Month}},
	}
	m.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
	}
	m.Relationships = []graphmodel.Relationship{
		{Type: graphmodel.ManyToOne, Name: "customers"},
	}
	return m
}

func customersModel() *graphmodel.Model {
	m := graphmodel.NewModel("customers")
	m.Table = "customers"
	m.Dimensions = []graphmodel.Dimension{{Name: "region", Type: graphmodel.Categorical}}
	return m
}

func TestAddModelDuplicateName(t *testing.T) {
	g := New()
	if err := g.AddModel(ordersModel()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := g.AddModel(ordersModel())
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.DuplicateName {
		t.Fatalf("expected DuplicateName, got %v", err)
	}
}

func TestAddModelRejectedAfterSeal(t *testing.T) {
	g := New()
	_ = g.AddModel(ordersModel())
	g.Seal()

	err := g.AddModel(customersModel())
	if err == nil {
		t.Fatal("expected AddModel to fail after Seal")
	}
}

func TestGetModelNotFound(t *testing.T) {
	g := New()
	_, err := g.GetModel("missing")
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestFindRelationshipPathDirect(t *testing.T) {
	g := New()
	_ = g.AddModel(ordersModel())
	_ = g.AddModel(customersModel())
	g.Seal()

	hops, err := g.FindRelationshipPath("orders", "customers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hops) != 1 {
		t.Fatalf("expected 1 hop, got %d", len(hops))
	}
	hop := hops[0]
	if hop.FromModel != "orders" || hop.ToModel != "customers" {
		t.Fatalf("unexpected hop endpoints: %+v", hop)
	}
	if hop.RelType != graphmodel.ManyToOne {
		t.Fatalf("expected ManyToOne from orders' point of view, got %s", hop.RelType)
	}
	if len(hop.FromColumns) != 1 || hop.FromColumns[0] != "customers_id" {
		t.Fatalf("expected default FK customers_id, got %v", hop.FromColumns)
	}
	if len(hop.ToColumns) != 1 || hop.ToColumns[0] != "id" {
		t.Fatalf("expected target PK id, got %v", hop.ToColumns)
	}
}

func TestFindRelationshipPathReverseDirection(t *testing.T) {
	g := New()
	_ = g.AddModel(ordersModel())
	_ = g.AddModel(customersModel())
	g.Seal()

	hops, err := g.FindRelationshipPath("customers", "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hops) != 1 {
		t.Fatalf("expected 1 hop, got %d", len(hops))
	}
	if hops[0].RelType != graphmodel.OneToMany {
		t.Fatalf("expected OneToMany from customers' point of view, got %s", hops[0].RelType)
	}
}

func TestFindRelationshipPathSameModel(t *testing.T) {
	g := New()
	_ = g.AddModel(ordersModel())
	g.Seal()

	hops, err := g.FindRelationshipPath("orders", "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hops) != 0 {
		t.Fatalf("expected empty path for from == to, got %v", hops)
	}
}

func TestFindRelationshipPathNoJoinPath(t *testing.T) {
	g := New()
	_ = g.AddModel(ordersModel())
	_ = g.AddModel(customersModel())

	other := graphmodel.NewModel("warehouses")
	other.Table = "warehouses"
	_ = g.AddModel(other)
	g.Seal()

	_, err := g.FindRelationshipPath("orders", "warehouses")
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.NoJoinPath {
		t.Fatalf("expected NoJoinPath, got %v", err)
	}
}

func TestFindRelationshipPathTransitive(t *testing.T) {
	// orders -> customers -> regions, BFS should find the two-hop path.
	g := New()
	_ = g.AddModel(ordersModel())

	customers := customersModel()
	customers.Relationships = []graphmodel.Relationship{{Type: graphmodel.ManyToOne, Name: "regions"}}
	_ = g.AddModel(customers)

	regions := graphmodel.NewModel("regions")
	regions.Table = "regions"
	_ = g.AddModel(regions)
	g.Seal()

	hops, err := g.FindRelationshipPath("orders", "regions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d: %+v", len(hops), hops)
	}
	if hops[0].ToModel != "customers" || hops[1].ToModel != "regions" {
		t.Fatalf("unexpected hop order: %+v", hops)
	}
}

func TestDependenciesOfRatio(t *testing.T) {
	g := New()
	m := ordersModel()
	m.Metrics = append(m.Metrics, graphmodel.Metric{
		Name: "aov", Type: graphmodel.MetricRatio,
		Numerator: "orders.revenue", Denominator: "orders.order_count",
	})
	_ = g.AddModel(m)
	g.Seal()

	metric, _ := m.Metric("aov")
	deps, err := g.DependenciesOf(metric, "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 2 || deps[0] != "orders.revenue" || deps[1] != "orders.order_count" {
		t.Fatalf("unexpected deps: %v", deps)
	}
}

func TestDependenciesOfDerivedBareName(t *testing.T) {
	g := New()
	m := ordersModel()
	m.Metrics = append(m.Metrics, graphmodel.Metric{
		Name: "revenue_per_order", Type: graphmodel.MetricDerived,
		SQL: "revenue / order_count",
	})
	m.Metrics = append(m.Metrics, graphmodel.Metric{
		Name: "order_count", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggCount,
	})
	_ = g.AddModel(m)
	g.Seal()

	metric, _ := m.Metric("revenue_per_order")
	deps, err := g.DependenciesOf(metric, "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]bool{"orders.revenue": true, "orders.order_count": true}
	if len(deps) != 2 || !want[deps[0]] || !want[deps[1]] {
		t.Fatalf("unexpected deps: %v", deps)
	}
}

func TestDependenciesOfAggregationIsLeaf(t *testing.T) {
	g := New()
	m := ordersModel()
	_ = g.AddModel(m)
	g.Seal()

	metric, _ := m.Metric("revenue")
	deps, err := g.DependenciesOf(metric, "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 0 {
		t.Fatalf("expected aggregation metric to be a dependency leaf, got %v", deps)
	}
}
