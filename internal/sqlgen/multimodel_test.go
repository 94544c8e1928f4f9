package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
)

// ordersCustomersGraph is a two-model graph (orders many_to_one customers)
// used to exercise a genuine join across Generate rather than a single-CTE
// query.
func ordersCustomersGraph(t *testing.T) *graph.SemanticGraph {
	t.Helper()
	g := graph.New()

	orders := graphmodel.NewModel("orders")
	orders.Table = "orders"
	orders.Dimensions = []graphmodel.Dimension{
		{Name: "status", Type: graphmodel.Categorical},
	}
	orders.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
	}
	orders.Relationships = []graphmodel.Relationship{
		{Type: graphmodel.ManyToOne, Name: "customers"},
	}
	require.NoError(t, g.AddModel(orders))

	customers := graphmodel.NewModel("customers")
	customers.Table = "customers"
	customers.Dimensions = []graphmodel.Dimension{
		{Name: "region", Type: graphmodel.Categorical},
	}
	require.NoError(t, g.AddModel(customers))

	g.Seal()
	return g
}

// TestGenerateTwoModelJoin covers S2: a request spanning two models must
// produce a CTE for each and a join hop connecting them, not two disjoint
// queries.
func TestGenerateTwoModelJoin(t *testing.T) {
	g := ordersCustomersGraph(t)
	req := &query.Request{
		Dimensions: []string{"orders.status", "customers.region"},
		Metrics:    []string{"orders.revenue"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)

	require.Contains(t, got, "orders_cte AS (SELECT id AS id, customers_id AS customers_id, status AS status, amount AS revenue_raw FROM orders)")
	require.Contains(t, got, "customers_cte AS (SELECT id AS id, region AS region FROM customers)")
	require.Contains(t, got, "LEFT JOIN customers_cte ON orders_cte.customers_id = customers_cte.id")
	require.Contains(t, got, "orders_cte.status AS status")
	require.Contains(t, got, "customers_cte.region AS region")
	require.Contains(t, got, "SUM(orders_cte.revenue_raw) AS revenue")
}

// TestGenerateFilterOnlyModelJoinsIn covers the discovery-unions-filters rule
// (a filter naming a model not otherwise requested still pulls that model's
// CTE and join hop in, rather than leaving a dangling correlation name).
func TestGenerateFilterOnlyModelJoinsIn(t *testing.T) {
	g := ordersCustomersGraph(t)
	req := &query.Request{
		Metrics: []string{"orders.revenue"},
		Filters: []string{"customers.region = 'EMEA'"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)

	require.Contains(t, got, "customers_cte AS (SELECT id AS id, region AS region FROM customers)")
	require.Contains(t, got, "LEFT JOIN customers_cte ON orders_cte.customers_id = customers_cte.id")
	require.Contains(t, got, "WHERE customers_cte.region = 'EMEA'")
}

// TestGenerateFilterOnUndiscoverableModelFails covers the other half of the
// same rule: a filter naming a model absent from the catalog entirely must
// raise an error instead of splicing an unrewritten reference into the WHERE
// clause.
func TestGenerateFilterOnUndiscoverableModelFails(t *testing.T) {
	g := ordersCustomersGraph(t)
	req := &query.Request{
		Metrics: []string{"orders.revenue"},
		Filters: []string{"shipments.carrier = 'ups'"},
	}

	_, err := Generate(g, req)
	require.Error(t, err)
}

// fanOutGraph gives "orders" two distinct one_to_many relationships
// (items, payments), each required via a requested dimension, so that
// computeFanOut triggers symmetric-aggregate rendering of orders.revenue.
func fanOutGraph(t *testing.T) *graph.SemanticGraph {
	t.Helper()
	g := graph.New()

	orders := graphmodel.NewModel("orders")
	orders.Table = "orders"
	orders.Dimensions = []graphmodel.Dimension{
		{Name: "category", Type: graphmodel.Categorical},
	}
	orders.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
	}
	orders.Relationships = []graphmodel.Relationship{
		{Type: graphmodel.OneToMany, Name: "items", ForeignKey: []string{"order_id"}},
		{Type: graphmodel.OneToMany, Name: "payments", ForeignKey: []string{"order_id"}},
	}
	require.NoError(t, g.AddModel(orders))

	items := graphmodel.NewModel("items")
	items.Table = "items"
	items.Dimensions = []graphmodel.Dimension{{Name: "sku", Type: graphmodel.Categorical}}
	require.NoError(t, g.AddModel(items))

	payments := graphmodel.NewModel("payments")
	payments.Table = "payments"
	payments.Dimensions = []graphmodel.Dimension{{Name: "method", Type: graphmodel.Categorical}}
	require.NoError(t, g.AddModel(payments))

	g.Seal()
	return g
}

// TestGenerateFanOutUsesSymmetricAggregate covers S3: a base model with two
// one_to_many relationships into other required models must render its
// aggregation metric through the hash/multiplier symmetric-aggregate form
// instead of a plain SUM, or duplicated child rows would double-count it.
func TestGenerateFanOutUsesSymmetricAggregate(t *testing.T) {
	g := fanOutGraph(t)
	req := &query.Request{
		Dimensions: []string{"orders.category", "items.sku", "payments.method"},
		Metrics:    []string{"orders.revenue"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)

	require.Contains(t, got, "LEFT JOIN items_cte ON orders_cte.id = items_cte.order_id")
	require.Contains(t, got, "LEFT JOIN payments_cte ON orders_cte.id = payments_cte.order_id")
	require.Contains(t, got, "HASH(orders_cte.id)::HUGEINT")
	require.Contains(t, got, "orders_cte.revenue_raw")
	require.NotContains(t, got, "SUM(orders_cte.revenue_raw) AS revenue")
}

// ordersWithCumulativeGraph is a single-model graph whose orders model
// additionally declares a cumulative metric running over its own revenue
// aggregation.
func ordersWithCumulativeGraph(t *testing.T) *graph.SemanticGraph {
	t.Helper()
	g := graph.New()
	m := graphmodel.NewModel("orders")
	m.Table = "orders"
	m.Dimensions = []graphmodel.Dimension{
		{Name: "status", Type: graphmodel.Categorical},
		{Name: "created_at", Type: graphmodel.Time, SupportedGranularities: []graphmodel.Granularity{graphmodel.Day, graphmodel.Month}},
	}
	m.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
		{Name: "running_revenue", Type: graphmodel.MetricCumulative, SQL: "orders.revenue"},
	}
	require.NoError(t, g.AddModel(m))
	g.Seal()
	return g
}

// TestGenerateCumulativeWindow covers S4: a cumulative metric with no
// explicit window/grain_to_date defaults to a running total over the whole
// partition, via the inner straight-line query wrapped by an outer window
// SELECT.
func TestGenerateCumulativeWindow(t *testing.T) {
	g := ordersWithCumulativeGraph(t)
	req := &query.Request{
		Dimensions: []string{"orders.created_at"},
		Metrics:    []string{"orders.running_revenue"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)

	want := "SELECT base.created_at AS created_at, " +
		"SUM(base.revenue) OVER (ORDER BY base.created_at ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS running_revenue " +
		"FROM (WITH orders_cte AS (SELECT id AS id, status AS status, created_at AS created_at, amount AS revenue_raw FROM orders) " +
		"SELECT orders_cte.created_at AS created_at, SUM(orders_cte.revenue_raw) AS revenue FROM orders_cte GROUP BY 1) AS base"
	require.Equal(t, want, got)
}
