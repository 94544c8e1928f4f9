package rewriter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

func ordersGraph(t *testing.T) *graph.SemanticGraph {
	t.Helper()
	g := graph.New()
	m := graphmodel.NewModel("orders")
	m.Table = "orders"
	m.Dimensions = []graphmodel.Dimension{{Name: "status", Type: graphmodel.Categorical}}
	m.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
	}
	require.NoError(t, g.AddModel(m))
	g.Seal()
	return g
}

func TestParseToRequestFromModelQualified(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT orders.status, orders.revenue FROM orders")
	require.NoError(t, err)
	require.Equal(t, []string{"orders.status"}, req.Dimensions)
	require.Equal(t, []string{"orders.revenue"}, req.Metrics)
}

func TestParseToRequestFromModelUnqualified(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT status, revenue FROM orders")
	require.NoError(t, err)
	require.Equal(t, []string{"orders.status"}, req.Dimensions)
	require.Equal(t, []string{"orders.revenue"}, req.Metrics)
}

func TestParseToRequestFromMetricsQualified(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT orders.status, orders.revenue FROM metrics")
	require.NoError(t, err)
	require.Equal(t, []string{"orders.status"}, req.Dimensions)
	require.Equal(t, []string{"orders.revenue"}, req.Metrics)
}

func TestParseToRequestFromMetricsUnqualifiedMetricOK(t *testing.T) {
	g := graph.New()
	m := graphmodel.NewModel("orders")
	m.Table = "orders"
	m.Metrics = []graphmodel.Metric{
		{Name: "revenue", Type: graphmodel.MetricAggregation, Agg: graphmodel.AggSum, SQL: "amount"},
	}
	require.NoError(t, g.AddModel(m))
	require.NoError(t, g.AddMetric(&graphmodel.Metric{Name: "total_revenue", Type: graphmodel.MetricDerived, SQL: "orders.revenue"}))
	g.Seal()
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT total_revenue FROM metrics")
	require.NoError(t, err)
	require.Equal(t, []string{"total_revenue"}, req.Metrics)
}

func TestParseToRequestFromMetricsUnqualifiedDimensionIsAmbiguous(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	_, err := r.ParseToRequest("SELECT status FROM metrics")
	var semErr *semerr.Error
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, semerr.AmbiguousReference, semErr.Kind)
}

func TestParseToRequestSelectStarExpandsModel(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT * FROM orders")
	require.NoError(t, err)
	require.Equal(t, []string{"orders.status"}, req.Dimensions)
	require.Equal(t, []string{"orders.revenue"}, req.Metrics)
}

func TestParseToRequestSelectStarAgainstMetricsRejected(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	_, err := r.ParseToRequest("SELECT * FROM metrics")
	require.Error(t, err)
}

func TestParseToRequestAggregateInSelectRejected(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	_, err := r.ParseToRequest("SELECT SUM(orders.revenue) FROM orders")
	var semErr *semerr.Error
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, semerr.AggregatesMustBeMetrics, semErr.Kind)
}

func TestParseToRequestExplicitJoinRejected(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	_, err := r.ParseToRequest("SELECT revenue FROM orders JOIN customers ON orders.customer_id = customers.id")
	var semErr *semerr.Error
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, semerr.ExplicitJoinUnsupported, semErr.Kind)
}

func TestParseToRequestFiltersOrderLimitOffset(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	req, err := r.ParseToRequest("SELECT status, revenue FROM orders WHERE orders.status = 'shipped' ORDER BY revenue DESC LIMIT 10 OFFSET 5")
	require.NoError(t, err)
	require.Equal(t, []string{"orders.status = 'shipped'"}, req.Filters)
	require.Equal(t, []string{"revenue DESC"}, req.OrderBy)
	require.NotNil(t, req.Limit)
	require.Equal(t, 10, *req.Limit)
	require.NotNil(t, req.Offset)
	require.Equal(t, 5, *req.Offset)
}

func TestRewriteStrictModeErrorsOnUnknownModel(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	_, err := r.Rewrite("SELECT * FROM widgets")
	require.Error(t, err)
}

func TestRewriteNonStrictPassesThroughUnrelatedQuery(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, NonStrict)

	sql := "SELECT * FROM information_schema.tables"
	got, err := r.Rewrite(sql)
	require.NoError(t, err)
	require.Equal(t, sql, got)
}

func TestRewriteNonStrictCompilesKnownModel(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, NonStrict)

	got, err := r.Rewrite("SELECT status, revenue FROM orders")
	require.NoError(t, err)
	require.Contains(t, got, "WITH orders_cte AS")
	require.Contains(t, got, "SUM(orders_cte.revenue_raw) AS revenue")
}

func TestRewriteInputTooLarge(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)
	r.MaxInputBytes = 10

	_, err := r.Rewrite("SELECT status, revenue FROM orders")
	var semErr *semerr.Error
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, semerr.InputTooLarge, semErr.Kind)
}

func TestRewriteSplicesWithClausePassthrough(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	sql := "WITH inner_q AS (SELECT status, revenue FROM orders) SELECT * FROM inner_q WHERE revenue > 100"
	got, err := r.Rewrite(sql)
	require.NoError(t, err)
	require.Contains(t, got, "WITH inner_q AS (WITH orders_cte AS")
	require.Contains(t, got, "SELECT * FROM inner_q WHERE revenue > 100")
}

func TestRewriteSplicesFromSubqueryPassthrough(t *testing.T) {
	g := ordersGraph(t)
	r := New(g, dialect.DuckDB, Strict)

	sql := "SELECT x.status FROM (SELECT status, revenue FROM orders) AS x WHERE x.revenue > 100"
	got, err := r.Rewrite(sql)
	require.NoError(t, err)
	require.Contains(t, got, "FROM (WITH orders_cte AS")
	require.Contains(t, got, "WHERE x.revenue > 100")
}
