package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
)

func ordersOnlyGraph(t *testing.T) *graph.SemanticGraph {
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
	}
	require.NoError(t, g.AddModel(m))
	g.Seal()
	return g
}

func TestGenerateStraightLineSingleModel(t *testing.T) {
	g := ordersOnlyGraph(t)
	req := &query.Request{
		Metrics:    []string{"orders.revenue"},
		Dimensions: []string{"orders.status"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)

	want := "WITH orders_cte AS (SELECT id AS id, status AS status, created_at AS created_at, amount AS revenue_raw FROM orders) " +
		"SELECT orders_cte.status AS status, SUM(orders_cte.revenue_raw) AS revenue FROM orders_cte GROUP BY 1"
	require.Equal(t, want, got)
}

func TestGenerateStraightLineWithFilterOrderLimit(t *testing.T) {
	g := ordersOnlyGraph(t)
	limit := 10
	offset := 5
	req := &query.Request{
		Metrics:    []string{"orders.revenue"},
		Dimensions: []string{"orders.status"},
		Filters:    []string{"orders.status = 'shipped'"},
		OrderBy:    []string{"revenue DESC"},
		Limit:      &limit,
		Offset:     &offset,
	}

	got, err := Generate(g, req)
	require.NoError(t, err)
	require.Contains(t, got, "WHERE orders_cte.status = 'shipped'")
	require.Contains(t, got, "GROUP BY 1")
	require.Contains(t, got, "ORDER BY revenue DESC")
	require.Contains(t, got, "LIMIT 10")
	require.Contains(t, got, "OFFSET 5")
}

func TestGenerateGranularDimension(t *testing.T) {
	g := ordersOnlyGraph(t)
	req := &query.Request{
		Metrics:    []string{"orders.revenue"},
		Dimensions: []string{"orders.created_at__month"},
	}

	got, err := Generate(g, req)
	require.NoError(t, err)
	require.Contains(t, got, "DATE_TRUNC('month', created_at) AS created_at__month")
	require.Contains(t, got, "orders_cte.created_at__month AS created_at__month")
}

func TestGenerateUnsupportedGranularityRejected(t *testing.T) {
	g := ordersOnlyGraph(t)
	req := &query.Request{
		Metrics:    []string{"orders.revenue"},
		Dimensions: []string{"orders.created_at__year"},
	}

	_, err := Generate(g, req)
	require.Error(t, err)
}

func TestGenerateUnknownMetricFails(t *testing.T) {
	g := ordersOnlyGraph(t)
	req := &query.Request{Metrics: []string{"orders.nonexistent"}}
	_, err := Generate(g, req)
	require.Error(t, err)
}

func TestGenerateInvalidDialectFails(t *testing.T) {
	g := ordersOnlyGraph(t)
	req := &query.Request{
		Metrics: []string{"orders.revenue"},
		Dialect: "not-a-real-dialect",
	}
	_, err := Generate(g, req)
	require.Error(t, err)
}
