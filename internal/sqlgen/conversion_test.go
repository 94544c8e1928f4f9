package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
)

func eventsGraph(t *testing.T) *graph.SemanticGraph {
	t.Helper()
	g := graph.New()
	m := graphmodel.NewModel("events")
	m.Table = "events"
	m.DefaultTimeDimension = "occurred_at"
	m.Metrics = []graphmodel.Metric{
		{
			Name:             "signup_to_purchase",
			Type:             graphmodel.MetricConversion,
			Entity:           "user_id",
			BaseEvent:        "signup",
			ConversionEvent:  "purchase",
			ConversionWindow: "7 days",
			Model:            "events",
		},
	}
	require.NoError(t, g.AddModel(m))
	g.Seal()
	return g
}

func TestGenerateConversionMetricBypassesDiscovery(t *testing.T) {
	g := eventsGraph(t)
	req := &query.Request{Metrics: []string{"events.signup_to_purchase"}}

	got, err := Generate(g, req)
	require.NoError(t, err)

	require.Contains(t, got, "WITH base_events AS (SELECT user_id AS entity, occurred_at AS ts FROM events WHERE event_name = 'signup')")
	require.Contains(t, got, "conversion_events AS (SELECT user_id AS entity, occurred_at AS ts FROM events WHERE event_name = 'purchase')")
	require.Contains(t, got, "INTERVAL '7 day'")
	require.Contains(t, got, "AS signup_to_purchase FROM base_events LEFT JOIN conversions ON conversions.entity = base_events.entity")
}

func TestGenerateConversionDefaultsTimestampColumnWhenUnset(t *testing.T) {
	g := graph.New()
	m := graphmodel.NewModel("events")
	m.Table = "events"
	m.Metrics = []graphmodel.Metric{
		{
			Name: "conv", Type: graphmodel.MetricConversion,
			Entity: "user_id", BaseEvent: "a", ConversionEvent: "b",
			ConversionWindow: "1 day", Model: "events",
		},
	}
	require.NoError(t, g.AddModel(m))
	g.Seal()

	got, err := Generate(g, &query.Request{Metrics: []string{"events.conv"}})
	require.NoError(t, err)
	require.Contains(t, got, "SELECT user_id AS entity, ts AS ts FROM events WHERE event_name = 'a'")
}
