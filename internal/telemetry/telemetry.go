// Package telemetry wraps the compiler's entry points (Generate, Rewrite,
// and GenerateJSON for a raw-JSON caller) with Prometheus counters/
// histograms and a per-call correlation ID logged through pkg/log, per
// spec.md §5's "many compile calls may run in parallel" note and
// SPEC_FULL.md's ambient-observability stance. Grounded on the teacher's
// pervasive prometheus/client_golang usage and on evalgo-org-eve/tracing/
// metrics.go's promauto.NewCounterVec/NewHistogramVec shape; the per-call
// correlation ID follows the same evalgo package's correlation_id label
// convention, generated with google/uuid.
package telemetry

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/rewriter"
	"github.com/sidequery/sidemantic-sub003/internal/sqlgen"
	"github.com/sidequery/sidemantic-sub003/pkg/log"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semconfig"
)

var (
	generateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidemantic_generate_total",
		Help: "Total number of Generate compile calls, by dialect and outcome.",
	}, []string{"dialect", "outcome"})

	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sidemantic_generate_duration_seconds",
		Help:    "Generate compile call latency in seconds, by dialect.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	rewriteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidemantic_rewrite_total",
		Help: "Total number of Rewrite calls, by dialect and outcome.",
	}, []string{"dialect", "outcome"})

	rewriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sidemantic_rewrite_duration_seconds",
		Help:    "Rewrite call latency in seconds, by dialect.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})
)

// Generate instruments sqlgen.Generate: every call gets a correlation ID
// logged at entry and exit, a duration observation, and an outcome-labeled
// counter increment. The underlying compile itself stays pure per spec.md
// §5 — this wrapper adds no state shared across calls.
func Generate(g *graph.SemanticGraph, req *query.Request) (string, error) {
	id := uuid.New().String()
	d := string(req.EffectiveDialect())
	log.Debugf("compile=%s generate dialect=%s metrics=%d dimensions=%d", id, d, len(req.Metrics), len(req.Dimensions))

	start := time.Now()
	sql, err := sqlgen.Generate(g, req)
	generateDuration.WithLabelValues(d).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Errorf("compile=%s generate failed: %v", id, err)
	} else {
		log.Debugf("compile=%s generate ok", id)
	}
	generateTotal.WithLabelValues(d, outcome).Inc()
	return sql, err
}

// GenerateJSON is the entry point for a request arriving as externally-
// supplied JSON (an HTTP body, a queued message) rather than an
// already-built query.Request: it validates the raw JSON against
// pkg/semconfig's schema before decoding, then instruments the decoded
// request through Generate exactly as a caller who built the Request
// directly would.
func GenerateJSON(g *graph.SemanticGraph, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if err := semconfig.ValidateRequestJSON(bytes.NewReader(raw)); err != nil {
		return "", err
	}

	var req query.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", err
	}
	return Generate(g, &req)
}

// Rewrite instruments (*rewriter.Rewriter).Rewrite the same way Generate
// instruments sqlgen.Generate.
func Rewrite(r *rewriter.Rewriter, sql string) (string, error) {
	id := uuid.New().String()
	d := string(r.Dialect)
	log.Debugf("compile=%s rewrite dialect=%s mode=%d", id, d, r.Mode)

	start := time.Now()
	out, err := r.Rewrite(sql)
	rewriteDuration.WithLabelValues(d).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Errorf("compile=%s rewrite failed: %v", id, err)
	} else {
		log.Debugf("compile=%s rewrite ok", id)
	}
	rewriteTotal.WithLabelValues(d, outcome).Inc()
	return out, err
}
