package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/internal/sqlast"
	"github.com/sidequery/sidemantic-sub003/internal/symagg"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// compileMetricSQL recursively compiles a metric reference into its physical
// aggregate expression, per spec.md §4.2's main-SELECT projection rules.
// Compiles aggregation/ratio/derived metrics. Cumulative, time_comparison and
// conversion metrics are rendered by window.go and conversion.go; one that
// reaches this function as a dependency of a ratio or derived metric is
// rejected with UnsupportedMetricComposition.
func (gn *generator) compileMetricSQL(ref metricRef) (string, error) {
	metric, modelCtx, err := resolveMetricRef(gn.g, ref)
	if err != nil {
		return "", err
	}

	switch metric.Type {
	case graphmodel.MetricAggregation:
		return gn.compileAggregation(metric, modelCtx)
	case graphmodel.MetricRatio:
		return gn.compileRatio(metric, modelCtx)
	case graphmodel.MetricDerived:
		return gn.compileDerived(metric, modelCtx)
	default:
		return "", semerr.NewUnsupportedMetricComposition(ref.String(), string(metric.Type))
	}
}

func (gn *generator) compileAggregation(metric *graphmodel.Metric, modelCtx string) (string, error) {
	cb := gn.ctes[modelCtx]

	if metric.Agg == graphmodel.AggCount && metric.SQL == "*" {
		if gn.fanOut && modelCtx == gn.jp.base {
			return wrapFill(fmt.Sprintf("COUNT(DISTINCT %s.%s)", cb.alias, cb.model.PrimaryKey), metric.FillNullsWith), nil
		}
		return wrapFill("COUNT(*)", metric.FillNullsWith), nil
	}

	rawCol := fmt.Sprintf("%s.%s_raw", cb.alias, metric.Name)
	var expr string
	var err error
	if gn.fanOut && modelCtx == gn.jp.base {
		pkExpr := cb.alias + "." + cb.model.PrimaryKey
		expr, err = symagg.Build(gn.dialect, metric.Agg, rawCol, pkExpr, modelCtx)
		if err != nil {
			return "", err
		}
	} else {
		expr = symagg.PlainAgg(metric.Agg, rawCol)
	}
	return wrapFill(expr, metric.FillNullsWith), nil
}

func (gn *generator) compileRatio(metric *graphmodel.Metric, modelCtx string) (string, error) {
	num, err := gn.compileMetricSQL(contextualRef(metric.Numerator, modelCtx))
	if err != nil {
		return "", err
	}
	denom, err := gn.compileMetricSQL(contextualRef(metric.Denominator, modelCtx))
	if err != nil {
		return "", err
	}
	expr := fmt.Sprintf("(%s) / NULLIF(%s, 0)", num, denom)
	return wrapFill(expr, metric.FillNullsWith), nil
}

// compileDerived implements spec.md §4.1/§4.2's derived-metric rule: a
// self-contained expression (one containing an inline aggregate call) has
// its raw `model.field` column references rewritten to `{model}_cte.{field}`
// and is otherwise left as written; a non-self-contained expression has each
// dependency token textually substituted with that dependency's own
// compiled, parenthesized expression.
func (gn *generator) compileDerived(metric *graphmodel.Metric, modelCtx string) (string, error) {
	expr, err := sqlast.ParseExpr(metric.SQL)
	if err != nil {
		return "", err
	}

	if sqlast.ContainsAggregateCall(expr) {
		rewritten := rewriteModelFieldTokens(metric.SQL, func(model, field string) string {
			cb, ok := gn.ctes[model]
			if !ok {
				return model + "." + field
			}
			return cb.alias + "." + field
		})
		return wrapFill(rewritten, metric.FillNullsWith), nil
	}

	refs := sqlast.ColumnRefs(expr)
	result := metric.SQL
	for _, r := range refs {
		var resolvedModel, resolvedName string
		if r.Qualifier != "" {
			resolvedModel, resolvedName = r.Qualifier, r.Name
		} else {
			resolved := gn.g.ResolveBareMetricName(r.Name, modelCtx)
			parts := strings.SplitN(resolved, ".", 2)
			if len(parts) != 2 {
				return "", semerr.NewUnknownReference("metric", r.Name, modelCtx)
			}
			resolvedModel, resolvedName = parts[0], parts[1]
		}
		depExpr, err := gn.compileMetricSQL(metricRef{Model: resolvedModel, Name: resolvedName})
		if err != nil {
			return "", err
		}
		result = replaceWholeWordToken(result, r.String(), "("+depExpr+")")
	}
	return wrapFill(result, metric.FillNullsWith), nil
}

// contextualRef parses a ratio numerator/denominator reference, which may be
// written bare (resolved against modelCtx) or fully qualified.
func contextualRef(raw, modelCtx string) metricRef {
	ref := parseMetricRef(raw)
	if ref.Model == "" && modelCtx != "" {
		ref.Model = modelCtx
	}
	return ref
}

func wrapFill(expr string, fill *graphmodel.Literal) string {
	if fill == nil {
		return expr
	}
	var lit string
	switch fill.Kind {
	case graphmodel.LiteralString:
		lit = "'" + strings.ReplaceAll(fill.Text, "'", "''") + "'"
	default:
		lit = fill.Text
	}
	return fmt.Sprintf("COALESCE(%s, %s)", expr, lit)
}

func replaceWholeWordToken(sql, token, replacement string) string {
	pattern := `(?:^|[^A-Za-z0-9_.])(` + regexp.QuoteMeta(token) + `)(?:$|[^A-Za-z0-9_])`
	re := regexp.MustCompile(pattern)
	return re.ReplaceAllStringFunc(sql, func(m string) string {
		return strings.Replace(m, token, replacement, 1)
	})
}
