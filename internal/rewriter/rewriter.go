// Package rewriter turns user-authored SQL in the restricted semantic
// dialect into a structured query.Request, per spec.md §4.4. Grounded on
// original_source/sidemantic/sql/query_rewriter.py (the column-resolution and
// filter-flattening shape), with the FROM-metrics / ambiguous-reference /
// strict-mode rules spec.md adds on top of that original. Libraries:
// xwb1989/sqlparser (statement + expression AST), parsed through
// internal/sqlast.
package rewriter

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/sqlast"
	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semconfig"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// metricsTable is the virtual FROM target naming the cross-model view,
// per spec.md §4.4.
const metricsTable = "metrics"

// Mode selects how Rewrite treats a query that does not reference the
// semantic graph at all.
type Mode int

const (
	// Strict fails any parse error or non-semantic query.
	Strict Mode = iota
	// NonStrict passes non-semantic queries (catalog queries, SET, SHOW,
	// unrelated tables) through unchanged instead of erroring.
	NonStrict
)

// Rewriter holds the per-call configuration threaded through Rewrite.
type Rewriter struct {
	Graph         *graph.SemanticGraph
	Dialect       dialect.Dialect
	Mode          Mode
	MaxInputBytes int
}

// New builds a Rewriter bounded by the compiler's configured
// pkg/semconfig.Default.MaxInputBytes; callers that need a different bound
// can set MaxInputBytes on the returned value directly.
func New(g *graph.SemanticGraph, d dialect.Dialect, mode Mode) *Rewriter {
	return &Rewriter{Graph: g, Dialect: d, Mode: mode, MaxInputBytes: semconfig.Default.MaxInputBytes}
}

// ParseToRequest parses a single restricted-dialect SELECT statement into a
// structured query.Request, without generating SQL. Exposed separately from
// Rewrite so callers (and tests) can inspect the structured form directly.
func (r *Rewriter) ParseToRequest(sql string) (*query.Request, error) {
	sel, err := sqlast.ParseSelect(sql)
	if err != nil {
		return nil, semerr.NewUnparseableSql(err.Error(), nil)
	}
	return r.parseSelect(sel)
}

func (r *Rewriter) parseSelect(sel *sqlparser.Select) (*query.Request, error) {
	if sqlast.HasExplicitJoin(sel.From) {
		return nil, semerr.NewExplicitJoinUnsupported()
	}

	fromName, ok := sqlast.SingleTableName(sel.From)
	if !ok {
		return nil, semerr.NewUnparseableSql("FROM must name exactly one model or the metrics view", nil)
	}

	fromIsMetrics := fromName == metricsTable

	req := &query.Request{Dialect: r.Dialect, Parameters: map[string]string{}}

	if err := r.extractProjections(sel, fromName, fromIsMetrics, req); err != nil {
		return nil, err
	}
	if len(req.Metrics) == 0 && len(req.Dimensions) == 0 {
		return nil, semerr.NewUnparseableSql("query must select at least one metric or dimension", nil)
	}

	if sel.Where != nil {
		filters, err := r.extractFilters(sel.Where.Expr, fromName, fromIsMetrics)
		if err != nil {
			return nil, err
		}
		req.Filters = filters
	}

	if sel.OrderBy != nil {
		orderBy, err := r.extractOrderBy(sel.OrderBy, fromName, fromIsMetrics)
		if err != nil {
			return nil, err
		}
		req.OrderBy = orderBy
	}

	if sel.Limit != nil {
		if sel.Limit.Rowcount != nil {
			n, err := intLiteral(sel.Limit.Rowcount)
			if err != nil {
				return nil, err
			}
			req.Limit = &n
		}
		if sel.Limit.Offset != nil {
			n, err := intLiteral(sel.Limit.Offset)
			if err != nil {
				return nil, err
			}
			req.Offset = &n
		}
	}

	return req, nil
}

// extractProjections classifies every SELECT-list entry as a metric or
// dimension reference, per spec.md §4.4's column-resolution rules.
func (r *Rewriter) extractProjections(sel *sqlparser.Select, fromName string, fromIsMetrics bool, req *query.Request) error {
	for _, se := range sel.SelectExprs {
		if _, isStar := se.(*sqlparser.StarExpr); isStar {
			if fromIsMetrics {
				return semerr.NewUnparseableSql("SELECT * is not supported against FROM metrics", nil)
			}
			if err := r.expandStar(fromName, req); err != nil {
				return err
			}
			continue
		}

		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return semerr.NewUnparseableSql(fmt.Sprintf("unsupported select expression %T", se), nil)
		}

		if fn, ok := aliased.Expr.(*sqlparser.FuncExpr); ok && sqlast.IsAggregateFuncName(fn.Name.String()) {
			return aggregateError(fn)
		}

		col, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return semerr.NewUnparseableSql(fmt.Sprintf("unsupported select expression %q", sqlparser.String(aliased.Expr)), nil)
		}

		ref, kind, err := r.classify(col.Qualifier.Name.String(), col.Name.String(), fromName, fromIsMetrics)
		if err != nil {
			return err
		}
		switch kind {
		case kindMetric:
			req.Metrics = append(req.Metrics, ref)
		case kindDimension:
			req.Dimensions = append(req.Dimensions, ref)
		}
	}
	return nil
}

// expandStar expands SELECT * into every dimension and every metric
// (measure) of the single FROM model, per spec.md §4.4.
func (r *Rewriter) expandStar(fromName string, req *query.Request) error {
	m, err := r.Graph.GetModel(fromName)
	if err != nil {
		return err
	}
	for _, d := range m.Dimensions {
		req.Dimensions = append(req.Dimensions, fromName+"."+d.Name)
	}
	for _, met := range m.Metrics {
		req.Metrics = append(req.Metrics, fromName+"."+met.Name)
	}
	return nil
}

type fieldKind int

const (
	kindMetric fieldKind = iota
	kindDimension
)

// classify resolves a (possibly unqualified) column reference to a
// model.field string and a metric/dimension classification, per spec.md
// §4.4's "Column resolution" rules.
func (r *Rewriter) classify(qualifier, name, fromName string, fromIsMetrics bool) (ref string, kind fieldKind, err error) {
	if qualifier == "" {
		if fromIsMetrics {
			if _, gerr := r.Graph.GetMetric(name); gerr == nil {
				return name, kindMetric, nil
			}
			return "", 0, semerr.NewAmbiguousReference(name, nil)
		}
		qualifier = fromName
	}

	m, gerr := r.Graph.GetModel(qualifier)
	if gerr != nil {
		return "", 0, semerr.NewUnknownReference("model", qualifier, "")
	}
	if _, ok := m.Metric(name); ok {
		return qualifier + "." + name, kindMetric, nil
	}
	if _, ok := m.Dimension(name); ok {
		return qualifier + "." + name, kindDimension, nil
	}
	return "", 0, semerr.NewUnknownReference("field", name, qualifier)
}

// extractFilters flattens the WHERE tree across top-level AND nodes into
// independent predicate strings, per spec.md §4.4. Filters may reference
// columns on any model; the generator resolves `model.field` tokens itself
// (internal/sqlgen/filters.go) so unqualified filter columns are passed
// through unchanged here rather than re-qualified against fromName.
func (r *Rewriter) extractFilters(expr sqlparser.Expr, fromName string, fromIsMetrics bool) ([]string, error) {
	return sqlast.FlattenAnd(expr), nil
}

// extractOrderBy translates ORDER BY entries to alias-name references
// (model prefixes stripped), per spec.md §4.4.
func (r *Rewriter) extractOrderBy(order sqlparser.OrderBy, fromName string, fromIsMetrics bool) ([]string, error) {
	out := make([]string, 0, len(order))
	for _, o := range order {
		col, ok := o.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, semerr.NewUnparseableSql(fmt.Sprintf("unsupported ORDER BY expression %q", sqlparser.String(o.Expr)), nil)
		}
		name := col.Name.String()
		entry := name
		if o.Direction == sqlparser.DescScr {
			entry += " DESC"
		}
		out = append(out, entry)
	}
	return out, nil
}

func intLiteral(e sqlparser.Expr) (int, error) {
	sv, ok := e.(*sqlparser.SQLVal)
	if !ok || sv.Type != sqlparser.IntVal {
		return 0, semerr.NewUnparseableSql("expected an integer literal", nil)
	}
	var n int
	if _, err := fmt.Sscanf(string(sv.Val), "%d", &n); err != nil {
		return 0, semerr.NewUnparseableSql("invalid integer literal "+string(sv.Val), nil)
	}
	return n, nil
}

// aggregateError renders AggregatesMustBeMetrics with a worked example
// showing how to declare the missing metric, per spec.md §4.4.
func aggregateError(fn *sqlparser.FuncExpr) *semerr.Error {
	funcName := strings.ToUpper(fn.Name.String())
	argSQL := "*"
	if len(fn.Exprs) > 0 {
		argSQL = sqlparser.String(fn.Exprs[0])
	}
	suggestion := fmt.Sprintf(
		"declare a metric instead:\nmetrics:\n  - name: my_metric\n    agg: %s\n    expr: %s",
		strings.ToLower(funcName), argSQL,
	)
	return semerr.NewAggregatesMustBeMetrics(funcName, sqlparser.String(fn), suggestion)
}
