package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/internal/params"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// generateStraightLine builds the non-windowed main SELECT: one CTE per
// required model, dimension + metric projections, joins, filters, group by,
// order by, limit/offset, per spec.md §4.2 steps 4-5.
func (gn *generator) generateStraightLine(p *plan) (string, error) {
	var projections []string
	var groupBy []string

	for _, dr := range gn.dims {
		cb, ok := gn.ctes[dr.Model]
		if !ok {
			return "", semerr.NewUnknownReference("dimension", dr.Dim, dr.Model)
		}
		alias := dr.outputAlias()
		col := dr.Dim
		if dr.Granularity != "" {
			col = alias
		}
		if !cb.hasColumn[col] {
			return "", semerr.NewUnknownReference("dimension", dr.Dim, dr.Model)
		}
		projections = append(projections, fmt.Sprintf("%s.%s AS %s", cb.alias, col, alias))
		groupBy = append(groupBy, fmt.Sprintf("%d", len(projections)))
	}

	for _, raw := range gn.req.Metrics {
		expr, err := gn.compileMetricSQL(parseMetricRef(raw))
		if err != nil {
			return "", err
		}
		alias := metricAlias(raw)
		projections = append(projections, fmt.Sprintf("%s AS %s", expr, alias))
	}

	builder := sq.Select(projections...).From(gn.ctes[gn.jp.base].alias)

	sql, err := gn.assembleWithCTEs(builder, groupBy, p)
	if err != nil {
		return "", err
	}
	return sql, nil
}

// assembleWithCTEs renders every model CTE as a WITH clause, then appends the
// main SELECT built by mainBuilder plus joins, WHERE, GROUP BY, ORDER BY,
// LIMIT, OFFSET.
func (gn *generator) assembleWithCTEs(mainBuilder sq.SelectBuilder, groupBy []string, p *plan) (string, error) {
	mainSQL, _, err := mainBuilder.ToSql()
	if err != nil {
		return "", err
	}

	hops := gn.jp.joinHops(p.modelOrder[1:])
	for _, hop := range hops {
		fromCTE := gn.ctes[hop.FromModel]
		toCTE := gn.ctes[hop.ToModel]
		onParts := make([]string, len(hop.FromColumns))
		for i := range hop.FromColumns {
			onParts[i] = fmt.Sprintf("%s.%s = %s.%s", fromCTE.alias, hop.FromColumns[i], toCTE.alias, hop.ToColumns[i])
		}
		mainSQL += fmt.Sprintf(" LEFT JOIN %s ON %s", toCTE.alias, strings.Join(onParts, " AND "))
	}

	filters, err := gn.resolvedFilters()
	if err != nil {
		return "", err
	}
	if len(filters) > 0 {
		rewritten := make([]string, len(filters))
		for i, f := range filters {
			rewritten[i] = rewriteFilter(f, func(model string) (*cteBuild, bool) { cb, ok := gn.ctes[model]; return cb, ok })
		}
		mainSQL += " WHERE " + strings.Join(rewritten, " AND ")
	}

	if len(groupBy) > 0 {
		mainSQL += " GROUP BY " + strings.Join(groupBy, ", ")
	}

	if len(gn.req.OrderBy) > 0 {
		var parts []string
		for _, ob := range gn.req.OrderBy {
			ref := query.ParseOrderByRef(ob)
			dir := "ASC"
			if ref.Desc {
				dir = "DESC"
			}
			parts = append(parts, fmt.Sprintf("%s %s", ref.Alias, dir))
		}
		mainSQL += " ORDER BY " + strings.Join(parts, ", ")
	}

	if gn.req.Limit != nil {
		mainSQL += fmt.Sprintf(" LIMIT %d", *gn.req.Limit)
	}
	if gn.req.Offset != nil {
		mainSQL += fmt.Sprintf(" OFFSET %d", *gn.req.Offset)
	}

	ctePart, err := gn.renderCTEClause(p)
	if err != nil {
		return "", err
	}
	return ctePart + mainSQL, nil
}

// renderCTEClause renders "WITH m1_cte AS (...), m2_cte AS (...) " for every
// required model, in discovery order.
func (gn *generator) renderCTEClause(p *plan) (string, error) {
	var parts []string
	for _, name := range gn.jp.order {
		cb := gn.ctes[name]
		sql, err := cb.toSQL()
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s AS (%s)", cb.alias, sql))
	}
	return "WITH " + strings.Join(parts, ", ") + " ", nil
}

// resolvedFilters applies parameter substitution to every request filter
// (spec.md §4.5: interpolation happens over filter strings before they reach
// the generator's rewriting pass).
func (gn *generator) resolvedFilters() ([]string, error) {
	if len(gn.req.Filters) == 0 {
		return nil, nil
	}
	lookup := params.Lookup(func(name string) (*graphmodel.Parameter, bool) {
		p, err := gn.g.GetParameter(name)
		if err != nil {
			return nil, false
		}
		return p, true
	})
	out := make([]string, len(gn.req.Filters))
	for i, f := range gn.req.Filters {
		sub, err := params.Substitute(f, lookup, gn.req.Parameters)
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}

// metricAlias derives a projected column's output name from a metrics[]
// entry: the bare metric/measure name with any model qualifier stripped.
func metricAlias(raw string) string {
	if dot := strings.LastIndexByte(raw, '.'); dot >= 0 {
		return raw[dot+1:]
	}
	return raw
}
