package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/query"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// baseMeasure is one column the inner straight-line query must project so an
// outer window expression can reference it as "base.{alias}".
type baseMeasure struct {
	alias   string
	exprSQL string
}

// generateWindowed implements spec.md §4.2's window-function path: an inner
// straight-line query projecting the underlying base measures plus the
// requested dimensions, wrapped by an outer SELECT adding window expressions
// for every cumulative / time_comparison / offset-ratio metric.
func (gn *generator) generateWindowed(p *plan) (string, error) {
	// Conversion metrics are routed to their own three-CTE template directly
	// from Generate, before this function ever runs (spec.md §4.2's last
	// bullet: conversion cannot be mixed with the generic inner/outer window
	// wrapper).
	timeDim, err := gn.firstTimeDimension()
	if err != nil {
		return "", err
	}

	var measures []baseMeasure
	seenAlias := map[string]bool{}
	addMeasure := func(bm baseMeasure) {
		if seenAlias[bm.alias] {
			return
		}
		seenAlias[bm.alias] = true
		measures = append(measures, bm)
	}

	type windowSpec struct {
		outputAlias string
		render      func() (string, error) // renders the outer window expression, given measures already projected inner
	}
	var windows []windowSpec

	for _, raw := range gn.req.Metrics {
		metric, modelCtx, err := resolveMetricRef(gn.g, parseMetricRef(raw))
		if err != nil {
			return "", err
		}
		outAlias := metricAlias(raw)

		if !metric.IsWindowed() {
			bm, err := gn.resolveBaseMeasure(raw)
			if err != nil {
				return "", err
			}
			addMeasure(bm)
			alias := bm.alias
			windows = append(windows, windowSpec{outputAlias: outAlias, render: func() (string, error) {
				return "base." + alias, nil
			}})
			continue
		}

		switch metric.Type {
		case graphmodel.MetricCumulative:
			deps, err := gn.g.DependenciesOf(metric, modelCtx)
			if err != nil || len(deps) == 0 {
				return "", semerr.NewUnresolvableDependency(raw, nil)
			}
			bm, err := gn.resolveBaseMeasure(deps[0])
			if err != nil {
				return "", err
			}
			addMeasure(bm)
			windows = append(windows, windowSpec{outputAlias: outAlias, render: gn.cumulativeRender(metric, bm.alias, timeDim)})

		case graphmodel.MetricTimeComparison:
			deps, err := gn.g.DependenciesOf(metric, modelCtx)
			if err != nil || len(deps) == 0 {
				return "", semerr.NewUnresolvableDependency(raw, nil)
			}
			bm, err := gn.resolveBaseMeasure(deps[0])
			if err != nil {
				return "", err
			}
			addMeasure(bm)
			render, err := gn.timeComparisonRender(metric, bm.alias, timeDim)
			if err != nil {
				return "", err
			}
			windows = append(windows, windowSpec{outputAlias: outAlias, render: render})

		case graphmodel.MetricRatio:
			numBM, err := gn.resolveBaseMeasure(contextualRef(metric.Numerator, modelCtx).String())
			if err != nil {
				return "", err
			}
			denomBM, err := gn.resolveBaseMeasure(contextualRef(metric.Denominator, modelCtx).String())
			if err != nil {
				return "", err
			}
			addMeasure(numBM)
			addMeasure(denomBM)
			windows = append(windows, windowSpec{outputAlias: outAlias, render: gn.offsetRatioRender(metric, numBM.alias, denomBM.alias, timeDim)})

		default:
			return "", semerr.NewUnsupportedMetricComposition(raw, string(metric.Type))
		}
	}

	innerSQL, dimAliases, err := gn.buildInnerSelect(measures, p)
	if err != nil {
		return "", err
	}

	var outerProj []string
	for _, da := range dimAliases {
		outerProj = append(outerProj, fmt.Sprintf("base.%s AS %s", da, da))
	}
	for _, w := range windows {
		expr, err := w.render()
		if err != nil {
			return "", err
		}
		outerProj = append(outerProj, fmt.Sprintf("%s AS %s", expr, w.outputAlias))
	}

	outer := fmt.Sprintf("SELECT %s FROM (%s) AS base", strings.Join(outerProj, ", "), innerSQL)

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
		outer += " ORDER BY " + strings.Join(parts, ", ")
	}
	if gn.req.Limit != nil {
		outer += fmt.Sprintf(" LIMIT %d", *gn.req.Limit)
	}
	if gn.req.Offset != nil {
		outer += fmt.Sprintf(" OFFSET %d", *gn.req.Offset)
	}

	return outer, nil
}

// resolveBaseMeasure compiles the SQL a windowed metric's base dependency
// needs in the inner query: a declared aggregation metric's own compiled
// form, or an implicit SUM() over a raw column reference.
func (gn *generator) resolveBaseMeasure(dep string) (baseMeasure, error) {
	ref := parseMetricRef(dep)
	if ref.Model == "" {
		return baseMeasure{}, semerr.NewUnknownReference("metric", dep, "")
	}
	m, err := gn.g.GetModel(ref.Model)
	if err != nil {
		return baseMeasure{}, semerr.NewUnknownReference("model", ref.Model, "")
	}
	if metric, ok := m.Metric(ref.Name); ok && metric.Type == graphmodel.MetricAggregation {
		expr, err := gn.compileAggregation(metric, ref.Model)
		if err != nil {
			return baseMeasure{}, err
		}
		return baseMeasure{alias: ref.Name, exprSQL: expr}, nil
	}
	cb, ok := gn.ctes[ref.Model]
	if !ok {
		return baseMeasure{}, semerr.NewUnknownReference("model", ref.Model, "")
	}
	raw := fmt.Sprintf("%s.%s_raw", cb.alias, ref.Name)
	return baseMeasure{alias: ref.Name, exprSQL: fmt.Sprintf("SUM(%s)", raw)}, nil
}

// buildInnerSelect renders the straight-line inner query: CTEs, joins,
// dimension + measure projections, WHERE, GROUP BY — no ORDER BY/LIMIT (those
// apply to the outer window query).
func (gn *generator) buildInnerSelect(measures []baseMeasure, p *plan) (string, []string, error) {
	var projections []string
	var groupBy []string
	var dimAliases []string

	for _, dr := range gn.dims {
		cb := gn.ctes[dr.Model]
		alias := dr.outputAlias()
		col := dr.Dim
		if dr.Granularity != "" {
			col = alias
		}
		projections = append(projections, fmt.Sprintf("%s.%s AS %s", cb.alias, col, alias))
		groupBy = append(groupBy, fmt.Sprintf("%d", len(projections)))
		dimAliases = append(dimAliases, alias)
	}
	for _, bm := range measures {
		projections = append(projections, fmt.Sprintf("%s AS %s", bm.exprSQL, bm.alias))
	}

	builder := sq.Select(projections...).From(gn.ctes[gn.jp.base].alias)
	sql, err := gn.assembleWithCTEs(builder, groupBy, p)
	if err != nil {
		return "", nil, err
	}
	// ORDER BY/LIMIT/OFFSET belong on the outer query only; strip whatever
	// assembleWithCTEs appended for the inner rendering.
	sql = stripTrailingOrderLimit(sql)
	return sql, dimAliases, nil
}

func stripTrailingOrderLimit(sql string) string {
	for _, marker := range []string{" ORDER BY ", " LIMIT ", " OFFSET "} {
		if idx := strings.Index(sql, marker); idx >= 0 {
			sql = sql[:idx]
		}
	}
	return sql
}

// firstTimeDimension returns the first requested time-typed dimension, or
// MissingTimeDimension if none is present — every window construction needs
// one to ORDER BY / PARTITION BY.
func (gn *generator) firstTimeDimension() (dimRef, error) {
	for _, dr := range gn.dims {
		m, err := gn.g.GetModel(dr.Model)
		if err != nil {
			continue
		}
		dim, ok := m.Dimension(dr.Dim)
		if ok && dim.Type == graphmodel.Time {
			return dr, nil
		}
	}
	var name string
	for _, raw := range gn.req.Metrics {
		name = raw
		break
	}
	return dimRef{}, semerr.NewMissingTimeDimension(name)
}

func (dr dimRef) innerAlias() string { return dr.outputAlias() }

func (gn *generator) cumulativeRender(metric *graphmodel.Metric, measureAlias string, timeDim dimRef) func() (string, error) {
	return func() (string, error) {
		t := "base." + timeDim.innerAlias()
		switch {
		case metric.GrainToDate != "":
			part := gn.dialect.DateTrunc(string(metric.GrainToDate), t)
			return fmt.Sprintf("SUM(base.%s) OVER (PARTITION BY %s ORDER BY %s ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)",
				measureAlias, part, t), nil
		case metric.Window != "":
			amount, unit, err := parseWindowSpec(metric.Window)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("SUM(base.%s) OVER (ORDER BY %s RANGE BETWEEN %s PRECEDING AND CURRENT ROW)",
				measureAlias, t, gn.dialect.IntervalLiteral(amount, unit)), nil
		default:
			return fmt.Sprintf("SUM(base.%s) OVER (ORDER BY %s ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)",
				measureAlias, t), nil
		}
	}
}

func (gn *generator) timeComparisonRender(metric *graphmodel.Metric, measureAlias string, timeDim dimRef) (func() (string, error), error) {
	offset, err := comparisonOffset(metric.ComparisonType, timeDim.Granularity)
	if err != nil {
		return nil, semerr.NewIncompatibleComparisonGranularity(metric.Name, string(metric.ComparisonType), timeDim.Granularity)
	}
	return func() (string, error) {
		t := "base." + timeDim.innerAlias()
		prev := fmt.Sprintf("LAG(base.%s, %d) OVER (ORDER BY %s)", measureAlias, offset, t)
		switch metric.Calculation {
		case graphmodel.Difference:
			return fmt.Sprintf("(base.%s - (%s))", measureAlias, prev), nil
		case graphmodel.PercentChange:
			return fmt.Sprintf("((base.%s - (%s)) / NULLIF(%s, 0) * 100)", measureAlias, prev, prev), nil
		case graphmodel.RatioCalc:
			return fmt.Sprintf("(base.%s / NULLIF(%s, 0))", measureAlias, prev), nil
		default:
			return "", semerr.NewUnsupportedMetricType(string(metric.Calculation))
		}
	}, nil
}

func (gn *generator) offsetRatioRender(metric *graphmodel.Metric, numAlias, denomAlias string, timeDim dimRef) func() (string, error) {
	return func() (string, error) {
		t := "base." + timeDim.innerAlias()
		prevDenom := fmt.Sprintf("LAG(base.%s) OVER (ORDER BY %s)", denomAlias, t)
		return fmt.Sprintf("(base.%s / NULLIF(%s, 0))", numAlias, prevDenom), nil
	}
}

// comparisonOffset implements spec.md §4.2's LAG-offset table, rejecting any
// comparison_type/granularity pairing other than its documented natural one
// (DESIGN.md Open Question resolution: reject the rest rather than guess).
func comparisonOffset(ct graphmodel.ComparisonType, granularity string) (int, error) {
	switch ct {
	case graphmodel.YoY:
		if granularity == "month" {
			return 12, nil
		}
	case graphmodel.QoQ:
		if granularity == "quarter" {
			return 4, nil
		}
	case graphmodel.MoM:
		if granularity == "month" {
			return 1, nil
		}
	case graphmodel.WoW:
		if granularity == "week" {
			return 1, nil
		}
	case graphmodel.DoD:
		if granularity == "day" {
			return 1, nil
		}
	case graphmodel.PriorPeriod:
		return 1, nil
	}
	return 0, fmt.Errorf("incompatible comparison granularity")
}

func parseWindowSpec(s string) (amount, unit string, err error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("sqlgen: malformed window spec %q", s)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return "", "", fmt.Errorf("sqlgen: malformed window spec %q", s)
	}
	unit = strings.TrimSuffix(strings.ToLower(parts[1]), "s")
	return parts[0], unit, nil
}

