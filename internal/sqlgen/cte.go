package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sidequery/sidemantic-sub003/internal/graph"
	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
)

// colSpec is one projected column of a model CTE: expr is the source SQL
// expression, alias its output name.
type colSpec struct {
	expr  string
	alias string
}

// cteBuild holds everything the main-select stage needs about one model's
// CTE: its alias, and the column specs it projects (in emission order).
type cteBuild struct {
	model   *graphmodel.Model
	alias   string
	columns []colSpec
	// hasColumn names every alias projected, for quick membership checks.
	hasColumn map[string]bool
}

func (c *cteBuild) add(expr, alias string) {
	if c.hasColumn[alias] {
		return
	}
	c.hasColumn[alias] = true
	c.columns = append(c.columns, colSpec{expr: expr, alias: alias})
}

// buildCTEs constructs one CTE per required model, per spec.md §4.2 step 4.
// requestedGranular maps model name -> set of "{dim}__{grain}" aliases that
// must additionally be projected for requested time-dimension granularities.
func buildCTEs(g *graph.SemanticGraph, jp *joinPlan, meas map[string][]string, requestedGranular map[string][]query_dimGran, d dialect.Dialect) (map[string]*cteBuild, error) {
	joinCols, err := collectJoinColumns(jp)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*cteBuild, len(jp.order))
	for _, name := range jp.order {
		m, err := g.GetModel(name)
		if err != nil {
			return nil, err
		}
		cb := &cteBuild{model: m, alias: name + "_cte", hasColumn: make(map[string]bool)}

		cb.add(m.PrimaryKey, m.PrimaryKey)
		for _, col := range joinCols[name] {
			cb.add(col, col)
		}
		for i := range m.Dimensions {
			dim := &m.Dimensions[i]
			cb.add(dim.Expr(), dim.Name)
		}
		for _, gr := range requestedGranular[name] {
			dim, ok := m.Dimension(gr.dim)
			if !ok || dim.Type != graphmodel.Time {
				continue
			}
			cb.add(d.DateTrunc(gr.grain, dim.Expr()), gr.dim+"__"+gr.grain)
		}
		for _, measName := range meas[name] {
			if metric, ok := m.Metric(measName); ok && metric.Type == graphmodel.MetricAggregation {
				if metric.Agg == graphmodel.AggCount && metric.SQL == "*" {
					continue // COUNT(*) needs no raw column; see metricexpr.go
				}
				cb.add(metric.SQL, measName+"_raw")
			} else {
				cb.add(measName, measName+"_raw")
			}
		}

		out[name] = cb
	}
	return out, nil
}

// query_dimGran is a requested time-dimension granularity, scoped to the
// model owning the dimension.
type query_dimGran struct {
	dim   string
	grain string
}

// collectJoinColumns gathers, per model, every FK/PK column participating in
// any join hop (declared on this model, or referenced by another model's
// relationship pointing here), per spec.md §4.2 step 4's second bullet.
func collectJoinColumns(jp *joinPlan) (map[string][]string, error) {
	cols := make(map[string][]string)
	seen := make(map[string]bool)
	add := func(model, col string) {
		key := model + "." + col
		if seen[key] {
			return
		}
		seen[key] = true
		cols[model] = append(cols[model], col)
	}
	for _, path := range jp.pathTo {
		for _, hop := range path {
			for _, c := range hop.FromColumns {
				add(hop.FromModel, c)
			}
			for _, c := range hop.ToColumns {
				add(hop.ToModel, c)
			}
		}
	}
	return cols, nil
}

// toSQL renders a CTE's own SELECT ... FROM ... as SQL text (no args:
// every column here is a trusted catalog expression, never user input).
func (c *cteBuild) toSQL() (string, error) {
	exprs := make([]string, len(c.columns))
	for i, col := range c.columns {
		exprs[i] = fmt.Sprintf("%s AS %s", col.expr, col.alias)
	}
	src, isSQL := c.model.Source()
	var from string
	if isSQL {
		from = fmt.Sprintf("(%s) AS t", src)
	} else {
		from = src
	}
	sql, _, err := sq.Select(exprs...).From(from).ToSql()
	return sql, err
}
