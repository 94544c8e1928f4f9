// Package symagg builds symmetric-aggregate SQL: aggregation expressions
// that stay correct after a fan-out join duplicates base-model rows, per
// spec.md §4.3. Grounded on original_source/sidemantic/core/symmetric_aggregate.py
// for the formula; the per-dialect hash/multiplier pairs live in pkg/dialect.
package symagg

import (
	"fmt"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// Build renders the symmetric form of agg(valueExpr) for a primary key
// reference pkExpr (already qualified, e.g. "orders_cte.id"), or the plain
// (non-symmetric) form for aggregations that are fan-out-safe on their own
// (count_distinct). Fails with UnsupportedSymmetricAgg for min/max/median,
// which have no symmetric form.
func Build(d dialect.Dialect, agg graphmodel.AggFunc, valueExpr, pkExpr, modelName string) (string, error) {
	switch agg {
	case graphmodel.AggCountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", valueExpr), nil
	case graphmodel.AggCount:
		return fmt.Sprintf("COUNT(DISTINCT %s)", pkExpr), nil
	case graphmodel.AggSum:
		return sumForm(d, valueExpr, pkExpr), nil
	case graphmodel.AggAvg:
		sum := sumForm(d, valueExpr, pkExpr)
		return fmt.Sprintf("(%s) / NULLIF(COUNT(DISTINCT %s), 0)", sum, pkExpr), nil
	case graphmodel.AggMin, graphmodel.AggMax, graphmodel.AggMedian:
		return "", semerr.NewUnsupportedSymmetricAgg(string(agg), modelName)
	default:
		return "", semerr.NewUnsupportedMetricType(string(agg))
	}
}

// sumForm renders SUM(DISTINCT H(pk)*K + v) - SUM(DISTINCT H(pk)*K).
func sumForm(d dialect.Dialect, valueExpr, pkExpr string) string {
	sa := d.SymmetricAgg()
	hashed := sa.HashExpr(pkExpr)
	offset := fmt.Sprintf("%s * %s", hashed, sa.Multiplier)
	return fmt.Sprintf("(SUM(DISTINCT %s + %s) - SUM(DISTINCT %s))", offset, valueExpr, offset)
}

// PlainAgg renders the ordinary (non-symmetric) aggregate form used when no
// fan-out is present for this measure.
func PlainAgg(agg graphmodel.AggFunc, valueExpr string) string {
	switch agg {
	case graphmodel.AggCountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", valueExpr)
	case graphmodel.AggCount:
		if valueExpr == "*" {
			return "COUNT(*)"
		}
		return fmt.Sprintf("COUNT(%s)", valueExpr)
	case graphmodel.AggMedian:
		return fmt.Sprintf("MEDIAN(%s)", valueExpr)
	default:
		return fmt.Sprintf("%s(%s)", sqlAggName(agg), valueExpr)
	}
}

func sqlAggName(agg graphmodel.AggFunc) string {
	switch agg {
	case graphmodel.AggSum:
		return "SUM"
	case graphmodel.AggAvg:
		return "AVG"
	case graphmodel.AggMin:
		return "MIN"
	case graphmodel.AggMax:
		return "MAX"
	default:
		return "SUM"
	}
}
