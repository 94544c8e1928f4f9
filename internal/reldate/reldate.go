// Package reldate matches a fixed phrase table of relative date expressions
// ("today", "last 7 days", "this month", ...) against a dialect-aware
// DATE_TRUNC/interval vocabulary, per spec.md §4.6. Grounded on
// original_source/sidemantic/core/relative_date.py.
package reldate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
)

// Expr is the result of matching a relative date phrase against a column
// expression: either a single scalar SQL expression, or a half-open range
// predicate "col >= lo AND col < hi".
type Expr struct {
	// Scalar is set for point-in-time phrases ("today"); Range* for phrases
	// naming a bounded period ("this month", "last 7 days").
	Scalar   string
	IsRange  bool
	RangeLow string
	RangeHigh string
}

// SQL renders the matched expression as a WHERE predicate against col.
func (e Expr) SQL(col string) string {
	if e.IsRange {
		return fmt.Sprintf("%s >= %s AND %s < %s", col, e.RangeLow, col, e.RangeHigh)
	}
	return fmt.Sprintf("%s = %s", col, e.Scalar)
}

var (
	lastN = regexp.MustCompile(`(?i)^last\s+(\d+)\s+(day|week|month|year)s?$`)
	thisLastNext = regexp.MustCompile(`(?i)^(this|last|next)\s+(week|month|quarter|year)$`)
)

// Match parses phrase against the fixed vocabulary in spec.md §4.6. ok is
// false when phrase matches none of the recognized forms.
func Match(d dialect.Dialect, phrase string) (Expr, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))

	switch p {
	case "today":
		return Expr{Scalar: "CURRENT_DATE"}, true
	case "yesterday":
		return Expr{Scalar: d.IntervalLiteral("-1", "day") + " + CURRENT_DATE"}, true
	case "tomorrow":
		return Expr{Scalar: d.IntervalLiteral("1", "day") + " + CURRENT_DATE"}, true
	}

	if m := lastN.FindStringSubmatch(p); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := m[2]
		low := fmt.Sprintf("CURRENT_DATE - %s", d.IntervalLiteral(strconv.Itoa(n), unit))
		return Expr{IsRange: true, RangeLow: low, RangeHigh: "CURRENT_DATE"}, true
	}

	if m := thisLastNext.FindStringSubmatch(p); m != nil {
		rel, unit := m[1], m[2]
		low := d.DateTrunc(unit, "CURRENT_DATE")
		switch rel {
		case "this":
			high := fmt.Sprintf("%s + %s", low, d.IntervalLiteral("1", unit))
			return Expr{IsRange: true, RangeLow: low, RangeHigh: high}, true
		case "last":
			lo := fmt.Sprintf("%s - %s", low, d.IntervalLiteral("1", unit))
			return Expr{IsRange: true, RangeLow: lo, RangeHigh: low}, true
		case "next":
			lo := fmt.Sprintf("%s + %s", low, d.IntervalLiteral("1", unit))
			hi := fmt.Sprintf("%s + %s", low, d.IntervalLiteral("2", unit))
			return Expr{IsRange: true, RangeLow: lo, RangeHigh: hi}, true
		}
	}

	return Expr{}, false
}
