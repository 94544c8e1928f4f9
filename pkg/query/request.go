// Package query defines the structured request that is the generator's
// input, plus the small reference grammars (dimension `model.dim__grain`,
// order-by `alias ASC|DESC`) shared by callers who build a Request directly
// and by the rewriter, which builds one from user SQL.
package query

import (
	"regexp"
	"strings"

	"github.com/sidequery/sidemantic-sub003/pkg/dialect"
	"github.com/sidequery/sidemantic-sub003/pkg/semconfig"
)

// Request is the structured query the generator compiles, per spec.md §6.
// Field tags mirror pkg/semconfig's request.schema.json, the JSON shape an
// externally-supplied request arrives in before decoding.
type Request struct {
	Metrics    []string `json:"metrics,omitempty"`
	Dimensions []string `json:"dimensions,omitempty"`
	Filters    []string `json:"filters,omitempty"`
	OrderBy    []string `json:"order_by,omitempty"`

	Limit  *int `json:"limit,omitempty"`
	Offset *int `json:"offset,omitempty"`

	Parameters map[string]string `json:"parameters,omitempty"`
	Dialect    dialect.Dialect   `json:"dialect,omitempty"`
}

// EffectiveDialect returns Dialect, defaulting to the compiler's configured
// default dialect (pkg/semconfig.Default.DefaultDialect) when unset.
func (r *Request) EffectiveDialect() dialect.Dialect {
	if r.Dialect == "" {
		return semconfig.Default.DefaultDialect
	}
	return r.Dialect
}

// DimensionRef is a parsed `model.dim` or `model.dim__granularity` reference.
type DimensionRef struct {
	Model       string
	Dim         string
	Granularity string // empty when no __granularity suffix was present
}

var granularityUnits = map[string]bool{
	"second": true, "minute": true, "hour": true, "day": true,
	"week": true, "month": true, "quarter": true, "year": true,
}

// ParseDimensionRef splits "model.dim" or "model.dim__granularity" per
// spec.md §4.2. Returns ok=false when ref isn't qualified by a model.
func ParseDimensionRef(ref string) (DimensionRef, bool) {
	dot := strings.IndexByte(ref, '.')
	if dot < 0 {
		return DimensionRef{}, false
	}
	model, rest := ref[:dot], ref[dot+1:]
	if idx := strings.LastIndex(rest, "__"); idx >= 0 {
		unit := rest[idx+2:]
		if granularityUnits[strings.ToLower(unit)] {
			return DimensionRef{Model: model, Dim: rest[:idx], Granularity: strings.ToLower(unit)}, true
		}
	}
	return DimensionRef{Model: model, Dim: rest}, true
}

// OrderByRef is a parsed order-by entry: an alias name (model prefixes
// already stripped, per spec.md §4.2/§4.4) with an optional direction.
type OrderByRef struct {
	Alias string
	Desc  bool
}

var orderByDirection = regexp.MustCompile(`(?i)^\s*(.+?)\s+(asc|desc)\s*$`)

// ParseOrderByRef splits "revenue DESC"/"status" into alias + direction.
// Model-qualified aliases ("orders.revenue DESC") have their model prefix
// stripped, matching the bare aliases the main SELECT projects under.
func ParseOrderByRef(ref string) OrderByRef {
	trimmed := strings.TrimSpace(ref)
	desc := false
	if m := orderByDirection.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
		desc = strings.EqualFold(m[2], "desc")
	}
	if dot := strings.LastIndexByte(trimmed, '.'); dot >= 0 {
		trimmed = trimmed[dot+1:]
	}
	return OrderByRef{Alias: trimmed, Desc: desc}
}
