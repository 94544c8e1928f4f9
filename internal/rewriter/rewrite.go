package rewriter

import (
	"github.com/sidequery/sidemantic-sub003/internal/sqlast"
	"github.com/sidequery/sidemantic-sub003/internal/sqlgen"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// Rewrite turns sql into physical SQL, per spec.md §4.4. In Strict mode any
// parse failure or non-semantic query is an error. In NonStrict mode a query
// whose outermost statement references no model known to the graph and no
// `metrics` view is returned unchanged (catalog queries, SET, SHOW,
// unrelated tables pass through).
//
// A leading WITH clause or a FROM-subquery is spliced rather than parsed as
// a whole: the outer wrapper is never rewritten, only the semantic
// sub-queries found inside it are, each independently, per spec.md §4.4's
// "sub-select in FROM and CTEs at the outer level are passed through" rule.
func (r *Rewriter) Rewrite(sql string) (string, error) {
	if r.MaxInputBytes > 0 && len(sql) > r.MaxInputBytes {
		return "", semerr.NewInputTooLarge()
	}

	if spliced, handled, err := r.spliceOuterWrapper(sql); handled {
		return spliced, err
	}

	if r.Mode == NonStrict && !r.looksSemanticStatement(sql) {
		return sql, nil
	}

	req, err := r.ParseToRequest(sql)
	if err != nil {
		if r.Mode == NonStrict {
			return sql, nil
		}
		return "", err
	}

	return sqlgen.Generate(r.Graph, req)
}

// looksSemanticStatement reports whether sql's outermost FROM names a known
// model or the `metrics` view. Used only to decide NonStrict passthrough;
// Strict mode always attempts the full rewrite and surfaces whatever error
// that produces.
func (r *Rewriter) looksSemanticStatement(sql string) bool {
	sel, err := sqlast.ParseSelect(sql)
	if err != nil {
		return false
	}
	name, ok := sqlast.SingleTableName(sel.From)
	if !ok {
		return false
	}
	if name == metricsTable {
		return true
	}
	_, gerr := r.Graph.GetModel(name)
	return gerr == nil
}
