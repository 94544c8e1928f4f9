package sqlgen

import (
	"regexp"
	"strings"
)

// fieldToken matches a bare `model.field` reference: a dotted identifier
// pair, used to find rewrite candidates outside of quoted runs.
var fieldToken = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\b`)

// rewriteModelFieldTokens scans sql for `model.field` tokens outside
// single-quoted string literals and replaces each via resolve(model, field).
// Quote-state tracking splits the string into quoted/unquoted runs first, per
// spec.md §4.2's WHERE-rewrite rule and §4.4's "references inside strings are
// not touched" rule — the same splitter serves both filter rewriting and
// self-contained derived-expression column rewriting.
func rewriteModelFieldTokens(sql string, resolve func(model, field string) string) string {
	var b strings.Builder
	inQuote := false
	start := 0

	flushUnquoted := func(segment string) {
		b.WriteString(fieldToken.ReplaceAllStringFunc(segment, func(tok string) string {
			m := fieldToken.FindStringSubmatch(tok)
			return resolve(m[1], m[2])
		}))
	}

	for i := 0; i < len(sql); i++ {
		if sql[i] != '\'' {
			continue
		}
		if inQuote {
			b.WriteString(sql[start : i+1])
		} else {
			flushUnquoted(sql[start:i])
			b.WriteString("'")
		}
		inQuote = !inQuote
		start = i + 1
	}
	if inQuote {
		b.WriteString(sql[start:])
	} else {
		flushUnquoted(sql[start:])
	}
	return b.String()
}

// extractFilterModels returns the distinct model names referenced as
// `model.field` tokens across filters, outside quoted literals, in first-seen
// order. Model discovery unions these in alongside dimensions/metrics per
// spec.md §4.4, so a filter naming a model not otherwise requested still
// gets its own CTE and join hop instead of leaving a dangling correlation
// name in the final WHERE clause.
func extractFilterModels(filters []string) []string {
	seen := make(map[string]bool)
	var order []string
	for _, f := range filters {
		rewriteModelFieldTokens(f, func(model, field string) string {
			if !seen[model] {
				seen[model] = true
				order = append(order, model)
			}
			return model + "." + field
		})
	}
	return order
}

// rewriteFilter rewrites one WHERE predicate: `{model}.{field}` becomes
// `{model}_cte.{field}_raw` when field names a measure on that model,
// `({segment SQL})` when field names one of that model's segments (and no
// projected column of the same name), else `{model}_cte.{field}`, per
// spec.md §4.2.
func rewriteFilter(sql string, resolveModel func(model string) (*cteBuild, bool)) string {
	return rewriteModelFieldTokens(sql, func(model, field string) string {
		cb, ok := resolveModel(model)
		if !ok {
			return model + "." + field
		}
		if seg, ok := cb.model.Segment(field); ok && !cb.hasColumn[field] {
			return "(" + seg.SQL + ")"
		}
		if cb.hasColumn[field+"_raw"] {
			return cb.alias + "." + field + "_raw"
		}
		return cb.alias + "." + field
	})
}
