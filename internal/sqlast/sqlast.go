// Package sqlast wraps the third-party SQL AST parser (xwb1989/sqlparser, a
// vitess-lineage parser — see DESIGN.md for why this library was picked).
// Three callers share it: internal/graph (walking a metric's SQL expression
// for dependency extraction), internal/sqlgen (compiling metric SQL) and
// internal/rewriter (parsing the restricted user-SQL dialect). The rewriter
// also works with sqlparser's AST node types directly, so a parser swap
// touches internal/rewriter as well as this file.
package sqlast

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// aggregateFuncs is the fixed set spec.md §4.1 names for "contains any
// aggregate function call" detection.
var aggregateFuncs = map[string]bool{
	"sum": true, "avg": true, "count": true, "min": true, "max": true, "median": true,
}

// IsAggregateFuncName reports whether name (case-insensitive) is one of the
// recognized aggregate functions.
func IsAggregateFuncName(name string) bool {
	return aggregateFuncs[strings.ToLower(name)]
}

// ColumnRef is a single column reference found while walking an expression:
// Qualifier is the model/table prefix (empty when unqualified).
type ColumnRef struct {
	Qualifier string
	Name      string
}

// String renders "qualifier.name" or just "name" when unqualified.
func (c ColumnRef) String() string {
	if c.Qualifier == "" {
		return c.Name
	}
	return c.Qualifier + "." + c.Name
}

// ParseExpr parses a single SQL scalar expression (not a full statement) by
// wrapping it in a throwaway SELECT and pulling out the one projected
// expression. Used for metric SQL bodies, which are not statements on their
// own; filter fragments are rewritten as text and never parsed here.
func ParseExpr(expr string) (sqlparser.Expr, error) {
	stmt, err := sqlparser.Parse("select " + expr + " from dual")
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", expr, err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || len(sel.SelectExprs) != 1 {
		return nil, fmt.Errorf("parse expression %q: expected a single projection", expr)
	}
	aliased, ok := sel.SelectExprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return nil, fmt.Errorf("parse expression %q: expected a scalar expression", expr)
	}
	return aliased.Expr, nil
}

// ExprString renders an AST expression back to SQL text.
func ExprString(e sqlparser.Expr) string {
	return sqlparser.String(e)
}

// IsSingleQualifiedIdentifier reports whether expr is exactly one
// `model.field`-shaped column reference with nothing else around it —
// spec.md §4.1's "single qualified identifier (contains '.', no whitespace,
// no operators)" direct-reference case.
func IsSingleQualifiedIdentifier(expr string) (qualifier, name string, ok bool) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n()+-*/%,<>=!") {
		return "", "", false
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 {
		return "", "", false
	}
	if !isPlainIdent(parts[0]) || !isPlainIdent(parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ContainsAggregateCall walks expr looking for any FuncExpr whose name is a
// recognized aggregate function.
func ContainsAggregateCall(expr sqlparser.Expr) bool {
	found := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if fn, ok := node.(*sqlparser.FuncExpr); ok && IsAggregateFuncName(fn.Name.String()) {
			found = true
			return false, nil
		}
		return true, nil
	}, expr)
	return found
}

// ColumnRefs walks expr and returns every column reference encountered, in
// the order the AST visits them.
func ColumnRefs(expr sqlparser.Expr) []ColumnRef {
	var out []ColumnRef
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if col, ok := node.(*sqlparser.ColName); ok {
			out = append(out, ColumnRef{Qualifier: col.Qualifier.Name.String(), Name: col.Name.String()})
		}
		return true, nil
	}, expr)
	return out
}

// FuncCalls walks expr and returns every function-call name encountered
// (lower-cased), in AST visit order.
func FuncCalls(expr sqlparser.Expr) []string {
	var out []string
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if fn, ok := node.(*sqlparser.FuncExpr); ok {
			out = append(out, strings.ToLower(fn.Name.String()))
		}
		return true, nil
	}, expr)
	return out
}

// ParseSelect parses a full SELECT statement (the restricted user-SQL
// dialect's top-level shape).
func ParseSelect(sql string) (*sqlparser.Select, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("only SELECT statements are supported, got %T", stmt)
	}
	return sel, nil
}

// FlattenAnd splits a WHERE expression across top-level AND nodes into
// independent predicate strings; an OR-connected subtree is kept as a single
// grouped predicate, per spec.md §4.4.
func FlattenAnd(expr sqlparser.Expr) []string {
	var preds []string
	var walk func(e sqlparser.Expr)
	walk = func(e sqlparser.Expr) {
		if and, ok := e.(*sqlparser.AndExpr); ok {
			walk(and.Left)
			walk(and.Right)
			return
		}
		preds = append(preds, sqlparser.String(e))
	}
	walk(expr)
	return preds
}

// HasExplicitJoin reports whether a FROM clause contains anything beyond a
// single bare table reference (i.e. an explicit JOIN).
func HasExplicitJoin(from sqlparser.TableExprs) bool {
	if len(from) != 1 {
		return true
	}
	_, isJoin := from[0].(*sqlparser.JoinTableExpr)
	return isJoin
}

// SingleTableName extracts the bare table/model name from a one-entry FROM
// clause naming a single table (no subquery, no join). ok is false for any
// other shape.
func SingleTableName(from sqlparser.TableExprs) (name string, ok bool) {
	if len(from) != 1 {
		return "", false
	}
	aliased, isAliased := from[0].(*sqlparser.AliasedTableExpr)
	if !isAliased {
		return "", false
	}
	tn, isTableName := aliased.Expr.(sqlparser.TableName)
	if !isTableName {
		return "", false
	}
	return tn.Name.String(), true
}
