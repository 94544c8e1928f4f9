package rewriter

import (
	"regexp"
	"strings"
)

// withKeyword matches a leading WITH clause, case-insensitively, requiring
// whitespace after the keyword so "WITHIN" etc. never false-positive.
var withKeyword = regexp.MustCompile(`(?is)^\s*WITH\s+`)

// fromSubquery finds the first `FROM (`, case-insensitively; quoted text is
// not skipped.
var fromSubquery = regexp.MustCompile(`(?is)\bFROM\s*\(`)

// spliceOuterWrapper implements spec.md §4.4's "sub-select in FROM and CTEs
// at the outer level are passed through" rule: a leading WITH clause or a
// FROM-subquery is never itself parsed as a semantic query. Each CTE body
// (or the single FROM-subquery body) is tested independently; a body that
// names a known model or the `metrics` view is rewritten in place, and
// everything else in the original text — the WITH keyword, CTE names, the
// outer SELECT — is left byte-for-byte untouched. handled is false when sql
// has neither shape, telling the caller to fall through to the normal
// single-statement path.
func (r *Rewriter) spliceOuterWrapper(sql string) (result string, handled bool, err error) {
	if loc := withKeyword.FindStringIndex(sql); loc != nil {
		return r.spliceWith(sql, loc[1])
	}
	if loc := fromSubquery.FindStringIndex(sql); loc != nil {
		return r.spliceFromSubquery(sql, loc[1]-1)
	}
	return "", false, nil
}

// spliceWith parses the comma-separated `name AS ( body )` list starting at
// pos (just after the WITH keyword) and rewrites each semantic body,
// leaving CTE names, non-semantic bodies, and the trailing outer SELECT
// untouched.
func (r *Rewriter) spliceWith(sql string, pos int) (string, bool, error) {
	var parts []string
	for {
		nameEnd := skipIdent(sql, pos)
		if nameEnd == pos {
			return "", false, nil
		}
		name := sql[pos:nameEnd]
		pos = skipSpace(sql, nameEnd)

		asEnd, ok := matchKeyword(sql, pos, "AS")
		if !ok {
			return "", false, nil
		}
		pos = skipSpace(sql, asEnd)

		if pos >= len(sql) || sql[pos] != '(' {
			return "", false, nil
		}
		close, ok := matchParen(sql, pos)
		if !ok {
			return "", false, nil
		}
		body := sql[pos+1 : close]

		rewritten, err := r.rewriteIfSemantic(body)
		if err != nil {
			return "", true, err
		}
		parts = append(parts, name+" AS ("+rewritten+")")
		pos = skipSpace(sql, close+1)

		if pos < len(sql) && sql[pos] == ',' {
			pos = skipSpace(sql, pos+1)
			continue
		}
		break
	}
	return "WITH " + strings.Join(parts, ", ") + " " + sql[pos:], true, nil
}

// spliceFromSubquery rewrites the single FROM-subquery body at
// sql[openParen] and splices it back into the surrounding text unchanged;
// handled is false when the subquery isn't itself a semantic query, letting
// the caller fall through (the outer statement will then fail or pass
// through via the normal single-statement path, since its FROM isn't a
// plain model/metrics name either).
func (r *Rewriter) spliceFromSubquery(sql string, openParen int) (string, bool, error) {
	close, ok := matchParen(sql, openParen)
	if !ok {
		return "", false, nil
	}
	body := sql[openParen+1 : close]
	if !r.looksSemanticStatement(body) {
		return "", false, nil
	}
	rewritten, err := r.Rewrite(body)
	if err != nil {
		return "", true, err
	}
	return sql[:openParen] + "(" + rewritten + ")" + sql[close+1:], true, nil
}

// rewriteIfSemantic rewrites body when it names a known model or the
// `metrics` view, and returns it completely unchanged otherwise (a non-
// semantic CTE sitting alongside a semantic one, e.g. a literal values
// list used only by the outer query).
func (r *Rewriter) rewriteIfSemantic(body string) (string, error) {
	if !r.looksSemanticStatement(body) {
		return body, nil
	}
	return r.Rewrite(body)
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func skipIdent(s string, i int) int {
	start := i
	for i < len(s) {
		c := s[i]
		isIdent := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && i > start) || c == '_'
		if !isIdent {
			break
		}
		i++
	}
	return i
}

// matchKeyword reports whether s[i:] begins with kw (case-insensitive,
// followed by a non-identifier boundary), returning the index just past it.
func matchKeyword(s string, i int, kw string) (int, bool) {
	if i+len(kw) > len(s) || !strings.EqualFold(s[i:i+len(kw)], kw) {
		return 0, false
	}
	end := i + len(kw)
	if end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			return 0, false
		}
	}
	return end, true
}

// matchParen finds the index of the ')' matching the '(' at s[open],
// tracking single-quoted string literals so parens inside string contents
// never throw off the depth count.
func matchParen(s string, open int) (int, bool) {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
