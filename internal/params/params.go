// Package params substitutes `{{ name }}` placeholders in filter strings
// with typed, escaped literals, per spec.md §4.5. Grounded on
// original_source/sidemantic/templates/ (validation edge cases exercised by
// tests/templates/test_parameters.py).
package params

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

var unquotedPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Lookup resolves a declared parameter by name. Callers adapt
// *graph.SemanticGraph's GetParameter with a small closure (mapping its
// NotFound error to ok=false), so this package need not import graph and
// create a cycle.
type Lookup func(name string) (*graphmodel.Parameter, bool)

// Substitute replaces every `{{ name }}` occurrence in s using declared
// parameters and supplied runtime values. values holds the compile call's
// overrides. Missing declarations fail with UnknownParameter; a declared
// parameter with neither a supplied value nor a default fails with
// MissingParameter.
func Substitute(s string, declared Lookup, values map[string]string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(s, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		name := placeholder.FindStringSubmatch(tok)[1]
		p, ok := declared(name)
		if !ok {
			firstErr = semerr.NewUnknownParameter(name)
			return tok
		}
		raw, ok := values[name]
		if !ok {
			if p.DefaultValue == nil {
				firstErr = semerr.NewMissingParameter(name)
				return tok
			}
			raw = *p.DefaultValue
		}
		rendered, err := format(p.Type, raw)
		if err != nil {
			firstErr = err
			return tok
		}
		return rendered
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// format renders a single parameter value per its declared type's escaping
// rule (spec.md §4.5).
func format(t graphmodel.ParamType, raw string) (string, error) {
	switch t {
	case graphmodel.ParamString:
		return "'" + strings.ReplaceAll(raw, "'", "''") + "'", nil
	case graphmodel.ParamNumber:
		if _, err := decimal.NewFromString(strings.TrimSpace(raw)); err != nil {
			return "", semerr.NewInvalidNumericParameter(raw)
		}
		return strings.TrimSpace(raw), nil
	case graphmodel.ParamDate:
		return "'" + raw + "'", nil
	case graphmodel.ParamUnquoted:
		if !unquotedPattern.MatchString(raw) {
			return "", semerr.NewUnsafeIdentifierParameter(raw)
		}
		return raw, nil
	case graphmodel.ParamYesNo:
		b, err := parseBool(raw)
		if err != nil {
			return "", err
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("params: unknown parameter type %q", t)
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("params: not a yesno value: %q", raw)
	}
}
