package params

import (
	"errors"
	"testing"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

func lookupFor(ps map[string]graphmodel.Parameter) Lookup {
	return func(name string) (*graphmodel.Parameter, bool) {
		p, ok := ps[name]
		if !ok {
			return nil, false
		}
		return &p, true
	}
}

func strPtr(s string) *string { return &s }

func TestSubstituteString(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"region": {Name: "region", Type: graphmodel.ParamString},
	})
	got, err := Substitute("region = {{ region }}", declared, map[string]string{"region": "it's here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "region = 'it''s here'" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteNumber(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"min_amount": {Name: "min_amount", Type: graphmodel.ParamNumber},
	})
	got, err := Substitute("amount > {{min_amount}}", declared, map[string]string{"min_amount": "10.50"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "amount > 10.50" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteNumberInvalid(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"min_amount": {Name: "min_amount", Type: graphmodel.ParamNumber},
	})
	_, err := Substitute("amount > {{min_amount}}", declared, map[string]string{"min_amount": "not-a-number"})
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.InvalidNumericParameter {
		t.Fatalf("expected InvalidNumericParameter, got %v", err)
	}
}

func TestSubstituteDate(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"as_of": {Name: "as_of", Type: graphmodel.ParamDate},
	})
	got, err := Substitute("d = {{ as_of }}", declared, map[string]string{"as_of": "2026-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "d = '2026-01-01'" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteUnquotedSafe(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"col": {Name: "col", Type: graphmodel.ParamUnquoted},
	})
	got, err := Substitute("ORDER BY {{col}}", declared, map[string]string{"col": "orders.created_at"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ORDER BY orders.created_at" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteUnquotedRejectsUnsafe(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"col": {Name: "col", Type: graphmodel.ParamUnquoted},
	})
	_, err := Substitute("ORDER BY {{col}}", declared, map[string]string{"col": "orders; DROP TABLE x"})
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.UnsafeIdentifierParameter {
		t.Fatalf("expected UnsafeIdentifierParameter, got %v", err)
	}
}

func TestSubstituteYesNo(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"active": {Name: "active", Type: graphmodel.ParamYesNo},
	})
	for raw, want := range map[string]string{"yes": "TRUE", "1": "TRUE", "no": "FALSE", "0": "FALSE", "True": "TRUE"} {
		got, err := Substitute("{{active}}", declared, map[string]string{"active": raw})
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got != want {
			t.Errorf("Substitute(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSubstituteUnknownParameter(t *testing.T) {
	declared := lookupFor(nil)
	_, err := Substitute("{{missing}}", declared, nil)
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.UnknownParameter {
		t.Fatalf("expected UnknownParameter, got %v", err)
	}
}

func TestSubstituteMissingParameterNoDefault(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"region": {Name: "region", Type: graphmodel.ParamString},
	})
	_, err := Substitute("{{region}}", declared, nil)
	var semErr *semerr.Error
	if !errors.As(err, &semErr) || semErr.Kind != semerr.MissingParameter {
		t.Fatalf("expected MissingParameter, got %v", err)
	}
}

func TestSubstituteUsesDefaultWhenValueOmitted(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"region": {Name: "region", Type: graphmodel.ParamString, DefaultValue: strPtr("EMEA")},
	})
	got, err := Substitute("{{region}}", declared, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "'EMEA'" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteMultipleOccurrences(t *testing.T) {
	declared := lookupFor(map[string]graphmodel.Parameter{
		"x": {Name: "x", Type: graphmodel.ParamUnquoted},
	})
	got, err := Substitute("{{x}} = {{ x }}", declared, map[string]string{"x": "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a = a" {
		t.Fatalf("got %q", got)
	}
}
