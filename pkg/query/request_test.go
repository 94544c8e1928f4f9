package query

import "testing"

func TestParseDimensionRefPlain(t *testing.T) {
	ref, ok := ParseDimensionRef("orders.status")
	if !ok {
		t.Fatal("expected ok")
	}
	if ref.Model != "orders" || ref.Dim != "status" || ref.Granularity != "" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestParseDimensionRefGranular(t *testing.T) {
	ref, ok := ParseDimensionRef("orders.created_at__month")
	if !ok {
		t.Fatal("expected ok")
	}
	if ref.Model != "orders" || ref.Dim != "created_at" || ref.Granularity != "month" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestParseDimensionRefDoubleUnderscoreNotAGranularity(t *testing.T) {
	ref, ok := ParseDimensionRef("orders.some__field")
	if !ok {
		t.Fatal("expected ok")
	}
	if ref.Dim != "some__field" || ref.Granularity != "" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestParseDimensionRefUnqualifiedFails(t *testing.T) {
	if _, ok := ParseDimensionRef("status"); ok {
		t.Fatal("expected unqualified reference to fail")
	}
}

func TestParseOrderByRefDirection(t *testing.T) {
	ref := ParseOrderByRef("revenue DESC")
	if ref.Alias != "revenue" || !ref.Desc {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	ref = ParseOrderByRef("revenue")
	if ref.Alias != "revenue" || ref.Desc {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	ref = ParseOrderByRef("revenue asc")
	if ref.Alias != "revenue" || ref.Desc {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestParseOrderByRefStripsModelQualifier(t *testing.T) {
	ref := ParseOrderByRef("orders.revenue DESC")
	if ref.Alias != "revenue" || !ref.Desc {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestEffectiveDialectDefaultsWhenUnset(t *testing.T) {
	r := &Request{}
	if r.EffectiveDialect() == "" {
		t.Fatal("expected a non-empty default dialect")
	}
}
