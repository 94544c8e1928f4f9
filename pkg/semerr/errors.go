// Package semerr defines the structured error taxonomy used across the
// semantic compiler. Every variant carries enough context to reconstruct the
// offending input, and every constructor returns an *Error so callers can use
// errors.As to recover the Kind and fields.
package semerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the taxonomy entries from spec.md §7.
type Kind string

const (
	DuplicateName                     Kind = "DuplicateName"
	NotFound                          Kind = "NotFound"
	UnknownReference                  Kind = "UnknownReference"
	AmbiguousReference                Kind = "AmbiguousReference"
	UnknownParameter                  Kind = "UnknownParameter"
	MissingParameter                  Kind = "MissingParameter"
	InvalidNumericParameter           Kind = "InvalidNumericParameter"
	UnsafeIdentifierParameter         Kind = "UnsafeIdentifierParameter"
	UnparseableSql                    Kind = "UnparseableSql"
	AggregatesMustBeMetrics           Kind = "AggregatesMustBeMetrics"
	ExplicitJoinUnsupported           Kind = "ExplicitJoinUnsupported"
	MissingTimeDimension              Kind = "MissingTimeDimension"
	UnsupportedGranularity            Kind = "UnsupportedGranularity"
	UnsupportedSymmetricAgg           Kind = "UnsupportedSymmetricAgg"
	NoJoinPath                        Kind = "NoJoinPath"
	UnsupportedMetricType             Kind = "UnsupportedMetricType"
	InputTooLarge                     Kind = "InputTooLarge"
	UnresolvableDependency            Kind = "UnresolvableDependency"
	UnsupportedMetricComposition      Kind = "UnsupportedMetricComposition"
	IncompatibleComparisonGranularity Kind = "IncompatibleComparisonGranularity"
)

// Error is the concrete error type for every taxonomy entry. Fields is a
// freeform bag of the context named in spec.md §7 (e.g. "name", "candidates",
// "from", "to") kept as strings so the error can be logged or serialized
// without reflecting into caller types.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("SEMANTIC/%s > %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("SEMANTIC/%s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write `errors.Is(err, &semerr.Error{Kind: semerr.NotFound})`-style checks if
// they don't care about fields, though matching on Kind via errors.As is the
// idiomatic path.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

func newErr(k Kind, msg string, fields map[string]string) *Error {
	return &Error{Kind: k, Message: msg, Fields: fields}
}

func field1(k, v string) map[string]string { return map[string]string{k: v} }

// NewDuplicateName reports a duplicate model/metric/parameter name.
func NewDuplicateName(kind, name string) *Error {
	return newErr(DuplicateName, fmt.Sprintf("%s %q already exists", kind, name),
		map[string]string{"kind": kind, "name": name})
}

// NewNotFound reports a missing model/metric/parameter by name.
func NewNotFound(kind, name string) *Error {
	return newErr(NotFound, fmt.Sprintf("no %s named %q", kind, name),
		map[string]string{"kind": kind, "name": name})
}

// NewUnknownReference reports a dimension/metric/column reference that does
// not resolve against the graph. inModel may be empty when there is no model
// context.
func NewUnknownReference(kind, name, inModel string) *Error {
	msg := fmt.Sprintf("unknown %s %q", kind, name)
	if inModel != "" {
		msg = fmt.Sprintf("unknown %s %q on model %q", kind, name, inModel)
	}
	return newErr(UnknownReference, msg, map[string]string{"kind": kind, "name": name, "in_model": inModel})
}

// NewAmbiguousReference reports an unqualified name in `FROM metrics` that
// could refer to more than one candidate (or none unambiguously).
func NewAmbiguousReference(name string, candidates []string) *Error {
	return newErr(AmbiguousReference,
		fmt.Sprintf("%q is ambiguous against FROM metrics; candidates: %v", name, candidates),
		map[string]string{"name": name, "candidates": fmt.Sprint(candidates)})
}

// NewUnknownParameter reports a `{{ name }}` placeholder with no matching
// parameter declaration.
func NewUnknownParameter(name string) *Error {
	return newErr(UnknownParameter, fmt.Sprintf("unknown parameter %q", name), field1("name", name))
}

// NewMissingParameter reports a parameter with neither a supplied value nor
// a default_value.
func NewMissingParameter(name string) *Error {
	return newErr(MissingParameter, fmt.Sprintf("parameter %q has no value and no default", name), field1("name", name))
}

// NewInvalidNumericParameter reports a "number"-typed parameter value that is
// not a strict numeric literal.
func NewInvalidNumericParameter(value string) *Error {
	return newErr(InvalidNumericParameter, fmt.Sprintf("not a numeric literal: %q", value), field1("value", value))
}

// NewUnsafeIdentifierParameter reports an "unquoted"-typed parameter value
// that is not a dotted identifier path.
func NewUnsafeIdentifierParameter(value string) *Error {
	return newErr(UnsafeIdentifierParameter, fmt.Sprintf("not a safe identifier: %q", value), field1("value", value))
}

// NewUnparseableSql reports a SQL parse failure, with an optional character
// position.
func NewUnparseableSql(message string, position *int) *Error {
	fields := map[string]string{"message": message}
	if position != nil {
		fields["position"] = fmt.Sprint(*position)
	}
	return newErr(UnparseableSql, message, fields)
}

// NewAggregatesMustBeMetrics reports an aggregate function call found in a
// user SQL SELECT list, along with a suggested metric declaration.
func NewAggregatesMustBeMetrics(function, expression, suggestion string) *Error {
	return newErr(AggregatesMustBeMetrics,
		fmt.Sprintf("aggregate %s(...) is not allowed in SELECT; declare a metric instead, e.g.: %s", function, suggestion),
		map[string]string{"function": function, "expression": expression, "suggestion": suggestion})
}

// NewExplicitJoinUnsupported reports an explicit JOIN in user SQL.
func NewExplicitJoinUnsupported() *Error {
	return newErr(ExplicitJoinUnsupported, "explicit JOIN is not supported; joins are discovered from the semantic graph", nil)
}

// NewMissingTimeDimension reports a cumulative metric requested without any
// time dimension in the request.
func NewMissingTimeDimension(metric string) *Error {
	return newErr(MissingTimeDimension, fmt.Sprintf("metric %q requires a time dimension in the request", metric), field1("metric", metric))
}

// NewUnsupportedGranularity reports a requested granularity outside a
// dimension's supported_granularities allow-list.
func NewUnsupportedGranularity(dim, requested string, allowed []string) *Error {
	return newErr(UnsupportedGranularity,
		fmt.Sprintf("dimension %q does not support granularity %q (allowed: %v)", dim, requested, allowed),
		map[string]string{"dim": dim, "requested": requested, "allowed": fmt.Sprint(allowed)})
}

// NewUnsupportedSymmetricAgg reports min/max/median requested on a
// fanned-out base-model measure.
func NewUnsupportedSymmetricAgg(agg, model string) *Error {
	return newErr(UnsupportedSymmetricAgg,
		fmt.Sprintf("aggregation %q on model %q cannot be made symmetric under fan-out", agg, model),
		map[string]string{"agg": agg, "model": model})
}

// NewNoJoinPath reports that no relationship path connects two models.
func NewNoJoinPath(from, to string) *Error {
	return newErr(NoJoinPath, fmt.Sprintf("no join path from %q to %q", from, to), map[string]string{"from": from, "to": to})
}

// NewUnsupportedMetricType reports a metric type discriminator the
// generator/resolver doesn't recognize.
func NewUnsupportedMetricType(t string) *Error {
	return newErr(UnsupportedMetricType, fmt.Sprintf("unsupported metric type %q", t), field1("type", t))
}

// NewInputTooLarge reports user SQL input exceeding the configured byte
// budget.
func NewInputTooLarge() *Error {
	return newErr(InputTooLarge, "input exceeds the maximum allowed size", nil)
}

// NewUnresolvableDependency reports a metric-to-metric reference cycle
// detected during dependency walking.
func NewUnresolvableDependency(metric string, cyclePath []string) *Error {
	return newErr(UnresolvableDependency,
		fmt.Sprintf("metric %q has an unresolvable (cyclic) dependency chain: %v", metric, cyclePath),
		map[string]string{"metric": metric, "cycle": fmt.Sprint(cyclePath)})
}

// NewUnsupportedMetricComposition reports a derived metric that directly
// references a window-requiring sub-metric (cumulative, time_comparison,
// offset-ratio, or conversion) — left undefined by spec.md, rejected per its
// own suggestion rather than guessed.
func NewUnsupportedMetricComposition(metric, subMetric string) *Error {
	return newErr(UnsupportedMetricComposition,
		fmt.Sprintf("derived metric %q cannot reference window-requiring metric %q directly", metric, subMetric),
		map[string]string{"metric": metric, "sub_metric": subMetric})
}

// NewIncompatibleComparisonGranularity reports a time_comparison metric whose
// comparison_type disagrees with the request's chosen time granularity.
func NewIncompatibleComparisonGranularity(metric, comparisonType, granularity string) *Error {
	return newErr(IncompatibleComparisonGranularity,
		fmt.Sprintf("metric %q: comparison_type %q is incompatible with requested granularity %q", metric, comparisonType, granularity),
		map[string]string{"metric": metric, "comparison_type": comparisonType, "granularity": granularity})
}
