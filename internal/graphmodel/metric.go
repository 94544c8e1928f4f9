package graphmodel

// MetricType is the type discriminator for a Metric, per spec.md §3.
type MetricType string

const (
	MetricAggregation    MetricType = "aggregation"
	MetricRatio          MetricType = "ratio"
	MetricDerived        MetricType = "derived"
	MetricCumulative     MetricType = "cumulative"
	MetricTimeComparison MetricType = "time_comparison"
	MetricConversion     MetricType = "conversion"
)

// AggFunc is the aggregation function for an "aggregation"-typed metric.
type AggFunc string

const (
	AggSum           AggFunc = "sum"
	AggCount         AggFunc = "count"
	AggCountDistinct AggFunc = "count_distinct"
	AggAvg           AggFunc = "avg"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggMedian        AggFunc = "median"
)

// ComparisonType is the comparison_type for a time_comparison metric.
type ComparisonType string

const (
	YoY          ComparisonType = "yoy"
	MoM          ComparisonType = "mom"
	WoW          ComparisonType = "wow"
	DoD          ComparisonType = "dod"
	QoQ          ComparisonType = "qoq"
	PriorPeriod  ComparisonType = "prior_period"
)

// Calculation is the calculation mode for a time_comparison metric.
type Calculation string

const (
	Difference    Calculation = "difference"
	PercentChange Calculation = "percent_change"
	RatioCalc     Calculation = "ratio"
)

// GrainToDate is the grain for a cumulative metric's MTD/QTD/YTD form.
type GrainToDate string

const (
	GrainDay     GrainToDate = "day"
	GrainWeek    GrainToDate = "week"
	GrainMonth   GrainToDate = "month"
	GrainQuarter GrainToDate = "quarter"
	GrainYear    GrainToDate = "year"
)

// Metric is a named business calculation. It is a tagged union over Type;
// only the fields relevant to Type are meaningful, mirroring the way
// original_source's Python dataclasses conflate one class per type into a
// single "Metric" the resolver/generator dispatch on by Type.
type Metric struct {
	Name string
	Type MetricType

	// aggregation
	Agg AggFunc
	SQL string // aggregation expr (may be "*" for count); or derived expr; or
	// the base-metric-referencing expr for a cumulative metric.

	// ratio
	Numerator    string // model.metric reference
	Denominator  string // model.metric reference
	OffsetWindow string // e.g. "1 month"; turns a ratio into a period-over-period ratio

	// cumulative
	Window      string      // e.g. "7 days"
	GrainToDate GrainToDate // mutually exclusive with Window

	// time_comparison
	BaseMetric     string
	ComparisonType ComparisonType
	Calculation    Calculation
	TimeOffset     string // explicit override of the derived LAG offset

	// conversion
	Entity           string
	BaseEvent        string
	ConversionEvent  string
	ConversionWindow string
	// Model is the owning model for a conversion metric's base/conversion
	// events. spec.md's Open Questions flag the original's "first model in
	// the graph" placeholder as unusable; this repo requires it explicit.
	Model string

	// Common to all metric types.
	Filters       []string
	FillNullsWith *Literal
}

// Literal is a scalar constant (spec.md's fill_nulls_with "scalar") rendered
// into SQL by the generator with type-appropriate quoting.
type Literal struct {
	Kind LiteralKind
	Text string // the literal's textual form; callers parse/format per Kind
}

type LiteralKind string

const (
	LiteralString LiteralKind = "string"
	LiteralNumber LiteralKind = "number"
	LiteralBool   LiteralKind = "bool"
)

// IsWindowed reports whether this metric type forces the window-function
// generation path per spec.md §4.2 (cumulative, time_comparison, a ratio
// with OffsetWindow set, or conversion).
func (m *Metric) IsWindowed() bool {
	switch m.Type {
	case MetricCumulative, MetricTimeComparison, MetricConversion:
		return true
	case MetricRatio:
		return m.OffsetWindow != ""
	}
	return false
}
