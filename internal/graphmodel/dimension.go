package graphmodel

// DimensionType is the type discriminator for a Dimension, per spec.md §3.
type DimensionType string

const (
	Categorical DimensionType = "categorical"
	Numeric     DimensionType = "numeric"
	Boolean     DimensionType = "boolean"
	Time        DimensionType = "time"
)

// Granularity is one of the time-truncation units a time Dimension can be
// viewed at.
type Granularity string

const (
	Second  Granularity = "second"
	Minute  Granularity = "minute"
	Hour    Granularity = "hour"
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// ValidGranularity reports whether g is one of the known granularity units.
func ValidGranularity(g string) bool {
	switch Granularity(g) {
	case Second, Minute, Hour, Day, Week, Month, Quarter, Year:
		return true
	}
	return false
}

// Dimension is a named attribute on a Model.
type Dimension struct {
	Name string
	Type DimensionType

	// SQL is the dimension's expression; defaults to Name when empty.
	SQL string

	// Granularity and SupportedGranularities only apply when Type == Time.
	Granularity            Granularity
	SupportedGranularities []Granularity

	// Parent names another dimension on the same model this one rolls up
	// into, for hierarchy browsing. Carried as data; no core operation
	// currently walks it (see DESIGN.md Open Questions).
	Parent string
}

// Expr returns the dimension's SQL expression, defaulting to its own name.
func (d *Dimension) Expr() string {
	if d.SQL != "" {
		return d.SQL
	}
	return d.Name
}

// SupportsGranularity reports whether g is allowed for this dimension. An
// empty SupportedGranularities allow-list means any granularity is allowed.
func (d *Dimension) SupportsGranularity(g Granularity) bool {
	if len(d.SupportedGranularities) == 0 {
		return true
	}
	for _, allowed := range d.SupportedGranularities {
		if allowed == g {
			return true
		}
	}
	return false
}
