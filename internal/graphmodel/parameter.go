package graphmodel

// ParamType is the type discriminator for a Parameter, per spec.md §3/§4.5.
type ParamType string

const (
	ParamString   ParamType = "string"
	ParamNumber   ParamType = "number"
	ParamDate     ParamType = "date"
	ParamUnquoted ParamType = "unquoted"
	ParamYesNo    ParamType = "yesno"
)

// Parameter is a typed named value substituted into `{{ name }}` tokens.
type Parameter struct {
	Name string
	Type ParamType

	// DefaultValue is the textual form of the default, used when a compile
	// call supplies no value for Name. Nil means no default.
	DefaultValue *string

	// AllowedValues is informational only per spec.md §4.5: runtime
	// substitution does not reject out-of-list values by default.
	AllowedValues []string
}
