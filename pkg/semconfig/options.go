// Package semconfig holds the compiler's own configuration: default
// dialect, the §5 input-size budget, and whether symmetric aggregates are
// applied. This mirrors the teacher's package-level config.Keys pattern
// (internal/config/config.go) for the one piece of config the core
// genuinely owns — there is no YAML catalog loader here (out of scope),
// only options that shape how Generate/Rewrite behave.
package semconfig

import "github.com/sidequery/sidemantic-sub003/pkg/dialect"

// Options is compiler-level configuration.
type Options struct {
	// DefaultDialect is used whenever a request leaves its Dialect field
	// unset, matching query.Request.EffectiveDialect's fallback.
	DefaultDialect dialect.Dialect

	// MaxInputBytes bounds the rewriter's input SQL length, per spec.md §5's
	// InputTooLarge budget (suggested 1 MiB).
	MaxInputBytes int

	// SymmetricAggregatesEnabled toggles §4.3's fan-out defense off for
	// deployments that have verified their join fan-out never double-counts
	// (e.g. every relationship in their catalog is one_to_one). Disabling
	// this falls back to plain aggregates even when fan-out is detected.
	SymmetricAggregatesEnabled bool
}

// Default holds sane out-of-the-box values, usable without any external
// configuration.
var Default = Options{
	DefaultDialect:             dialect.Default,
	MaxInputBytes:              1 << 20,
	SymmetricAggregatesEnabled: true,
}
