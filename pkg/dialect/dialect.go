// Package dialect holds the per-target-database SQL fragments the generator
// needs: identifier quoting is not used (model/column names are already
// trusted catalog identifiers), but DATE_TRUNC syntax, interval literals, and
// the symmetric-aggregate hash/multiplier pairs all vary by dialect.
package dialect

import "fmt"

// Dialect names a supported target database, per spec.md §6.
type Dialect string

const (
	DuckDB     Dialect = "duckdb"
	BigQuery   Dialect = "bigquery"
	Postgres   Dialect = "postgres"
	Snowflake  Dialect = "snowflake"
	ClickHouse Dialect = "clickhouse"
	Databricks Dialect = "databricks"
	Spark      Dialect = "spark"
)

// Default is the generator's default target dialect when a request leaves
// Dialect unset.
const Default = DuckDB

// Valid reports whether d is one of the known dialect names.
func (d Dialect) Valid() bool {
	switch d {
	case DuckDB, BigQuery, Postgres, Snowflake, ClickHouse, Databricks, Spark:
		return true
	}
	return false
}

// DateTrunc renders DATE_TRUNC(expr, unit) in the target dialect's argument
// order and quoting convention.
func (d Dialect) DateTrunc(unit, expr string) string {
	switch d {
	case BigQuery:
		return fmt.Sprintf("DATE_TRUNC(%s, %s)", expr, unit)
	default:
		return fmt.Sprintf("DATE_TRUNC('%s', %s)", unit, expr)
	}
}

// IntervalLiteral renders a "N units" window/offset as an interval literal
// suitable for use inside a RANGE BETWEEN ... PRECEDING clause.
func (d Dialect) IntervalLiteral(amount string, unit string) string {
	switch d {
	case BigQuery:
		return fmt.Sprintf("INTERVAL %s %s", amount, unit)
	default:
		return fmt.Sprintf("INTERVAL '%s %s'", amount, unit)
	}
}

// SymmetricAgg holds the hash expression template and safe multiplier for a
// dialect's symmetric-sum construction, per spec.md §4.3.
type SymmetricAgg struct {
	// HashExpr renders HASH(pk) cast to a wide-enough integer type, given the
	// already-qualified pk column reference.
	HashExpr func(pk string) string
	// Multiplier is the literal SQL for K, e.g. "(1::HUGEINT << 20)".
	Multiplier string
}

var symmetricAggs = map[Dialect]SymmetricAgg{
	DuckDB: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("HASH(%s)::HUGEINT", pk) },
		Multiplier: "(1::HUGEINT << 20)",
	},
	BigQuery: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("FARM_FINGERPRINT(CAST(%s AS STRING))", pk) },
		Multiplier: "1048576",
	},
	Postgres: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("hashtext(%s::text)::bigint", pk) },
		Multiplier: "1024",
	},
	Snowflake: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("HASH(%s) %% 1000000000", pk) },
		Multiplier: "100",
	},
	ClickHouse: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("halfMD5(CAST(%s AS String))", pk) },
		Multiplier: "1048576",
	},
	Databricks: {
		HashExpr:   func(pk string) string { return fmt.Sprintf("xxhash64(CAST(%s AS STRING))", pk) },
		Multiplier: "1048576",
	},
}

func init() {
	symmetricAggs[Spark] = symmetricAggs[Databricks]
}

// SymmetricAgg returns the per-dialect hash/multiplier pair, defaulting to
// the DuckDB form if d is unrecognized (callers validate d up front via
// Valid(), so this is only a defensive fallback).
func (d Dialect) SymmetricAgg() SymmetricAgg {
	if s, ok := symmetricAggs[d]; ok {
		return s
	}
	return symmetricAggs[DuckDB]
}
