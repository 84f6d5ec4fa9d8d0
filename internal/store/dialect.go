package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect abstracts database-specific SQL generation and behavior,
// in particular the JSON operations on the attached-data column.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// SystemTablesSQL returns the DDL for all system tables.
	SystemTablesSQL() string

	// InstanceTableSQL returns the DDL for a record instance table.
	InstanceTableSQL(table string) string

	// InstanceIndexSQL returns the index statement for the attached-data
	// column, or empty string if the database has no suitable index type.
	InstanceIndexSQL(table string) string

	// TableExists checks whether a table exists.
	TableExists(ctx context.Context, db *sql.DB, table string) (bool, error)

	// HasKeyExpr returns a predicate matching instances whose attached
	// data contains the given key (JSON null values included).
	HasKeyExpr(pb ParamBuilder, key string) string

	// MissingKeyExpr returns a predicate matching instances whose attached
	// data does not contain the given key.
	MissingKeyExpr(pb ParamBuilder, key string) string

	// TextValueExpr returns an expression extracting the attached-data
	// value for the given key as text, for use in list filters.
	TextValueExpr(pb ParamBuilder, key string) string

	// ContainsExpr returns a case-insensitive substring predicate on expr.
	ContainsExpr(expr string, pb ParamBuilder, needle string) string

	// JSONParam encodes a marshalled JSON object for the attached-data column.
	JSONParam(data []byte) any

	// BulkUpdateData rewrites the attached-data column for the given rows
	// in a single bulk persistence call.
	BulkUpdateData(ctx context.Context, db *sql.DB, table string, rows []BulkRow) error

	// MapError inspects a driver error and returns a well-known sentinel
	// error if applicable.
	MapError(err error) error
}

// BulkRow is one instance's rewritten attached data, ready for persistence.
type BulkRow struct {
	ID   string
	Data []byte // marshalled JSON object
}

// ParamBuilder accumulates query parameters and generates dialect-specific
// placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any
}

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
