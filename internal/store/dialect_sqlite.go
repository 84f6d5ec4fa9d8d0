package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
// Attached data lives in a TEXT column holding a JSON object, queried
// through the json1 functions.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) NowExpr() string { return "CURRENT_TIMESTAMP" }

const sqliteSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS _custom_fields (
    name        TEXT PRIMARY KEY,
    definition  TEXT NOT NULL,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS _record_types (
    name        TEXT PRIMARY KEY,
    definition  TEXT NOT NULL,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS _users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS _refresh_tokens (
    token      TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES _users(id) ON DELETE CASCADE,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON _refresh_tokens(expires_at);
`

func (d *SQLiteDialect) SystemTablesSQL() string {
	return sqliteSystemTablesSQL
}

func (d *SQLiteDialect) InstanceTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id                TEXT PRIMARY KEY,
    custom_field_data TEXT NOT NULL DEFAULT '{}',
    created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, table)
}

// InstanceIndexSQL returns empty: SQLite has no JSON index type and the
// json1 predicates scan the table regardless.
func (d *SQLiteDialect) InstanceIndexSQL(table string) string {
	return ""
}

func (d *SQLiteDialect) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?1`,
		table,
	).Scan(&count)
	return count > 0, err
}

// json_type returns NULL when the path is absent and 'null' when the
// stored value is JSON null, so IS NOT NULL tests key presence.
func (d *SQLiteDialect) HasKeyExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("json_type(custom_field_data, %s) IS NOT NULL", pb.Add(jsonPath(key)))
}

func (d *SQLiteDialect) MissingKeyExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("json_type(custom_field_data, %s) IS NULL", pb.Add(jsonPath(key)))
}

func (d *SQLiteDialect) TextValueExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("json_extract(custom_field_data, %s)", pb.Add(jsonPath(key)))
}

func (d *SQLiteDialect) ContainsExpr(expr string, pb ParamBuilder, needle string) string {
	return fmt.Sprintf(`lower(%s) LIKE %s ESCAPE '\'`, expr, pb.Add("%"+escapeLike(strings.ToLower(needle))+"%"))
}

func (d *SQLiteDialect) JSONParam(data []byte) any {
	return string(data)
}

// BulkUpdateData rewrites the attached data for all rows inside a single
// transaction, SQLite's unit of bulk persistence.
func (d *SQLiteDialect) BulkUpdateData(ctx context.Context, db *sql.DB, table string, rows []BulkRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sqlStr := fmt.Sprintf(
		"UPDATE %s SET custom_field_data = ?1, updated_at = CURRENT_TIMESTAMP WHERE id = ?2", table)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, sqlStr, string(r.Data), r.ID); err != nil {
			return fmt.Errorf("bulk update %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func (d *SQLiteDialect) MapError(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return err
}

// jsonPath builds a json1 path expression for a top-level key.
func jsonPath(key string) string {
	return `$."` + key + `"`
}
