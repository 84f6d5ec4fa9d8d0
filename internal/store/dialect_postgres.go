package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
// Attached data lives in a JSONB column.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string { return "NOW()" }

const pgSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS _custom_fields (
    name        TEXT PRIMARY KEY,
    definition  JSONB NOT NULL,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS _record_types (
    name        TEXT PRIMARY KEY,
    definition  JSONB NOT NULL,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS _users (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_admin      BOOLEAN NOT NULL DEFAULT false,
    created_at    TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS _refresh_tokens (
    token      UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id    UUID NOT NULL REFERENCES _users(id) ON DELETE CASCADE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON _refresh_tokens(expires_at);
`

func (d *PostgresDialect) SystemTablesSQL() string {
	return pgSystemTablesSQL
}

func (d *PostgresDialect) InstanceTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id                UUID PRIMARY KEY,
    custom_field_data JSONB NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ DEFAULT NOW(),
    updated_at        TIMESTAMPTZ DEFAULT NOW()
)`, table)
}

func (d *PostgresDialect) InstanceIndexSQL(table string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_cfd ON %s USING GIN (custom_field_data)", table, table)
}

func (d *PostgresDialect) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1 AND table_schema = 'public')`,
		table,
	).Scan(&exists)
	return exists, err
}

func (d *PostgresDialect) HasKeyExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("custom_field_data ? %s", pb.Add(key))
}

func (d *PostgresDialect) MissingKeyExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("NOT (custom_field_data ? %s)", pb.Add(key))
}

func (d *PostgresDialect) TextValueExpr(pb ParamBuilder, key string) string {
	return fmt.Sprintf("custom_field_data ->> %s", pb.Add(key))
}

func (d *PostgresDialect) ContainsExpr(expr string, pb ParamBuilder, needle string) string {
	return fmt.Sprintf("%s ILIKE %s", expr, pb.Add("%"+escapeLike(needle)+"%"))
}

func (d *PostgresDialect) JSONParam(data []byte) any {
	return string(data)
}

// BulkUpdateData rewrites the attached data for all rows in one statement,
// joining against a VALUES list.
func (d *PostgresDialect) BulkUpdateData(ctx context.Context, db *sql.DB, table string, rows []BulkRow) error {
	if len(rows) == 0 {
		return nil
	}

	pb := d.NewParamBuilder()
	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = fmt.Sprintf("(%s, %s)", pb.Add(r.ID), pb.Add(string(r.Data)))
	}

	sqlStr := fmt.Sprintf(
		`UPDATE %s AS t SET custom_field_data = v.data::jsonb, updated_at = NOW()
		 FROM (VALUES %s) AS v(id, data) WHERE t.id = v.id::uuid`,
		table, strings.Join(values, ", "),
	)

	if _, err := db.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("bulk update %s: %w", table, err)
	}
	return nil
}

func (d *PostgresDialect) MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
	}
	return err
}

// escapeLike escapes LIKE metacharacters in user-supplied needles.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
