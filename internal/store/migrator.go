package store

import (
	"context"
	"fmt"

	"customfields-backend/internal/metadata"
)

// Migrator provisions record instance tables for record types.
type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// EnsureInstanceTable creates the instance table for a record type if it
// does not exist, along with the attached-data index where supported.
func (m *Migrator) EnsureInstanceTable(ctx context.Context, rt *metadata.RecordType) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, rt.Table)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	if !exists {
		if _, err := m.store.DB.ExecContext(ctx, m.store.Dialect.InstanceTableSQL(rt.Table)); err != nil {
			return fmt.Errorf("create table %s: %w", rt.Table, err)
		}
	}

	if idxSQL := m.store.Dialect.InstanceIndexSQL(rt.Table); idxSQL != "" {
		if _, err := m.store.DB.ExecContext(ctx, idxSQL); err != nil {
			return fmt.Errorf("create index for %s: %w", rt.Table, err)
		}
	}

	return nil
}
