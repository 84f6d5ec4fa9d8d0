package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"customfields-backend/internal/metadata"
)

// Instance is one record instance: its id plus the attached-data mapping.
// The mapping is mutated in memory by the synchronizer and rewritten
// wholesale on persist.
type Instance struct {
	ID   string
	Data map[string]any
}

// FetchMissingKey returns up to limit instances of the record type whose
// attached data does not contain the given key, ordered by id.
func (s *Store) FetchMissingKey(ctx context.Context, rt *metadata.RecordType, key string, limit int) ([]*Instance, error) {
	pb := s.Dialect.NewParamBuilder()
	cond := s.Dialect.MissingKeyExpr(pb, key)
	return s.fetchInstances(ctx, rt, cond, pb, limit)
}

// FetchWithKey returns up to limit instances of the record type whose
// attached data contains the given key, ordered by id.
func (s *Store) FetchWithKey(ctx context.Context, rt *metadata.RecordType, key string, limit int) ([]*Instance, error) {
	pb := s.Dialect.NewParamBuilder()
	cond := s.Dialect.HasKeyExpr(pb, key)
	return s.fetchInstances(ctx, rt, cond, pb, limit)
}

func (s *Store) fetchInstances(ctx context.Context, rt *metadata.RecordType, cond string, pb ParamBuilder, limit int) ([]*Instance, error) {
	sqlStr := fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE %s ORDER BY id LIMIT %s",
		metadata.DataColumn, rt.Table, cond, pb.Add(limit),
	)

	rows, err := s.DB.QueryContext(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("fetch instances of %s: %w", rt.Name, err)
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		var id string
		var raw any
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("decode attached data for %s/%s: %w", rt.Name, id, err)
		}
		instances = append(instances, &Instance{ID: id, Data: data})
	}
	return instances, rows.Err()
}

// BulkPersist rewrites the attached data of all given instances in a
// single bulk call to the underlying database.
func (s *Store) BulkPersist(ctx context.Context, rt *metadata.RecordType, instances []*Instance) error {
	if len(instances) == 0 {
		return nil
	}

	rows := make([]BulkRow, len(instances))
	for i, inst := range instances {
		data, err := json.Marshal(attachedOrEmpty(inst.Data))
		if err != nil {
			return fmt.Errorf("marshal attached data for %s: %w", inst.ID, err)
		}
		rows[i] = BulkRow{ID: inst.ID, Data: data}
	}

	return s.Dialect.BulkUpdateData(ctx, s.DB, rt.Table, rows)
}

// GetInstance fetches one instance by id.
func (s *Store) GetInstance(ctx context.Context, rt *metadata.RecordType, id string) (*Instance, error) {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE id = %s",
		metadata.DataColumn, rt.Table, pb.Add(id),
	)

	var instID string
	var raw any
	err := s.DB.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&instID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %s/%s: %w", rt.Name, id, err)
	}

	data, err := decodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("decode attached data for %s/%s: %w", rt.Name, id, err)
	}
	return &Instance{ID: instID, Data: data}, nil
}

// InsertInstance creates a new instance row.
func (s *Store) InsertInstance(ctx context.Context, rt *metadata.RecordType, inst *Instance) error {
	data, err := json.Marshal(attachedOrEmpty(inst.Data))
	if err != nil {
		return fmt.Errorf("marshal attached data: %w", err)
	}

	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO %s (id, %s) VALUES (%s, %s)",
		rt.Table, metadata.DataColumn, pb.Add(inst.ID), pb.Add(s.Dialect.JSONParam(data)),
	)
	if _, err := s.DB.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		return s.Dialect.MapError(err)
	}
	return nil
}

// UpdateInstance rewrites the attached data of an existing instance.
func (s *Store) UpdateInstance(ctx context.Context, rt *metadata.RecordType, inst *Instance) error {
	data, err := json.Marshal(attachedOrEmpty(inst.Data))
	if err != nil {
		return fmt.Errorf("marshal attached data: %w", err)
	}

	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"UPDATE %s SET %s = %s, updated_at = %s WHERE id = %s",
		rt.Table, metadata.DataColumn, pb.Add(s.Dialect.JSONParam(data)), s.Dialect.NowExpr(), pb.Add(inst.ID),
	)

	affected, err := Exec(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		return s.Dialect.MapError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInstance removes an instance row. Returns ErrNotFound if absent.
func (s *Store) DeleteInstance(ctx context.Context, rt *metadata.RecordType, id string) error {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE id = %s", rt.Table, pb.Add(id))

	affected, err := Exec(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryInstances executes a (id, attached-data) query built by the engine
// and scans the result rows into instances.
func (s *Store) QueryInstances(ctx context.Context, sqlStr string, args ...any) ([]*Instance, error) {
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		var id string
		var raw any
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("decode attached data for %s: %w", id, err)
		}
		instances = append(instances, &Instance{ID: id, Data: data})
	}
	return instances, rows.Err()
}

// CountRows executes a single-value COUNT query.
func (s *Store) CountRows(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	var count int64
	if err := s.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

// decodeData unmarshals the attached-data column into a mapping.
func decodeData(raw any) (map[string]any, error) {
	var buf []byte
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case []byte:
		buf = v
	case string:
		buf = []byte(v)
	default:
		return nil, fmt.Errorf("unexpected attached data type %T", raw)
	}

	if len(buf) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// attachedOrEmpty guards against persisting a nil mapping as JSON null.
func attachedOrEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}
