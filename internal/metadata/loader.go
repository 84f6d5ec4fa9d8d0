package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
)

// LoadAll reads all field definitions and record types from the system
// tables and populates the registry.
func LoadAll(ctx context.Context, db *sql.DB, reg *Registry) error {
	fields, err := loadFields(ctx, db)
	if err != nil {
		return fmt.Errorf("load custom fields: %w", err)
	}

	recordTypes, err := loadRecordTypes(ctx, db)
	if err != nil {
		return fmt.Errorf("load record types: %w", err)
	}

	reg.Load(fields, recordTypes)

	log.Printf("Loaded %d custom fields, %d record types into registry", len(fields), len(recordTypes))
	return nil
}

// Reload is an alias for LoadAll, called after admin mutations.
func Reload(ctx context.Context, db *sql.DB, reg *Registry) error {
	return LoadAll(ctx, db, reg)
}

func loadFields(ctx context.Context, db *sql.DB) ([]*FieldDefinition, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, definition FROM _custom_fields ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []*FieldDefinition
	for rows.Next() {
		var name string
		var defJSON []byte
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, fmt.Errorf("scan custom field row: %w", err)
		}

		var def FieldDefinition
		if err := json.Unmarshal(defJSON, &def); err != nil {
			log.Printf("WARN: skipping custom field %s (invalid JSON): %v", name, err)
			continue
		}
		fields = append(fields, &def)
	}
	return fields, rows.Err()
}

func loadRecordTypes(ctx context.Context, db *sql.DB) ([]*RecordType, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, definition FROM _record_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*RecordType
	for rows.Next() {
		var name string
		var defJSON []byte
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, fmt.Errorf("scan record type row: %w", err)
		}

		var rt RecordType
		if err := json.Unmarshal(defJSON, &rt); err != nil {
			log.Printf("WARN: skipping record type %s (invalid JSON): %v", name, err)
			continue
		}
		types = append(types, &rt)
	}
	return types, rows.Err()
}
