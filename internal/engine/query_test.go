package engine

import (
	"testing"

	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

func listPlan(filters ...FieldFilter) *ListPlan {
	return &ListPlan{
		RecordType: &metadata.RecordType{Name: "device", Table: "devices", CustomFields: true},
		Filters:    filters,
		Page:       2,
		PerPage:    25,
	}
}

func TestBuildListSQLNoFilters(t *testing.T) {
	d := store.NewDialect("postgres")

	sqlStr, params := BuildListSQL(d, listPlan(), true)
	want := "SELECT id, custom_field_data FROM devices ORDER BY id LIMIT $1 OFFSET $2"
	if sqlStr != want {
		t.Fatalf("got %q, want %q", sqlStr, want)
	}
	if len(params) != 2 || params[0] != 25 || params[1] != 25 {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestBuildListSQLFilters(t *testing.T) {
	d := store.NewDialect("postgres")

	exact := FieldFilter{
		Def:   &metadata.FieldDefinition{Name: "tier", Type: metadata.TypeSelect, FilterLogic: metadata.FilterExact},
		Value: "gold",
	}
	loose := FieldFilter{
		Def:   &metadata.FieldDefinition{Name: "notes", Type: metadata.TypeText},
		Value: "rack",
	}

	sqlStr, params := BuildListSQL(d, listPlan(exact, loose), false)
	want := "SELECT id, custom_field_data FROM devices" +
		" WHERE custom_field_data ->> $1 = $2 AND custom_field_data ->> $3 ILIKE $4" +
		" ORDER BY id"
	if sqlStr != want {
		t.Fatalf("got %q, want %q", sqlStr, want)
	}
	if len(params) != 4 || params[1] != "gold" || params[3] != "%rack%" {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestBuildListSQLEscapesLikeMetacharacters(t *testing.T) {
	d := store.NewDialect("postgres")

	filter := FieldFilter{
		Def:   &metadata.FieldDefinition{Name: "notes", Type: metadata.TypeText},
		Value: "100%_done",
	}
	_, params := BuildListSQL(d, listPlan(filter), false)
	if params[1] != `%100\%\_done%` {
		t.Fatalf("expected escaped needle, got %v", params[1])
	}
}

func TestBuildCountSQL(t *testing.T) {
	d := store.NewDialect("postgres")

	filter := FieldFilter{
		Def:   &metadata.FieldDefinition{Name: "tier", FilterLogic: metadata.FilterExact},
		Value: "gold",
	}
	sqlStr, params := BuildCountSQL(d, listPlan(filter))
	want := "SELECT COUNT(*) AS count FROM devices WHERE custom_field_data ->> $1 = $2"
	if sqlStr != want {
		t.Fatalf("got %q, want %q", sqlStr, want)
	}
	if len(params) != 2 {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestBuildListSQLSQLitePlaceholders(t *testing.T) {
	d := store.NewDialect("sqlite")

	filter := FieldFilter{
		Def:   &metadata.FieldDefinition{Name: "tier", FilterLogic: metadata.FilterExact},
		Value: "gold",
	}
	sqlStr, _ := BuildListSQL(d, listPlan(filter), true)
	want := "SELECT id, custom_field_data FROM devices" +
		` WHERE json_extract(custom_field_data, ?1) = ?2` +
		" ORDER BY id LIMIT ?3 OFFSET ?4"
	if sqlStr != want {
		t.Fatalf("got %q, want %q", sqlStr, want)
	}
}
