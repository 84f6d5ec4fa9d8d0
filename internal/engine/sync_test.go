package engine

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

// fakeSource is an in-memory InstanceSource. Fetches return copies so a
// batch mutation only takes effect once persisted, matching the store.
type fakeSource struct {
	tables   map[string]map[string]map[string]any // table -> id -> data
	persists int
	maxBatch int
}

func newFakeSource() *fakeSource {
	return &fakeSource{tables: make(map[string]map[string]map[string]any)}
}

func (f *fakeSource) seed(table, id string, data map[string]any) {
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]map[string]any)
	}
	f.tables[table][id] = data
}

func (f *fakeSource) fetch(rt *metadata.RecordType, limit int, match func(map[string]any) bool) []*store.Instance {
	ids := make([]string, 0, len(f.tables[rt.Table]))
	for id, data := range f.tables[rt.Table] {
		if match(data) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*store.Instance, len(ids))
	for i, id := range ids {
		copied := make(map[string]any, len(f.tables[rt.Table][id]))
		for k, v := range f.tables[rt.Table][id] {
			copied[k] = v
		}
		out[i] = &store.Instance{ID: id, Data: copied}
	}
	return out
}

func (f *fakeSource) FetchMissingKey(_ context.Context, rt *metadata.RecordType, key string, limit int) ([]*store.Instance, error) {
	return f.fetch(rt, limit, func(data map[string]any) bool {
		_, ok := data[key]
		return !ok
	}), nil
}

func (f *fakeSource) FetchWithKey(_ context.Context, rt *metadata.RecordType, key string, limit int) ([]*store.Instance, error) {
	return f.fetch(rt, limit, func(data map[string]any) bool {
		_, ok := data[key]
		return ok
	}), nil
}

func (f *fakeSource) BulkPersist(_ context.Context, rt *metadata.RecordType, instances []*store.Instance) error {
	f.persists++
	if len(instances) > f.maxBatch {
		f.maxBatch = len(instances)
	}
	for _, inst := range instances {
		f.tables[rt.Table][inst.ID] = inst.Data
	}
	return nil
}

func syncFixture(t *testing.T) (*fakeSource, *metadata.Registry) {
	t.Helper()
	src := newFakeSource()
	reg := metadata.NewRegistry()
	rt := &metadata.RecordType{Name: "device", Table: "devices", CustomFields: true}
	reg.Load(nil, []*metadata.RecordType{rt})
	return src, reg
}

func TestPopulateInitialData(t *testing.T) {
	src, reg := syncFixture(t)
	src.seed("devices", "a", map[string]any{})
	src.seed("devices", "b", map[string]any{"tier": "gold"}) // already has the key
	src.seed("devices", "c", map[string]any{"other": 1})

	def := &metadata.FieldDefinition{
		Name: "tier", Type: metadata.TypeSelect,
		Choices: []string{"gold", "silver"}, Default: "silver",
		RecordTypes: []string{"device"},
	}

	sync := NewSynchronizer(src, reg, 0)
	if err := sync.PopulateInitialData(context.Background(), def, reg.ResolveRecordTypes(def.RecordTypes)); err != nil {
		t.Fatal(err)
	}

	if got := src.tables["devices"]["a"]["tier"]; got != "silver" {
		t.Errorf("instance a: expected default backfill, got %v", got)
	}
	if got := src.tables["devices"]["b"]["tier"]; got != "gold" {
		t.Errorf("instance b: existing value must be untouched, got %v", got)
	}
	if got := src.tables["devices"]["c"]["tier"]; got != "silver" {
		t.Errorf("instance c: expected default backfill, got %v", got)
	}
	if src.tables["devices"]["c"]["other"] != 1 {
		t.Error("instance c: unrelated keys must survive")
	}

	// A second run finds nothing to do.
	persists := src.persists
	if err := sync.PopulateInitialData(context.Background(), def, reg.ResolveRecordTypes(def.RecordTypes)); err != nil {
		t.Fatal(err)
	}
	if src.persists != persists {
		t.Error("re-run must not rewrite any instance")
	}
}

func TestPopulateInitialDataNilDefault(t *testing.T) {
	src, reg := syncFixture(t)
	src.seed("devices", "a", map[string]any{})

	def := &metadata.FieldDefinition{Name: "notes", Type: metadata.TypeText, RecordTypes: []string{"device"}}

	sync := NewSynchronizer(src, reg, 0)
	if err := sync.PopulateInitialData(context.Background(), def, reg.ResolveRecordTypes(def.RecordTypes)); err != nil {
		t.Fatal(err)
	}

	// The key must be materialized even when the default is nil, so the
	// instance no longer matches the missing-key predicate.
	data := src.tables["devices"]["a"]
	if _, ok := data["notes"]; !ok {
		t.Fatal("expected nil default to still materialize the key")
	}
	if data["notes"] != nil {
		t.Errorf("expected nil value, got %v", data["notes"])
	}
}

func TestRemoveStaleData(t *testing.T) {
	src, reg := syncFixture(t)
	src.seed("devices", "a", map[string]any{"tier": "gold", "other": 1})
	src.seed("devices", "b", map[string]any{"other": 2})

	def := &metadata.FieldDefinition{Name: "tier", Type: metadata.TypeSelect, RecordTypes: []string{"device"}}

	sync := NewSynchronizer(src, reg, 0)
	if err := sync.RemoveStaleData(context.Background(), def, reg.ResolveRecordTypes(def.RecordTypes)); err != nil {
		t.Fatal(err)
	}

	if _, ok := src.tables["devices"]["a"]["tier"]; ok {
		t.Error("expected tier key removed from instance a")
	}
	if src.tables["devices"]["a"]["other"] != 1 {
		t.Error("unrelated keys must survive removal")
	}
	if src.persists != 1 {
		t.Errorf("expected one persisted batch, got %d", src.persists)
	}
}

func TestRenameObjectData(t *testing.T) {
	src, reg := syncFixture(t)
	src.seed("devices", "a", map[string]any{"old": "v", "other": "w"})
	src.seed("devices", "b", map[string]any{"other": "x"})

	def := &metadata.FieldDefinition{Name: "new", Type: metadata.TypeText, RecordTypes: []string{"device"}}

	sync := NewSynchronizer(src, reg, 0)
	if err := sync.RenameObjectData(context.Background(), def, "old", "new"); err != nil {
		t.Fatal(err)
	}

	a := src.tables["devices"]["a"]
	if _, ok := a["old"]; ok {
		t.Error("old key must be gone after rename")
	}
	if a["new"] != "v" || a["other"] != "w" {
		t.Errorf("expected value moved under new key, got %+v", a)
	}
	if _, ok := src.tables["devices"]["b"]["new"]; ok {
		t.Error("instances without the old key must be untouched")
	}
}

func TestSynchronizerBatches(t *testing.T) {
	src, reg := syncFixture(t)
	for i := 0; i < 7; i++ {
		src.seed("devices", fmt.Sprintf("id-%02d", i), map[string]any{})
	}

	def := &metadata.FieldDefinition{
		Name: "active", Type: metadata.TypeBoolean, Default: true,
		RecordTypes: []string{"device"},
	}

	sync := NewSynchronizer(src, reg, 3)
	if err := sync.PopulateInitialData(context.Background(), def, reg.ResolveRecordTypes(def.RecordTypes)); err != nil {
		t.Fatal(err)
	}

	if src.maxBatch > 3 {
		t.Errorf("batch size 3 exceeded: %d", src.maxBatch)
	}
	if src.persists != 3 { // 3 + 3 + 1
		t.Errorf("expected 3 persisted batches, got %d", src.persists)
	}
	for id, data := range src.tables["devices"] {
		if data["active"] != true {
			t.Errorf("instance %s: expected backfill, got %v", id, data["active"])
		}
	}
}
