package metadata

import (
	"sort"
	"sync"
)

// Registry is the in-memory view of all field definitions and record types.
// It is replaced wholesale after admin mutations via Load.
type Registry struct {
	mu          sync.RWMutex
	fields      map[string]*FieldDefinition
	recordTypes map[string]*RecordType
}

func NewRegistry() *Registry {
	return &Registry{
		fields:      make(map[string]*FieldDefinition),
		recordTypes: make(map[string]*RecordType),
	}
}

// GetField returns the field definition with the given name, or nil.
func (r *Registry) GetField(name string) *FieldDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[name]
}

// GetRecordType returns the record type with the given name, or nil.
func (r *Registry) GetRecordType(name string) *RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recordTypes[name]
}

// AllFields returns all field definitions ordered by weight, then name.
func (r *Registry) AllFields() []*FieldDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields := make([]*FieldDefinition, 0, len(r.fields))
	for _, f := range r.fields {
		fields = append(fields, f)
	}
	sortFields(fields)
	return fields
}

// FieldsFor returns the field definitions assigned to the given record
// type, ordered by weight, then name.
func (r *Registry) FieldsFor(recordType string) []*FieldDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var fields []*FieldDefinition
	for _, f := range r.fields {
		if f.AppliesTo(recordType) {
			fields = append(fields, f)
		}
	}
	sortFields(fields)
	return fields
}

// FieldsAssignedTo returns the names of fields assigned to the record type.
func (r *Registry) FieldsAssignedTo(recordType string) []string {
	var names []string
	for _, f := range r.FieldsFor(recordType) {
		names = append(names, f.Name)
	}
	return names
}

// AllRecordTypes returns all registered record types sorted by name.
func (r *Registry) AllRecordTypes() []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]*RecordType, 0, len(r.recordTypes))
	for _, rt := range r.recordTypes {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}

// ResolveRecordTypes maps record type names to registry entries, skipping
// names that are no longer registered.
func (r *Registry) ResolveRecordTypes(names []string) []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var types []*RecordType
	for _, name := range names {
		if rt := r.recordTypes[name]; rt != nil {
			types = append(types, rt)
		}
	}
	return types
}

// Load replaces all field definitions and record types in the registry.
// Called during startup and after admin mutations.
func (r *Registry) Load(fields []*FieldDefinition, recordTypes []*RecordType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fields = make(map[string]*FieldDefinition, len(fields))
	for _, f := range fields {
		r.fields[f.Name] = f
	}

	r.recordTypes = make(map[string]*RecordType, len(recordTypes))
	for _, rt := range recordTypes {
		r.recordTypes[rt.Name] = rt
	}
}

// sortFields orders definitions by weight, ties broken by name.
func sortFields(fields []*FieldDefinition) {
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Weight != fields[j].Weight {
			return fields[i].Weight < fields[j].Weight
		}
		return fields[i].Name < fields[j].Name
	})
}
