package metadata

import "testing"

func TestFieldTypeKnown(t *testing.T) {
	for _, typ := range []FieldType{TypeText, TypeInteger, TypeBoolean, TypeDate, TypeURL, TypeSelect, TypeMultiSelect} {
		if !typ.Known() {
			t.Errorf("expected %s to be known", typ)
		}
	}
	for _, typ := range []FieldType{"", "decimal", "TEXT", "json"} {
		if typ.Known() {
			t.Errorf("expected %q to be unknown", typ)
		}
	}
}

func TestFieldTypeIsSelection(t *testing.T) {
	if !TypeSelect.IsSelection() || !TypeMultiSelect.IsSelection() {
		t.Error("select and multiselect are selection types")
	}
	if TypeText.IsSelection() || TypeBoolean.IsSelection() {
		t.Error("text and boolean are not selection types")
	}
}

func TestDisplayLabel(t *testing.T) {
	tests := []struct {
		name, label, want string
	}{
		{"rack_units", "", "Rack units"},
		{"rack_units", "Height (U)", "Height (U)"},
		{"tier", "", "Tier"},
		{"a_b_c", "", "A b c"},
	}
	for _, tt := range tests {
		def := &FieldDefinition{Name: tt.name, Label: tt.label}
		if got := def.DisplayLabel(); got != tt.want {
			t.Errorf("DisplayLabel(%q, %q) = %q, want %q", tt.name, tt.label, got, tt.want)
		}
	}
}

func TestHasChoice(t *testing.T) {
	def := &FieldDefinition{Choices: []string{"gold", "silver"}}
	if !def.HasChoice("gold") {
		t.Error("expected gold to be a choice")
	}
	if def.HasChoice("Gold") || def.HasChoice("") {
		t.Error("choice matching is exact")
	}
}

func TestAppliesTo(t *testing.T) {
	def := &FieldDefinition{RecordTypes: []string{"device", "site"}}
	if !def.AppliesTo("device") || !def.AppliesTo("site") {
		t.Error("expected assignment to device and site")
	}
	if def.AppliesTo("rack") {
		t.Error("rack is not assigned")
	}
}
