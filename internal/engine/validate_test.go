package engine

import (
	"testing"

	"customfields-backend/internal/metadata"
)

func intPtr(n int) *int { return &n }

func TestValidateTextRegex(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name:            "site_code",
		Type:            metadata.TypeText,
		Required:        true,
		ValidationRegex: "^[A-Z]{3}$",
	}

	if d := Validate(def, "ABC"); d != nil {
		t.Fatalf("expected ABC to pass, got %s: %s", d.Rule, d.Message)
	}
	if d := Validate(def, "abc"); d == nil || d.Rule != RulePatternMismatch {
		t.Fatalf("expected pattern_mismatch for abc, got %+v", d)
	}
	if d := Validate(def, ""); d == nil || d.Rule != RuleRequired {
		t.Fatalf("expected required for empty value, got %+v", d)
	}
}

func TestValidateTextRegexPrefixAnchored(t *testing.T) {
	// Patterns are anchored at the start only; an unanchored tail accepts
	// a longer value.
	def := &metadata.FieldDefinition{
		Name:            "code",
		Type:            metadata.TypeText,
		ValidationRegex: "[A-Z]{3}",
	}

	if d := Validate(def, "ABCDE"); d != nil {
		t.Fatalf("expected prefix match to pass, got %+v", d)
	}
	if d := Validate(def, "xABC"); d == nil || d.Rule != RulePatternMismatch {
		t.Fatalf("expected pattern_mismatch for non-prefix match, got %+v", d)
	}
}

func TestValidateTextTypeMismatch(t *testing.T) {
	def := &metadata.FieldDefinition{Name: "notes", Type: metadata.TypeText}
	if d := Validate(def, 42); d == nil || d.Rule != RuleTypeMismatch {
		t.Fatalf("expected type_mismatch for integer on text field, got %+v", d)
	}
}

func TestValidateIntegerBounds(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name:              "rack_units",
		Type:              metadata.TypeInteger,
		ValidationMinimum: intPtr(1),
		ValidationMaximum: intPtr(10),
	}

	tests := []struct {
		value any
		rule  string
	}{
		{1, ""},
		{10, ""},
		{float64(5), ""}, // JSON decoding yields float64
		{0, RuleOutOfRange},
		{11, RuleOutOfRange},
		{2.5, RuleTypeMismatch},
		{"7", RuleTypeMismatch},
	}
	for _, tt := range tests {
		d := Validate(def, tt.value)
		if tt.rule == "" {
			if d != nil {
				t.Errorf("value %v: expected pass, got %s: %s", tt.value, d.Rule, d.Message)
			}
			continue
		}
		if d == nil || d.Rule != tt.rule {
			t.Errorf("value %v: expected %s, got %+v", tt.value, tt.rule, d)
		}
	}
}

func TestValidateBoolean(t *testing.T) {
	def := &metadata.FieldDefinition{Name: "active", Type: metadata.TypeBoolean}

	for _, v := range []any{true, false, 0, 1, float64(1)} {
		if d := Validate(def, v); d != nil {
			t.Errorf("value %v: expected pass, got %+v", v, d)
		}
	}
	for _, v := range []any{2, "true", 1.5} {
		if d := Validate(def, v); d == nil || d.Rule != RuleTypeMismatch {
			t.Errorf("value %v: expected type_mismatch, got %+v", v, d)
		}
	}
}

func TestValidateDate(t *testing.T) {
	def := &metadata.FieldDefinition{Name: "install_date", Type: metadata.TypeDate}

	if d := Validate(def, "2024-03-15"); d != nil {
		t.Fatalf("expected valid date to pass, got %+v", d)
	}
	for _, v := range []any{"15/03/2024", "2024-13-40", "not a date", 20240315} {
		if d := Validate(def, v); d == nil || d.Rule != RuleInvalidDate {
			t.Errorf("value %v: expected invalid_date, got %+v", v, d)
		}
	}
}

func TestValidateSelect(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name:    "tier",
		Type:    metadata.TypeSelect,
		Choices: []string{"gold", "silver", "bronze"},
	}

	if d := Validate(def, "gold"); d != nil {
		t.Fatalf("expected listed choice to pass, got %+v", d)
	}
	if d := Validate(def, "platinum"); d == nil || d.Rule != RuleInvalidChoice {
		t.Fatalf("expected invalid_choice, got %+v", d)
	}
	if d := Validate(def, 3); d == nil || d.Rule != RuleInvalidChoice {
		t.Fatalf("expected invalid_choice for non-string, got %+v", d)
	}
}

func TestValidateMultiSelect(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name:    "tags",
		Type:    metadata.TypeMultiSelect,
		Choices: []string{"a", "b", "c"},
	}

	if d := Validate(def, []any{"a", "c"}); d != nil {
		t.Fatalf("expected subset to pass, got %+v", d)
	}
	if d := Validate(def, []string{"a", "z"}); d == nil || d.Rule != RuleInvalidChoiceSet {
		t.Fatalf("expected invalid_choice_set, got %+v", d)
	}
	if d := Validate(def, "a"); d == nil || d.Rule != RuleTypeMismatch {
		t.Fatalf("expected type_mismatch for scalar, got %+v", d)
	}
}

func TestValidateOptionalEmpty(t *testing.T) {
	for _, typ := range []metadata.FieldType{
		metadata.TypeText, metadata.TypeInteger, metadata.TypeBoolean,
		metadata.TypeDate, metadata.TypeURL, metadata.TypeSelect, metadata.TypeMultiSelect,
	} {
		def := &metadata.FieldDefinition{Name: "f", Type: typ, Choices: []string{"x", "y"}}
		if d := Validate(def, nil); d != nil {
			t.Errorf("type %s: expected nil to pass on optional field, got %+v", typ, d)
		}
	}
}

func TestValidateRecordData(t *testing.T) {
	reg := metadata.NewRegistry()
	reg.Load([]*metadata.FieldDefinition{
		{Name: "site_code", Type: metadata.TypeText, Required: true, RecordTypes: []string{"device"}},
		{Name: "rack_units", Type: metadata.TypeInteger, RecordTypes: []string{"device"}},
	}, []*metadata.RecordType{
		{Name: "device", Table: "devices", CustomFields: true},
	})

	errs := ValidateRecordData(reg, "device", map[string]any{
		"rack_units": 4,
		"bogus":      "x",
	})
	if len(errs) != 2 {
		t.Fatalf("expected 2 violations, got %d: %+v", len(errs), errs)
	}

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Rule
	}
	if byField["site_code"] != RuleRequired {
		t.Errorf("expected required violation for absent site_code, got %q", byField["site_code"])
	}
	if byField["bogus"] != "unknown" {
		t.Errorf("expected unknown violation for bogus, got %q", byField["bogus"])
	}

	errs = ValidateRecordData(reg, "device", map[string]any{"site_code": "NYC"})
	if len(errs) != 0 {
		t.Fatalf("expected clean data to pass, got %+v", errs)
	}
}
