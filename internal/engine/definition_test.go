package engine

import (
	"testing"

	"customfields-backend/internal/metadata"
)

func findRule(errs []ErrorDetail, rule string) *ErrorDetail {
	for i := range errs {
		if errs[i].Rule == rule {
			return &errs[i]
		}
	}
	return nil
}

func TestValidateDefinitionAcceptsWellFormed(t *testing.T) {
	defs := []*metadata.FieldDefinition{
		{Name: "notes", Type: metadata.TypeText, ValidationRegex: "^[a-z]+$", Default: "ok"},
		{Name: "rack_units", Type: metadata.TypeInteger, ValidationMinimum: intPtr(0), ValidationMaximum: intPtr(48), Default: 1},
		{Name: "tier", Type: metadata.TypeSelect, Choices: []string{"gold", "silver"}, Default: "gold"},
		{Name: "tags", Type: metadata.TypeMultiSelect, Choices: []string{"a", "b"}},
	}
	for _, def := range defs {
		if errs := ValidateDefinition(def); len(errs) != 0 {
			t.Errorf("%s: expected no violations, got %+v", def.Name, errs)
		}
	}
}

func TestValidateDefinitionUnknownType(t *testing.T) {
	def := &metadata.FieldDefinition{Name: "f", Type: "decimal"}
	errs := ValidateDefinition(def)
	if len(errs) != 1 || errs[0].Rule != RuleUnknownType {
		t.Fatalf("expected single unknown_type violation, got %+v", errs)
	}
}

func TestValidateDefinitionNumericConstraintOnNonInteger(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "notes", Type: metadata.TypeText,
		ValidationMinimum: intPtr(1), ValidationMaximum: intPtr(5),
	}
	errs := ValidateDefinition(def)
	if len(errs) != 2 {
		t.Fatalf("expected violations for both bounds, got %+v", errs)
	}
	for _, e := range errs {
		if e.Rule != RuleNumericConstraint {
			t.Errorf("expected numeric_constraint, got %s", e.Rule)
		}
	}
}

func TestValidateDefinitionRegexConstraint(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "count", Type: metadata.TypeInteger, ValidationRegex: "^[0-9]+$",
	}
	if e := findRule(ValidateDefinition(def), RuleRegexConstraint); e == nil {
		t.Fatal("expected regex_constraint for regex on integer field")
	}

	// URL fields may carry a regex like text fields.
	def = &metadata.FieldDefinition{
		Name: "homepage", Type: metadata.TypeURL, ValidationRegex: "^https://",
	}
	if errs := ValidateDefinition(def); len(errs) != 0 {
		t.Fatalf("expected regex on url field to pass, got %+v", errs)
	}
}

func TestValidateDefinitionInvalidRegex(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "notes", Type: metadata.TypeText, ValidationRegex: "[unclosed",
	}
	if e := findRule(ValidateDefinition(def), RuleInvalidRegex); e == nil {
		t.Fatal("expected invalid_regex for uncompilable pattern")
	}
}

func TestValidateDefinitionChoicesConstraint(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "notes", Type: metadata.TypeText, Choices: []string{"a", "b"},
	}
	if e := findRule(ValidateDefinition(def), RuleChoicesConstraint); e == nil {
		t.Fatal("expected choices_constraint for choices on text field")
	}
}

func TestValidateDefinitionInsufficientChoices(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "tier", Type: metadata.TypeSelect, Choices: []string{"only"},
	}
	if e := findRule(ValidateDefinition(def), RuleInsufficientChoices); e == nil {
		t.Fatal("expected insufficient_choices for single-choice select")
	}

	def.Choices = nil
	if e := findRule(ValidateDefinition(def), RuleInsufficientChoices); e == nil {
		t.Fatal("expected insufficient_choices for select without choices")
	}
}

func TestValidateDefinitionDefaultNotInChoices(t *testing.T) {
	def := &metadata.FieldDefinition{
		Name: "tier", Type: metadata.TypeSelect,
		Choices: []string{"gold", "silver"}, Default: "platinum",
	}
	errs := ValidateDefinition(def)
	if e := findRule(errs, RuleDefaultNotInChoices); e == nil {
		t.Fatalf("expected default_not_in_choices, got %+v", errs)
	}
	// The violation is reported once, not duplicated by the generic
	// default check.
	if e := findRule(errs, RuleInvalidDefault); e != nil {
		t.Fatalf("expected no duplicate invalid_default, got %+v", errs)
	}
}

func TestValidateDefinitionInvalidDefault(t *testing.T) {
	tests := []*metadata.FieldDefinition{
		{Name: "rack_units", Type: metadata.TypeInteger, Default: "lots"},
		{Name: "active", Type: metadata.TypeBoolean, Default: "yes"},
		{Name: "install_date", Type: metadata.TypeDate, Default: "03/15/2024"},
		{Name: "code", Type: metadata.TypeText, ValidationRegex: "^[A-Z]+$", Default: "abc"},
	}
	for _, def := range tests {
		if e := findRule(ValidateDefinition(def), RuleInvalidDefault); e == nil {
			t.Errorf("%s: expected invalid_default for %v", def.Name, def.Default)
		}
	}
}

func TestValidateDefinitionCollectsAllViolations(t *testing.T) {
	// A definition can break several invariants at once; the save must
	// surface all of them.
	def := &metadata.FieldDefinition{
		Name: "broken", Type: metadata.TypeBoolean,
		ValidationMinimum: intPtr(1),
		ValidationRegex:   "^x$",
		Choices:           []string{"a", "b"},
	}
	errs := ValidateDefinition(def)
	for _, rule := range []string{RuleNumericConstraint, RuleRegexConstraint, RuleChoicesConstraint} {
		if findRule(errs, rule) == nil {
			t.Errorf("expected %s among violations, got %+v", rule, errs)
		}
	}
}
