package metadata

import "strings"

// FieldType is the closed set of custom field types. Every type-specific
// branch in the engine switches exhaustively over these values.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeInteger     FieldType = "integer"
	TypeBoolean     FieldType = "boolean"
	TypeDate        FieldType = "date"
	TypeURL         FieldType = "url"
	TypeSelect      FieldType = "select"
	TypeMultiSelect FieldType = "multiselect"
)

// Known returns true if t is one of the supported field types.
func (t FieldType) Known() bool {
	switch t {
	case TypeText, TypeInteger, TypeBoolean, TypeDate, TypeURL, TypeSelect, TypeMultiSelect:
		return true
	}
	return false
}

// IsSelection returns true for the choice-constrained types.
func (t FieldType) IsSelection() bool {
	return t == TypeSelect || t == TypeMultiSelect
}

// FilterLogic governs how list filters match stored values.
type FilterLogic string

const (
	FilterLoose FilterLogic = "loose" // case-insensitive substring
	FilterExact FilterLogic = "exact" // entire value must match
)

// DefaultWeight is applied when a new definition does not specify one.
// Fields with higher weights appear lower in a form.
const DefaultWeight = 100

// FieldDefinition is an administrator-authored schema descriptor for one
// custom field. The name doubles as the attached-data key on every record
// instance of the assigned record types; it only changes through the
// explicit rename operation.
type FieldDefinition struct {
	Name              string      `json:"name"`
	Label             string      `json:"label,omitempty"`
	Description       string      `json:"description,omitempty"`
	Type              FieldType   `json:"type"`
	Required          bool        `json:"required,omitempty"`
	FilterLogic       FilterLogic `json:"filter_logic,omitempty"`
	Default           any         `json:"default,omitempty"`
	Weight            int         `json:"weight"`
	ValidationMinimum *int        `json:"validation_minimum,omitempty"`
	ValidationMaximum *int        `json:"validation_maximum,omitempty"`
	ValidationRegex   string      `json:"validation_regex,omitempty"`
	Choices           []string    `json:"choices,omitempty"`
	RecordTypes       []string    `json:"record_types,omitempty"`
}

// DisplayLabel returns the label shown to users, falling back to a
// humanized form of the field name.
func (f *FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return humanize(f.Name)
}

// HasChoice returns true if c is one of the defined choices (exact match).
func (f *FieldDefinition) HasChoice(c string) bool {
	for _, choice := range f.Choices {
		if choice == c {
			return true
		}
	}
	return false
}

// AppliesTo returns true if the field is assigned to the given record type.
func (f *FieldDefinition) AppliesTo(recordType string) bool {
	for _, rt := range f.RecordTypes {
		if rt == recordType {
			return true
		}
	}
	return false
}

// humanize turns an identifier like "rack_units" into "Rack units".
func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
