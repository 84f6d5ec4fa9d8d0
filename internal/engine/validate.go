package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"customfields-backend/internal/metadata"
)

// Validate checks a single value against a field definition's type rules.
// It returns nil if the value is acceptable, or an ErrorDetail naming the
// field and the specific rule violated. Validation is pure: neither the
// definition nor the value is mutated.
//
// A nil value or empty string counts as empty: empty fails only when the
// field is required.
func Validate(def *metadata.FieldDefinition, value any) *ErrorDetail {
	if isEmpty(value) {
		if def.Required {
			return detail(def, RuleRequired, "Required field cannot be empty")
		}
		return nil
	}

	switch def.Type {
	case metadata.TypeText, metadata.TypeURL:
		s, ok := value.(string)
		if !ok {
			return detail(def, RuleTypeMismatch, "Value must be a string")
		}
		if def.ValidationRegex != "" && !matchesPattern(def.ValidationRegex, s) {
			return detail(def, RulePatternMismatch,
				fmt.Sprintf("Value must match regex '%s'", def.ValidationRegex))
		}

	case metadata.TypeInteger:
		n, ok := asInteger(value)
		if !ok {
			return detail(def, RuleTypeMismatch, "Value must be an integer")
		}
		if def.ValidationMinimum != nil && n < int64(*def.ValidationMinimum) {
			return detail(def, RuleOutOfRange,
				fmt.Sprintf("Value must be at least %d", *def.ValidationMinimum))
		}
		if def.ValidationMaximum != nil && n > int64(*def.ValidationMaximum) {
			return detail(def, RuleOutOfRange,
				fmt.Sprintf("Value must not exceed %d", *def.ValidationMaximum))
		}

	case metadata.TypeBoolean:
		if !isBooleanLike(value) {
			return detail(def, RuleTypeMismatch, "Value must be true or false")
		}

	case metadata.TypeDate:
		if !isDateLike(value) {
			return detail(def, RuleInvalidDate, "Date values must be in the format YYYY-MM-DD")
		}

	case metadata.TypeSelect:
		s, ok := value.(string)
		if !ok || !def.HasChoice(s) {
			return detail(def, RuleInvalidChoice,
				fmt.Sprintf("Invalid choice (%v). Available choices are: %s", value, strings.Join(def.Choices, ", ")))
		}

	case metadata.TypeMultiSelect:
		selected, ok := asStringSlice(value)
		if !ok {
			return detail(def, RuleTypeMismatch, "Value must be a list of choices")
		}
		for _, s := range selected {
			if !def.HasChoice(s) {
				return detail(def, RuleInvalidChoiceSet,
					fmt.Sprintf("Invalid choice (%s). Available choices are: %s", s, strings.Join(def.Choices, ", ")))
			}
		}
	}

	return nil
}

// ValidateRecordData validates a full attached-data mapping for a record
// type: every assigned field is checked (absent keys validate as empty, so
// required fields must be present), and unknown keys are rejected. Failures
// are collected per field so a caller can surface all of them at once.
func ValidateRecordData(reg *metadata.Registry, recordType string, data map[string]any) []ErrorDetail {
	var errs []ErrorDetail

	assigned := make(map[string]bool)
	for _, def := range reg.FieldsFor(recordType) {
		assigned[def.Name] = true
		if d := Validate(def, data[def.Name]); d != nil {
			errs = append(errs, *d)
		}
	}

	for key := range data {
		if !assigned[key] {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "unknown",
				Message: fmt.Sprintf("Unknown custom field: %s", key),
			})
		}
	}

	return errs
}

func detail(def *metadata.FieldDefinition, rule, msg string) *ErrorDetail {
	return &ErrorDetail{Field: def.Name, Rule: rule, Message: msg}
}

func isEmpty(value any) bool {
	return value == nil || value == ""
}

// matchesPattern tests the value against the pattern anchored at the start
// only. Callers must include $ in the pattern to force full-string matching;
// an unanchored tail is accepted.
func matchesPattern(pattern, s string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// asInteger accepts the integral numeric shapes a JSON decoder or database
// scan can produce.
func asInteger(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// isBooleanLike accepts canonical booleans plus their 1/0 numeric forms.
func isBooleanLike(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case int:
		return v == 0 || v == 1
	case int64:
		return v == 0 || v == 1
	case float64:
		return v == 0 || v == 1
	}
	return false
}

// isDateLike accepts a date value or a string in the fixed YYYY-MM-DD
// format. Time-of-day and timezone components are not considered.
func isDateLike(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case string:
		_, err := time.Parse("2006-01-02", v)
		return err == nil
	}
	return false
}

// asStringSlice accepts a JSON-decoded list whose elements are all strings.
func asStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
