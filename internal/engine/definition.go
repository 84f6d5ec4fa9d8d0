package engine

import (
	"fmt"
	"regexp"

	"customfields-backend/internal/metadata"
)

// ValidateDefinition runs every definition-save invariant against a field
// definition and returns all violations, each attributed to the offending
// attribute. An empty result means the definition may be persisted; any
// violation must abort the save entirely.
func ValidateDefinition(def *metadata.FieldDefinition) []ErrorDetail {
	var errs []ErrorDetail

	if def.Name == "" {
		errs = append(errs, ErrorDetail{
			Field: "name", Rule: RuleRequired,
			Message: "A field name is required",
		})
	}

	if !def.Type.Known() {
		errs = append(errs, ErrorDetail{
			Field: "type", Rule: RuleUnknownType,
			Message: fmt.Sprintf("Unknown field type: %s", def.Type),
		})
		return errs // every other invariant depends on the type
	}

	// Minimum/maximum values can be set only for integer fields
	if def.ValidationMinimum != nil && def.Type != metadata.TypeInteger {
		errs = append(errs, ErrorDetail{
			Field: "validation_minimum", Rule: RuleNumericConstraint,
			Message: "A minimum value may be set only for integer fields",
		})
	}
	if def.ValidationMaximum != nil && def.Type != metadata.TypeInteger {
		errs = append(errs, ErrorDetail{
			Field: "validation_maximum", Rule: RuleNumericConstraint,
			Message: "A maximum value may be set only for integer fields",
		})
	}

	// Regex validation can be set only for text and URL fields
	if def.ValidationRegex != "" {
		if def.Type != metadata.TypeText && def.Type != metadata.TypeURL {
			errs = append(errs, ErrorDetail{
				Field: "validation_regex", Rule: RuleRegexConstraint,
				Message: "Regular expression validation is supported only for text and URL fields",
			})
		} else if _, err := regexp.Compile(def.ValidationRegex); err != nil {
			errs = append(errs, ErrorDetail{
				Field: "validation_regex", Rule: RuleInvalidRegex,
				Message: fmt.Sprintf("Invalid regular expression: %v", err),
			})
		}
	}

	// Choices can be set only on selection fields
	if len(def.Choices) > 0 && !def.Type.IsSelection() {
		errs = append(errs, ErrorDetail{
			Field: "choices", Rule: RuleChoicesConstraint,
			Message: "Choices may be set only for selection fields",
		})
	}

	// A select field must offer at least two choices
	if def.Type == metadata.TypeSelect && len(def.Choices) < 2 {
		errs = append(errs, ErrorDetail{
			Field: "choices", Rule: RuleInsufficientChoices,
			Message: "Selection fields must specify at least two choices",
		})
	}

	// A select field's default (if any) must be one of its choices
	if def.Type == metadata.TypeSelect && def.Default != nil {
		if s, ok := def.Default.(string); !ok || !def.HasChoice(s) {
			errs = append(errs, ErrorDetail{
				Field: "default", Rule: RuleDefaultNotInChoices,
				Message: fmt.Sprintf("The specified default value (%v) is not listed as an available choice", def.Default),
			})
			return errs // the generic default check below would report the same violation twice
		}
	}

	// The default value itself must pass validation for the declared type
	if def.Default != nil {
		if d := Validate(def, def.Default); d != nil {
			errs = append(errs, ErrorDetail{
				Field: "default", Rule: RuleInvalidDefault,
				Message: fmt.Sprintf("Invalid default value %q: %s", fmt.Sprint(def.Default), d.Message),
			})
		}
	}

	return errs
}
