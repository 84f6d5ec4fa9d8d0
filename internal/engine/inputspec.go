package engine

import "customfields-backend/internal/metadata"

// InputKind tags the widget or parser a rendering layer should use.
type InputKind string

const (
	InputText          InputKind = "text"
	InputInteger       InputKind = "integer"
	InputBooleanSelect InputKind = "boolean-select"
	InputDatePicker    InputKind = "date-picker"
	InputURL           InputKind = "url"
	InputSelect        InputKind = "select"
	InputMultiSelect   InputKind = "multiselect"
	// Text-import variants: same choice constraints, but typed text is
	// decoded instead of rendering an interactive widget.
	InputCSVSelect      InputKind = "csv-select"
	InputCSVMultiSelect InputKind = "csv-multiselect"
)

// blankChoice is prepended when a selection field is optional or has no
// resolvable default.
var blankChoice = Choice{Value: "", Label: "---------"}

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// InputSpec is a declarative description of how to present and edit one
// custom field's value. It carries no behavior; a rendering layer outside
// this package interprets it.
type InputSpec struct {
	Field       string    `json:"field"`
	Kind        InputKind `json:"kind"`
	Label       string    `json:"label"`
	HelpText    string    `json:"help_text,omitempty"`
	Required    bool      `json:"required"`
	Initial     any       `json:"initial,omitempty"`
	Minimum     *int      `json:"minimum,omitempty"`
	Maximum     *int      `json:"maximum,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	PatternHint string    `json:"pattern_hint,omitempty"`
	Choices     []Choice  `json:"choices,omitempty"`
}

// InputSpecOptions adjusts spec construction for its consumption context.
type InputSpecOptions struct {
	// SetInitial propagates the field default into the spec's initial
	// value. False for bulk editing, where no single default applies.
	SetInitial bool

	// EnforceRequired honors the definition's required flag. False for
	// filtering and bulk editing, where omission is legal.
	EnforceRequired bool

	// ForBulkTextImport requests the text-parsing variant of selection
	// fields instead of the interactive widget variant.
	ForBulkTextImport bool
}

// BuildInputSpec maps a field definition and context flags to an InputSpec.
// Pure: the definition is never mutated.
func BuildInputSpec(def *metadata.FieldDefinition, opts InputSpecOptions) InputSpec {
	spec := InputSpec{
		Field:    def.Name,
		Label:    def.DisplayLabel(),
		HelpText: def.Description,
		Required: def.Required && opts.EnforceRequired,
	}
	if opts.SetInitial {
		spec.Initial = def.Default
	}

	switch def.Type {
	case metadata.TypeText:
		spec.Kind = InputText
		applyPattern(&spec, def)

	case metadata.TypeURL:
		spec.Kind = InputURL
		applyPattern(&spec, def)

	case metadata.TypeInteger:
		spec.Kind = InputInteger
		spec.Minimum = def.ValidationMinimum
		spec.Maximum = def.ValidationMaximum

	case metadata.TypeBoolean:
		spec.Kind = InputBooleanSelect
		spec.Choices = []Choice{
			blankChoice,
			{Value: "true", Label: "True"},
			{Value: "false", Label: "False"},
		}

	case metadata.TypeDate:
		spec.Kind = InputDatePicker

	case metadata.TypeSelect, metadata.TypeMultiSelect:
		buildSelectionSpec(&spec, def, opts)
	}

	return spec
}

func buildSelectionSpec(spec *InputSpec, def *metadata.FieldDefinition, opts InputSpecOptions) {
	// The default is only resolvable when it names an actual choice.
	var defaultChoice string
	if s, ok := def.Default.(string); ok && def.HasChoice(s) {
		defaultChoice = s
	}

	choices := make([]Choice, 0, len(def.Choices)+1)
	if !spec.Required || defaultChoice == "" {
		choices = append(choices, blankChoice)
	}
	for _, c := range def.Choices {
		choices = append(choices, Choice{Value: c, Label: c})
	}
	spec.Choices = choices

	// For selection fields the initial value is only the default when it
	// resolves to a choice.
	spec.Initial = nil
	if opts.SetInitial && defaultChoice != "" {
		spec.Initial = defaultChoice
	}

	switch {
	case def.Type == metadata.TypeSelect && opts.ForBulkTextImport:
		spec.Kind = InputCSVSelect
	case def.Type == metadata.TypeSelect:
		spec.Kind = InputSelect
	case opts.ForBulkTextImport:
		spec.Kind = InputCSVMultiSelect
	default:
		spec.Kind = InputMultiSelect
	}
}

func applyPattern(spec *InputSpec, def *metadata.FieldDefinition) {
	if def.ValidationRegex == "" {
		return
	}
	spec.Pattern = def.ValidationRegex
	spec.PatternHint = "Values must match this regex: " + def.ValidationRegex
}
