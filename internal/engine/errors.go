package engine

import "fmt"

// Rule kinds for definition-save violations. Each maps to exactly one
// invariant on FieldDefinition.
const (
	RuleInvalidDefault      = "invalid_default"       // default fails value validation
	RuleNumericConstraint   = "numeric_constraint"    // min/max on a non-integer type
	RuleRegexConstraint     = "regex_constraint"      // regex on a type other than text/url
	RuleInvalidRegex        = "invalid_regex"         // regex does not compile
	RuleChoicesConstraint   = "choices_constraint"    // choices on a non-selection type
	RuleInsufficientChoices = "insufficient_choices"  // select with fewer than two choices
	RuleDefaultNotInChoices = "default_not_in_choices" // select default absent from choices
	RuleUnknownType         = "unknown_type"          // type outside the closed set
)

// Rule kinds for value-level validation failures at record-edit time.
const (
	RuleRequired         = "required"           // required field absent or empty
	RuleTypeMismatch     = "type_mismatch"      // value has the wrong shape for the type
	RuleOutOfRange       = "out_of_range"       // integer outside [min, max]
	RulePatternMismatch  = "pattern_mismatch"   // text/url value fails the regex
	RuleInvalidDate      = "invalid_date"       // not a date or YYYY-MM-DD string
	RuleInvalidChoice    = "invalid_choice"     // select value not among choices
	RuleInvalidChoiceSet = "invalid_choice_set" // multiselect element not among choices
)

// AppError is the single error envelope surfaced over HTTP.
type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail attributes one violation to a field (a definition attribute
// at save time, or a custom field name at record-edit time).
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(kind, name string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s %s not found", kind, name),
	}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}
