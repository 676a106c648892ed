package model

import "fmt"

// Validation rule names reported in ValidationError.Rule
const (
	RuleRequired    = "required"
	RuleMaxLength   = "max_length"
	RuleUTF8        = "utf8"
	RuleIdentifier  = "identifier"
	RuleDigits      = "digits"
	RuleLength      = "length"
	RuleDateTime    = "datetime"
	RuleNumeric     = "numeric"
	RuleNonNegative = "non_negative"
)

// ValidationError represents a single field failing its formatting rule
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil && e.Value != "" {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// MalformedDocumentError is returned when no valid tag is left after filtering
// the entries of a generic document construction.
type MalformedDocumentError struct {
	Entries int
	Message string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed data structure: %s (entries=%d)", e.Message, e.Entries)
}

// NewMalformedDocumentError creates a new malformed document error
func NewMalformedDocumentError(entries int, message string) *MalformedDocumentError {
	return &MalformedDocumentError{
		Entries: entries,
		Message: message,
	}
}

// ParseError represents failures reading invoice input with source context
type ParseError struct {
	Source  string
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Source, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Source, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(source, field, message string, cause error) *ParseError {
	return &ParseError{
		Source:  source,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}
