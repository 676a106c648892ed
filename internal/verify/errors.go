package verify

import "fmt"

// Error codes for QR payload verification
const (
	ErrCodeInvalidImage      = "INVALID_IMAGE"
	ErrCodeInvalidBase64     = "INVALID_BASE64"
	ErrCodeMalformedTLV      = "MALFORMED_TLV"
	ErrCodeMissingTag        = "MISSING_TAG"
	ErrCodeDuplicateTag      = "DUPLICATE_TAG"
	ErrCodeTagOrder          = "TAG_ORDER"
	ErrCodeInvalidField      = "INVALID_FIELD"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// VerifyError represents a verification failure
type VerifyError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *VerifyError) Error() string {
	if e.Field != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *VerifyError) Unwrap() error {
	return e.Cause
}

// NewVerifyError creates a new verification error
func NewVerifyError(code, field, message string, cause error) *VerifyError {
	return &VerifyError{
		Code:    code,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ErrInvalidImage returns error when no QR code can be read from an image
func ErrInvalidImage(cause error) *VerifyError {
	return NewVerifyError(ErrCodeInvalidImage, "image", "no readable QR code", cause)
}

// ErrInvalidBase64 returns error when the payload is not standard base64
func ErrInvalidBase64(cause error) *VerifyError {
	return NewVerifyError(ErrCodeInvalidBase64, "payload", "payload is not valid base64", cause)
}

// ErrMalformedTLV returns error when the decoded bytes are not a TLV sequence
func ErrMalformedTLV(cause error) *VerifyError {
	return NewVerifyError(ErrCodeMalformedTLV, "payload", "payload is not a valid TLV structure", cause)
}

// ErrUnsupportedFormat returns error for input no verifier accepts
func ErrUnsupportedFormat(format string) *VerifyError {
	return NewVerifyError(ErrCodeUnsupportedFormat, "", fmt.Sprintf("unsupported format: %s", format), nil)
}
