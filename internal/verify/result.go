package verify

import "github.com/rezonia/zatca-qr/internal/tlv"

// Result contains the complete verification outcome
type Result struct {
	// Overall validity - true only if no check failed
	Valid bool `json:"valid"`

	// Format of the verified input (image, base64)
	Format string `json:"format,omitempty"`

	// Payload is the base64 text read from the input
	Payload string `json:"payload,omitempty"`

	// Decoded tags in payload order
	Tags []TagInfo `json:"tags,omitempty"`

	// Warnings (non-fatal issues)
	Warnings []string `json:"warnings,omitempty"`

	// Errors (reasons for invalid result)
	Errors []string `json:"errors,omitempty"`

	// Codes of the failed checks, parallel to Errors
	Codes []string `json:"codes,omitempty"`
}

// TagInfo describes one decoded tag
type TagInfo struct {
	ID     uint8  `json:"id"`
	Kind   string `json:"kind"`
	Length int    `json:"length"`
	Value  string `json:"value"`
}

// NewResult creates a new empty result
func NewResult(format string) *Result {
	return &Result{
		Valid:    true,
		Format:   format,
		Warnings: []string{},
		Errors:   []string{},
	}
}

// AddError records a failed check and marks the result invalid
func (r *Result) AddError(err *VerifyError) {
	r.Valid = false
	r.Errors = append(r.Errors, err.Error())
	r.Codes = append(r.Codes, err.Code)
}

// AddWarning records a non-fatal issue
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasCode reports whether a check with the given code failed
func (r *Result) HasCode(code string) bool {
	for _, c := range r.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// Field returns the value of the first tag of the given kind
func (r *Result) Field(kind tlv.Kind) (string, bool) {
	for _, t := range r.Tags {
		if t.Kind == kind.String() {
			return t.Value, true
		}
	}
	return "", false
}

func tagInfos(tags []tlv.Tag) []TagInfo {
	infos := make([]TagInfo, 0, len(tags))
	for _, t := range tags {
		infos = append(infos, TagInfo{
			ID:     t.ID(),
			Kind:   t.Kind().String(),
			Length: t.Len(),
			Value:  t.Value(),
		})
	}
	return infos
}
