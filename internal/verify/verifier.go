// Package verify reads a QR payload back, from an image or from base64 text,
// and checks it against the e-invoice TLV layout.
package verify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	amount "github.com/rezonia/zatca-qr/internal/decimal"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

// Format constants for verifier inputs
const (
	FormatImage  = "image"
	FormatBase64 = "base64"
)

// Verifier defines the interface for QR payload verification
type Verifier interface {
	// Verify checks the payload carried by data.
	// The result is never nil; err is set when the payload could not be read at all.
	Verify(ctx context.Context, data []byte) (*Result, error)

	// CanVerify returns true if this verifier can handle the given data format
	CanVerify(data []byte) bool

	// Format returns the format this verifier handles
	Format() string
}

// Registry holds registered verifiers for different formats
type Registry struct {
	verifiers []Verifier
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		verifiers: make([]Verifier, 0),
	}
}

// NewDefaultRegistry creates a registry with the image and base64 verifiers
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewImageVerifier())
	r.Register(NewPayloadVerifier())
	return r
}

// Register adds a verifier to the registry
func (r *Registry) Register(v Verifier) {
	r.verifiers = append(r.verifiers, v)
}

// Detect finds a verifier that can handle the given data
func (r *Registry) Detect(data []byte) (Verifier, error) {
	for _, v := range r.verifiers {
		if v.CanVerify(data) {
			return v, nil
		}
	}
	return nil, ErrUnsupportedFormat("unknown")
}

// Verify verifies data using the appropriate verifier
func (r *Registry) Verify(ctx context.Context, data []byte) (*Result, error) {
	verifier, err := r.Detect(data)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, data)
}

// Get returns a verifier for a specific format
func (r *Registry) Get(format string) Verifier {
	for _, v := range r.verifiers {
		if v.Format() == format {
			return v
		}
	}
	return nil
}

// AvailableFormats returns list of formats that can be verified
func (r *Registry) AvailableFormats() []string {
	formats := make([]string, 0, len(r.verifiers))
	for _, v := range r.verifiers {
		formats = append(formats, v.Format())
	}
	return formats
}

// ImageVerifier scans a PNG or JPEG QR image
type ImageVerifier struct{}

// NewImageVerifier creates a new image verifier
func NewImageVerifier() *ImageVerifier {
	return &ImageVerifier{}
}

// Format returns the format handled
func (v *ImageVerifier) Format() string {
	return FormatImage
}

// CanVerify checks for PNG or JPEG magic bytes
func (v *ImageVerifier) CanVerify(data []byte) bool {
	return IsImage(data)
}

// Verify scans the image and checks the payload it carries
func (v *ImageVerifier) Verify(ctx context.Context, data []byte) (*Result, error) {
	result := NewResult(FormatImage)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	payload, err := render.Scan(data)
	if err != nil {
		verr := ErrInvalidImage(err)
		result.AddError(verr)
		return result, verr
	}

	return result, CheckPayload(payload, result)
}

// PayloadVerifier checks base64 payload text
type PayloadVerifier struct{}

// NewPayloadVerifier creates a new base64 payload verifier
func NewPayloadVerifier() *PayloadVerifier {
	return &PayloadVerifier{}
}

// Format returns the format handled
func (v *PayloadVerifier) Format() string {
	return FormatBase64
}

// CanVerify accepts non-empty text made of base64 characters
func (v *PayloadVerifier) CanVerify(data []byte) bool {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return false
	}
	for _, c := range text {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}

// Verify checks the payload text
func (v *PayloadVerifier) Verify(ctx context.Context, data []byte) (*Result, error) {
	result := NewResult(FormatBase64)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, CheckPayload(string(data), result)
}

// IsImage reports whether data starts with PNG or JPEG magic bytes
func IsImage(data []byte) bool {
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return true
	}
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

// CheckPayload decodes a base64 payload into result and checks tag presence,
// order and field formatting. It returns an error only when the payload
// cannot be decoded.
func CheckPayload(payload string, result *Result) error {
	payload = strings.TrimSpace(payload)
	result.Payload = payload

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		verr := ErrInvalidBase64(err)
		result.AddError(verr)
		return verr
	}

	tags, err := tlv.Decode(raw)
	if err != nil {
		verr := ErrMalformedTLV(err)
		result.AddError(verr)
		return verr
	}
	if len(tags) == 0 {
		verr := ErrMalformedTLV(fmt.Errorf("no tags"))
		result.AddError(verr)
		return verr
	}

	result.Tags = tagInfos(tags)
	checkStructure(tags, result)
	checkFields(tags, result)
	return nil
}

func checkStructure(tags []tlv.Tag, result *Result) {
	seen := make(map[tlv.Kind]bool, len(tlv.StandardKinds))
	var last uint8

	for _, t := range tags {
		kind := t.Kind()
		if kind == tlv.KindCustom {
			result.AddWarning(fmt.Sprintf("non-standard tag %d present", t.ID()))
			continue
		}
		if seen[kind] {
			result.AddError(NewVerifyError(ErrCodeDuplicateTag, kind.String(),
				fmt.Sprintf("tag %d appears more than once", t.ID()), nil))
			continue
		}
		if t.ID() < last {
			result.AddError(NewVerifyError(ErrCodeTagOrder, kind.String(),
				fmt.Sprintf("tag %d follows tag %d", t.ID(), last), nil))
		}
		seen[kind] = true
		last = t.ID()
	}

	for _, kind := range tlv.StandardKinds {
		if !seen[kind] {
			result.AddError(NewVerifyError(ErrCodeMissingTag, kind.String(),
				fmt.Sprintf("tag %d is missing", kind.ID()), nil))
		}
	}
}

func checkFields(tags []tlv.Tag, result *Result) {
	amounts := make(map[tlv.Kind]decimal.Decimal, 2)

	for _, t := range tags {
		var canonical tlv.Tag
		var err error

		switch t.Kind() {
		case tlv.KindSeller:
			canonical, err = tlv.NewSeller(t.Value())
		case tlv.KindTaxNumber:
			canonical, err = tlv.NewTaxNumber(t.Value())
		case tlv.KindInvoiceDate:
			canonical, err = tlv.ParseInvoiceDate(t.Value())
		case tlv.KindTotalAmount:
			canonical, err = tlv.ParseInvoiceTotalAmount(t.Value())
		case tlv.KindTaxAmount:
			canonical, err = tlv.ParseInvoiceTaxAmount(t.Value())
		default:
			continue
		}

		if err != nil {
			result.AddError(NewVerifyError(ErrCodeInvalidField, t.Kind().String(), "field fails its format rule", err))
			continue
		}
		if canonical.Value() != t.Value() {
			result.AddWarning(fmt.Sprintf("%s %q is not in canonical form %q", t.Kind(), t.Value(), canonical.Value()))
		}
		if t.Kind() == tlv.KindTotalAmount || t.Kind() == tlv.KindTaxAmount {
			if _, ok := amounts[t.Kind()]; !ok {
				amounts[t.Kind()] = amount.MustFromString(canonical.Value())
			}
		}
	}

	total, hasTotal := amounts[tlv.KindTotalAmount]
	tax, hasTax := amounts[tlv.KindTaxAmount]
	if hasTotal && hasTax && tax.GreaterThan(total) {
		result.AddWarning(fmt.Sprintf("tax amount %s exceeds total %s", amount.Format(tax), amount.Format(total)))
	}
}
