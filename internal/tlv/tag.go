// Package tlv encodes invoice fields into the Tag-Length-Value structure read by
// e-invoice QR scanners.
//
// Each tag is written as one identifier byte, one length byte and the UTF-8
// bytes of its value. A Document concatenates its tags in order and exposes
// the result as raw bytes or standard base64:
//
//	doc, err := tlv.FromData("Acme Corp", "123456789012345", issuedAt, total, tax)
//	if err != nil {
//	    return err
//	}
//	payload := doc.Base64()
//
// Tags and documents are immutable once built and safe for concurrent use.
package tlv

import (
	"fmt"
	"unicode/utf8"

	"github.com/rezonia/zatca-qr/internal/model"
)

// MaxValueLen is the largest value a single length byte can describe
const MaxValueLen = 255

// Kind identifies the invoice field a tag carries
type Kind uint8

// Standard kinds share their numeric value with the tag identifier
const (
	KindCustom Kind = iota
	KindSeller
	KindTaxNumber
	KindInvoiceDate
	KindTotalAmount
	KindTaxAmount
)

// StandardKinds lists the kinds of the typed factory in standard order
var StandardKinds = []Kind{KindSeller, KindTaxNumber, KindInvoiceDate, KindTotalAmount, KindTaxAmount}

func (k Kind) String() string {
	switch k {
	case KindSeller:
		return "seller"
	case KindTaxNumber:
		return "tax_number"
	case KindInvoiceDate:
		return "invoice_date"
	case KindTotalAmount:
		return "total_amount"
	case KindTaxAmount:
		return "tax_amount"
	default:
		return "custom"
	}
}

// ID returns the standard identifier of k, or 0 for KindCustom
func (k Kind) ID() uint8 {
	if k > KindTaxAmount {
		return 0
	}
	return uint8(k)
}

// KindOf returns the standard kind registered for id, or KindCustom
func KindOf(id uint8) Kind {
	if id >= uint8(KindSeller) && id <= uint8(KindTaxAmount) {
		return Kind(id)
	}
	return KindCustom
}

func (k Kind) field() string {
	switch k {
	case KindSeller:
		return model.FieldSellerName
	case KindTaxNumber:
		return model.FieldVATNumber
	case KindInvoiceDate:
		return model.FieldInvoiceDate
	case KindTotalAmount:
		return model.FieldTotalAmount
	case KindTaxAmount:
		return model.FieldTaxAmount
	default:
		return "value"
	}
}

// Tag is a single validated TLV field. The zero Tag is not valid.
type Tag struct {
	id    uint8
	kind  Kind
	value string
}

// NewTag creates a custom tag with an arbitrary identifier.
// The value must be non-empty valid UTF-8 of at most MaxValueLen bytes.
func NewTag(id uint8, value string) (Tag, error) {
	return newTag(KindCustom, id, value)
}

func newTag(kind Kind, id uint8, value string) (Tag, error) {
	if id == 0 {
		return Tag{}, model.NewValidationError(kind.field(), id, model.RuleIdentifier, "tag identifier must be between 1 and 255")
	}
	if value == "" {
		return Tag{}, model.NewValidationError(kind.field(), value, model.RuleRequired, "value must not be empty")
	}
	if !utf8.ValidString(value) {
		return Tag{}, model.NewValidationError(kind.field(), fmt.Sprintf("%q", value), model.RuleUTF8, "value must be valid UTF-8")
	}
	if len(value) > MaxValueLen {
		return Tag{}, model.NewValidationError(kind.field(), len(value), model.RuleMaxLength,
			fmt.Sprintf("value is %d bytes, at most %d allowed", len(value), MaxValueLen))
	}
	return Tag{id: id, kind: kind, value: value}, nil
}

// ID returns the tag identifier
func (t Tag) ID() uint8 { return t.id }

// Kind returns the invoice field the tag was built for
func (t Tag) Kind() Kind { return t.kind }

// Value returns the formatted value text
func (t Tag) Value() string { return t.value }

// Len returns the UTF-8 byte length of the value
func (t Tag) Len() int { return len(t.value) }

// Valid reports whether t was produced by a constructor
func (t Tag) Valid() bool {
	return t.id != 0 && t.value != "" && len(t.value) <= MaxValueLen
}

// Bytes returns [identifier, length, value...]
func (t Tag) Bytes() []byte {
	return t.appendTo(make([]byte, 0, 2+len(t.value)))
}

func (t Tag) appendTo(dst []byte) []byte {
	dst = append(dst, t.id, byte(len(t.value)))
	return append(dst, t.value...)
}

func (t Tag) String() string {
	return fmt.Sprintf("%d(%s)=%q", t.id, t.kind, t.value)
}

// Entry is an element accepted by FromEntries. It is either a Tag (or *Tag)
// or a Foreign value; no other implementations exist.
type Entry interface {
	entry()
}

func (Tag) entry() {}

// Foreign wraps a value that is not a tag. FromEntries drops it.
type Foreign struct {
	Value interface{}
}

func (Foreign) entry() {}
