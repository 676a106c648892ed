package tlv

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	amount "github.com/rezonia/zatca-qr/internal/decimal"
	"github.com/rezonia/zatca-qr/internal/model"
)

// TaxNumberLength is the length of a VAT registration number
const TaxNumberLength = 15

// DateLayout is the ISO-8601 UTC layout written into the invoice date tag
const DateLayout = "2006-01-02T15:04:05Z"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewSeller creates tag 1 from the seller name, trimmed
func NewSeller(name string) (Tag, error) {
	return newTag(KindSeller, KindSeller.ID(), strings.TrimSpace(name))
}

// NewTaxNumber creates tag 2 from a VAT registration number of exactly
// TaxNumberLength digits
func NewTaxNumber(vatNumber string) (Tag, error) {
	vatNumber = strings.TrimSpace(vatNumber)
	field := KindTaxNumber.field()

	if vatNumber == "" {
		return Tag{}, model.NewValidationError(field, vatNumber, model.RuleRequired, "value must not be empty")
	}
	for _, c := range vatNumber {
		if c < '0' || c > '9' {
			return Tag{}, model.NewValidationError(field, vatNumber, model.RuleDigits, "must contain digits only")
		}
	}
	if len(vatNumber) != TaxNumberLength {
		return Tag{}, model.NewValidationError(field, vatNumber, model.RuleLength,
			fmt.Sprintf("must be %d digits, got %d", TaxNumberLength, len(vatNumber)))
	}

	return newTag(KindTaxNumber, KindTaxNumber.ID(), vatNumber)
}

// NewInvoiceDate creates tag 3 from a timestamp, written in UTC with a Z designator
func NewInvoiceDate(issuedAt time.Time) (Tag, error) {
	if issuedAt.IsZero() {
		return Tag{}, model.NewValidationError(KindInvoiceDate.field(), nil, model.RuleRequired, "timestamp must be set")
	}
	return newTag(KindInvoiceDate, KindInvoiceDate.ID(), issuedAt.UTC().Format(DateLayout))
}

// ParseInvoiceDate creates tag 3 from date-time text. Text without a zone is read as UTC.
func ParseInvoiceDate(s string) (Tag, error) {
	issuedAt, err := ParseDate(s)
	if err != nil {
		return Tag{}, err
	}
	return NewInvoiceDate(issuedAt)
}

// ParseDate parses the date-time layouts accepted for the invoice date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	field := KindInvoiceDate.field()
	if s == "" {
		return time.Time{}, model.NewValidationError(field, s, model.RuleRequired, "value must not be empty")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, model.NewValidationError(field, s, model.RuleDateTime, "cannot parse date-time")
}

// NewInvoiceTotalAmount creates tag 4 from the invoice total including VAT
func NewInvoiceTotalAmount(total decimal.Decimal) (Tag, error) {
	return newAmount(KindTotalAmount, total)
}

// NewInvoiceTaxAmount creates tag 5 from the VAT total
func NewInvoiceTaxAmount(tax decimal.Decimal) (Tag, error) {
	return newAmount(KindTaxAmount, tax)
}

// ParseInvoiceTotalAmount creates tag 4 from numeric text
func ParseInvoiceTotalAmount(s string) (Tag, error) {
	return parseAmount(KindTotalAmount, s)
}

// ParseInvoiceTaxAmount creates tag 5 from numeric text
func ParseInvoiceTaxAmount(s string) (Tag, error) {
	return parseAmount(KindTaxAmount, s)
}

func parseAmount(kind Kind, s string) (Tag, error) {
	if strings.TrimSpace(s) == "" {
		return Tag{}, model.NewValidationError(kind.field(), s, model.RuleRequired, "value must not be empty")
	}
	d, err := amount.FromString(s)
	if err != nil {
		return Tag{}, model.NewValidationError(kind.field(), s, model.RuleNumeric, "must be a decimal number")
	}
	return newAmount(kind, d)
}

func newAmount(kind Kind, d decimal.Decimal) (Tag, error) {
	if !amount.IsNonNegative(d) {
		return Tag{}, model.NewValidationError(kind.field(), d.String(), model.RuleNonNegative, "must not be negative")
	}
	return newTag(kind, kind.ID(), amount.Format(d))
}
