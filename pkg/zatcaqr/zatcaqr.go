// Package zatcaqr provides a public API for building and reading the QR code
// payload printed on Saudi e-invoices.
//
// The payload is a base64 string of TLV-encoded fields: seller name, VAT
// registration number, invoice timestamp, invoice total and VAT total.
//
// Example usage:
//
//	doc, err := zatcaqr.FromText("Acme Corp", "123456789012345",
//	    "2023-05-01T12:30:00Z", "115.00", "15.00")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(doc.Base64())
package zatcaqr

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/zatca-qr/internal/model"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

// Re-export core types for public API
type (
	Tag      = tlv.Tag
	Kind     = tlv.Kind
	Entry    = tlv.Entry
	Foreign  = tlv.Foreign
	Document = tlv.Document
	Invoice  = model.Invoice
)

// Re-export tag kinds
const (
	KindCustom      = tlv.KindCustom
	KindSeller      = tlv.KindSeller
	KindTaxNumber   = tlv.KindTaxNumber
	KindInvoiceDate = tlv.KindInvoiceDate
	KindTotalAmount = tlv.KindTotalAmount
	KindTaxAmount   = tlv.KindTaxAmount
)

// Re-export rendering types
type (
	Renderer      = render.Renderer
	RendererFunc  = render.RendererFunc
	RenderOptions = render.Options
	RenderOutput  = render.Output
	Level         = render.Level
	Format        = render.Format
)

// Re-export rendering constants
const (
	LevelLow      = render.LevelLow
	LevelMedium   = render.LevelMedium
	LevelQuartile = render.LevelQuartile
	LevelHigh     = render.LevelHigh

	FormatPNG     = render.FormatPNG
	FormatDataURI = render.FormatDataURI
	FormatText    = render.FormatText
)

// Re-export error types
type (
	ValidationError        = model.ValidationError
	MalformedDocumentError = model.MalformedDocumentError
	ParseError             = model.ParseError
)

// NewTag creates a tag with an arbitrary identifier
func NewTag(id uint8, value string) (Tag, error) {
	return tlv.NewTag(id, value)
}

// FromData builds the standard five-tag document from typed values
func FromData(seller, vatNumber string, issuedAt time.Time, total, tax decimal.Decimal) (*Document, error) {
	return tlv.FromData(seller, vatNumber, issuedAt, total, tax)
}

// FromText builds the standard five-tag document from textual values
func FromText(seller, vatNumber, issuedAt, total, tax string) (*Document, error) {
	return tlv.FromText(seller, vatNumber, issuedAt, total, tax)
}

// FromInvoice builds the standard document from an invoice field set
func FromInvoice(inv *Invoice) (*Document, error) {
	return tlv.FromInvoice(inv)
}

// FromEntries builds a document from arbitrary entries, keeping only valid tags
func FromEntries(entries ...Entry) (*Document, error) {
	return tlv.FromEntries(entries...)
}

// Decode reads a base64 payload back into a document
func Decode(payload string) (*Document, error) {
	return tlv.DecodeBase64(payload)
}

// NewQRCodeRenderer returns the PNG/data URI/text renderer
func NewQRCodeRenderer() Renderer {
	return render.NewQRCode()
}

// DefaultRenderOptions returns the renderer defaults
func DefaultRenderOptions() RenderOptions {
	return render.DefaultOptions()
}

// Scan reads the payload from a PNG or JPEG image of a QR code
func Scan(image []byte) (string, error) {
	return render.Scan(image)
}
