package xml

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rezonia/zatca-qr/internal/model"
)

// Flat format: one element per QR field
type flatInvoice struct {
	XMLName     xml.Name `xml:"Invoice"`
	Number      string   `xml:"InvoiceNo"`
	Currency    string   `xml:"Currency"`
	SellerName  string   `xml:"SellerName"`
	VATNumber   string   `xml:"VATNumber"`
	InvoiceDate string   `xml:"InvoiceDate"`
	TotalAmount string   `xml:"TotalAmount"`
	TaxAmount   string   `xml:"TaxAmount"`
}

// FlatAdapter parses the flat <Invoice><SellerName>... format
type FlatAdapter struct{}

// NewFlatAdapter creates a new flat adapter
func NewFlatAdapter() *FlatAdapter {
	return &FlatAdapter{}
}

// Name returns the dialect name
func (a *FlatAdapter) Name() string {
	return "flat"
}

// CanParse checks for the flat format markers
func (a *FlatAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("<Invoice")) &&
		bytes.Contains(content, []byte("<SellerName>")) &&
		bytes.Contains(content, []byte("<VATNumber>"))
}

// Parse parses flat XML into Invoice
func (a *FlatAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := readAll(a.Name(), r)
	if err != nil {
		return nil, err
	}

	var doc flatInvoice
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, model.NewParseError(a.Name(), "xml", "failed to parse XML", err)
	}

	result := &model.Invoice{
		Number:     strings.TrimSpace(doc.Number),
		Currency:   strings.TrimSpace(doc.Currency),
		SellerName: strings.TrimSpace(doc.SellerName),
		VATNumber:  strings.TrimSpace(doc.VATNumber),
	}

	if result.IssuedAt, err = parseDateTime(doc.InvoiceDate, ""); err != nil {
		return nil, model.NewParseError(a.Name(), "InvoiceDate", "invalid invoice date", err)
	}
	if result.TotalAmount, err = parseAmount(a.Name(), "TotalAmount", doc.TotalAmount); err != nil {
		return nil, err
	}
	if result.TaxAmount, err = parseAmount(a.Name(), "TaxAmount", doc.TaxAmount); err != nil {
		return nil, err
	}

	return result, nil
}
