package xml

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rezonia/zatca-qr/internal/model"
)

const ublInvoiceNamespace = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"

// UBL 2.1 structures, limited to the fields carried by the QR code.
// Element names are matched without namespace so cbc/cac prefixes are irrelevant.
type ublInvoice struct {
	XMLName       xml.Name         `xml:"Invoice"`
	ID            string           `xml:"ID"`
	IssueDate     string           `xml:"IssueDate"`
	IssueTime     string           `xml:"IssueTime"`
	Currency      string           `xml:"DocumentCurrencyCode"`
	TaxCurrency   string           `xml:"TaxCurrencyCode"`
	Supplier      ublParty         `xml:"AccountingSupplierParty>Party"`
	TaxTotals     []ublTaxTotal    `xml:"TaxTotal"`
	MonetaryTotal ublMonetaryTotal `xml:"LegalMonetaryTotal"`
}

type ublParty struct {
	Names       []string            `xml:"PartyName>Name"`
	TaxSchemes  []ublPartyTaxScheme `xml:"PartyTaxScheme"`
	LegalEntity ublLegalEntity      `xml:"PartyLegalEntity"`
}

type ublPartyTaxScheme struct {
	CompanyID string `xml:"CompanyID"`
	SchemeID  string `xml:"TaxScheme>ID"`
}

type ublLegalEntity struct {
	RegistrationName string `xml:"RegistrationName"`
}

type ublTaxTotal struct {
	TaxAmount ublAmount `xml:"TaxAmount"`
}

type ublMonetaryTotal struct {
	TaxExclusiveAmount ublAmount `xml:"TaxExclusiveAmount"`
	TaxInclusiveAmount ublAmount `xml:"TaxInclusiveAmount"`
	PayableAmount      ublAmount `xml:"PayableAmount"`
}

type ublAmount struct {
	Value    string `xml:",chardata"`
	Currency string `xml:"currencyID,attr"`
}

// UBLAdapter parses UBL 2.1 e-invoices
type UBLAdapter struct{}

// NewUBLAdapter creates a new UBL adapter
func NewUBLAdapter() *UBLAdapter {
	return &UBLAdapter{}
}

// Name returns the dialect name
func (a *UBLAdapter) Name() string {
	return "ubl"
}

// CanParse checks for the UBL invoice namespace or a UBL supplier party
func (a *UBLAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte(ublInvoiceNamespace)) ||
		bytes.Contains(content, []byte("AccountingSupplierParty"))
}

// Parse parses UBL XML into Invoice
func (a *UBLAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := readAll(a.Name(), r)
	if err != nil {
		return nil, err
	}

	var doc ublInvoice
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, model.NewParseError(a.Name(), "xml", "failed to parse XML", err)
	}

	return a.convertInvoice(&doc)
}

func (a *UBLAdapter) convertInvoice(doc *ublInvoice) (*model.Invoice, error) {
	result := &model.Invoice{
		Number:     strings.TrimSpace(doc.ID),
		Currency:   strings.TrimSpace(doc.Currency),
		SellerName: supplierName(doc.Supplier),
		VATNumber:  supplierVATNumber(doc.Supplier),
	}

	// Parse issue date and time
	issuedAt, err := parseDateTime(doc.IssueDate, doc.IssueTime)
	if err != nil {
		return nil, model.NewParseError(a.Name(), "IssueDate", "invalid issue date", err)
	}
	result.IssuedAt = issuedAt

	// Parse totals
	total := doc.MonetaryTotal.TaxInclusiveAmount.Value
	if strings.TrimSpace(total) == "" {
		total = doc.MonetaryTotal.PayableAmount.Value
	}
	if result.TotalAmount, err = parseAmount(a.Name(), "TaxInclusiveAmount", total); err != nil {
		return nil, err
	}
	if result.TaxAmount, err = parseAmount(a.Name(), "TaxAmount", taxTotal(doc)); err != nil {
		return nil, err
	}

	return result, nil
}

func supplierName(p ublParty) string {
	if name := strings.TrimSpace(p.LegalEntity.RegistrationName); name != "" {
		return name
	}
	for _, n := range p.Names {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return ""
}

func supplierVATNumber(p ublParty) string {
	for _, s := range p.TaxSchemes {
		if strings.EqualFold(strings.TrimSpace(s.SchemeID), "VAT") {
			return strings.TrimSpace(s.CompanyID)
		}
	}
	if len(p.TaxSchemes) > 0 {
		return strings.TrimSpace(p.TaxSchemes[0].CompanyID)
	}
	return ""
}

// taxTotal prefers the TaxTotal in the tax currency, then the document currency
func taxTotal(doc *ublInvoice) string {
	for _, currency := range []string{doc.TaxCurrency, doc.Currency} {
		if currency == "" {
			continue
		}
		for _, t := range doc.TaxTotals {
			if t.TaxAmount.Currency == currency && strings.TrimSpace(t.TaxAmount.Value) != "" {
				return t.TaxAmount.Value
			}
		}
	}
	for _, t := range doc.TaxTotals {
		if strings.TrimSpace(t.TaxAmount.Value) != "" {
			return t.TaxAmount.Value
		}
	}
	return ""
}
