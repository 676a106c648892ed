// Package model holds the invoice field set carried by the QR payload and the
// error types shared across packages.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field names used in errors and API payloads
const (
	FieldSellerName  = "seller_name"
	FieldVATNumber   = "vat_number"
	FieldInvoiceDate = "invoice_date"
	FieldTotalAmount = "total_amount"
	FieldTaxAmount   = "tax_amount"
)

// Invoice is the subset of an e-invoice that is encoded into the QR payload
type Invoice struct {
	Number      string          `json:"number,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	SellerName  string          `json:"seller_name"`
	VATNumber   string          `json:"vat_number"`
	IssuedAt    time.Time       `json:"issued_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// Missing returns the names of required fields that are empty
func (inv *Invoice) Missing() []string {
	var missing []string
	if inv.SellerName == "" {
		missing = append(missing, FieldSellerName)
	}
	if inv.VATNumber == "" {
		missing = append(missing, FieldVATNumber)
	}
	if inv.IssuedAt.IsZero() {
		missing = append(missing, FieldInvoiceDate)
	}
	return missing
}
