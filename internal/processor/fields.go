package processor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rezonia/zatca-qr/internal/tlv"
)

// Text is a field value given either as a JSON string or a JSON number.
// Numbers keep their literal text so amounts are never routed through float64.
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = Text(n.String())
	return nil
}

// Fields is the textual QR field input accepted by the JSON path
type Fields struct {
	SellerName  string `json:"seller_name"`
	VATNumber   string `json:"vat_number"`
	InvoiceDate Text   `json:"invoice_date"`
	TotalAmount Text   `json:"total_amount"`
	TaxAmount   Text   `json:"tax_amount"`
}

// Document builds the standard document, failing on the first invalid field
func (f Fields) Document() (*tlv.Document, error) {
	return tlv.FromText(f.SellerName, f.VATNumber,
		string(f.InvoiceDate), string(f.TotalAmount), string(f.TaxAmount))
}
