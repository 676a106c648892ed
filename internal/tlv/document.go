package tlv

import (
	"encoding/base64"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/zatca-qr/internal/model"
	"github.com/rezonia/zatca-qr/internal/render"
)

// Document is an ordered, non-empty list of tags
type Document struct {
	tags []Tag
}

// FromData builds the five standard tags in order 1..5.
// The first invalid field aborts construction.
func FromData(seller, vatNumber string, issuedAt time.Time, total, tax decimal.Decimal) (*Document, error) {
	return build(
		func() (Tag, error) { return NewSeller(seller) },
		func() (Tag, error) { return NewTaxNumber(vatNumber) },
		func() (Tag, error) { return NewInvoiceDate(issuedAt) },
		func() (Tag, error) { return NewInvoiceTotalAmount(total) },
		func() (Tag, error) { return NewInvoiceTaxAmount(tax) },
	)
}

// FromText is FromData for textual input: the date and amounts are parsed first
func FromText(seller, vatNumber, issuedAt, total, tax string) (*Document, error) {
	return build(
		func() (Tag, error) { return NewSeller(seller) },
		func() (Tag, error) { return NewTaxNumber(vatNumber) },
		func() (Tag, error) { return ParseInvoiceDate(issuedAt) },
		func() (Tag, error) { return ParseInvoiceTotalAmount(total) },
		func() (Tag, error) { return ParseInvoiceTaxAmount(tax) },
	)
}

// FromInvoice builds the standard document from an invoice field set
func FromInvoice(inv *model.Invoice) (*Document, error) {
	if inv == nil {
		return nil, model.NewMalformedDocumentError(0, "no invoice")
	}
	return FromData(inv.SellerName, inv.VATNumber, inv.IssuedAt, inv.TotalAmount, inv.TaxAmount)
}

func build(ctors ...func() (Tag, error)) (*Document, error) {
	tags := make([]Tag, 0, len(ctors))
	for _, ctor := range ctors {
		tag, err := ctor()
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return &Document{tags: tags}, nil
}

// FromEntries wraps the valid tags among entries, keeping their relative order.
// Foreign values, nil entries and zero tags are dropped. When nothing is left
// a *model.MalformedDocumentError is returned.
func FromEntries(entries ...Entry) (*Document, error) {
	tags := make([]Tag, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case Tag:
			if v.Valid() {
				tags = append(tags, v)
			}
		case *Tag:
			if v != nil && v.Valid() {
				tags = append(tags, *v)
			}
		case Foreign, nil:
		}
	}

	if len(tags) == 0 {
		return nil, model.NewMalformedDocumentError(len(entries), "no valid tags")
	}
	return &Document{tags: tags}, nil
}

// FromTags is FromEntries for a list holding only tags
func FromTags(tags ...Tag) (*Document, error) {
	entries := make([]Entry, len(tags))
	for i, t := range tags {
		entries[i] = t
	}
	return FromEntries(entries...)
}

// Tags returns a copy of the tag list
func (d *Document) Tags() []Tag {
	out := make([]Tag, len(d.tags))
	copy(out, d.tags)
	return out
}

// Len returns the number of tags
func (d *Document) Len() int {
	return len(d.tags)
}

// Tag returns the first tag of the given kind
func (d *Document) Tag(kind Kind) (Tag, bool) {
	for _, t := range d.tags {
		if t.kind == kind {
			return t, true
		}
	}
	return Tag{}, false
}

// Fields maps each standard kind present to its value
func (d *Document) Fields() map[Kind]string {
	fields := make(map[Kind]string, len(d.tags))
	for _, t := range d.tags {
		if t.kind == KindCustom {
			continue
		}
		if _, ok := fields[t.kind]; !ok {
			fields[t.kind] = t.value
		}
	}
	return fields
}

// Bytes concatenates the encoding of every tag in order
func (d *Document) Bytes() []byte {
	size := 0
	for _, t := range d.tags {
		size += 2 + len(t.value)
	}
	buf := make([]byte, 0, size)
	for _, t := range d.tags {
		buf = t.appendTo(buf)
	}
	return buf
}

// Base64 returns Bytes in standard padded base64
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Bytes())
}

// Render hands Base64 to r. The renderer's error is returned unchanged.
func (d *Document) Render(r render.Renderer, opts render.Options, dest string) (render.Output, error) {
	return r.Render(d.Base64(), opts, dest)
}
