package xml

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/zatca-qr/internal/model"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

// Adapter parses one XML invoice dialect into an Invoice
type Adapter interface {
	// Parse parses XML content into Invoice
	Parse(ctx context.Context, r io.Reader) (*model.Invoice, error)

	// CanParse returns true if adapter can handle this content
	CanParse(content []byte) bool

	// Name returns the dialect name
	Name() string
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with all adapters
// Order matters: more specific adapters should come before generic ones
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewUBLAdapter(),  // UBL 2.1 namespace or supplier party - specific
			NewFlatAdapter(), // <Invoice><SellerName> - most generic, last
		},
	}
}

// Detect identifies the dialect from XML content
func (r *Registry) Detect(content []byte) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(content) {
			return a, nil
		}
	}
	return nil, model.NewParseError("xml", "root", "unknown XML format, no matching adapter found", nil)
}

// Parse parses XML using appropriate adapter
func (r *Registry) Parse(ctx context.Context, content []byte) (*model.Invoice, error) {
	adapter, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, bytes.NewReader(content))
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Add at the beginning so custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// GetAdapter returns adapter by dialect name
func (r *Registry) GetAdapter(name string) Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Helper functions

// parseDateTime joins an XML date and time and reads them with the layouts
// accepted for the invoice date tag
func parseDateTime(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock != "" {
		date = date + "T" + clock
	}
	return tlv.ParseDate(date)
}

func parseAmount(source, field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, model.NewParseError(source, field, "missing amount", nil)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.NewParseError(source, field, "invalid amount", err)
	}
	return d, nil
}

func readAll(source string, r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(source, "content", "failed to read content", err)
	}
	return content, nil
}
