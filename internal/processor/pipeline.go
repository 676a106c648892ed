// Package processor turns invoice input (UBL/flat XML or JSON fields) into the
// QR payload and, optionally, a rendered QR image.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	amount "github.com/rezonia/zatca-qr/internal/decimal"
	"github.com/rezonia/zatca-qr/internal/model"
	xmlparser "github.com/rezonia/zatca-qr/internal/parser/xml"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

// Format represents input file format
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatJSON
	FormatPDF
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// Errors returned for inputs the pipeline cannot turn into a payload
var (
	ErrUnsupportedInput = errors.New("unsupported input format")
	ErrEmptyInput       = errors.New("empty input")
)

// Result holds processing result
type Result struct {
	Invoice  *model.Invoice
	Document *tlv.Document
	Base64   string
	Image    *render.Output
	Warnings []string
	Error    error
}

// Pipeline orchestrates invoice processing
type Pipeline struct {
	xmlRegistry *xmlparser.Registry
	renderer    render.Renderer
	renderOpts  render.Options
	logger      zerolog.Logger
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithRenderer renders a QR image for every successful result
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithRenderOptions sets the options passed to the renderer
func WithRenderOptions(opts render.Options) Option {
	return func(p *Pipeline) {
		p.renderOpts = opts
	}
}

// WithXMLRegistry replaces the XML adapter registry
func WithXMLRegistry(r *xmlparser.Registry) Option {
	return func(p *Pipeline) {
		p.xmlRegistry = r
	}
}

// WithLogger sets the logger used for debug tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		xmlRegistry: xmlparser.NewRegistry(),
		renderOpts:  render.DefaultOptions(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process auto-detects the input format and processes it
func (p *Pipeline) Process(ctx context.Context, data []byte) *Result {
	format := DetectFormat(data)
	p.logger.Debug().Str("format", format.String()).Int("bytes", len(data)).Msg("processing input")

	switch format {
	case FormatXML:
		return p.ProcessXMLBytes(ctx, data)
	case FormatJSON:
		return p.ProcessJSON(ctx, data)
	case FormatPDF:
		return &Result{Error: fmt.Errorf("%w: pdf (stamp a rendered code instead)", ErrUnsupportedInput)}
	case FormatImage:
		return &Result{Error: fmt.Errorf("%w: image (verify the code instead)", ErrUnsupportedInput)}
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return &Result{Error: ErrEmptyInput}
		}
		return &Result{Error: ErrUnsupportedInput}
	}
}

// ProcessXML reads and processes an XML invoice
func (p *Pipeline) ProcessXML(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Error: fmt.Errorf("failed to read XML: %w", err)}
	}
	return p.ProcessXMLBytes(ctx, data)
}

// ProcessXMLBytes processes XML from bytes
func (p *Pipeline) ProcessXMLBytes(ctx context.Context, data []byte) *Result {
	if err := ctx.Err(); err != nil {
		return &Result{Error: err}
	}

	inv, err := p.xmlRegistry.Parse(ctx, data)
	if err != nil {
		return &Result{Error: fmt.Errorf("XML parsing failed: %w", err)}
	}
	return p.ProcessInvoice(ctx, inv)
}

// ProcessJSON processes a JSON Fields object
func (p *Pipeline) ProcessJSON(ctx context.Context, data []byte) *Result {
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return &Result{Error: fmt.Errorf("JSON parsing failed: %w", err)}
	}
	return p.ProcessFields(ctx, fields)
}

// ProcessFields processes textual field input
func (p *Pipeline) ProcessFields(ctx context.Context, fields Fields) *Result {
	if err := ctx.Err(); err != nil {
		return &Result{Error: err}
	}

	doc, err := fields.Document()
	if err != nil {
		return &Result{Error: err}
	}

	// The document accepted every field, so the parsed values below are valid
	issuedAt, _ := tlv.ParseDate(string(fields.InvoiceDate))
	inv := &model.Invoice{
		SellerName:  strings.TrimSpace(fields.SellerName),
		VATNumber:   strings.TrimSpace(fields.VATNumber),
		IssuedAt:    issuedAt,
		TotalAmount: amount.MustFromString(string(fields.TotalAmount)),
		TaxAmount:   amount.MustFromString(string(fields.TaxAmount)),
	}
	return p.finish(ctx, inv, doc)
}

// ProcessInvoice encodes an already parsed invoice
func (p *Pipeline) ProcessInvoice(ctx context.Context, inv *model.Invoice) *Result {
	if err := ctx.Err(); err != nil {
		return &Result{Error: err}
	}

	doc, err := tlv.FromInvoice(inv)
	if err != nil {
		return &Result{Invoice: inv, Error: err}
	}
	return p.finish(ctx, inv, doc)
}

func (p *Pipeline) finish(ctx context.Context, inv *model.Invoice, doc *tlv.Document) *Result {
	result := &Result{
		Invoice:  inv,
		Document: doc,
		Base64:   doc.Base64(),
		Warnings: amountWarnings(inv),
	}

	p.logger.Debug().
		Str("seller", inv.SellerName).
		Int("tags", doc.Len()).
		Int("warnings", len(result.Warnings)).
		Msg("payload encoded")

	if p.renderer == nil {
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	out, err := doc.Render(p.renderer, p.renderOpts, "")
	if err != nil {
		result.Error = fmt.Errorf("QR rendering failed: %w", err)
		return result
	}
	result.Image = &out
	return result
}

func amountWarnings(inv *model.Invoice) []string {
	var warnings []string
	if !amount.Round(inv.TotalAmount).Equal(inv.TotalAmount) {
		warnings = append(warnings, fmt.Sprintf("total amount %s rounded to %s",
			inv.TotalAmount.String(), amount.Format(inv.TotalAmount)))
	}
	if !amount.Round(inv.TaxAmount).Equal(inv.TaxAmount) {
		warnings = append(warnings, fmt.Sprintf("tax amount %s rounded to %s",
			inv.TaxAmount.String(), amount.Format(inv.TaxAmount)))
	}
	if inv.TaxAmount.GreaterThan(inv.TotalAmount) {
		warnings = append(warnings, "tax amount exceeds total amount")
	}
	return warnings
}

// DetectFormat detects file format from content
func DetectFormat(data []byte) Format {
	if len(data) >= 4 && bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if len(data) >= 4 && bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}) {
		return FormatImage
	}
	if len(data) >= 3 && bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return FormatImage
	}

	// Skip UTF-8 BOM and leading whitespace for text formats
	text := bytes.TrimSpace(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	if len(text) == 0 {
		return FormatUnknown
	}
	switch text[0] {
	case '<':
		return FormatXML
	case '{':
		return FormatJSON
	}
	return FormatUnknown
}
