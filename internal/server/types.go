package server

import (
	"fmt"

	"github.com/rezonia/zatca-qr/internal/processor"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

// QRRequest is the body of POST /api/v1/qr and /api/v1/qr/image
type QRRequest struct {
	processor.Fields
	Render *RenderRequest `json:"render,omitempty"`
}

// RenderRequest selects image output for a QR request
type RenderRequest struct {
	Level         string `json:"level,omitempty"`
	Size          int    `json:"size,omitempty"`
	Format        string `json:"format,omitempty"`
	DisableBorder bool   `json:"disable_border,omitempty"`
}

// Options converts the request over the server defaults
func (r *RenderRequest) Options(defaults render.Options) (render.Options, error) {
	opts := defaults
	if r == nil {
		return opts, nil
	}
	if r.Level != "" {
		level, err := render.ParseLevel(r.Level)
		if err != nil {
			return render.Options{}, err
		}
		opts.Level = level
	}
	if r.Format != "" {
		format, err := render.ParseFormat(r.Format)
		if err != nil {
			return render.Options{}, err
		}
		opts.Format = format
	}
	if r.Size < 0 || r.Size > render.MaxSize {
		return render.Options{}, fmt.Errorf("%w: %d", render.ErrInvalidSize, r.Size)
	}
	if r.Size != 0 {
		opts.Size = r.Size
	}
	if r.DisableBorder {
		opts.DisableBorder = true
	}
	return opts, nil
}

// QRResponse is the response for QR generation endpoints
type QRResponse struct {
	Base64   string       `json:"base64"`
	Tags     []TagOutput  `json:"tags"`
	Image    *ImageOutput `json:"image,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ImageOutput carries a rendered code as data URI or block text
type ImageOutput struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}

// TagOutput describes one tag of a payload
type TagOutput struct {
	ID     uint8  `json:"id"`
	Kind   string `json:"kind"`
	Length int    `json:"length"`
	Value  string `json:"value"`
}

// DecodeRequest is the body of POST /api/v1/decode
type DecodeRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// DecodeResponse is the response for the decode endpoint
type DecodeResponse struct {
	Tags   []TagOutput       `json:"tags"`
	Fields map[string]string `json:"fields"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Field    string   `json:"field,omitempty"`
	Rule     string   `json:"rule,omitempty"`
	Details  string   `json:"details,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func tagOutputs(tags []tlv.Tag) []TagOutput {
	out := make([]TagOutput, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagOutput{
			ID:     t.ID(),
			Kind:   t.Kind().String(),
			Length: t.Len(),
			Value:  t.Value(),
		})
	}
	return out
}

func fieldsOutput(doc *tlv.Document) map[string]string {
	fields := make(map[string]string)
	for kind, value := range doc.Fields() {
		fields[kind.String()] = value
	}
	return fields
}
