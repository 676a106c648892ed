// Package render turns a QR payload into an image or text and scans it back.
//
// Renderers receive the payload string and opaque Options; callers never
// validate the options themselves, the renderer in use does.
package render

import (
	"errors"
	"fmt"
	"strings"
)

// Render errors
var (
	ErrEmptyPayload  = errors.New("render: empty payload")
	ErrInvalidSize   = errors.New("render: invalid QR code size")
	ErrUnknownFormat = errors.New("render: unknown output format")
	ErrUnknownLevel  = errors.New("render: unknown error correction level")
	ErrQREncode      = errors.New("render: failed to encode QR code")
	ErrQRDecode      = errors.New("render: failed to decode QR code")
)

// DefaultSize is the default QR code size in pixels.
const DefaultSize = 256

// MaxSize is the largest accepted QR code size in pixels.
const MaxSize = 4096

// Level is the QR error correction level
type Level int

const (
	LevelDefault Level = iota
	LevelLow
	LevelMedium
	LevelQuartile
	LevelHigh
)

// ParseLevel parses L, M, Q or H (case-insensitive); empty means default
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LevelDefault, nil
	case "L", "LOW":
		return LevelLow, nil
	case "M", "MEDIUM":
		return LevelMedium, nil
	case "Q", "QUARTILE":
		return LevelQuartile, nil
	case "H", "HIGH":
		return LevelHigh, nil
	default:
		return LevelDefault, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "L"
	case LevelMedium:
		return "M"
	case LevelQuartile:
		return "Q"
	case LevelHigh:
		return "H"
	default:
		return "default"
	}
}

// Format is the kind of output a renderer produces
type Format string

const (
	FormatPNG     Format = "png"
	FormatDataURI Format = "datauri"
	FormatText    Format = "text"
)

// ParseFormat parses an output format name; empty means default
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return "", nil
	case FormatPNG, FormatDataURI, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Options configures rendering. Zero values select defaults.
type Options struct {
	Level         Level  `json:"level,omitempty"`
	Size          int    `json:"size,omitempty"`
	Format        Format `json:"format,omitempty"`
	DisableBorder bool   `json:"disable_border,omitempty"`
}

// DefaultOptions returns medium error correction, 256px, data URI output
func DefaultOptions() Options {
	return Options{
		Level:  LevelMedium,
		Size:   DefaultSize,
		Format: FormatDataURI,
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.Level == LevelDefault {
		o.Level = def.Level
	}
	if o.Size == 0 {
		o.Size = def.Size
	}
	if o.Format == "" {
		o.Format = def.Format
	}
	return o
}

// Output is what a renderer produced
type Output struct {
	Format Format `json:"format"`
	Data   []byte `json:"-"`
	Path   string `json:"path,omitempty"`
}

// String returns the written path, or the data for textual formats
func (o Output) String() string {
	if o.Path != "" {
		return o.Path
	}
	if o.Format == FormatPNG {
		return fmt.Sprintf("png image (%d bytes)", len(o.Data))
	}
	return string(o.Data)
}

// Renderer renders a payload into a QR image or text.
// A non-empty dest asks the renderer to also write the result to that path.
type Renderer interface {
	Render(payload string, opts Options, dest string) (Output, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(payload string, opts Options, dest string) (Output, error)

// Render calls f
func (f RendererFunc) Render(payload string, opts Options, dest string) (Output, error) {
	return f(payload, opts, dest)
}
