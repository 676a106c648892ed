// Package stamp places a rendered QR code onto the pages of an invoice PDF.
package stamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Errors returned before the PDF is touched
var (
	ErrEmptyPath     = errors.New("stamp: empty path")
	ErrEmptyImage    = errors.New("stamp: empty image")
	ErrInvalidImage  = errors.New("stamp: image is not PNG or JPEG")
	ErrInvalidOption = errors.New("stamp: invalid option")
)

// Positions accepted by Options.Position
var Positions = []string{"tl", "tc", "tr", "l", "c", "r", "bl", "bc", "br"}

// Options controls where and how large the code is drawn
type Options struct {
	// Pages selects pages using pdfcpu syntax ("1", "2-4", "1-" for all). Empty means page 1.
	Pages []string
	// Position is an anchor such as "br" (bottom right)
	Position string
	// Scale is an absolute factor of the image size, or relative to the page width when Relative is set
	Scale    float64
	Relative bool
	// Offsets are in points from the anchor
	OffsetX float64
	OffsetY float64
	// OnTop renders as a stamp above page content instead of a watermark below it
	OnTop bool
}

// DefaultOptions returns bottom-right placement at half image size, first page only
func DefaultOptions() Options {
	return Options{
		Pages:    []string{"1"},
		Position: "br",
		Scale:    0.5,
		OffsetX:  -20,
		OffsetY:  20,
		OnTop:    true,
	}
}

// Validate checks option values
func (o Options) Validate() error {
	valid := false
	for _, p := range Positions {
		if o.Position == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: position %q (allowed: %s)", ErrInvalidOption, o.Position, strings.Join(Positions, ", "))
	}
	if o.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive", ErrInvalidOption)
	}
	if o.Relative && o.Scale > 1 {
		return fmt.Errorf("%w: relative scale must not exceed 1", ErrInvalidOption)
	}
	return nil
}

// Description renders the options as a pdfcpu watermark description
func (o Options) Description() string {
	mode := "abs"
	if o.Relative {
		mode = "rel"
	}
	return fmt.Sprintf("position:%s, scalefactor:%s %s, offset:%s %s, rotation:0",
		o.Position, formatFloat(o.Scale), mode, formatFloat(o.OffsetX), formatFloat(o.OffsetY))
}

func formatFloat(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// Stamper draws QR images onto PDFs
type Stamper struct {
	opts Options
	conf *pdfmodel.Configuration
}

// NewStamper creates a stamper. Zero options fall back to DefaultOptions.
func NewStamper(opts Options) (*Stamper, error) {
	defaults := DefaultOptions()
	if len(opts.Pages) == 0 {
		opts.Pages = defaults.Pages
	}
	if opts.Position == "" {
		opts.Position = defaults.Position
	}
	if opts.Scale == 0 {
		opts.Scale = defaults.Scale
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	return &Stamper{opts: opts, conf: conf}, nil
}

// Options returns the effective options
func (s *Stamper) Options() Options {
	return s.opts
}

// Stamp reads the PDF from in and writes the stamped document to out
func (s *Stamper) Stamp(ctx context.Context, in io.ReadSeeker, out io.Writer, image []byte) error {
	if err := checkImage(image); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wm, err := api.ImageWatermarkForReader(bytes.NewReader(image), s.opts.Description(), s.opts.OnTop, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("stamp: build watermark: %w", err)
	}

	if err := api.AddWatermarks(in, out, s.opts.Pages, wm, s.conf); err != nil {
		return fmt.Errorf("stamp: add watermark: %w", err)
	}
	return nil
}

// StampFile stamps inPath and writes outPath. inPath and outPath may be the same file.
func (s *Stamper) StampFile(ctx context.Context, inPath, outPath string, image []byte) error {
	if inPath == "" || outPath == "" {
		return ErrEmptyPath
	}
	if err := checkImage(image); err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("stamp: open %s: %w", inPath, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stamp: stat %s: %w", inPath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".stamp-*.pdf")
	if err != nil {
		return fmt.Errorf("stamp: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Stamp(ctx, in, tmp, image); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stamp: write %s: %w", outPath, err)
	}
	in.Close()

	// CreateTemp uses 0600; the output keeps the input's permissions
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("stamp: write %s: %w", outPath, err)
	}

	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("stamp: write %s: %w", outPath, err)
	}
	return nil
}

// PageCount returns the number of pages in the PDF read from in
func (s *Stamper) PageCount(in io.ReadSeeker) (int, error) {
	n, err := api.PageCount(in, s.conf)
	if err != nil {
		return 0, fmt.Errorf("stamp: read pdf: %w", err)
	}
	return n, nil
}

func checkImage(image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}
	isPNG := bytes.HasPrefix(image, []byte{0x89, 'P', 'N', 'G'})
	isJPEG := bytes.HasPrefix(image, []byte{0xFF, 0xD8, 0xFF})
	if !isPNG && !isJPEG {
		return ErrInvalidImage
	}
	return nil
}
