package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-qr/internal/processor"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/stamp"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

var (
	stampOut      string
	stampPayload  string
	stampInvoice  string
	stampPages    []string
	stampPosition string
	stampScale    float64
	stampRelative bool
	stampOffsetX  float64
	stampOffsetY  float64
	stampTimeout  time.Duration
)

var stampCmd = &cobra.Command{
	Use:   "stamp <file.pdf>",
	Short: "Stamp the QR code onto an invoice PDF",
	Long: `Render the QR code of an invoice and place it on pages of the invoice PDF.

The payload comes from one of:
  - --payload: an existing base64 payload
  - --invoice: an XML or JSON invoice file
  - Field flags: --seller, --vat, --date, --total, --tax

Placement defaults come from the [stamp] config section. Positions are
tl, tc, tr, l, c, r, bl, bc, br; pages use pdfcpu page selection syntax.

Examples:
  # Stamp the first page, writing invoice-qr.pdf
  zatca-qr stamp invoice.pdf --invoice invoice.xml

  # Stamp every page in place, top right
  zatca-qr stamp invoice.pdf --payload "$PAYLOAD" --pages 1- --position tr --out invoice.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runStamp,
}

func init() {
	rootCmd.AddCommand(stampCmd)

	stampCmd.Flags().StringVar(&stampOut, "out", "", "Output PDF (default: <name>-qr.pdf)")
	stampCmd.Flags().StringVar(&stampPayload, "payload", "", "Base64 payload to stamp")
	stampCmd.Flags().StringVar(&stampInvoice, "invoice", "", "XML or JSON invoice file to encode")

	stampCmd.Flags().StringVar(&sellerName, "seller", "", "Seller name")
	stampCmd.Flags().StringVar(&vatNumber, "vat", "", "Seller VAT registration number (15 digits)")
	stampCmd.Flags().StringVar(&invoiceDate, "date", "", "Invoice timestamp (RFC 3339)")
	stampCmd.Flags().StringVar(&totalAmount, "total", "", "Invoice total with VAT")
	stampCmd.Flags().StringVar(&taxAmount, "tax", "", "VAT total")

	stampCmd.Flags().StringSliceVar(&stampPages, "pages", nil, "Pages to stamp (default from config)")
	stampCmd.Flags().StringVar(&stampPosition, "position", "", "Anchor position (default from config)")
	stampCmd.Flags().Float64Var(&stampScale, "scale", 0, "Scale factor (default from config)")
	stampCmd.Flags().BoolVar(&stampRelative, "relative", false, "Scale relative to the page width")
	stampCmd.Flags().Float64Var(&stampOffsetX, "offset-x", 0, "Horizontal offset in points")
	stampCmd.Flags().Float64Var(&stampOffsetY, "offset-y", 0, "Vertical offset in points")
	stampCmd.Flags().StringVar(&qrLevel, "level", "", "Error correction level: L, M, Q, H (default from config)")
	stampCmd.Flags().IntVar(&qrSize, "size", 0, "Image size in pixels (default from config)")
	stampCmd.Flags().DurationVar(&stampTimeout, "timeout", 0, "Processing timeout (default: server request timeout)")
}

// StampResult describes a stamped PDF
type StampResult struct {
	Input    string   `json:"input" yaml:"input"`
	Output   string   `json:"output" yaml:"output"`
	Pages    int      `json:"pages" yaml:"pages"`
	Base64   string   `json:"base64" yaml:"base64"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runStamp(cmd *cobra.Command, args []string) error {
	input := args[0]
	if stampOut == "" {
		stampOut = strings.TrimSuffix(input, filepath.Ext(input)) + "-qr.pdf"
	}
	if stampTimeout <= 0 {
		stampTimeout = cfgRequestTimeout()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), stampTimeout)
	defer cancel()

	payload, warnings, err := stampSource(ctx)
	if err != nil {
		return err
	}

	opts, err := renderOptions()
	if err != nil {
		return err
	}
	image, err := render.EncodePNG(payload, opts)
	if err != nil {
		return fmt.Errorf("QR rendering failed: %w", err)
	}

	stamper, err := stamp.NewStamper(stampOptions(cmd))
	if err != nil {
		return err
	}
	printVerbose("Stamping %s (%s)\n", input, stamper.Options().Description())

	if err := stamper.StampFile(ctx, input, stampOut, image); err != nil {
		return err
	}

	result := StampResult{
		Input:    input,
		Output:   stampOut,
		Base64:   payload,
		Warnings: warnings,
	}
	if f, err := os.Open(stampOut); err == nil {
		result.Pages, _ = stamper.PageCount(f)
		f.Close()
	}

	return writeOutput(os.Stdout, result, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "INPUT\tOUTPUT\tPAGES\tPAYLOAD")
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", result.Input, result.Output, result.Pages, result.Base64)
	})
}

// stampSource returns the payload from --payload, --invoice or the field flags
func stampSource(ctx context.Context) (string, []string, error) {
	sources := 0
	for _, set := range []bool{stampPayload != "", stampInvoice != "", hasFieldFlags()} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return "", nil, fmt.Errorf("exactly one of --payload, --invoice or field flags is required")
	}

	if stampPayload != "" {
		payload := strings.TrimSpace(stampPayload)
		if _, err := tlv.DecodeBase64(payload); err != nil {
			return "", nil, fmt.Errorf("payload could not be decoded: %w", err)
		}
		return payload, nil, nil
	}

	pipeline := processor.NewPipeline(processor.WithLogger(logger))
	var res *processor.Result
	if stampInvoice != "" {
		res = processFile(ctx, pipeline, stampInvoice)
	} else {
		res = pipeline.ProcessFields(ctx, processor.Fields{
			SellerName:  sellerName,
			VATNumber:   vatNumber,
			InvoiceDate: processor.Text(invoiceDate),
			TotalAmount: processor.Text(totalAmount),
			TaxAmount:   processor.Text(taxAmount),
		})
	}
	if res.Error != nil {
		return "", res.Warnings, res.Error
	}
	return res.Base64, res.Warnings, nil
}

// stampOptions applies the flags given on the command line over the config
func stampOptions(cmd *cobra.Command) stamp.Options {
	opts := cfg.Stamp.Options()
	flags := cmd.Flags()
	if flags.Changed("pages") {
		opts.Pages = stampPages
	}
	if flags.Changed("position") {
		opts.Position = stampPosition
	}
	if flags.Changed("scale") {
		opts.Scale = stampScale
	}
	if flags.Changed("relative") {
		opts.Relative = stampRelative
	}
	if flags.Changed("offset-x") {
		opts.OffsetX = stampOffsetX
	}
	if flags.Changed("offset-y") {
		opts.OffsetY = stampOffsetY
	}
	return opts
}
