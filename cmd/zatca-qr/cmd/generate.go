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
)

var (
	// Field flags
	sellerName  string
	vatNumber   string
	invoiceDate string
	totalAmount string
	taxAmount   string

	// Output flags
	outputFile   string
	imagePath    string
	showTerminal bool
	qrLevel      string
	qrSize       int
	noBorder     bool
	timeout      time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate the QR payload for an invoice",
	Long: `Generate the base64 TLV payload for one invoice, either from the field
flags or from invoice files.

Supported inputs:
  - Flags: --seller, --vat, --date, --total, --tax
  - XML: UBL 2.1 invoices and flat <Invoice> documents (.xml)
  - JSON: field objects with seller_name, vat_number, invoice_date,
    total_amount, tax_amount (.json)

Dates are RFC 3339 (2023-05-01T12:30:00Z); a date without a zone is read
as UTC. Amounts are rounded half away from zero to two decimals.

Examples:
  zatca-qr generate --seller "Acme Corp" --vat 123456789012345 \
      --date 2023-05-01T12:30:00Z --total 115 --tax 15
  zatca-qr generate invoice.xml --image qr.png --level Q --size 512
  zatca-qr generate invoices/ -f table
  zatca-qr generate fields.json --terminal`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&sellerName, "seller", "", "Seller name")
	generateCmd.Flags().StringVar(&vatNumber, "vat", "", "Seller VAT registration number (15 digits)")
	generateCmd.Flags().StringVar(&invoiceDate, "date", "", "Invoice timestamp (RFC 3339)")
	generateCmd.Flags().StringVar(&totalAmount, "total", "", "Invoice total with VAT")
	generateCmd.Flags().StringVar(&taxAmount, "tax", "", "VAT total")

	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	generateCmd.Flags().StringVar(&imagePath, "image", "", "Write the QR code as PNG to this file")
	generateCmd.Flags().BoolVar(&showTerminal, "terminal", false, "Draw the QR code on the terminal")
	generateCmd.Flags().StringVar(&qrLevel, "level", "", "Error correction level: L, M, Q, H (default from config)")
	generateCmd.Flags().IntVar(&qrSize, "size", 0, "Image size in pixels (default from config)")
	generateCmd.Flags().BoolVar(&noBorder, "no-border", false, "Omit the quiet zone around the code")
	generateCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout per input")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	opts, err := renderOptions()
	if err != nil {
		return err
	}

	pipeline := processor.NewPipeline(processor.WithLogger(logger))

	var results []*QRResult
	if len(args) == 0 {
		if !hasFieldFlags() {
			return fmt.Errorf("either field flags or input files are required")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res := pipeline.ProcessFields(ctx, processor.Fields{
			SellerName:  sellerName,
			VATNumber:   vatNumber,
			InvoiceDate: processor.Text(invoiceDate),
			TotalAmount: processor.Text(totalAmount),
			TaxAmount:   processor.Text(taxAmount),
		})
		results = append(results, toQRResult("flags", res))
		if err := emitImages(res, results[0], opts); err != nil {
			return err
		}
	} else {
		if hasFieldFlags() {
			return fmt.Errorf("field flags cannot be combined with input files")
		}
		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files found to process")
		}
		if imagePath != "" && len(files) > 1 {
			return fmt.Errorf("--image needs a single input, got %d files", len(files))
		}

		printVerbose("Found %d files to process\n", len(files))

		for _, file := range files {
			printVerbose("Processing: %s\n", file)
			res := processFile(cmd.Context(), pipeline, file)
			result := toQRResult(file, res)
			if res != nil && res.Error == nil {
				if err := emitImages(res, result, opts); err != nil {
					result.Error = err.Error()
				}
			}
			if result.Error != "" {
				printVerbose("  Error: %s\n", result.Error)
			}
			results = append(results, result)
		}
	}

	w, closeFn, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeFn()

	var out interface{} = results
	if len(results) == 1 {
		out = results[0]
	}
	if err := writeOutput(w, out, func(tw *tabwriter.Writer) { writeQRTable(tw, results) }); err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			return fmt.Errorf("%d of %d inputs failed", countFailed(results), len(results))
		}
	}
	return nil
}

func hasFieldFlags() bool {
	return sellerName != "" || vatNumber != "" || invoiceDate != "" || totalAmount != "" || taxAmount != ""
}

// renderOptions merges the flags over the config render section
func renderOptions() (render.Options, error) {
	opts, err := cfg.Render.Options()
	if err != nil {
		return render.Options{}, err
	}
	if qrLevel != "" {
		level, err := render.ParseLevel(qrLevel)
		if err != nil {
			return render.Options{}, err
		}
		opts.Level = level
	}
	if qrSize < 0 || qrSize > render.MaxSize {
		return render.Options{}, fmt.Errorf("%w: %d", render.ErrInvalidSize, qrSize)
	}
	if qrSize != 0 {
		opts.Size = qrSize
	}
	if noBorder {
		opts.DisableBorder = true
	}
	return opts, nil
}

func processFile(parent context.Context, pipeline *processor.Pipeline, filePath string) *processor.Result {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return &processor.Result{Error: fmt.Errorf("failed to read file: %w", err)}
	}

	// Fall back on the extension when the content is ambiguous
	format := processor.DetectFormat(data)
	if format == processor.FormatUnknown {
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".xml":
			format = processor.FormatXML
		case ".json":
			format = processor.FormatJSON
		}
	}

	switch format {
	case processor.FormatXML:
		return pipeline.ProcessXMLBytes(ctx, data)
	case processor.FormatJSON:
		return pipeline.ProcessJSON(ctx, data)
	default:
		return pipeline.Process(ctx, data)
	}
}

func toQRResult(source string, res *processor.Result) *QRResult {
	result := &QRResult{Source: source, Warnings: res.Warnings}
	if res.Error != nil {
		result.Error = res.Error.Error()
		return result
	}
	result.Base64 = res.Base64
	result.Tags = tagResults(res.Document.Tags())
	return result
}

// emitImages writes the PNG file and the terminal drawing requested by flags
func emitImages(res *processor.Result, result *QRResult, opts render.Options) error {
	if res.Error != nil {
		return nil
	}
	if imagePath != "" {
		opts.Format = render.FormatPNG
		out, err := res.Document.Render(render.NewQRCode(), opts, imagePath)
		if err != nil {
			return fmt.Errorf("QR rendering failed: %w", err)
		}
		result.Image = out.Path
		printVerbose("  Image: %s\n", out.Path)
	}
	if showTerminal {
		if _, err := res.Document.Render(render.NewTerminal(os.Stdout), opts, ""); err != nil {
			return fmt.Errorf("QR rendering failed: %w", err)
		}
	}
	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		// Existing paths are taken as given, directories are walked
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				files = append(files, arg)
				continue
			}
			found, err := walkDir(arg)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}

		// Otherwise treat it as a glob pattern
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("file not found: %s", arg)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if info.IsDir() {
				found, err := walkDir(match)
				if err != nil {
					return nil, err
				}
				files = append(files, found...)
				continue
			}
			if isSupportedFile(match) {
				files = append(files, match)
			}
		}
	}

	return files, nil
}

func walkDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isSupportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".json":
		return true
	default:
		return false
	}
}

func countFailed(results []*QRResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
