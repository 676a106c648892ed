package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	xmlparser "github.com/rezonia/zatca-qr/internal/parser/xml"
	"github.com/rezonia/zatca-qr/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about invoice files",
	Long: `Display information about invoice files without encoding them.

Shows:
  - Detected file format (XML, JSON)
  - Detected XML layout (ubl, flat)
  - The invoice fields that would be encoded, and which are missing

Examples:
  zatca-qr info invoice.xml
  zatca-qr info invoices/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// InfoResult describes one invoice file
type InfoResult struct {
	File        string   `json:"file" yaml:"file"`
	Size        int64    `json:"size" yaml:"size"`
	Format      string   `json:"format" yaml:"format"`
	Layout      string   `json:"layout,omitempty" yaml:"layout,omitempty"`
	Number      string   `json:"number,omitempty" yaml:"number,omitempty"`
	SellerName  string   `json:"seller_name,omitempty" yaml:"seller_name,omitempty"`
	VATNumber   string   `json:"vat_number,omitempty" yaml:"vat_number,omitempty"`
	IssuedAt    string   `json:"issued_at,omitempty" yaml:"issued_at,omitempty"`
	TotalAmount string   `json:"total_amount,omitempty" yaml:"total_amount,omitempty"`
	TaxAmount   string   `json:"tax_amount,omitempty" yaml:"tax_amount,omitempty"`
	Missing     []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	registry := xmlparser.NewRegistry()
	results := make([]*InfoResult, 0, len(files))
	for _, file := range files {
		results = append(results, fileInfo(cmd.Context(), registry, file))
	}

	return writeOutput(os.Stdout, results, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "FILE\tFORMAT\tLAYOUT\tNUMBER\tSELLER\tMISSING")
		fmt.Fprintln(tw, "----\t------\t------\t------\t------\t-------")
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(tw, "%s\t%s\tERROR: %s\t\t\t\n", r.File, r.Format, r.Error)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n", r.File, r.Format, r.Layout, r.Number, r.SellerName, r.Missing)
		}
	})
}

func fileInfo(ctx context.Context, registry *xmlparser.Registry, filePath string) *InfoResult {
	result := &InfoResult{File: filePath}

	stat, err := os.Stat(filePath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Size = stat.Size()

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	format := processor.DetectFormat(data)
	result.Format = format.String()

	if format == processor.FormatXML {
		if adapter, err := registry.Detect(data); err == nil {
			result.Layout = adapter.Name()
		}
	}

	// Parse without encoding; field rules are reported by generate
	res := processor.NewPipeline(processor.WithLogger(logger)).Process(ctx, data)
	inv := res.Invoice
	if inv == nil {
		if res.Error != nil {
			result.Error = res.Error.Error()
		}
		return result
	}

	result.Number = inv.Number
	result.SellerName = inv.SellerName
	result.VATNumber = inv.VATNumber
	if !inv.IssuedAt.IsZero() {
		result.IssuedAt = inv.IssuedAt.UTC().Format(time.RFC3339)
	}
	result.TotalAmount = inv.TotalAmount.String()
	result.TaxAmount = inv.TaxAmount.String()
	result.Missing = inv.Missing()
	return result
}
