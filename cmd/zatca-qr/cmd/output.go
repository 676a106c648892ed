package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/rezonia/zatca-qr/internal/tlv"
)

// TagResult describes one tag of a payload
type TagResult struct {
	ID     uint8  `json:"id" yaml:"id"`
	Kind   string `json:"kind" yaml:"kind"`
	Length int    `json:"length" yaml:"length"`
	Value  string `json:"value" yaml:"value"`
}

// QRResult holds the outcome for a single input
type QRResult struct {
	Source   string      `json:"source,omitempty" yaml:"source,omitempty"`
	Base64   string      `json:"base64,omitempty" yaml:"base64,omitempty"`
	Tags     []TagResult `json:"tags,omitempty" yaml:"tags,omitempty"`
	Image    string      `json:"image,omitempty" yaml:"image,omitempty"`
	Warnings []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

func tagResults(tags []tlv.Tag) []TagResult {
	out := make([]TagResult, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagResult{
			ID:     t.ID(),
			Kind:   t.Kind().String(),
			Length: t.Len(),
			Value:  t.Value(),
		})
	}
	return out
}

// openOutput returns stdout, or the created file when path is set
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// writeOutput encodes v in the selected format. table draws the table form.
func writeOutput(w io.Writer, v interface{}, table func(tw *tabwriter.Writer)) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func writeTagTable(tw *tabwriter.Writer, tags []TagResult) {
	fmt.Fprintln(tw, "ID\tKIND\tLENGTH\tVALUE")
	fmt.Fprintln(tw, "--\t----\t------\t-----")
	for _, t := range tags {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", t.ID, t.Kind, t.Length, t.Value)
	}
}

func writeQRTable(tw *tabwriter.Writer, results []*QRResult) {
	fmt.Fprintln(tw, "SOURCE\tSELLER\tVAT\tDATE\tTOTAL\tTAX\tPAYLOAD")
	fmt.Fprintln(tw, "------\t------\t---\t----\t-----\t---\t-------")
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\n", r.Source, r.Error)
			continue
		}
		values := make(map[uint8]string, len(r.Tags))
		for _, t := range r.Tags {
			values[t.ID] = t.Value
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Source,
			values[tlv.KindSeller.ID()],
			values[tlv.KindTaxNumber.ID()],
			values[tlv.KindInvoiceDate.ID()],
			values[tlv.KindTotalAmount.ID()],
			values[tlv.KindTaxAmount.ID()],
			r.Base64,
		)
	}
}
