package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-qr/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [inputs...]",
	Short: "Verify QR images and payloads",
	Long: `Verify that QR codes carry a well-formed invoice payload.

Each input is a PNG/JPEG file, a file holding a base64 payload, a payload
given directly, or "-" for stdin.

Checks:
  - The image scans and the payload is valid base64
  - The TLV structure is complete (no truncated tags)
  - Tags 1 to 5 are present once each, in order
  - Each field follows its rule (VAT number, timestamp, amounts)

Warnings are reported for custom tags and for a VAT amount above the total.

Examples:
  # Verify a printed code
  zatca-qr verify qr.png

  # Verify a payload
  zatca-qr verify AQlBY21lIENvcnACDzEyMzQ1Njc4OTAxMjM0NQMUMjAyMy0wNS0wMVQxMjozMDowMFoEBjExNS4wMAUFMTUuMDA=

  # Table output for several images
  zatca-qr verify -f table receipts/*.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// VerifyResult holds the verification outcome for one input
type VerifyResult struct {
	Input    string      `json:"input" yaml:"input"`
	Valid    bool        `json:"valid" yaml:"valid"`
	Format   string      `json:"format,omitempty" yaml:"format,omitempty"`
	Payload  string      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Tags     []TagResult `json:"tags,omitempty" yaml:"tags,omitempty"`
	Warnings []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	registry := verify.NewDefaultRegistry()

	results := make([]*VerifyResult, 0, len(args))
	allValid := true

	for _, arg := range args {
		printVerbose("Verifying: %s\n", shorten(arg))

		result := verifyInput(cmd.Context(), registry, arg)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	err := writeOutput(os.Stdout, results, func(tw *tabwriter.Writer) {
		for _, r := range results {
			statusIcon := "✓"
			statusText := "VALID"
			if !r.Valid {
				statusIcon = "✗"
				statusText = "INVALID"
			}
			fmt.Fprintf(tw, "%s %s:\t%s\t%s\n", statusIcon, shorten(r.Input), statusText, r.Format)
			for _, e := range r.Errors {
				fmt.Fprintf(tw, "  Error:\t%s\t\n", e)
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(tw, "  Warning:\t%s\t\n", w)
			}
		}
	})
	if err != nil {
		return err
	}

	if !allValid {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func verifyInput(parent context.Context, registry *verify.Registry, input string) *VerifyResult {
	result := &VerifyResult{Input: input}

	data, err := readInput(input)
	if err != nil {
		result.Errors = []string{err.Error()}
		return result
	}

	ctx, cancel := context.WithTimeout(parent, cfgRequestTimeout())
	defer cancel()

	res, err := registry.Verify(ctx, data)
	if err != nil && res == nil {
		result.Errors = []string{err.Error()}
		return result
	}

	result.Valid = res.Valid
	result.Format = res.Format
	result.Payload = res.Payload
	result.Warnings = res.Warnings
	result.Errors = res.Errors
	for _, t := range res.Tags {
		result.Tags = append(result.Tags, TagResult(t))
	}
	return result
}

// readInput returns stdin for "-", the file content when input names a file,
// and the input itself otherwise
func readInput(input string) ([]byte, error) {
	if input == "-" {
		return readStdin()
	}
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return data, nil
	}
	return []byte(strings.TrimSpace(input)), nil
}

func cfgRequestTimeout() time.Duration {
	_, _, request := cfg.Server.Timeouts()
	if request <= 0 {
		request = 30 * time.Second
	}
	return request
}

func shorten(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
