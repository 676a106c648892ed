package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
)

var scanImage string

var decodeCmd = &cobra.Command{
	Use:   "decode [payload]",
	Short: "Decode a QR payload into its tags",
	Long: `Decode a base64 TLV payload, or the payload scanned from a QR image,
and print every tag. Decoding reads the tags as they are; use verify to
check them against the invoice field rules.

Examples:
  zatca-qr decode AQlBY21lIENvcnACDzEyMzQ1Njc4OTAxMjM0NQMUMjAyMy0wNS0wMVQxMjozMDowMFoEBjExNS4wMAUFMTUuMDA=
  zatca-qr decode --scan qr.png -f table
  echo "$PAYLOAD" | zatca-qr decode -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVar(&scanImage, "scan", "", "Read the payload from a PNG or JPEG QR image")
}

// DecodeResult holds the decoded tags of one payload
type DecodeResult struct {
	Payload string            `json:"payload" yaml:"payload"`
	Tags    []TagResult       `json:"tags" yaml:"tags"`
	Fields  map[string]string `json:"fields" yaml:"fields"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(args, scanImage)
	if err != nil {
		return err
	}

	doc, err := tlv.DecodeBase64(payload)
	if err != nil {
		return fmt.Errorf("payload could not be decoded: %w", err)
	}
	printVerbose("Decoded %d tags\n", doc.Len())

	result := DecodeResult{
		Payload: payload,
		Tags:    tagResults(doc.Tags()),
		Fields:  make(map[string]string),
	}
	for kind, value := range doc.Fields() {
		result.Fields[kind.String()] = value
	}

	return writeOutput(os.Stdout, result, func(tw *tabwriter.Writer) { writeTagTable(tw, result.Tags) })
}

// readPayload takes the payload from the argument, stdin ("-") or a scanned image
func readPayload(args []string, imageFile string) (string, error) {
	switch {
	case imageFile != "" && len(args) > 0:
		return "", fmt.Errorf("give either a payload or --scan, not both")
	case imageFile != "":
		data, err := os.ReadFile(imageFile)
		if err != nil {
			return "", fmt.Errorf("failed to read image: %w", err)
		}
		payload, err := render.Scan(data)
		if err != nil {
			return "", err
		}
		printVerbose("Scanned payload from %s\n", imageFile)
		return payload, nil
	case len(args) == 0:
		return "", fmt.Errorf("a payload or --scan is required")
	case args[0] == "-":
		data, err := readStdin()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return strings.TrimSpace(args[0]), nil
	}
}

func readStdin() ([]byte, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}
