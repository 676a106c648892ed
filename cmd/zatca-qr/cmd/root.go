package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-qr/internal/config"
	"github.com/rezonia/zatca-qr/internal/logging"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	configPath   string
	logLevel     string

	// Loaded in PersistentPreRunE
	cfg    = config.Default()
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "zatca-qr",
	Short: "Build and read Saudi e-invoice QR codes",
	Long: `zatca-qr encodes the five simplified-invoice fields (seller name, VAT
registration number, invoice timestamp, invoice total, VAT total) into the
base64 TLV payload printed as a QR code on Saudi e-invoices.

Supports:
  - Input: command-line fields, JSON field objects, UBL 2.1 invoice XML
  - Output: base64 payload, PNG image, data URI, terminal rendering
  - Read-back: decode payloads, scan and verify QR images
  - PDF: stamp the QR code onto an existing invoice PDF

Examples:
  # Encode fields given as flags
  zatca-qr generate --seller "Acme Corp" --vat 123456789012345 \
      --date 2023-05-01T12:30:00Z --total 115 --tax 15

  # Encode a UBL invoice and write the QR image
  zatca-qr generate invoice.xml --image qr.png

  # Check a printed code
  zatca-qr verify qr.png

  # Serve the HTTP API
  zatca-qr serve --config zatca-qr.toml`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, yaml, table)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (env: "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: ZATCA_QR_LOG_LEVEL)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Config file
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfigPath)
	}
	// Log level
	if logLevel == "" {
		logLevel = os.Getenv("ZATCA_QR_LOG_LEVEL")
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose && logLevel == "" {
		level = "debug"
	}
	logger = logging.Init("zatca-qr", level, cfg.Log.Format, os.Stderr)
	logger.Debug().Str("config", configPath).Str("command", cmd.Name()).Msg("configuration loaded")
	return nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
