package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/zatca-qr/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for generating and reading invoice QR codes.

The API provides endpoints for:
  - POST /api/v1/qr        - Payload from JSON fields (optional rendered image)
  - POST /api/v1/qr/xml    - Payload from a UBL or flat invoice XML
  - POST /api/v1/qr/image  - PNG image from JSON fields or invoice XML
  - POST /api/v1/decode    - Decode a base64 payload into tags
  - POST /api/v1/verify    - Verify a QR image or base64 payload
  - GET  /health           - Health check

Settings come from the [server] and [render] config sections; flags
override them.

Examples:
  # Start server on default port
  zatca-qr serve

  # Start with a config file on a custom port
  zatca-qr serve --config zatca-qr.toml --address :9090

  # Start in debug mode
  zatca-qr serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout (default from config)")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	renderOpts, err := cfg.Render.Options()
	if err != nil {
		return err
	}
	read, write, request := cfg.Server.Timeouts()

	config := &server.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    read,
		WriteTimeout:   write,
		RequestTimeout: request,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
		Debug:          cfg.Server.Debug || serverDebug,
		Render:         renderOpts,
		Logger:         logger,
	}
	if serverAddr != "" {
		config.Address = serverAddr
	}
	if readTimeout > 0 {
		config.ReadTimeout = readTimeout
	}
	if writeTimeout > 0 {
		config.WriteTimeout = writeTimeout
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Starting server on %s\n", config.Address)
	printVerbose("Render defaults: level %s, size %d, format %s\n", renderOpts.Level, renderOpts.Size, renderOpts.Format)

	return srv.Run(ctx)
}
