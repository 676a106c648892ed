// Package server exposes QR generation, decoding and verification over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rezonia/zatca-qr/internal/logging"
	"github.com/rezonia/zatca-qr/internal/model"
	"github.com/rezonia/zatca-qr/internal/processor"
	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/tlv"
	"github.com/rezonia/zatca-qr/internal/verify"
)

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies []string
	Debug          bool
	Render         render.Options
	Logger         zerolog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	pipeline  *processor.Pipeline
	renderer  render.Renderer
	verifiers *verify.Registry
	logger    zerolog.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	config.Render = config.Render.WithDefaults()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(config.Logger))
	if config.MaxBodyBytes > 0 {
		router.Use(limitBody(config.MaxBodyBytes))
	}
	if len(config.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(config.TrustedProxies); err != nil {
			config.Logger.Warn().Err(err).Msg("ignoring trusted proxies")
		}
	}

	s := &Server{
		config:    config,
		router:    router,
		pipeline:  processor.NewPipeline(processor.WithLogger(config.Logger)),
		renderer:  render.NewQRCode(),
		verifiers: verify.NewDefaultRegistry(),
		logger:    config.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Generate endpoints
		v1.POST("/qr", s.handleQR)
		v1.POST("/qr/xml", s.handleQRXML)
		v1.POST("/qr/image", s.handleQRImage)

		// Read-back endpoints
		v1.POST("/decode", s.handleDecode)
		v1.POST("/verify", s.handleVerify)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.config.Address).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleQR(c *gin.Context) {
	var req QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	opts, err := req.Render.Options(s.config.Render)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid render options", Details: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result := s.pipeline.ProcessFields(ctx, req.Fields)
	s.respondQR(c, result, req.Render != nil, opts)
}

func (s *Server) handleQRXML(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	opts, err := s.queryRenderOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid render options", Details: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	// A format query parameter asks for an image next to the payload
	s.respondQR(c, result, c.Query("format") != "", opts)
}

func (s *Server) handleQRImage(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	// Query parameters apply to both body formats; a JSON render object overrides them
	opts, err := s.queryRenderOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid render options", Details: err.Error()})
		return
	}

	var result *processor.Result

	// Invoice XML is accepted as well as JSON fields
	switch processor.DetectFormat(body) {
	case processor.FormatXML:
		result = s.pipeline.ProcessXMLBytes(ctx, body)
	case processor.FormatJSON:
		var req QRRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
			return
		}
		if opts, err = req.Render.Options(opts); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid render options", Details: err.Error()})
			return
		}
		result = s.pipeline.ProcessFields(ctx, req.Fields)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported body format, send JSON fields or invoice XML"})
		return
	}

	if result.Error != nil {
		s.respondError(c, result)
		return
	}

	opts.Format = render.FormatPNG
	out, err := result.Document.Render(s.renderer, opts, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "QR rendering failed", Details: err.Error()})
		return
	}

	c.Header("X-QR-Payload", result.Base64)
	c.Data(http.StatusOK, "image/png", out.Data)
}

func (s *Server) handleDecode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	doc, err := tlv.DecodeBase64(req.Payload)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "payload could not be decoded", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, DecodeResponse{
		Tags:   tagOutputs(doc.Tags()),
		Fields: fieldsOutput(doc),
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	// Find appropriate verifier
	verifier, err := s.verifiers.Detect(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unsupported input, send a PNG/JPEG image or base64 payload",
			Details: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result, err := verifier.Verify(ctx, body)
	if err != nil {
		s.logger.Debug().Err(err).Str("format", verifier.Format()).Msg("verification could not read input")
	}

	if result.Valid {
		c.JSON(http.StatusOK, result)
	} else {
		c.JSON(http.StatusUnprocessableEntity, result)
	}
}

func (s *Server) respondQR(c *gin.Context, result *processor.Result, withImage bool, opts render.Options) {
	if result.Error != nil {
		s.respondError(c, result)
		return
	}

	response := QRResponse{
		Base64:   result.Base64,
		Tags:     tagOutputs(result.Document.Tags()),
		Warnings: result.Warnings,
	}

	if withImage {
		if opts.Format == render.FormatPNG {
			// PNG bytes do not fit in JSON; the data URI carries the same image
			opts.Format = render.FormatDataURI
		}
		out, err := result.Document.Render(s.renderer, opts, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "QR rendering failed", Details: err.Error()})
			return
		}
		response.Image = &ImageOutput{Format: string(out.Format), Data: out.String()}
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) respondError(c *gin.Context, result *processor.Result) {
	resp := ErrorResponse{Error: result.Error.Error(), Warnings: result.Warnings}

	var verr *model.ValidationError
	var perr *model.ParseError
	var merr *model.MalformedDocumentError
	switch {
	case errors.As(result.Error, &verr):
		resp.Field = verr.Field
		resp.Rule = verr.Rule
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.As(result.Error, &perr), errors.As(result.Error, &merr):
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(result.Error, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, resp)
	default:
		c.JSON(http.StatusBadRequest, resp)
	}
}

func (s *Server) queryRenderOptions(c *gin.Context) (render.Options, error) {
	req := &RenderRequest{
		Level:         c.Query("level"),
		Format:        c.Query("format"),
		DisableBorder: strings.EqualFold(c.Query("border"), "false"),
	}
	if size := c.Query("size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return render.Options{}, fmt.Errorf("%w: %q", render.ErrInvalidSize, size)
		}
		req.Size = n
	}
	return req.Options(s.config.Render)
}

// Helper functions

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return nil, false
	}
	return body, true
}

// respondBindError answers a failed JSON bind, 413 when the body limit was hit
func respondBindError(c *gin.Context, err error) {
	if isTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
