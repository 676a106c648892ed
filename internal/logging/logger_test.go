package logging_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-qr/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, logging.ParseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("zatca-qr", "info", logging.FormatJSON, &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("seller", "Acme Corp").Msg("encoded")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "zatca-qr", event["app"])
	assert.Equal(t, "Acme Corp", event["seller"])
	assert.Equal(t, "encoded", event["message"])
	assert.Contains(t, event, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("zatca-qr", "debug", logging.FormatConsole, &buf)

	logger.Debug().Msg("payload encoded")
	assert.Contains(t, buf.String(), "payload encoded")
	assert.Contains(t, buf.String(), "zatca-qr")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("test", "info", logging.FormatJSON, &buf)

	router := gin.New()
	router.Use(logging.RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		level string
	}{
		{"/ok", "info"},
		{"/bad", "warn"},
		{"/boom", "error"},
		{"/missing", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			var event map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
			assert.Equal(t, tt.level, event["level"])
			assert.Equal(t, tt.path, event["path"])
			assert.Equal(t, "http_request", event["message"])
			assert.Equal(t, float64(w.Code), event["status"])
		})
	}
}
