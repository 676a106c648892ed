package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/server"
	"github.com/rezonia/zatca-qr/internal/verify"
)

const (
	bobsBase64 = "AQxCb2JzIFJlY29yZHMCDzMxMDEyMjM5MzUwMDAwMwMUMjAyMi0wNC0yNVQxNTozMDowMFoEBzEwMDAuMDAFBjE1MC4wMA=="
	acmeBase64 = "AQlBY21lIENvcnACDzEyMzQ1Njc4OTAxMjM0NQMUMjAyMy0wNS0wMVQxMjozMDowMFoEBjExNS4wMAUFMTUuMDA="
)

const bobsJSON = `{
	"seller_name": "Bobs Records",
	"vat_number": "310122393500003",
	"invoice_date": "2022-04-25T15:30:00Z",
	"total_amount": "1000.00",
	"tax_amount": 150
}`

const acmeXML = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
         xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
	<cbc:ID>SME00010</cbc:ID>
	<cbc:IssueDate>2023-05-01</cbc:IssueDate>
	<cbc:IssueTime>12:30:00</cbc:IssueTime>
	<cac:AccountingSupplierParty>
		<cac:Party>
			<cac:PartyTaxScheme>
				<cbc:CompanyID>123456789012345</cbc:CompanyID>
				<cac:TaxScheme><cbc:ID>VAT</cbc:ID></cac:TaxScheme>
			</cac:PartyTaxScheme>
			<cac:PartyLegalEntity><cbc:RegistrationName>Acme Corp</cbc:RegistrationName></cac:PartyLegalEntity>
		</cac:Party>
	</cac:AccountingSupplierParty>
	<cac:TaxTotal><cbc:TaxAmount currencyID="SAR">15.00</cbc:TaxAmount></cac:TaxTotal>
	<cac:LegalMonetaryTotal><cbc:TaxInclusiveAmount currencyID="SAR">115.00</cbc:TaxInclusiveAmount></cac:LegalMonetaryTotal>
</Invoice>`

func newTestServer() *server.Server {
	config := &server.Config{
		Address:      ":8080",
		MaxBodyBytes: 1 << 20,
		Logger:       zerolog.Nop(),
	}
	return server.NewServer(config)
}

func do(srv *server.Server, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestQREndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/qr", "application/json", []byte(bobsJSON))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.QRResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, bobsBase64, response.Base64)
	require.Len(t, response.Tags, 5)
	assert.Equal(t, "seller", response.Tags[0].Kind)
	assert.Equal(t, "150.00", response.Tags[4].Value)
	assert.Nil(t, response.Image)
}

func TestQREndpoint_WithImage(t *testing.T) {
	srv := newTestServer()

	body := strings.Replace(bobsJSON, "{", `{"render": {"level": "H", "size": 512},`, 1)
	w := do(srv, http.MethodPost, "/api/v1/qr", "application/json", []byte(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.QRResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Image)
	assert.Equal(t, string(render.FormatDataURI), response.Image.Format)

	pngData, err := render.DecodeDataURI(response.Image.Data)
	require.NoError(t, err)
	payload, err := render.Scan(pngData)
	require.NoError(t, err)
	assert.Equal(t, bobsBase64, payload)
}

func TestQREndpoint_TextImage(t *testing.T) {
	srv := newTestServer()

	body := strings.Replace(bobsJSON, "{", `{"render": {"format": "text"},`, 1)
	w := do(srv, http.MethodPost, "/api/v1/qr", "application/json", []byte(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.QRResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Image)
	assert.Equal(t, "text", response.Image.Format)
	assert.NotEmpty(t, response.Image.Data)
}

func TestQREndpoint_ValidationError(t *testing.T) {
	srv := newTestServer()

	body := strings.Replace(bobsJSON, "310122393500003", "31012239350000X", 1)
	w := do(srv, http.MethodPost, "/api/v1/qr", "application/json", []byte(body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "vat_number", response.Field)
	assert.Equal(t, "digits", response.Rule)
}

func TestQREndpoint_BadRequests(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "seller=Acme"},
		{"wrong amount type", `{"total_amount": {"value": 1}}`},
		{"unknown level", strings.Replace(bobsJSON, "{", `{"render": {"level": "Z"},`, 1)},
		{"oversized image", strings.Replace(bobsJSON, "{", `{"render": {"size": 100000},`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/qr", "application/json", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQRXMLEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/qr/xml", "application/xml", []byte(acmeXML))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.QRResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, acmeBase64, response.Base64)
	assert.Nil(t, response.Image)

	w = do(srv, http.MethodPost, "/api/v1/qr/xml?format=png&size=300", "application/xml", []byte(acmeXML))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Image)
	assert.True(t, strings.HasPrefix(response.Image.Data, "data:image/png;base64,"))
}

func TestQRXMLEndpoint_Errors(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/qr/xml", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/qr/xml", "application/xml", []byte("<Order/>"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/qr/xml?size=big", "application/xml", []byte(acmeXML))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQRImageEndpoint(t *testing.T) {
	srv := newTestServer()

	for name, body := range map[string]string{"json": bobsJSON, "xml": acmeXML} {
		t.Run(name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/qr/image?size=512", "", []byte(body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

			payload, err := render.Scan(w.Body.Bytes())
			require.NoError(t, err)
			assert.Equal(t, w.Header().Get("X-QR-Payload"), payload)
		})
	}

	w := do(srv, http.MethodPost, "/api/v1/qr/image", "", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecodeEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/decode", "application/json", []byte(`{"payload": "`+bobsBase64+`"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.DecodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Tags, 5)
	assert.Equal(t, "Bobs Records", response.Fields["seller"])
	assert.Equal(t, "2022-04-25T15:30:00Z", response.Fields["invoice_date"])

	w = do(srv, http.MethodPost, "/api/v1/decode", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/decode", "application/json", []byte(`{"payload": "%%%"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/verify", "text/plain", []byte(bobsBase64))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result verify.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, verify.FormatBase64, result.Format)

	pngData, err := render.EncodePNG(acmeBase64, render.Options{Size: 512})
	require.NoError(t, err)
	w = do(srv, http.MethodPost, "/api/v1/verify", "image/png", pngData)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, verify.FormatImage, result.Format)
	assert.Equal(t, acmeBase64, result.Payload)
}

func TestVerifyEndpoint_Invalid(t *testing.T) {
	srv := newTestServer()

	// Only tags 1 and 2
	w := do(srv, http.MethodPost, "/api/v1/verify", "text/plain", []byte("AQlBY21lIENvcnACDzEyMzQ1Njc4OTAxMjM0NQ=="))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result verify.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Codes, verify.ErrCodeMissingTag)

	w = do(srv, http.MethodPost, "/api/v1/verify", "application/pdf", []byte("%PDF-1.7"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBodyLimit(t *testing.T) {
	srv := server.NewServer(&server.Config{MaxBodyBytes: 16, Logger: zerolog.Nop()})

	tests := []struct {
		path        string
		contentType string
		body        string
	}{
		{"/api/v1/verify", "text/plain", bobsBase64},
		{"/api/v1/qr/xml", "application/xml", acmeXML},
		{"/api/v1/qr", "application/json", bobsJSON},
		{"/api/v1/decode", "application/json", `{"payload": "` + bobsBase64 + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(srv, http.MethodPost, tt.path, tt.contentType, []byte(tt.body))
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			assert.Contains(t, w.Body.String(), "too large")
		})
	}

	// Bodies under the limit are read normally
	w := do(srv, http.MethodPost, "/api/v1/verify", "text/plain", []byte("AQFh"))
	assert.NotEqual(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := server.NewServer(&server.Config{Address: "127.0.0.1:0", Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// Benchmarks

func BenchmarkQR(b *testing.B) {
	srv := newTestServer()
	body := []byte(bobsJSON)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/qr", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
	}
}

func BenchmarkHealth(b *testing.B) {
	srv := newTestServer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
	}
}
