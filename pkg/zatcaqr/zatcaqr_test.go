package zatcaqr_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-qr/pkg/zatcaqr"
)

const (
	acmeBase64 = "AQlBY21lIENvcnACDzEyMzQ1Njc4OTAxMjM0NQMUMjAyMy0wNS0wMVQxMjozMDowMFoEBjExNS4wMAUFMTUuMDA="
	bobsBase64 = "AQxCb2JzIFJlY29yZHMCDzMxMDEyMjM5MzUwMDAwMwMUMjAyMi0wNC0yNVQxNTozMDowMFoEBzEwMDAuMDAFBjE1MC4wMA=="
)

const bobsJSON = `{"seller_name": "Bobs Records", "vat_number": "310122393500003",
	"invoice_date": "2022-04-25T15:30:00Z", "total_amount": 1000, "tax_amount": 150}`

func TestFromData(t *testing.T) {
	doc, err := zatcaqr.FromData("Acme Corp", "123456789012345",
		time.Date(2023, 5, 1, 12, 30, 0, 0, time.UTC),
		decimal.NewFromInt(115), decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, acmeBase64, doc.Base64())
}

func TestFromText(t *testing.T) {
	doc, err := zatcaqr.FromText("Bobs Records", "310122393500003", "2022-04-25T15:30:00Z", "1000", "150")
	require.NoError(t, err)
	assert.Equal(t, bobsBase64, doc.Base64())

	_, err = zatcaqr.FromText("", "310122393500003", "2022-04-25T15:30:00Z", "1000", "150")
	var verr *zatcaqr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestFromEntries(t *testing.T) {
	seller, err := zatcaqr.NewTag(1, "Acme Corp")
	require.NoError(t, err)

	doc, err := zatcaqr.FromEntries(seller, zatcaqr.Foreign{Value: 42}, zatcaqr.Tag{})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())

	_, err = zatcaqr.FromEntries(zatcaqr.Foreign{Value: "x"})
	var merr *zatcaqr.MalformedDocumentError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeAndScan(t *testing.T) {
	doc, err := zatcaqr.Decode(bobsBase64)
	require.NoError(t, err)
	assert.Equal(t, "Bobs Records", doc.Fields()[zatcaqr.KindSeller])

	opts := zatcaqr.DefaultRenderOptions()
	opts.Format = zatcaqr.FormatPNG
	opts.Size = 512
	out, err := doc.Render(zatcaqr.NewQRCodeRenderer(), opts, "")
	require.NoError(t, err)

	payload, err := zatcaqr.Scan(out.Data)
	require.NoError(t, err)
	assert.Equal(t, bobsBase64, payload)
}

func TestProcessor_Process(t *testing.T) {
	proc := zatcaqr.NewDefaultProcessor()

	result, err := proc.Process(context.Background(), strings.NewReader(bobsJSON))
	require.NoError(t, err)
	assert.Equal(t, bobsBase64, result.Base64)
	assert.Nil(t, result.Image)

	_, err = proc.Process(context.Background(), strings.NewReader("plain"))
	require.Error(t, err)
}

func TestProcessor_Render(t *testing.T) {
	opts := zatcaqr.DefaultProcessorOptions()
	opts.Render = true

	result, err := zatcaqr.NewProcessor(opts).Process(context.Background(), strings.NewReader(bobsJSON))
	require.NoError(t, err)
	require.NotNil(t, result.Image)
	assert.Equal(t, zatcaqr.FormatDataURI, result.Image.Format)
}

func TestProcessor_ProcessInvoice(t *testing.T) {
	inv := &zatcaqr.Invoice{
		SellerName:  "Acme Corp",
		VATNumber:   "123456789012345",
		IssuedAt:    time.Date(2023, 5, 1, 12, 30, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(115),
		TaxAmount:   decimal.NewFromInt(15),
	}

	result, err := zatcaqr.NewDefaultProcessor().ProcessInvoice(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, acmeBase64, result.Base64)
}

func TestProcessor_ProcessBatch(t *testing.T) {
	proc := zatcaqr.NewProcessor(zatcaqr.ProcessorOptions{Concurrency: 2})

	inputs := make([]io.Reader, 0, 8)
	for i := 0; i < 8; i++ {
		inputs = append(inputs, strings.NewReader(bobsJSON))
	}

	results, err := proc.ProcessBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, bobsBase64, r.Base64)
	}

	inputs = []io.Reader{strings.NewReader(bobsJSON), bytes.NewReader([]byte("%PDF-1.7"))}
	_, err = proc.ProcessBatch(context.Background(), inputs)
	require.Error(t, err)
}

func TestProcessor_Verify(t *testing.T) {
	result, err := zatcaqr.NewDefaultProcessor().Verify(context.Background(), []byte(acmeBase64))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Tags, 5)
}
