package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-qr/internal/model"
)

func TestInvoice_Missing(t *testing.T) {
	inv := model.Invoice{
		SellerName:  "Acme Corp",
		VATNumber:   "123456789012345",
		IssuedAt:    time.Date(2023, 5, 1, 12, 30, 0, 0, time.UTC),
		TotalAmount: decimal.RequireFromString("115.00"),
		TaxAmount:   decimal.RequireFromString("15.00"),
	}
	assert.Empty(t, inv.Missing())

	empty := model.Invoice{}
	assert.Equal(t, []string{
		model.FieldSellerName,
		model.FieldVATNumber,
		model.FieldInvoiceDate,
	}, empty.Missing())
}

func TestValidationError(t *testing.T) {
	err := model.NewValidationError(model.FieldVATNumber, "12345", model.RuleLength, "must be 15 digits")

	require.Contains(t, err.Error(), "vat_number")
	require.Contains(t, err.Error(), "12345")
	require.Contains(t, err.Error(), "15 digits")
	require.Contains(t, err.Error(), "rule=length")
}

func TestValidationError_EmptyValue(t *testing.T) {
	err := model.NewValidationError(model.FieldSellerName, "", model.RuleRequired, "must not be empty")

	assert.NotContains(t, err.Error(), "value=")
	assert.Contains(t, err.Error(), "rule=required")
}

func TestMalformedDocumentError(t *testing.T) {
	var err error = model.NewMalformedDocumentError(3, "no valid tags")

	var target *model.MalformedDocumentError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 3, target.Entries)
	assert.Contains(t, err.Error(), "malformed data structure")
}

func TestParseError_WithCause(t *testing.T) {
	cause := assert.AnError
	err := model.NewParseError("ubl", "IssueDate", "parse failed", cause)

	require.Contains(t, err.Error(), "ubl")
	require.Contains(t, err.Error(), "IssueDate")
	require.ErrorIs(t, err, cause)
}

func TestParseError_WithoutCause(t *testing.T) {
	err := &model.ParseError{
		Source:  "flat",
		Field:   "root",
		Message: "unknown format",
	}

	assert.Equal(t, "[flat] root: unknown format", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
