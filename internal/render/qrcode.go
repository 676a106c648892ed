package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	qrgen "github.com/skip2/go-qrcode"
	"rsc.io/qr"
)

const dataURIPrefix = "data:image/png;base64,"

// QRCode renders payloads with go-qrcode (images) and qrterminal (text)
type QRCode struct{}

// NewQRCode creates a new QR code renderer
func NewQRCode() *QRCode {
	return &QRCode{}
}

// Render encodes payload and returns PNG bytes, a PNG data URI or block text
func (q *QRCode) Render(payload string, opts Options, dest string) (Output, error) {
	if payload == "" {
		return Output{}, ErrEmptyPayload
	}
	opts = opts.WithDefaults()

	var out Output
	switch opts.Format {
	case FormatPNG, FormatDataURI:
		pngData, err := EncodePNG(payload, opts)
		if err != nil {
			return Output{}, err
		}
		out = Output{Format: opts.Format, Data: pngData}
		if opts.Format == FormatDataURI {
			out.Data = []byte(dataURIPrefix + base64.StdEncoding.EncodeToString(pngData))
		}

	case FormatText:
		var buf bytes.Buffer
		qrterminal.GenerateHalfBlock(payload, terminalLevel(opts.Level), &buf)
		out = Output{Format: FormatText, Data: buf.Bytes()}

	default:
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if dest != "" {
		if err := os.WriteFile(dest, out.Data, 0o644); err != nil {
			return Output{}, fmt.Errorf("render: write %s: %w", dest, err)
		}
		out.Path = dest
	}

	return out, nil
}

// EncodePNG encodes payload into a PNG of opts.Size pixels
func EncodePNG(payload string, opts Options) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	opts = opts.WithDefaults()
	if opts.Size < 0 || opts.Size > MaxSize {
		return nil, ErrInvalidSize
	}

	code, err := qrgen.New(payload, recoveryLevel(opts.Level))
	if err != nil {
		return nil, errors.Join(ErrQREncode, err)
	}
	code.DisableBorder = opts.DisableBorder

	pngData, err := code.PNG(opts.Size)
	if err != nil {
		return nil, errors.Join(ErrQREncode, err)
	}
	return pngData, nil
}

// DecodeDataURI extracts the PNG bytes from a data URI produced by Render
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) < len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, fmt.Errorf("%w: not a png data uri", ErrQRDecode)
	}
	data, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, errors.Join(ErrQRDecode, err)
	}
	return data, nil
}

func recoveryLevel(l Level) qrgen.RecoveryLevel {
	switch l {
	case LevelLow:
		return qrgen.Low
	case LevelQuartile:
		return qrgen.High
	case LevelHigh:
		return qrgen.Highest
	default:
		return qrgen.Medium
	}
}

func terminalLevel(l Level) qr.Level {
	switch l {
	case LevelLow:
		return qr.L
	case LevelQuartile:
		return qr.Q
	case LevelHigh:
		return qr.H
	default:
		return qr.M
	}
}
