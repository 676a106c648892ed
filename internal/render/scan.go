package render

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg" // register JPEG decoder for scanned photos
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Scan decodes a PNG or JPEG image and returns the QR payload text.
func Scan(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", ErrQRDecode
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", errors.Join(ErrQRDecode, err)
	}

	return ScanImage(img)
}

// ScanImage decodes the QR payload text from an image.Image.
func ScanImage(img image.Image) (string, error) {
	if img == nil {
		return "", ErrQRDecode
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Join(ErrQRDecode, err)
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, nil)
	if err != nil {
		return "", errors.Join(ErrQRDecode, err)
	}

	return result.GetText(), nil
}
