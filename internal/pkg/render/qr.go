package render

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRCodePNG encodes content as a PNG QR code.
func QRCodePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("empty QR content")
	}
	return qrcode.Encode(content, qrcode.Medium, qrSize)
}
