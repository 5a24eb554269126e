// Package report renders published inspection reports as documents: PDF
// downloads, QR codes for the public URL and the admin XLSX export.
package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 256

// PublicURL joins the configured public page base with a shareable link.
func PublicURL(base, link string) string {
	return strings.TrimRight(base, "/") + "/" + link
}

// QRCode encodes url as a square PNG of size pixels.
func QRCode(url string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return png, nil
}
