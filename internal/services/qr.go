// Package services holds helpers the HTTP handlers share.
package services

import (
	"bytes"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// QR size bounds in pixels
const (
	MinQRSize     = 100
	MaxQRSize     = 1000
	DefaultQRSize = 256
)

// QRService renders share links as QR codes.
type QRService struct {
	level qrcode.RecoveryLevel
}

// NewQRService creates a new QR service
func NewQRService() *QRService {
	return &QRService{level: qrcode.Medium}
}

// ClampSize keeps size within [MinQRSize, MaxQRSize]; zero means the default.
func ClampSize(size int) int {
	if size == 0 {
		return DefaultQRSize
	}
	return min(max(size, MinQRSize), MaxQRSize)
}

// GeneratePNG generates a QR code as PNG bytes
func (s *QRService) GeneratePNG(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, s.level)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(ClampSize(size))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateText renders the QR code with block characters for terminals.
func (s *QRService) GenerateText(content string) (string, error) {
	qr, err := qrcode.New(content, s.level)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}
