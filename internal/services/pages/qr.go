package pages

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivankudzin/mediapages/internal/domain/model"
)

const defaultQRSize = 256

func (m *Manager) QRCode(page model.MediaPage, size int) ([]byte, error) {
	if page.LinkToken == "" {
		return nil, ErrValidation
	}
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(m.ShareURL(page), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

func (m *Manager) QRCodeDataURL(page model.MediaPage, size int) (string, error) {
	png, err := m.QRCode(page, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
