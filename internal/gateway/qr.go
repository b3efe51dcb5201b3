package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRImageSize is the edge length in pixels of locally rendered QR images.
const QRImageSize = 256

// RenderQR encodes content as a PNG QR code and returns it base64-encoded.
func RenderQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, QRImageSize)
	if err != nil {
		return "", fmt.Errorf("render qr: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// WithQRFallback wraps c so that charges carrying Pix text but no image get
// an image rendered locally.
func WithQRFallback(c Client) Client {
	return qrFallback{Client: c}
}

type qrFallback struct {
	Client
}

func (q qrFallback) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	ch, err := q.Client.CreateCharge(ctx, req)
	if err != nil || ch == nil {
		return ch, err
	}
	if ch.QRCode != "" && ch.QRCodeBase64 == "" {
		img, rerr := RenderQR(ch.QRCode)
		if rerr == nil {
			ch.QRCodeBase64 = img
		}
	}
	return ch, nil
}
