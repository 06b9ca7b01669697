package pairing

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const pairingCodeSize = 256

// PairingURL builds the link an operator opens to claim the screen. The
// controller performs the claim and calls back to publicURL.
func PairingURL(identity model.Identity, controllerURL, publicURL string) (string, error) {
	if controllerURL == "" || identity.ScreenID == "" || identity.PIN == "" {
		return "", model.ErrMissingFields
	}
	u, err := url.Parse(controllerURL)
	if err != nil {
		return "", fmt.Errorf("parse controller url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/pair"

	q := url.Values{}
	q.Set("screenId", identity.ScreenID)
	q.Set("pin", identity.PIN)
	if publicURL != "" {
		q.Set("callback", publicURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RenderPairingCode encodes link as a PNG QR code.
func RenderPairingCode(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, pairingCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render pairing code: %w", err)
	}
	return png, nil
}
