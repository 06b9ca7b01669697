package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// RESPONSES FOR the screen API

// GET /identity
type IdentityResponse struct {
	ScreenID      string  `json:"screenId"`
	PIN           string  `json:"pin"`
	Name          *string `json:"name,omitempty"`
	Registered    bool    `json:"registered"`
	ControllerURL *string `json:"controllerUrl"`
	PairingURL    string  `json:"pairingUrl,omitempty"`
}

// GET /content
type ContentResponse struct {
	Content    []model.Slide `json:"content"`
	LastUpdate time.Time     `json:"lastUpdate"`
}

// GET /status
type StatusResponse struct {
	Operational bool `json:"operational"`
}

// POST /claim, /release, /content, /content/scheduled and PUT /name
type ResultResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Applied *bool           `json:"applied,omitempty"`
	Screen  *model.Snapshot `json:"screen,omitempty"`
}

func NewIdentityResponse(s model.Screen, pairingURL string) IdentityResponse {
	snap := s.Snapshot()
	return IdentityResponse{
		ScreenID:      snap.ScreenID,
		PIN:           snap.PIN,
		Name:          snap.Name,
		Registered:    snap.Registered,
		ControllerURL: snap.ControllerURL,
		PairingURL:    pairingURL,
	}
}
