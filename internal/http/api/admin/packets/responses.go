package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type ScreenResponse struct {
	ScreenID   string  `json:"screenId"`
	Name       *string `json:"name"`
	Registered bool    `json:"registered"`
	ScreenURL  string  `json:"screenUrl"`
	ClaimedAt  string  `json:"claimedAt"`
}

type ResultResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Screen  *ScreenResponse `json:"screen,omitempty"`
}

func NewScreenResponse(r model.Replica) ScreenResponse {
	return ScreenResponse{
		ScreenID:   r.ScreenID,
		Name:       r.Name,
		Registered: r.Registered,
		ScreenURL:  r.ScreenURL,
		ClaimedAt:  r.ClaimedAt.Format(time.RFC3339),
	}
}
