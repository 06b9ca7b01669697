package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// REQUESTS FOR the screen API

// POST /claim
type ClaimRequest struct {
	PIN           string `json:"pin"`
	ScreenID      string `json:"screenId"`
	ControllerURL string `json:"controllerUrl"`
}

// POST /release
type ReleaseRequest struct {
	ScreenID string `json:"screenId"`
}

// POST /content
type ContentRequest struct {
	ScreenID string        `json:"screenId"`
	Content  []model.Slide `json:"content"`
}

// POST /content/scheduled
type ScheduledContentRequest struct {
	ScreenID     string        `json:"screenId"`
	Content      []model.Slide `json:"content"`
	ScheduleTime time.Time     `json:"scheduleTime"`
}

// PUT /name
type RenameRequest struct {
	ScreenID string `json:"screenId"`
	Name     string `json:"name"`
}
