package packets

import "github.com/Nixie-Tech-LLC/beacon/internal/model"

// ClaimScreenRequest asks the controller to claim the screen reachable at ScreenURL.
type ClaimScreenRequest struct {
	ScreenURL string `json:"screenUrl" binding:"required,url"`
	PIN       string `json:"pin"       binding:"required"`
	ScreenID  string `json:"screenId"  binding:"required"`
}

// PairQuery is what the pairing code link carries.
type PairQuery struct {
	ScreenID string `form:"screenId" binding:"required"`
	PIN      string `form:"pin"      binding:"required"`
	Callback string `form:"callback" binding:"required,url"`
}

// Content is sent as is; an empty list clears the screen.
type PushContentRequest struct {
	Content []model.Slide `json:"content"`
}

type RenameScreenRequest struct {
	Name string `json:"name" binding:"required"`
}
