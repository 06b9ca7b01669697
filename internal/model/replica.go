package model

import "time"

// Replica is the controller's read-only view of a claimed screen.
type Replica struct {
	ScreenID      string    `db:"screen_id"      json:"screenId"`
	Name          *string   `db:"name"           json:"name"`
	Registered    bool      `db:"registered"     json:"registered"`
	ScreenURL     string    `db:"screen_url"     json:"screenUrl"`
	ControllerURL string    `db:"controller_url" json:"controllerUrl"`
	ClaimedAt     time.Time `db:"-"              json:"claimedAt"`
}
