package model

import "time"

// Identity is the credential pair a screen hands out for pairing.
type Identity struct {
	ScreenID string `db:"screen_id" json:"screenId"`
	PIN      string `db:"pin"       json:"pin"`
}

// Screen is the state owned by one screen process.
type Screen struct {
	Identity
	Name          *string   `json:"name"`
	Registered    bool      `json:"registered"`
	ControllerURL *string   `json:"controllerUrl"`
	Content       []Slide   `json:"content"`
	LastUpdate    time.Time `json:"lastUpdate"`
}

// Registered screens always know their controller, unregistered ones never do.
func (s Screen) Consistent() bool {
	if s.Registered {
		return s.ControllerURL != nil
	}
	return s.ControllerURL == nil
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Screen) Clone() Screen {
	out := s
	if s.Name != nil {
		n := *s.Name
		out.Name = &n
	}
	if s.ControllerURL != nil {
		u := *s.ControllerURL
		out.ControllerURL = &u
	}
	out.Content = CloneSlides(s.Content)
	return out
}

// Snapshot flattens the screen for the push channel and the HTTP API.
func (s Screen) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{
		ScreenID:      c.ScreenID,
		PIN:           c.PIN,
		Name:          c.Name,
		Registered:    c.Registered,
		ControllerURL: c.ControllerURL,
		Content:       c.Content,
		LastUpdate:    c.LastUpdate,
	}
}

type Snapshot struct {
	ScreenID      string    `json:"screenId"`
	PIN           string    `json:"pin"`
	Name          *string   `json:"name,omitempty"`
	Registered    bool      `json:"registered"`
	ControllerURL *string   `json:"controllerUrl"`
	Content       []Slide   `json:"content"`
	LastUpdate    time.Time `json:"lastUpdate"`
}
