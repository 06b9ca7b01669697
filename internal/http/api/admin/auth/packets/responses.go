package packets

type LoginResponse struct {
	Token string `json:"token"`
}

// returned for the session endpoint
type SessionResponse struct {
	Operator   string `json:"operator"`
	LoggedInAt string `json:"logged_in_at"`
}
