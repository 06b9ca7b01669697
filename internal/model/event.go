package model

import "time"

type EventType string

const (
	EventConnected    EventType = "connected"
	EventScreenUpdate EventType = "screen_update"
	// EventKeepalive only ever travels on the wire; it is never a state change.
	EventKeepalive EventType = "keepalive"
)

type Action string

const (
	ActionRegistration  Action = "registration"
	ActionContentUpdate Action = "content_update"
	ActionNameUpdate    Action = "name_update"
)

// PushEvent is a state change streamed to screen subscribers.
type PushEvent struct {
	Type      EventType `json:"type"`
	ScreenID  string    `json:"screenId"`
	Action    Action    `json:"action,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewConnected(s Snapshot, at time.Time) PushEvent {
	return PushEvent{Type: EventConnected, ScreenID: s.ScreenID, Snapshot: &s, Timestamp: at}
}

func NewScreenUpdate(action Action, s Snapshot, at time.Time) PushEvent {
	return PushEvent{Type: EventScreenUpdate, ScreenID: s.ScreenID, Action: action, Snapshot: &s, Timestamp: at}
}
