package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionLogin    = "auth.login"
	ActionRegister = "auth.register"
	ActionLogout   = "auth.logout"
	ActionBook     = "appointment.book"
	ActionCancel   = "appointment.cancel"
)

type Event struct {
	UserID   string    `json:"user_id"`
	Action   string    `json:"action"`
	Entity   string    `json:"entity,omitempty"`
	EntityID string    `json:"entity_id,omitempty"`
	Metadata any       `json:"metadata,omitempty"`
	At       time.Time `json:"at"`
}

// Sink stores or forwards one event.
type Sink interface {
	Write(ev Event) error
}

func metadataJSON(metadata any) string {
	if metadata == nil {
		return ""
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// MultiSink writes to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Write(ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Write(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
