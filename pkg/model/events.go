package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AccessEvent records one card check.
type AccessEvent struct {
	ID        uuid.UUID `json:"id"`
	UID       string    `json:"uid"`
	Granted   bool      `json:"granted"`
	Reason    string    `json:"reason"`
	LockID    string    `json:"lock_id"`
	DecidedAt time.Time `json:"decided_at"`
}

// Envelope is the wrapper published for every outbound event.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	EventType string          `json:"event_type"`
	Version   string          `json:"version"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
