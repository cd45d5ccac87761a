package archive

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no archived message matches.
var ErrNotFound = errors.New("archived message not found")

// Record is one archived message with its MSH header columns.
type Record struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ControlID       string     `db:"control_id" json:"control_id"`
	MessageType     string     `db:"message_type" json:"message_type"`
	TriggerEvent    string     `db:"trigger_event" json:"trigger_event,omitempty"`
	SendingApp      string     `db:"sending_app" json:"sending_app,omitempty"`
	SendingFacility string     `db:"sending_facility" json:"sending_facility,omitempty"`
	Version         string     `db:"version" json:"version,omitempty"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Raw             string     `db:"raw" json:"raw"`
	ReceivedAt      time.Time  `db:"received_at" json:"received_at"`
}

// searchParams maps accepted query parameters to columns.
var searchParams = map[string]string{
	"control_id":       "control_id",
	"message_type":     "message_type",
	"trigger_event":    "trigger_event",
	"sending_app":      "sending_app",
	"sending_facility": "sending_facility",
	"version":          "version",
}
