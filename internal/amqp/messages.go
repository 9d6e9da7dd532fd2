package amqp

import (
	"encoding/json"
	"time"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// EventType names a category change.
type EventType string

const (
	EventCreated     EventType = "category.created"
	EventUpdated     EventType = "category.updated"
	EventActivated   EventType = "category.activated"
	EventDeactivated EventType = "category.deactivated"
	EventDeleted     EventType = "category.deleted"
)

// CategoryEvent is a lightweight change notification. Consumers fetch the
// full row over RPC; (ID, UpdatedOn) identifies a version for deduplication.
type CategoryEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	UpdatedOn time.Time `json:"updated_on"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCategoryEvent describes c after a change of kind t.
func NewCategoryEvent(t EventType, c core.Category) CategoryEvent {
	return CategoryEvent{
		Type:      t,
		ID:        c.ID.String(),
		Code:      c.Code.String(),
		IsActive:  c.IsActive,
		UpdatedOn: c.UpdatedOn,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m CategoryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CategoryEventFromJSON decodes a message body.
func CategoryEventFromJSON(data []byte) (*CategoryEvent, error) {
	var msg CategoryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
