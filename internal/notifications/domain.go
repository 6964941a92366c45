package notifications

import (
	"encoding/json"
	"time"
)

// Kind labels what a notification is about.
const (
	KindMessageReceived = "message_received"
	KindAccountCreated  = "account_created"
)

// Notification is one per-user event record.
type Notification struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}
