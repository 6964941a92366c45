package messaging

import "time"

// Message is one direct message between two users.
type Message struct {
	ID          int64      `json:"id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Recipient is a user discoverable through recipient search.
type Recipient struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// SendInput carries validated message fields.
type SendInput struct {
	RecipientID int64
	Subject     string
	Body        string
}
