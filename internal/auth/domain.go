package auth

import "time"

// User is the account view authentication works with.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	IsActive     bool
}

// SessionRecord mirrors the postgres session registry row kept next to
// the redis session store for auditing active logins.
type SessionRecord struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	IP        string
	UserAgent string
	CreatedAt time.Time
}
