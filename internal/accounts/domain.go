package accounts

import (
	"time"

	"github.com/edutrack/edutrack/internal/authz"
)

// User represents a user account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         authz.Role `json:"-"`
	RoleName     string     `json:"role"`
	SchoolID     *int64     `json:"school_id,omitempty"`
	WorkstreamID *int64     `json:"work_stream_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor converts the account into the authorization principal.
func (u User) Actor() authz.Actor {
	return authz.Actor{
		ID:           u.ID,
		Role:         u.Role,
		SchoolID:     u.SchoolID,
		WorkstreamID: u.WorkstreamID,
	}
}

// Target converts the account into a policy target.
func (u User) Target() authz.Target {
	return authz.Target{
		ID:           u.ID,
		Role:         u.Role,
		SchoolID:     u.SchoolID,
		WorkstreamID: u.WorkstreamID,
	}
}

// CreateUserInput carries the fields accepted at account creation. The
// role is fixed once assigned; changing it later is an administrative
// operation outside this service.
type CreateUserInput struct {
	Email        string
	FullName     string
	Password     string
	Role         authz.Role
	SchoolID     *int64
	WorkstreamID *int64
}
