package guardians

import (
	"time"

	"github.com/edutrack/edutrack/internal/authz"
)

// Guardian is the profile attached to a guardian user account.
type Guardian struct {
	UserID       int64     `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	SchoolID     *int64    `json:"school_id,omitempty"`
	WorkstreamID *int64    `json:"work_stream_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile converts to the policy layer's guardian shape.
func (g Guardian) Profile() authz.GuardianProfile {
	return authz.GuardianProfile{UserID: g.UserID, SchoolID: g.SchoolID, WorkstreamID: g.WorkstreamID}
}

// Link connects one guardian to one student with a relationship type.
// The (guardian, student) pair is unique; removed links are soft
// deleted and can be reactivated.
type Link struct {
	ID              int64      `json:"id"`
	GuardianUserID  int64      `json:"guardian_user_id"`
	StudentUserID   int64      `json:"student_user_id"`
	Relationship    string     `json:"relationship"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty"`
	StudentFullName string     `json:"student_full_name,omitempty"`
}

// Student is the policy shape of the student side of a link.
type Student struct {
	ID           int64
	SchoolID     *int64
	WorkstreamID *int64
}

// Target converts to the policy layer's target shape.
func (s Student) Target() authz.Target {
	return authz.Target{ID: s.ID, Role: authz.RoleStudent, SchoolID: s.SchoolID, WorkstreamID: s.WorkstreamID}
}

// CreateLinkInput carries validated link creation fields.
type CreateLinkInput struct {
	GuardianUserID int64
	StudentUserID  int64
	Relationship   string
}
