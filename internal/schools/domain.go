package schools

import (
	"time"

	"github.com/edutrack/edutrack/internal/authz"
)

// School belongs to exactly one workstream.
type School struct {
	ID           int64     `json:"id"`
	WorkstreamID int64     `json:"work_stream_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Authz converts to the policy layer's school shape.
func (s School) Authz() authz.School {
	return authz.School{ID: s.ID, WorkstreamID: s.WorkstreamID, IsActive: s.IsActive}
}

// CreateSchoolInput carries validated creation fields.
type CreateSchoolInput struct {
	WorkstreamID int64
	Name         string
	Address      string
	Phone        string
}

// UpdateSchoolInput carries a partial update. Nil means not submitted.
type UpdateSchoolInput struct {
	Name    *string
	Address *string
	Phone   *string
}
