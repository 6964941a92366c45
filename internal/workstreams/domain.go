package workstreams

import "time"

// Workstream is the top level tenancy unit. Schools hang off a
// workstream, users and guardians hang off schools.
type Workstream struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    *int      `json:"capacity,omitempty"`
	ManagerID   *int64    `json:"manager_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateWorkstreamInput carries validated creation fields.
type CreateWorkstreamInput struct {
	Name        string
	Description string
	Capacity    *int
	ManagerID   *int64
}

// UpdateWorkstreamInput carries a partial update. Nil means the field
// was not submitted.
type UpdateWorkstreamInput struct {
	Name        *string
	Description *string
	Capacity    *int
	IsActive    *bool
	ManagerID   *int64
}
