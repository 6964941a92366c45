package years

import "time"

// AcademicYear is a date-bounded teaching period inside one school.
type AcademicYear struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateYearInput carries validated creation fields.
type CreateYearInput struct {
	SchoolID  int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}
