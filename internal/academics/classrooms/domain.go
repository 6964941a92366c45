package classrooms

import "time"

// Classroom groups students of one grade inside one academic year.
type Classroom struct {
	ID             int64     `json:"id"`
	SchoolID       int64     `json:"school_id"`
	AcademicYearID int64     `json:"academic_year_id"`
	GradeID        int64     `json:"grade_id"`
	Name           string    `json:"name"`
	TeacherID      *int64    `json:"teacher_id,omitempty"`
	Capacity       *int      `json:"capacity,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateClassroomInput carries validated creation fields.
type CreateClassroomInput struct {
	SchoolID       int64
	AcademicYearID int64
	GradeID        int64
	Name           string
	TeacherID      *int64
	Capacity       *int
}
