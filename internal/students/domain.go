package students

import (
	"time"

	"github.com/edutrack/edutrack/internal/authz"
)

// Profile statuses. Deactivating the account forces "inactive".
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusGraduated   = "graduated"
	StatusTransferred = "transferred"
	StatusSuspended   = "suspended"
)

// Enrollment statuses.
const (
	EnrollmentEnrolled    = "enrolled"
	EnrollmentCompleted   = "completed"
	EnrollmentWithdrawn   = "withdrawn"
	EnrollmentTransferred = "transferred"
)

// Student is a student profile joined with its user account. The
// workstream is the effective one, resolved through the school when
// the user row carries none.
type Student struct {
	UserID        int64     `json:"user_id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	SchoolID      *int64    `json:"school_id"`
	WorkstreamID  *int64    `json:"work_stream_id"`
	GradeID       *int64    `json:"grade_id"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	AdmissionDate time.Time `json:"admission_date"`
	CurrentStatus string    `json:"current_status"`
	Address       *string   `json:"address"`
	MedicalNotes  *string   `json:"medical_notes"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Target converts the student into the policy shape of their account.
func (s Student) Target() authz.Target {
	return authz.Target{ID: s.UserID, Role: authz.RoleStudent, SchoolID: s.SchoolID, WorkstreamID: s.WorkstreamID}
}

// Enrollment places a student in a classroom for an academic year.
// The (student, classroom) pair is unique.
type Enrollment struct {
	ID             int64     `json:"id"`
	StudentUserID  int64     `json:"student_user_id"`
	ClassroomID    int64     `json:"classroom_id"`
	AcademicYearID int64     `json:"academic_year_id"`
	Status         string    `json:"status"`
	ClassroomName  string    `json:"classroom_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateStudentInput carries validated creation fields. The account
// and the profile are created together.
type CreateStudentInput struct {
	Email         string
	FullName      string
	Password      string
	SchoolID      int64
	GradeID       int64
	DateOfBirth   time.Time
	AdmissionDate time.Time
	Address       *string
	MedicalNotes  *string
}

// UpdateStudentInput carries the submitted update fields. Nil fields
// stay untouched.
type UpdateStudentInput struct {
	Email         *string
	FullName      *string
	SchoolID      *int64
	Address       *string
	AdmissionDate *time.Time
	CurrentStatus *string
	MedicalNotes  *string
}

// CreateEnrollmentInput carries validated enrollment fields.
type CreateEnrollmentInput struct {
	StudentUserID  int64
	ClassroomID    int64
	AcademicYearID int64
	Status         string
}
