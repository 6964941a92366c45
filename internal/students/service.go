package students

import (
	"context"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	School(ctx context.Context, id int64) (authz.School, error)
	Get(ctx context.Context, userID int64) (Student, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Student, int, error)
	Create(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error)
	Update(ctx context.Context, userID int64, fields map[string]any) (Student, error)
	Deactivate(ctx context.Context, userID int64) error
	IsLinkedGuardian(ctx context.Context, guardianUserID, studentUserID int64) (bool, error)
	GetEnrollment(ctx context.Context, id int64) (Enrollment, error)
	EnrollmentsByStudent(ctx context.Context, studentUserID int64) ([]Enrollment, error)
	CreateEnrollment(ctx context.Context, in CreateEnrollmentInput) (Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, id int64, status string) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int64) error
}

// Service handles student profile and enrollment business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

var profileStatuses = map[string]bool{
	StatusActive:      true,
	StatusInactive:    true,
	StatusGraduated:   true,
	StatusTransferred: true,
	StatusSuspended:   true,
}

var enrollmentStatuses = map[string]bool{
	EnrollmentEnrolled:    true,
	EnrollmentCompleted:   true,
	EnrollmentWithdrawn:   true,
	EnrollmentTransferred: true,
}

// List returns the students visible to the actor.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]Student, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityStudents, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	out, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return out, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches a student the actor may see. Students see themselves,
// guardians see their actively linked students, staff visibility
// follows the account policy. Out of scope reads as a not-found.
func (s *Service) Get(ctx context.Context, actor authz.Actor, userID int64) (Student, error) {
	st, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Student{}, err
	}
	ok, err := s.canAccess(ctx, actor, st)
	if err != nil {
		return Student{}, err
	}
	if !ok {
		return Student{}, authz.ErrNotFound
	}
	return st, nil
}

func (s *Service) canAccess(ctx context.Context, actor authz.Actor, st Student) (bool, error) {
	switch actor.Role {
	case authz.RoleStudent:
		return actor.ID == st.UserID, nil
	case authz.RoleGuardian:
		return s.repo.IsLinkedGuardian(ctx, actor.ID, st.UserID)
	}
	return authz.CanAccessUser(actor, st.Target()), nil
}

// Create registers a student account together with its profile. The
// actor must manage student profiles in the target school.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateStudentInput) (Student, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validateCreate(in); err != nil {
		return Student{}, err
	}

	school, err := s.repo.School(ctx, in.SchoolID)
	if err != nil {
		return Student{}, err
	}
	if !school.IsActive {
		return Student{}, shared.FieldErrors{"school_id": "school is not active"}
	}
	if !authz.CanManageStudentProfiles(actor, school) {
		if !authz.CanAccessSchool(actor, school) {
			return Student{}, authz.ErrNotFound
		}
		return Student{}, authz.ErrDenied
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Student{}, err
	}
	return s.repo.Create(ctx, in, string(hash))
}

func (s *Service) validateCreate(in CreateStudentInput) error {
	errs := shared.FieldErrors{}
	if in.Email == "" {
		errs.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		errs.Add("email", "invalid email address")
	}
	if in.FullName == "" {
		errs.Add("full_name", "full name is required")
	}
	if len(in.Password) < 8 {
		errs.Add("password", "password must be at least 8 characters")
	}
	if in.DateOfBirth.IsZero() {
		errs.Add("date_of_birth", "date of birth is required")
	}
	if in.AdmissionDate.IsZero() {
		errs.Add("admission_date", "admission date is required")
	} else if !in.DateOfBirth.IsZero() && in.AdmissionDate.Before(in.DateOfBirth) {
		errs.Add("admission_date", "admission date cannot precede the date of birth")
	}
	return errs.OrNil()
}

// Update changes profile fields, restricted to what the actor's role
// may touch. Submitting a field outside that set is a denial, not a
// silent drop.
func (s *Service) Update(ctx context.Context, actor authz.Actor, userID int64, in UpdateStudentInput) (Student, error) {
	if _, err := s.Get(ctx, actor, userID); err != nil {
		return Student{}, err
	}

	allowed := authz.AllowedStudentUpdateFields(actor.Role)
	if len(allowed) == 0 {
		return Student{}, authz.ErrDenied
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		allowedSet[f] = true
	}

	submitted := map[string]any{}
	if in.Email != nil {
		submitted["email"] = strings.TrimSpace(strings.ToLower(*in.Email))
	}
	if in.FullName != nil {
		submitted["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.SchoolID != nil {
		submitted["school_id"] = *in.SchoolID
	}
	if in.Address != nil {
		submitted["address"] = *in.Address
	}
	if in.AdmissionDate != nil {
		submitted["admission_date"] = *in.AdmissionDate
	}
	if in.CurrentStatus != nil {
		submitted["current_status"] = *in.CurrentStatus
	}
	if in.MedicalNotes != nil {
		submitted["medical_notes"] = *in.MedicalNotes
	}

	for field := range submitted {
		if !allowedSet[field] {
			return Student{}, authz.ErrDenied
		}
	}

	errs := shared.FieldErrors{}
	if email, ok := submitted["email"]; ok {
		if _, err := mail.ParseAddress(email.(string)); err != nil {
			errs.Add("email", "invalid email address")
		}
	}
	if name, ok := submitted["full_name"]; ok && name == "" {
		errs.Add("full_name", "full name is required")
	}
	if status, ok := submitted["current_status"]; ok && !profileStatuses[status.(string)] {
		errs.Add("current_status", "unknown status")
	}
	if err := errs.OrNil(); err != nil {
		return Student{}, err
	}
	return s.repo.Update(ctx, userID, submitted)
}

// Deactivate retires the student account and forces the profile
// status to inactive. Secretaries may do this alongside managers.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, userID int64) error {
	st, err := s.Get(ctx, actor, userID)
	if err != nil {
		return err
	}
	school, err := s.studentSchool(ctx, st)
	if err != nil {
		return err
	}
	if !authz.CanManageEnrollments(actor, school) {
		return authz.ErrDenied
	}
	return s.repo.Deactivate(ctx, userID)
}

func (s *Service) studentSchool(ctx context.Context, st Student) (authz.School, error) {
	if st.SchoolID == nil {
		return authz.School{}, authz.ErrConfiguration
	}
	return s.repo.School(ctx, *st.SchoolID)
}

// Enrollments lists a student's enrollments, subject to the same
// visibility as the profile itself.
func (s *Service) Enrollments(ctx context.Context, actor authz.Actor, userID int64) ([]Enrollment, error) {
	if _, err := s.Get(ctx, actor, userID); err != nil {
		return nil, err
	}
	return s.repo.EnrollmentsByStudent(ctx, userID)
}

// Enroll places a student in a classroom. Enrollment is an
// administrative act; teachers are excluded from the gate.
func (s *Service) Enroll(ctx context.Context, actor authz.Actor, in CreateEnrollmentInput) (Enrollment, error) {
	if in.Status == "" {
		in.Status = EnrollmentEnrolled
	}
	if !enrollmentStatuses[in.Status] {
		return Enrollment{}, shared.FieldErrors{"status": "unknown status"}
	}

	st, err := s.Get(ctx, actor, in.StudentUserID)
	if err != nil {
		return Enrollment{}, err
	}
	school, err := s.studentSchool(ctx, st)
	if err != nil {
		return Enrollment{}, err
	}
	if !authz.CanManageEnrollments(actor, school) {
		return Enrollment{}, authz.ErrDenied
	}
	return s.repo.CreateEnrollment(ctx, in)
}

// UpdateEnrollment changes the enrollment status.
func (s *Service) UpdateEnrollment(ctx context.Context, actor authz.Actor, id int64, status string) (Enrollment, error) {
	if !enrollmentStatuses[status] {
		return Enrollment{}, shared.FieldErrors{"status": "unknown status"}
	}
	if err := s.checkEnrollmentGate(ctx, actor, id); err != nil {
		return Enrollment{}, err
	}
	return s.repo.UpdateEnrollmentStatus(ctx, id, status)
}

// DeleteEnrollment removes an enrollment.
func (s *Service) DeleteEnrollment(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.checkEnrollmentGate(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteEnrollment(ctx, id)
}

func (s *Service) checkEnrollmentGate(ctx context.Context, actor authz.Actor, id int64) error {
	e, err := s.repo.GetEnrollment(ctx, id)
	if err != nil {
		return err
	}
	st, err := s.Get(ctx, actor, e.StudentUserID)
	if err != nil {
		return err
	}
	school, err := s.studentSchool(ctx, st)
	if err != nil {
		return err
	}
	if !authz.CanManageEnrollments(actor, school) {
		return authz.ErrDenied
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
