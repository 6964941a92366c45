package students

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

type mockRepository struct {
	schools     map[int64]authz.School
	students    map[int64]Student
	links       map[int64][]int64
	enrollments map[int64]Enrollment
	nextID      int64
	lastFilter  authz.ScopeFilter
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		schools:     map[int64]authz.School{},
		students:    map[int64]Student{},
		links:       map[int64][]int64{},
		enrollments: map[int64]Enrollment{},
		nextID:      1,
	}
}

// hydrate mirrors the repository's school join: a student without a
// direct workstream takes the workstream of their school.
func (m *mockRepository) hydrate(st Student) Student {
	if st.WorkstreamID == nil && st.SchoolID != nil {
		if sc, ok := m.schools[*st.SchoolID]; ok {
			st.WorkstreamID = &sc.WorkstreamID
		}
	}
	return st
}

func (m *mockRepository) School(ctx context.Context, id int64) (authz.School, error) {
	sc, ok := m.schools[id]
	if !ok {
		return authz.School{}, httpx.ErrNotFound
	}
	return sc, nil
}

func (m *mockRepository) Get(ctx context.Context, userID int64) (Student, error) {
	st, ok := m.students[userID]
	if !ok {
		return Student{}, httpx.ErrNotFound
	}
	return m.hydrate(st), nil
}

func (m *mockRepository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Student, int, error) {
	m.lastFilter = filter
	if filter.MatchesNone {
		return nil, 0, nil
	}
	var out []Student
	for _, st := range m.students {
		out = append(out, m.hydrate(st))
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error) {
	for _, st := range m.students {
		if st.Email == in.Email {
			return Student{}, httpx.ErrDuplicate
		}
	}
	st := Student{
		UserID:        m.nextID,
		FullName:      in.FullName,
		Email:         in.Email,
		SchoolID:      &in.SchoolID,
		GradeID:       &in.GradeID,
		DateOfBirth:   in.DateOfBirth,
		AdmissionDate: in.AdmissionDate,
		CurrentStatus: StatusActive,
		Address:       in.Address,
		MedicalNotes:  in.MedicalNotes,
		IsActive:      true,
	}
	m.students[st.UserID] = st
	m.nextID++
	return m.hydrate(st), nil
}

func (m *mockRepository) Update(ctx context.Context, userID int64, fields map[string]any) (Student, error) {
	st, ok := m.students[userID]
	if !ok {
		return Student{}, httpx.ErrNotFound
	}
	if v, ok := fields["email"]; ok {
		st.Email = v.(string)
	}
	if v, ok := fields["full_name"]; ok {
		st.FullName = v.(string)
	}
	if v, ok := fields["school_id"]; ok {
		id := v.(int64)
		st.SchoolID = &id
	}
	if v, ok := fields["address"]; ok {
		addr := v.(string)
		st.Address = &addr
	}
	if v, ok := fields["admission_date"]; ok {
		st.AdmissionDate = v.(time.Time)
	}
	if v, ok := fields["current_status"]; ok {
		st.CurrentStatus = v.(string)
	}
	if v, ok := fields["medical_notes"]; ok {
		notes := v.(string)
		st.MedicalNotes = &notes
	}
	m.students[userID] = st
	return m.hydrate(st), nil
}

func (m *mockRepository) Deactivate(ctx context.Context, userID int64) error {
	st, ok := m.students[userID]
	if !ok || !st.IsActive {
		return httpx.ErrNotFound
	}
	st.IsActive = false
	st.CurrentStatus = StatusInactive
	m.students[userID] = st
	return nil
}

func (m *mockRepository) IsLinkedGuardian(ctx context.Context, guardianUserID, studentUserID int64) (bool, error) {
	for _, id := range m.links[guardianUserID] {
		if id == studentUserID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) GetEnrollment(ctx context.Context, id int64) (Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return Enrollment{}, httpx.ErrNotFound
	}
	return e, nil
}

func (m *mockRepository) EnrollmentsByStudent(ctx context.Context, studentUserID int64) ([]Enrollment, error) {
	var out []Enrollment
	for _, e := range m.enrollments {
		if e.StudentUserID == studentUserID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateEnrollment(ctx context.Context, in CreateEnrollmentInput) (Enrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentUserID == in.StudentUserID && e.ClassroomID == in.ClassroomID {
			return Enrollment{}, fmt.Errorf("%w: student is already enrolled in this classroom", httpx.ErrDuplicate)
		}
	}
	e := Enrollment{
		ID:             m.nextID,
		StudentUserID:  in.StudentUserID,
		ClassroomID:    in.ClassroomID,
		AcademicYearID: in.AcademicYearID,
		Status:         in.Status,
	}
	m.enrollments[e.ID] = e
	m.nextID++
	return e, nil
}

func (m *mockRepository) UpdateEnrollmentStatus(ctx context.Context, id int64, status string) (Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return Enrollment{}, httpx.ErrNotFound
	}
	e.Status = status
	m.enrollments[id] = e
	return e, nil
}

func (m *mockRepository) DeleteEnrollment(ctx context.Context, id int64) error {
	if _, ok := m.enrollments[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.enrollments, id)
	return nil
}

func (m *mockRepository) FirstActiveLinkSchool(ctx context.Context, guardianUserID int64) (*int64, error) {
	for _, id := range m.links[guardianUserID] {
		if st, ok := m.students[id]; ok {
			return st.SchoolID, nil
		}
	}
	return nil, nil
}

func ptr[T any](v T) *T { return &v }

func seed() *mockRepository {
	repo := newMockRepository()
	repo.schools[1] = authz.School{ID: 1, WorkstreamID: 1, IsActive: true}
	repo.schools[2] = authz.School{ID: 2, WorkstreamID: 2, IsActive: true}
	// School staff created this account: school set, no direct workstream.
	repo.students[100] = Student{UserID: 100, FullName: "Sam Doe", Email: "sam@example.com", SchoolID: ptr(int64(1)), CurrentStatus: StatusActive, IsActive: true}
	repo.nextID = 500
	return repo
}

func newService(repo *mockRepository) *Service {
	return NewService(repo, authz.NewResolver(repo))
}

func validCreate(schoolID int64) CreateStudentInput {
	return CreateStudentInput{
		Email:         "new@example.com",
		FullName:      "New Student",
		Password:      "s3cret-pass",
		SchoolID:      schoolID,
		GradeID:       10,
		DateOfBirth:   time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC),
		AdmissionDate: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateRejectsAdmissionBeforeBirth(t *testing.T) {
	svc := newService(seed())
	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}

	in := validCreate(1)
	in.AdmissionDate = in.DateOfBirth.AddDate(-1, 0, 0)
	_, err := svc.Create(context.Background(), admin, in)

	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "admission_date")
}

func TestCreateManagementGate(t *testing.T) {
	svc := newService(seed())

	// Teachers handle admissions for their own school.
	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	st, err := svc.Create(context.Background(), teacher, validCreate(1))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st.CurrentStatus)

	// A school outside the teacher's scope reads as not-found.
	in := validCreate(2)
	in.Email = "other@example.com"
	_, err = svc.Create(context.Background(), teacher, in)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	guardian := authz.Actor{ID: 5, Role: authz.RoleGuardian}
	in.Email = "third@example.com"
	in.SchoolID = 1
	_, err = svc.Create(context.Background(), guardian, in)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestGetVisibility(t *testing.T) {
	repo := seed()
	repo.links[50] = []int64{100}
	svc := newService(repo)

	self := authz.Actor{ID: 100, Role: authz.RoleStudent, SchoolID: ptr(int64(1))}
	_, err := svc.Get(context.Background(), self, 100)
	require.NoError(t, err)

	otherStudent := authz.Actor{ID: 101, Role: authz.RoleStudent, SchoolID: ptr(int64(1))}
	_, err = svc.Get(context.Background(), otherStudent, 100)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	linked := authz.Actor{ID: 50, Role: authz.RoleGuardian}
	_, err = svc.Get(context.Background(), linked, 100)
	require.NoError(t, err)

	unlinked := authz.Actor{ID: 51, Role: authz.RoleGuardian}
	_, err = svc.Get(context.Background(), unlinked, 100)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestGetResolvesWorkstreamThroughSchool(t *testing.T) {
	svc := newService(seed())

	// Student 100 carries no direct workstream; school 1 belongs to
	// workstream 1 and that is what the manager's scope matches.
	mw := authz.Actor{ID: 2, Role: authz.RoleManagerWorkstream, WorkstreamID: ptr(int64(1))}
	st, err := svc.Get(context.Background(), mw, 100)
	require.NoError(t, err, "student in school 1 of workstream 1 must be visible to the workstream manager")
	assert.Equal(t, int64(100), st.UserID)

	otherMW := authz.Actor{ID: 3, Role: authz.RoleManagerWorkstream, WorkstreamID: ptr(int64(2))}
	_, err = svc.Get(context.Background(), otherMW, 100)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestListGuardianScopeLimitsToLinkedStudents(t *testing.T) {
	repo := seed()
	repo.links[50] = []int64{100}
	svc := newService(repo)

	guardian := authz.Actor{ID: 50, Role: authz.RoleGuardian}
	_, _, err := svc.List(context.Background(), guardian, authz.ListFilters{}, shared.NewPagination(1, 20, 0), false)
	require.NoError(t, err)
	assert.Contains(t, repo.lastFilter.Where, "guardian_student_links")
	assert.Contains(t, repo.lastFilter.Args, int64(50))
}

func TestUpdateFieldRestrictions(t *testing.T) {
	svc := newService(seed())

	// Secretaries touch the operational subset only.
	secretary := authz.Actor{ID: 6, Role: authz.RoleSecretary, SchoolID: ptr(int64(1))}
	st, err := svc.Update(context.Background(), secretary, 100, UpdateStudentInput{CurrentStatus: ptr(StatusSuspended)})
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, st.CurrentStatus)

	_, err = svc.Update(context.Background(), secretary, 100, UpdateStudentInput{Email: ptr("changed@example.com")})
	assert.ErrorIs(t, err, authz.ErrDenied)

	// School moves stay admin-only.
	ms := authz.Actor{ID: 7, Role: authz.RoleManagerSchool, SchoolID: ptr(int64(1))}
	_, err = svc.Update(context.Background(), ms, 100, UpdateStudentInput{SchoolID: ptr(int64(2))})
	assert.ErrorIs(t, err, authz.ErrDenied)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	st, err = svc.Update(context.Background(), admin, 100, UpdateStudentInput{SchoolID: ptr(int64(2))})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *st.SchoolID)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := newService(seed())
	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}

	_, err := svc.Update(context.Background(), admin, 100, UpdateStudentInput{CurrentStatus: ptr("expelled")})
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "current_status")
}

func TestDeactivateGate(t *testing.T) {
	repo := seed()
	svc := newService(repo)

	// Enrollment is an administrative act; teachers are excluded.
	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	err := svc.Deactivate(context.Background(), teacher, 100)
	assert.ErrorIs(t, err, authz.ErrDenied)

	secretary := authz.Actor{ID: 6, Role: authz.RoleSecretary, SchoolID: ptr(int64(1))}
	require.NoError(t, svc.Deactivate(context.Background(), secretary, 100))
	assert.Equal(t, StatusInactive, repo.students[100].CurrentStatus)
	assert.False(t, repo.students[100].IsActive)
}

func TestEnrollValidatesStatusAndGate(t *testing.T) {
	repo := seed()
	svc := newService(repo)
	secretary := authz.Actor{ID: 6, Role: authz.RoleSecretary, SchoolID: ptr(int64(1))}

	_, err := svc.Enroll(context.Background(), secretary, CreateEnrollmentInput{StudentUserID: 100, ClassroomID: 1, AcademicYearID: 1, Status: "paused"})
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "status")

	e, err := svc.Enroll(context.Background(), secretary, CreateEnrollmentInput{StudentUserID: 100, ClassroomID: 1, AcademicYearID: 1})
	require.NoError(t, err)
	assert.Equal(t, EnrollmentEnrolled, e.Status)

	_, err = svc.Enroll(context.Background(), secretary, CreateEnrollmentInput{StudentUserID: 100, ClassroomID: 1, AcademicYearID: 1})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	_, err = svc.Enroll(context.Background(), teacher, CreateEnrollmentInput{StudentUserID: 100, ClassroomID: 2, AcademicYearID: 1})
	assert.ErrorIs(t, err, authz.ErrDenied)
}

func TestEnrollmentLifecycle(t *testing.T) {
	repo := seed()
	svc := newService(repo)
	secretary := authz.Actor{ID: 6, Role: authz.RoleSecretary, SchoolID: ptr(int64(1))}

	e, err := svc.Enroll(context.Background(), secretary, CreateEnrollmentInput{StudentUserID: 100, ClassroomID: 1, AcademicYearID: 1})
	require.NoError(t, err)

	updated, err := svc.UpdateEnrollment(context.Background(), secretary, e.ID, EnrollmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, EnrollmentCompleted, updated.Status)

	_, err = svc.UpdateEnrollment(context.Background(), secretary, e.ID, "done")
	require.Error(t, err)

	require.NoError(t, svc.DeleteEnrollment(context.Background(), secretary, e.ID))
	err = svc.DeleteEnrollment(context.Background(), secretary, e.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
