package courses

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

type mockRepository struct {
	schools    map[int64]authz.School
	courses    map[int64]Course
	lastFilter authz.ScopeFilter
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		schools: map[int64]authz.School{},
		courses: map[int64]Course{},
		nextID:  1,
	}
}

func (m *mockRepository) School(ctx context.Context, id int64) (authz.School, error) {
	s, ok := m.schools[id]
	if !ok {
		return authz.School{}, httpx.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return Course{}, httpx.ErrNotFound
	}
	return c, nil
}

func (m *mockRepository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Course, int, error) {
	m.lastFilter = filter
	if filter.MatchesNone {
		return nil, 0, nil
	}
	var out []Course
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, in CreateCourseInput) (Course, error) {
	for _, c := range m.courses {
		if c.SchoolID == in.SchoolID && c.Code == in.Code {
			return Course{}, fmt.Errorf("%w: course code already used in this school", httpx.ErrDuplicate)
		}
	}
	c := Course{ID: m.nextID, SchoolID: in.SchoolID, Name: in.Name, Code: in.Code, Description: in.Description, IsActive: true}
	m.courses[c.ID] = c
	m.nextID++
	return c, nil
}

func (m *mockRepository) Deactivate(ctx context.Context, id int64) error {
	c, ok := m.courses[id]
	if !ok || !c.IsActive {
		return httpx.ErrNotFound
	}
	c.IsActive = false
	m.courses[id] = c
	return nil
}

func ptr[T any](v T) *T { return &v }

func seed() *mockRepository {
	repo := newMockRepository()
	repo.schools[1] = authz.School{ID: 1, WorkstreamID: 1, IsActive: true}
	repo.schools[2] = authz.School{ID: 2, WorkstreamID: 2, IsActive: true}
	return repo
}

func TestCreateNormalizesAndUppercasesCode(t *testing.T) {
	repo := seed()
	svc := NewService(repo, authz.NewResolver(nil))
	ms := authz.Actor{ID: 3, Role: authz.RoleManagerSchool, SchoolID: ptr(int64(1))}

	c, err := svc.Create(context.Background(), ms, CreateCourseInput{SchoolID: 1, Name: "  Mathematics ", Code: " math-101 "})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", c.Name)
	assert.Equal(t, "MATH-101", c.Code)
}

func TestCreateCodeUniquePerSchool(t *testing.T) {
	repo := seed()
	svc := NewService(repo, authz.NewResolver(nil))
	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, CreateCourseInput{SchoolID: 1, Name: "Mathematics", Code: "MATH-101"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, CreateCourseInput{SchoolID: 1, Name: "Maths again", Code: "math-101"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	// The same code in another school is fine.
	_, err = svc.Create(ctx, admin, CreateCourseInput{SchoolID: 2, Name: "Mathematics", Code: "MATH-101"})
	assert.NoError(t, err)
}

func TestCreateValidationAggregatesFields(t *testing.T) {
	repo := seed()
	svc := NewService(repo, authz.NewResolver(nil))
	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}

	_, err := svc.Create(context.Background(), admin, CreateCourseInput{SchoolID: 1, Name: "  ", Code: ""})
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "name")
	assert.Contains(t, fieldErrs, "code")
}

func TestCreateManagementGate(t *testing.T) {
	repo := seed()
	svc := NewService(repo, authz.NewResolver(nil))
	ctx := context.Background()
	in := CreateCourseInput{SchoolID: 1, Name: "Mathematics", Code: "MATH-101"}

	// A teacher can read the structure but not change it.
	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	_, err := svc.Create(ctx, teacher, in)
	assert.ErrorIs(t, err, authz.ErrDenied)

	// Out-of-scope staff get a not-found, not a forbidden.
	otherMS := authz.Actor{ID: 5, Role: authz.RoleManagerSchool, SchoolID: ptr(int64(2))}
	_, err = svc.Create(ctx, otherMS, in)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	mw := authz.Actor{ID: 2, Role: authz.RoleManagerWorkstream, WorkstreamID: ptr(int64(1))}
	_, err = svc.Create(ctx, mw, in)
	assert.NoError(t, err)
}

func TestGetMasksCrossTenantCourses(t *testing.T) {
	repo := seed()
	repo.courses[10] = Course{ID: 10, SchoolID: 2, Name: "History", Code: "HIST-1", IsActive: true}
	svc := NewService(repo, authz.NewResolver(nil))

	ms := authz.Actor{ID: 3, Role: authz.RoleManagerSchool, SchoolID: ptr(int64(1))}
	_, err := svc.Get(context.Background(), ms, 10)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestListUsesScopePredicate(t *testing.T) {
	repo := seed()
	svc := NewService(repo, authz.NewResolver(nil))

	mw := authz.Actor{ID: 2, Role: authz.RoleManagerWorkstream, WorkstreamID: ptr(int64(1))}
	_, _, err := svc.List(context.Background(), mw, authz.ListFilters{}, shared.NewPagination(1, 20, 0), false)
	require.NoError(t, err)
	assert.Contains(t, repo.lastFilter.Where, "s.work_stream_id = $1")
	assert.Contains(t, repo.lastFilter.Where, "c.is_active = TRUE")
	assert.Equal(t, []any{int64(1)}, repo.lastFilter.Args)
}

func TestDeactivateManagementGate(t *testing.T) {
	repo := seed()
	repo.courses[10] = Course{ID: 10, SchoolID: 1, Name: "History", Code: "HIST-1", IsActive: true}
	svc := NewService(repo, authz.NewResolver(nil))
	ctx := context.Background()

	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	err := svc.Deactivate(ctx, teacher, 10)
	assert.ErrorIs(t, err, authz.ErrDenied)

	ms := authz.Actor{ID: 3, Role: authz.RoleManagerSchool, SchoolID: ptr(int64(1))}
	require.NoError(t, svc.Deactivate(ctx, ms, 10))
	assert.False(t, repo.courses[10].IsActive)

	// Already deactivated rows behave like missing ones.
	err = svc.Deactivate(ctx, ms, 10)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
