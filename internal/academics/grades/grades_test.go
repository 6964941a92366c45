package grades

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

type mockRepository struct {
	grades map[int64]Grade
}

func (m *mockRepository) List(ctx context.Context) ([]Grade, error) {
	var out []Grade
	for _, g := range m.grades {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Grade, error) {
	g, ok := m.grades[id]
	if !ok {
		return Grade{}, httpx.ErrNotFound
	}
	return g, nil
}

func (m *mockRepository) Create(ctx context.Context, name string, level int) (Grade, error) {
	g := Grade{ID: int64(len(m.grades) + 1), Name: name, Level: level}
	m.grades[g.ID] = g
	return g, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, name string, level int) (Grade, error) {
	g, ok := m.grades[id]
	if !ok {
		return Grade{}, httpx.ErrNotFound
	}
	g.Name, g.Level = name, level
	m.grades[id] = g
	return g, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.grades[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.grades, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestGradeMutationIsAdminOnly(t *testing.T) {
	repo := &mockRepository{grades: map[int64]Grade{}}
	svc := NewService(repo)

	// Even the highest tenant managers cannot touch global grades.
	wsManager := authz.Actor{ID: 2, Role: authz.RoleManagerWorkstream, WorkstreamID: ptr(int64(1))}
	_, err := svc.Create(context.Background(), wsManager, "Grade 5", 5)
	assert.ErrorIs(t, err, authz.ErrDenied)

	err = svc.Delete(context.Background(), wsManager, 1)
	assert.ErrorIs(t, err, authz.ErrDenied)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	g, err := svc.Create(context.Background(), admin, "Grade 5", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, g.Level)
}

func TestGradeValidation(t *testing.T) {
	svc := NewService(&mockRepository{grades: map[int64]Grade{}})
	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}

	_, err := svc.Create(context.Background(), admin, "  ", 0)
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "name")
	assert.Contains(t, fieldErrs, "level")
}

func TestGradeListDeniedForGuest(t *testing.T) {
	svc := NewService(&mockRepository{grades: map[int64]Grade{}})
	_, err := svc.List(context.Background(), authz.Actor{ID: 3, Role: authz.RoleGuest})
	assert.ErrorIs(t, err, authz.ErrDenied)
}
