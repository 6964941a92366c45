package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLinkSource struct {
	schoolByGuardian map[int64]int64
	calls            int
}

func (s *stubLinkSource) FirstActiveLinkSchool(_ context.Context, guardianUserID int64) (*int64, error) {
	s.calls++
	if id, ok := s.schoolByGuardian[guardianUserID]; ok {
		return &id, nil
	}
	return nil, nil
}

func ptr(v int64) *int64 { return &v }

func TestResolveScopeAdminIsGlobal(t *testing.T) {
	r := NewResolver(nil)
	scope, err := r.ResolveScope(context.Background(), Actor{ID: 1, Role: RoleAdmin})
	require.NoError(t, err)
	assert.True(t, scope.IsGlobal())
	assert.False(t, scope.IsEmpty())
}

func TestResolveScopeWorkstreamManager(t *testing.T) {
	r := NewResolver(nil)

	scope, err := r.ResolveScope(context.Background(), Actor{ID: 2, Role: RoleManagerWorkstream, WorkstreamID: ptr(7)})
	require.NoError(t, err)
	require.NotNil(t, scope.WorkstreamID)
	assert.Equal(t, int64(7), *scope.WorkstreamID)

	// Missing workstream is a configuration error, never silently global.
	scope, err = r.ResolveScope(context.Background(), Actor{ID: 3, Role: RoleManagerWorkstream})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.True(t, scope.IsEmpty())
}

func TestResolveScopeSchoolBoundRoles(t *testing.T) {
	r := NewResolver(nil)
	for _, role := range []Role{RoleManagerSchool, RoleTeacher, RoleSecretary, RoleStudent} {
		scope, err := r.ResolveScope(context.Background(), Actor{ID: 4, Role: role, SchoolID: ptr(11)})
		require.NoError(t, err)
		require.NotNil(t, scope.SchoolID)
		assert.Equal(t, int64(11), *scope.SchoolID)

		_, err = r.ResolveScope(context.Background(), Actor{ID: 5, Role: role})
		assert.ErrorIs(t, err, ErrConfiguration)
	}
}

func TestResolveScopeGuardianDirectSchoolWins(t *testing.T) {
	links := &stubLinkSource{schoolByGuardian: map[int64]int64{6: 99}}
	r := NewResolver(links)

	scope, err := r.ResolveScope(context.Background(), Actor{ID: 6, Role: RoleGuardian, SchoolID: ptr(3)})
	require.NoError(t, err)
	require.NotNil(t, scope.SchoolID)
	assert.Equal(t, int64(3), *scope.SchoolID)
	assert.Zero(t, links.calls, "direct school short-circuits the link lookup")
}

func TestResolveScopeGuardianFallsBackToLinkedStudent(t *testing.T) {
	links := &stubLinkSource{schoolByGuardian: map[int64]int64{6: 9}}
	r := NewResolver(links)

	scope, err := r.ResolveScope(context.Background(), Actor{ID: 6, Role: RoleGuardian})
	require.NoError(t, err)
	require.NotNil(t, scope.SchoolID)
	assert.Equal(t, int64(9), *scope.SchoolID)
}

func TestResolveScopeGuardianWithoutLinksIsEmpty(t *testing.T) {
	r := NewResolver(&stubLinkSource{})

	scope, err := r.ResolveScope(context.Background(), Actor{ID: 8, Role: RoleGuardian})
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestResolveScopeIsIdempotent(t *testing.T) {
	links := &stubLinkSource{schoolByGuardian: map[int64]int64{6: 9}}
	r := NewResolver(links)
	actor := Actor{ID: 6, Role: RoleGuardian}

	first, err := r.ResolveScope(context.Background(), actor)
	require.NoError(t, err)
	second, err := r.ResolveScope(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveScopeGuestIsEmpty(t *testing.T) {
	r := NewResolver(nil)
	scope, err := r.ResolveScope(context.Background(), Actor{ID: 9, Role: RoleGuest})
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}
