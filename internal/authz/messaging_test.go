package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeScopes(edges []RecipientEdge) []EdgeScope {
	out := make([]EdgeScope, len(edges))
	for i, e := range edges {
		out[i] = e.Scope
	}
	return out
}

func TestRecipientVisibilityAdmin(t *testing.T) {
	r := NewResolver(nil)
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 1, Role: RoleAdmin})
	require.NoError(t, err)
	assert.True(t, vis.Unrestricted)
	assert.Equal(t, int64(1), vis.ExcludeUserID)
	assert.Equal(t, RecipientSearchLimit, vis.Limit)
}

func TestRecipientVisibilityWorkstreamManager(t *testing.T) {
	r := NewResolver(nil)
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 2, Role: RoleManagerWorkstream, WorkstreamID: ptr(1)})
	require.NoError(t, err)
	assert.False(t, vis.Unrestricted)
	require.Len(t, vis.Edges, 2)
	assert.Equal(t, []Role{RoleAdmin}, vis.Edges[0].Roles)
	assert.Equal(t, EdgeAnyTenant, vis.Edges[0].Scope)
	assert.Equal(t, []Role{RoleManagerSchool}, vis.Edges[1].Roles)
	assert.Equal(t, EdgeSameWorkstream, vis.Edges[1].Scope)
}

func TestRecipientVisibilitySchoolManager(t *testing.T) {
	r := NewResolver(nil)
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 3, Role: RoleManagerSchool, SchoolID: ptr(5)})
	require.NoError(t, err)
	require.Len(t, vis.Edges, 2)
	assert.Equal(t, []Role{RoleManagerWorkstream}, vis.Edges[0].Roles)
	assert.Equal(t, []Role{RoleTeacher, RoleSecretary}, vis.Edges[1].Roles)
	assert.Equal(t, EdgeSameSchool, vis.Edges[1].Scope)
}

func TestRecipientVisibilityTeacherWholeSchool(t *testing.T) {
	r := NewResolver(nil)
	for _, role := range []Role{RoleTeacher, RoleSecretary} {
		vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 4, Role: role, SchoolID: ptr(3)})
		require.NoError(t, err)
		require.Len(t, vis.Edges, 1)
		assert.Empty(t, vis.Edges[0].Roles, "any role within the school")
		assert.Equal(t, EdgeSameSchool, vis.Edges[0].Scope)
	}
}

func TestRecipientVisibilityGuardianIncludesLinkedStudents(t *testing.T) {
	links := &stubLinkSource{schoolByGuardian: map[int64]int64{6: 9}}
	r := NewResolver(links)
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 6, Role: RoleGuardian})
	require.NoError(t, err)
	assert.Equal(t, []EdgeScope{EdgeSameWorkstream, EdgeSameSchool, EdgeLinkedStudents}, edgeScopes(vis.Edges))
	require.NotNil(t, vis.ActorScope.SchoolID)
	assert.Equal(t, int64(9), *vis.ActorScope.SchoolID)
}

// A guardian with no school and no active links keeps only the linked
// student edge, which matches nothing; tenant-anchored edges are
// pruned.
func TestRecipientVisibilityGuardianEmptyScopeFailsClosed(t *testing.T) {
	r := NewResolver(&stubLinkSource{})
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 8, Role: RoleGuardian})
	require.NoError(t, err)
	assert.Equal(t, []EdgeScope{EdgeLinkedStudents}, edgeScopes(vis.Edges))
	assert.True(t, vis.ActorScope.IsEmpty())
}

func TestRecipientVisibilityGuestSeesNoOne(t *testing.T) {
	r := NewResolver(nil)
	vis, err := r.RecipientVisibility(context.Background(), Actor{ID: 9, Role: RoleGuest})
	require.NoError(t, err)
	assert.False(t, vis.Unrestricted)
	assert.Empty(t, vis.Edges)
}

func TestMatchesRecipientTerm(t *testing.T) {
	assert.True(t, MatchesRecipientTerm("An", "Andi Wijaya", "andi@example.com", RoleTeacher))
	assert.True(t, MatchesRecipientTerm("AND", "Andi Wijaya", "", RoleTeacher))
	assert.True(t, MatchesRecipientTerm("teach", "Budi", "budi@example.com", RoleTeacher), "role name matches too")
	assert.True(t, MatchesRecipientTerm("BUDI@", "", "budi@example.com", RoleStudent))

	assert.False(t, MatchesRecipientTerm("di", "Andi", "andi@example.com", RoleStudent), "starts-with, not contains")
	assert.False(t, MatchesRecipientTerm("", "Andi", "andi@example.com", RoleStudent), "empty term is not a listing")
	assert.False(t, MatchesRecipientTerm("   ", "Andi", "andi@example.com", RoleStudent))
}
