package authz

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// RecipientSearchLimit caps recipient search results per request.
const RecipientSearchLimit = 25

// EdgeScope says how a recipient edge is anchored to the actor's
// tenancy.
type EdgeScope int

const (
	// EdgeAnyTenant matches the roles in any workstream or school.
	EdgeAnyTenant EdgeScope = iota
	// EdgeSameWorkstream matches within the workstream of the actor's
	// tenant (direct, or via the actor's school).
	EdgeSameWorkstream
	// EdgeSameSchool matches within the actor's own school.
	EdgeSameSchool
	// EdgeLinkedStudents matches students actively linked to the actor
	// as their guardian.
	EdgeLinkedStudents
)

// RecipientEdge is one branch of the cross-role adjacency matrix: the
// roles discoverable through it and the tenancy anchor. An empty Roles
// slice means any role.
type RecipientEdge struct {
	Roles []Role
	Scope EdgeScope
}

// RecipientVisibility is the full answer to "whom may this actor
// discover". The repository turns it into a candidate query; term
// matching stays in MatchesRecipientTerm.
type RecipientVisibility struct {
	Unrestricted  bool
	Edges         []RecipientEdge
	ActorScope    Scope
	ExcludeUserID int64
	Limit         int
}

// RecipientVisibility computes the adjacency edges for the actor. The
// matrix is irregular by design; it is not a hierarchy walk.
func (r *Resolver) RecipientVisibility(ctx context.Context, actor Actor) (RecipientVisibility, error) {
	vis := RecipientVisibility{
		ExcludeUserID: actor.ID,
		Limit:         RecipientSearchLimit,
	}

	scope, err := r.ResolveScope(ctx, actor)
	if err != nil {
		return vis, err
	}
	vis.ActorScope = scope

	switch actor.Role {
	case RoleAdmin:
		vis.Unrestricted = true

	case RoleManagerWorkstream:
		vis.Edges = []RecipientEdge{
			{Roles: []Role{RoleAdmin}, Scope: EdgeAnyTenant},
			{Roles: []Role{RoleManagerSchool}, Scope: EdgeSameWorkstream},
		}

	case RoleManagerSchool:
		vis.Edges = []RecipientEdge{
			{Roles: []Role{RoleManagerWorkstream}, Scope: EdgeSameWorkstream},
			{Roles: []Role{RoleTeacher, RoleSecretary}, Scope: EdgeSameSchool},
		}

	case RoleTeacher, RoleSecretary:
		vis.Edges = []RecipientEdge{
			{Scope: EdgeSameSchool},
		}

	case RoleStudent:
		vis.Edges = []RecipientEdge{
			{Roles: []Role{RoleManagerWorkstream}, Scope: EdgeSameWorkstream},
			{Roles: []Role{RoleManagerSchool, RoleTeacher, RoleSecretary}, Scope: EdgeSameSchool},
		}

	case RoleGuardian:
		vis.Edges = []RecipientEdge{
			{Roles: []Role{RoleManagerWorkstream}, Scope: EdgeSameWorkstream},
			{Roles: []Role{RoleManagerSchool, RoleTeacher, RoleSecretary}, Scope: EdgeSameSchool},
			{Scope: EdgeLinkedStudents},
		}
	}

	// Everything except the admin and any-tenant edges hangs off the
	// actor's tenant; with an empty scope those edges match nothing.
	if scope.IsEmpty() && !vis.Unrestricted {
		kept := vis.Edges[:0]
		for _, e := range vis.Edges {
			if e.Scope == EdgeAnyTenant || e.Scope == EdgeLinkedStudents {
				kept = append(kept, e)
			}
		}
		vis.Edges = kept
	}

	return vis, nil
}

var foldCaser = cases.Fold()

// MatchesRecipientTerm applies the case-insensitive starts-with match
// on name, email, or role. An empty term matches nothing: recipient
// search is not a listing.
func MatchesRecipientTerm(term, fullName, email string, role Role) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	folded := foldCaser.String(term)
	for _, candidate := range []string{fullName, email, role.String()} {
		if strings.HasPrefix(foldCaser.String(candidate), folded) {
			return true
		}
	}
	return false
}
