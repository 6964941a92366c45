package authz

import (
	"context"
	"fmt"
)

// Scope is the tenant restriction an actor is confined to. The zero
// value is the empty scope, which matches nothing.
type Scope struct {
	global       bool
	WorkstreamID *int64
	SchoolID     *int64
}

// GlobalScope returns the unrestricted scope (admin only).
func GlobalScope() Scope { return Scope{global: true} }

// EmptyScope returns the scope that matches no records.
func EmptyScope() Scope { return Scope{} }

// WorkstreamScope restricts to a single workstream.
func WorkstreamScope(id int64) Scope { return Scope{WorkstreamID: &id} }

// SchoolScope restricts to a single school.
func SchoolScope(id int64) Scope { return Scope{SchoolID: &id} }

// IsGlobal reports whether the scope is unrestricted.
func (s Scope) IsGlobal() bool { return s.global }

// IsEmpty reports whether the scope matches nothing. Every consumer
// must treat an empty scope as "no records", never as "all records".
func (s Scope) IsEmpty() bool {
	return !s.global && s.WorkstreamID == nil && s.SchoolID == nil
}

// GuardianLinkSource resolves a guardian's school through their active
// student links. FirstActiveLinkSchool returns the school of the first
// active link, or nil when the guardian has no active link.
type GuardianLinkSource interface {
	FirstActiveLinkSchool(ctx context.Context, guardianUserID int64) (*int64, error)
}

// Resolver derives an actor's effective tenant scope. It is the only
// part of the engine that may touch storage, and only for the guardian
// fallback chain. It holds no per-request state.
type Resolver struct {
	links GuardianLinkSource

	// guardian school resolution is an ordered fallback chain; the
	// first strategy returning a school wins.
	guardianChain []func(ctx context.Context, actor Actor) (*int64, error)
}

// NewResolver constructs a Resolver.
func NewResolver(links GuardianLinkSource) *Resolver {
	r := &Resolver{links: links}
	r.guardianChain = []func(ctx context.Context, actor Actor) (*int64, error){
		r.guardianDirectSchool,
		r.guardianLinkedStudentSchool,
	}
	return r
}

// ResolveScope derives the actor's effective scope.
//
// A role whose required scope field is absent and cannot be resolved
// transitively yields ErrConfiguration, except for guardians, where a
// missing school is a legitimate data state and resolves to the empty
// scope.
func (r *Resolver) ResolveScope(ctx context.Context, actor Actor) (Scope, error) {
	switch actor.Role {
	case RoleAdmin:
		return GlobalScope(), nil

	case RoleManagerWorkstream:
		if actor.WorkstreamID == nil {
			return EmptyScope(), fmt.Errorf("%w: workstream manager %d has no workstream", ErrConfiguration, actor.ID)
		}
		return WorkstreamScope(*actor.WorkstreamID), nil

	case RoleManagerSchool, RoleTeacher, RoleSecretary, RoleStudent:
		if actor.SchoolID == nil {
			return EmptyScope(), fmt.Errorf("%w: %s %d has no school", ErrConfiguration, actor.Role, actor.ID)
		}
		return SchoolScope(*actor.SchoolID), nil

	case RoleGuardian:
		for _, strategy := range r.guardianChain {
			schoolID, err := strategy(ctx, actor)
			if err != nil {
				return EmptyScope(), err
			}
			if schoolID != nil {
				return SchoolScope(*schoolID), nil
			}
		}
		return EmptyScope(), nil
	}

	return EmptyScope(), nil
}

func (r *Resolver) guardianDirectSchool(_ context.Context, actor Actor) (*int64, error) {
	return actor.SchoolID, nil
}

func (r *Resolver) guardianLinkedStudentSchool(ctx context.Context, actor Actor) (*int64, error) {
	if r.links == nil {
		return nil, nil
	}
	return r.links.FirstActiveLinkSchool(ctx, actor.ID)
}
