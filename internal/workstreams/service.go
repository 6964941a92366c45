package workstreams

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for workstreams.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Workstream, error)
	List(ctx context.Context, onlyID *int64, includeInactive bool) ([]Workstream, error)
	Create(ctx context.Context, in CreateWorkstreamInput) (Workstream, error)
	Update(ctx context.Context, id int64, fields map[string]any) (Workstream, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles workstream business rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the workstreams the actor may see: admins see all,
// managers see their own.
func (s *Service) List(ctx context.Context, actor authz.Actor, includeInactive bool) ([]Workstream, error) {
	switch actor.Role {
	case authz.RoleAdmin:
		return s.repo.List(ctx, nil, includeInactive)
	case authz.RoleManagerWorkstream, authz.RoleManagerSchool:
		if actor.WorkstreamID == nil {
			return nil, authz.ErrConfiguration
		}
		return s.repo.List(ctx, actor.WorkstreamID, false)
	default:
		return nil, authz.ErrDenied
	}
}

// Get fetches one workstream; invisible workstreams read as not found.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Workstream, error) {
	ws, err := s.repo.Get(ctx, id)
	if err != nil {
		return Workstream{}, err
	}
	if !authz.CanViewWorkstream(actor, ws.ID) {
		return Workstream{}, authz.ErrNotFound
	}
	return ws, nil
}

// Create registers a new workstream. Admin only.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateWorkstreamInput) (Workstream, error) {
	if !authz.CanCreateWorkstream(actor) {
		return Workstream{}, authz.ErrDenied
	}
	in.Name = strings.TrimSpace(in.Name)
	errs := shared.FieldErrors{}
	if in.Name == "" {
		errs.Add("name", "name is required")
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		errs.Add("capacity", "capacity must be positive")
	}
	if err := errs.OrNil(); err != nil {
		return Workstream{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update applies a partial update, restricted to the fields the actor's
// role may touch. Submitting a field outside that set is a denial, not
// a silent drop.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateWorkstreamInput) (Workstream, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return Workstream{}, err
	}

	allowed := authz.AllowedWorkstreamUpdateFields(actor, id)
	if len(allowed) == 0 {
		return Workstream{}, authz.ErrDenied
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		allowedSet[f] = true
	}

	submitted := map[string]any{}
	if in.Name != nil {
		submitted["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		submitted["description"] = *in.Description
	}
	if in.Capacity != nil {
		submitted["capacity"] = *in.Capacity
	}
	if in.IsActive != nil {
		submitted["is_active"] = *in.IsActive
	}
	if in.ManagerID != nil {
		submitted["manager_id"] = *in.ManagerID
	}

	for field := range submitted {
		if !allowedSet[field] {
			return Workstream{}, authz.ErrDenied
		}
	}
	if name, ok := submitted["name"]; ok && name == "" {
		return Workstream{}, shared.FieldErrors{"name": "name is required"}
	}
	return s.repo.Update(ctx, id, submitted)
}

// Deactivate soft-deletes the workstream. Admin only; managers cannot
// retire their own tenancy.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	if !authz.CanDeactivateWorkstream(actor) {
		if !authz.CanViewWorkstream(actor, id) {
			return authz.ErrNotFound
		}
		return authz.ErrDenied
	}
	return s.repo.Deactivate(ctx, id)
}

var _ RepositoryPort = (*Repository)(nil)
