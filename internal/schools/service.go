package schools

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for schools.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (School, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]School, int, error)
	Create(ctx context.Context, in CreateSchoolInput) (School, error)
	Update(ctx context.Context, id int64, fields map[string]any) (School, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles school business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the schools inside the actor's scope.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]School, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntitySchools, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches one school; cross-tenant probes read as not found.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (School, error) {
	school, err := s.repo.Get(ctx, id)
	if err != nil {
		return School{}, err
	}
	if !authz.CanAccessSchool(actor, school.Authz()) {
		return School{}, authz.ErrNotFound
	}
	return school, nil
}

// Create registers a school under a workstream the actor controls. The
// workstream reference is re-validated inside the insert transaction.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateSchoolInput) (School, error) {
	if !authz.CanCreateSchoolInWorkstream(actor, in.WorkstreamID) {
		return School{}, authz.ErrDenied
	}
	in.Name = strings.TrimSpace(in.Name)
	errs := shared.FieldErrors{}
	if in.Name == "" {
		errs.Add("name", "name is required")
	}
	if in.WorkstreamID == 0 {
		errs.Add("work_stream_id", "workstream is required")
	}
	if err := errs.OrNil(); err != nil {
		return School{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update applies a partial update to a school the actor manages.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateSchoolInput) (School, error) {
	school, err := s.repo.Get(ctx, id)
	if err != nil {
		return School{}, err
	}
	if !authz.CanAccessSchool(actor, school.Authz()) {
		return School{}, authz.ErrNotFound
	}
	if !authz.CanUpdateSchool(actor, school.Authz()) {
		return School{}, authz.ErrDenied
	}

	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return School{}, shared.FieldErrors{"name": "name is required"}
		}
		fields["name"] = name
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	return s.repo.Update(ctx, id, fields)
}

// Deactivate soft-deletes the school. Narrower than update: a school
// manager updates their school but never retires it.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	school, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanAccessSchool(actor, school.Authz()) {
		return authz.ErrNotFound
	}
	if !authz.CanDeactivateSchool(actor, school.Authz()) {
		return authz.ErrDenied
	}
	return s.repo.Deactivate(ctx, id)
}

var _ RepositoryPort = (*Repository)(nil)
