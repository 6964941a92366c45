package years

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for academic years.
type RepositoryPort interface {
	School(ctx context.Context, id int64) (authz.School, error)
	Get(ctx context.Context, id int64) (AcademicYear, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]AcademicYear, int, error)
	Create(ctx context.Context, in CreateYearInput) (AcademicYear, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles academic year business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the academic years inside the actor's scope.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]AcademicYear, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityAcademicYears, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches one academic year the actor may read.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (AcademicYear, error) {
	year, err := s.repo.Get(ctx, id)
	if err != nil {
		return AcademicYear{}, err
	}
	school, err := s.repo.School(ctx, year.SchoolID)
	if err != nil {
		return AcademicYear{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return AcademicYear{}, authz.ErrNotFound
	}
	return year, nil
}

// Create registers a new academic year for a school the actor manages.
// Dates must be ordered; overlap with an active year is rejected in the
// repository transaction.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateYearInput) (AcademicYear, error) {
	school, err := s.repo.School(ctx, in.SchoolID)
	if err != nil {
		return AcademicYear{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return AcademicYear{}, authz.ErrNotFound
	}
	if !authz.CanManageAcademicStructure(actor, school) {
		return AcademicYear{}, authz.ErrDenied
	}

	in.Name = strings.TrimSpace(in.Name)
	errs := shared.FieldErrors{}
	if in.Name == "" {
		errs.Add("name", "name is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		errs.Add("start_date", "start and end dates are required")
	} else if !in.StartDate.Before(in.EndDate) {
		errs.Add("end_date", "end date must be after start date")
	}
	if err := errs.OrNil(); err != nil {
		return AcademicYear{}, err
	}
	return s.repo.Create(ctx, in)
}

// Deactivate retires the academic year.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	year, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	school, err := s.repo.School(ctx, year.SchoolID)
	if err != nil {
		return err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return authz.ErrNotFound
	}
	if !authz.CanManageAcademicStructure(actor, school) {
		return authz.ErrDenied
	}
	return s.repo.Deactivate(ctx, id)
}

var _ RepositoryPort = (*Repository)(nil)
