package classrooms

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for classrooms.
type RepositoryPort interface {
	School(ctx context.Context, id int64) (authz.School, error)
	Get(ctx context.Context, id int64) (Classroom, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Classroom, int, error)
	Create(ctx context.Context, in CreateClassroomInput) (Classroom, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles classroom business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the classrooms inside the actor's scope.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]Classroom, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityClassrooms, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches one classroom the actor may read.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Classroom, error) {
	room, err := s.repo.Get(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	school, err := s.repo.School(ctx, room.SchoolID)
	if err != nil {
		return Classroom{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return Classroom{}, authz.ErrNotFound
	}
	return room, nil
}

// Create registers a classroom. Year, grade and homeroom teacher
// references are re-validated in the repository transaction.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateClassroomInput) (Classroom, error) {
	school, err := s.repo.School(ctx, in.SchoolID)
	if err != nil {
		return Classroom{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return Classroom{}, authz.ErrNotFound
	}
	if !authz.CanManageAcademicStructure(actor, school) {
		return Classroom{}, authz.ErrDenied
	}

	in.Name = strings.TrimSpace(in.Name)
	errs := shared.FieldErrors{}
	if in.Name == "" {
		errs.Add("name", "name is required")
	}
	if in.AcademicYearID == 0 {
		errs.Add("academic_year_id", "academic year is required")
	}
	if in.GradeID == 0 {
		errs.Add("grade_id", "grade is required")
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		errs.Add("capacity", "capacity must be positive")
	}
	if err := errs.OrNil(); err != nil {
		return Classroom{}, err
	}
	return s.repo.Create(ctx, in)
}

// Deactivate retires the classroom.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	room, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	school, err := s.repo.School(ctx, room.SchoolID)
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
