// Package courses manages per-school course catalogs. Course codes are
// unique within a school.
package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

const uniqueViolation = "23505"

// Course is one subject offered by a school.
type Course struct {
	ID          int64     `json:"id"`
	SchoolID    int64     `json:"school_id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCourseInput carries validated creation fields.
type CreateCourseInput struct {
	SchoolID    int64
	Name        string
	Code        string
	Description string
}

// RepositoryPort defines data access methods for courses.
type RepositoryPort interface {
	School(ctx context.Context, id int64) (authz.School, error)
	Get(ctx context.Context, id int64) (Course, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Course, int, error)
	Create(ctx context.Context, in CreateCourseInput) (Course, error)
	Deactivate(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence for courses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const courseColumns = `c.id, c.school_id, c.name, c.code, c.description, c.is_active, c.created_at, c.updated_at`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.SchoolID, &c.Name, &c.Code, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) School(ctx context.Context, id int64) (authz.School, error) {
	var s authz.School
	err := r.pool.QueryRow(ctx, `SELECT id, work_stream_id, is_active FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.WorkstreamID, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.School{}, httpx.ErrNotFound
	}
	return s, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Course, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id)
	c, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, httpx.ErrNotFound
	}
	return c, err
}

func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Course, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	const from = `FROM courses c JOIN schools s ON s.id = c.school_id`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+courseColumns+` `+from+` WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) Create(ctx context.Context, in CreateCourseInput) (Course, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO courses (school_id, name, code, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, school_id, name, code, description, is_active, created_at, updated_at`,
		in.SchoolID, in.Name, in.Code, in.Description,
	)
	c, err := scanCourse(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Course{}, fmt.Errorf("%w: course code already used in this school", httpx.ErrDuplicate)
		}
		return Course{}, err
	}
	return c, nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Service handles course business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]Course, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityCourses, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Course, error) {
	course, err := s.repo.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}
	school, err := s.repo.School(ctx, course.SchoolID)
	if err != nil {
		return Course{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return Course{}, authz.ErrNotFound
	}
	return course, nil
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateCourseInput) (Course, error) {
	school, err := s.repo.School(ctx, in.SchoolID)
	if err != nil {
		return Course{}, err
	}
	if !authz.CanAccessAcademicStructure(actor, school) {
		return Course{}, authz.ErrNotFound
	}
	if !authz.CanManageAcademicStructure(actor, school) {
		return Course{}, authz.ErrDenied
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	errs := shared.FieldErrors{}
	if in.Name == "" {
		errs.Add("name", "name is required")
	}
	if in.Code == "" {
		errs.Add("code", "code is required")
	}
	if err := errs.OrNil(); err != nil {
		return Course{}, err
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	course, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	school, err := s.repo.School(ctx, course.SchoolID)
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
