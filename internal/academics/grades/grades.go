// Package grades manages global grade-level reference data. Grades are
// shared by every school; only admins mutate them.
package grades

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

// Grade is a numeric level with a display name.
type Grade struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RepositoryPort defines data access methods for grades.
type RepositoryPort interface {
	List(ctx context.Context) ([]Grade, error)
	Get(ctx context.Context, id int64) (Grade, error)
	Create(ctx context.Context, name string, level int) (Grade, error)
	Update(ctx context.Context, id int64, name string, level int) (Grade, error)
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence for grades.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]Grade, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, level, created_at, updated_at FROM grades ORDER BY level ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.Name, &g.Level, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Grade, error) {
	var g Grade
	err := r.pool.QueryRow(ctx, `SELECT id, name, level, created_at, updated_at FROM grades WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.Level, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Grade{}, httpx.ErrNotFound
	}
	return g, err
}

func (r *Repository) Create(ctx context.Context, name string, level int) (Grade, error) {
	var g Grade
	err := r.pool.QueryRow(ctx, `
		INSERT INTO grades (name, level, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, level, created_at, updated_at`, name, level).
		Scan(&g.ID, &g.Name, &g.Level, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (r *Repository) Update(ctx context.Context, id int64, name string, level int) (Grade, error) {
	var g Grade
	err := r.pool.QueryRow(ctx, `
		UPDATE grades SET name = $2, level = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, level, created_at, updated_at`, id, name, level).
		Scan(&g.ID, &g.Name, &g.Level, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Grade{}, httpx.ErrNotFound
	}
	return g, err
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Service handles grade business rules. Reads are open to any
// authenticated actor; writes are admin only.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Grade, error) {
	if actor.Role == authz.RoleGuest {
		return nil, authz.ErrDenied
	}
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, name string, level int) (Grade, error) {
	if !authz.CanMutateGrades(actor) {
		return Grade{}, authz.ErrDenied
	}
	name = strings.TrimSpace(name)
	if err := validateGrade(name, level); err != nil {
		return Grade{}, err
	}
	return s.repo.Create(ctx, name, level)
}

func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, name string, level int) (Grade, error) {
	if !authz.CanMutateGrades(actor) {
		return Grade{}, authz.ErrDenied
	}
	name = strings.TrimSpace(name)
	if err := validateGrade(name, level); err != nil {
		return Grade{}, err
	}
	return s.repo.Update(ctx, id, name, level)
}

func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !authz.CanMutateGrades(actor) {
		return authz.ErrDenied
	}
	return s.repo.Delete(ctx, id)
}

func validateGrade(name string, level int) error {
	errs := shared.FieldErrors{}
	if name == "" {
		errs.Add("name", "name is required")
	}
	if level < 1 {
		errs.Add("level", "level must be positive")
	}
	return errs.OrNil()
}

var _ RepositoryPort = (*Repository)(nil)
