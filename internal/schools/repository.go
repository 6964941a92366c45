package schools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for schools.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schoolColumns = `s.id, s.work_stream_id, s.name, s.address, s.phone, s.is_active, s.created_at, s.updated_at`

func scanSchool(row pgx.Row) (School, error) {
	var s School
	err := row.Scan(&s.ID, &s.WorkstreamID, &s.Name, &s.Address, &s.Phone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Get fetches a school by ID regardless of active state.
func (r *Repository) Get(ctx context.Context, id int64) (School, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools s WHERE s.id = $1`, id)
	s, err := scanSchool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return School{}, httpx.ErrNotFound
	}
	return s, err
}

// List returns the page of schools matching the scope filter, plus the
// unpaginated total.
func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]School, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM schools s WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+schoolColumns+` FROM schools s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts the school after confirming the owning workstream is
// still active, all inside one transaction.
func (r *Repository) Create(ctx context.Context, in CreateSchoolInput) (School, error) {
	var created School
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var ok bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM work_streams WHERE id = $1 AND is_active = TRUE`, in.WorkstreamID).Scan(&ok); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO schools (work_stream_id, name, address, phone, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
			RETURNING id, work_stream_id, name, address, phone, is_active, created_at, updated_at`,
			in.WorkstreamID, in.Name, in.Address, in.Phone,
		)
		s, err := scanSchool(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: school name already taken in this workstream", httpx.ErrDuplicate)
			}
			return err
		}
		created = s
		return nil
	})
	return created, err
}

// Update applies submitted column values.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) (School, error) {
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}
	sets := make([]string, 0, len(fields)+1)
	args := []any{id}
	for col, val := range fields {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	row := r.pool.QueryRow(ctx,
		`UPDATE schools s SET `+strings.Join(sets, ", ")+` WHERE s.id = $1 RETURNING `+schoolColumns,
		args...,
	)
	s, err := scanSchool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return School{}, httpx.ErrNotFound
	}
	return s, err
}

// Deactivate soft-deletes the school.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE schools SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
