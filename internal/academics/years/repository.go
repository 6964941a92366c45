package years

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for academic years.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const yearColumns = `ay.id, ay.school_id, ay.name, ay.start_date, ay.end_date, ay.is_active, ay.created_at, ay.updated_at`

func scanYear(row pgx.Row) (AcademicYear, error) {
	var y AcademicYear
	err := row.Scan(&y.ID, &y.SchoolID, &y.Name, &y.StartDate, &y.EndDate, &y.IsActive, &y.CreatedAt, &y.UpdatedAt)
	return y, err
}

// School loads the policy shape of a school.
func (r *Repository) School(ctx context.Context, id int64) (authz.School, error) {
	var s authz.School
	err := r.pool.QueryRow(ctx, `SELECT id, work_stream_id, is_active FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.WorkstreamID, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.School{}, httpx.ErrNotFound
	}
	return s, err
}

// Get fetches an academic year by ID.
func (r *Repository) Get(ctx context.Context, id int64) (AcademicYear, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+yearColumns+` FROM academic_years ay WHERE ay.id = $1`, id)
	y, err := scanYear(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AcademicYear{}, httpx.ErrNotFound
	}
	return y, err
}

// List returns academic years matching the scope filter. The schools
// join feeds the workstream column the predicate may reference.
func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]AcademicYear, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	const from = `FROM academic_years ay JOIN schools s ON s.id = ay.school_id`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+yearColumns+` `+from+` WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []AcademicYear
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, y)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts the year inside one transaction, checking the school
// still exists and no active year of that school overlaps the range.
func (r *Repository) Create(ctx context.Context, in CreateYearInput) (AcademicYear, error) {
	var created AcademicYear
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var ok bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM schools WHERE id = $1 AND is_active = TRUE`, in.SchoolID).Scan(&ok); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}

		var overlaps bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM academic_years
				WHERE school_id = $1 AND is_active = TRUE
				  AND start_date <= $3 AND end_date >= $2
			)`, in.SchoolID, in.StartDate, in.EndDate).Scan(&overlaps)
		if err != nil {
			return err
		}
		if overlaps {
			return fmt.Errorf("%w: overlapping academic year", httpx.ErrDuplicate)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO academic_years (school_id, name, start_date, end_date, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
			RETURNING id, school_id, name, start_date, end_date, is_active, created_at, updated_at`,
			in.SchoolID, in.Name, in.StartDate, in.EndDate,
		)
		y, err := scanYear(row)
		if err != nil {
			return err
		}
		created = y
		return nil
	})
	return created, err
}

// Deactivate soft-deletes the academic year.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE academic_years SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
