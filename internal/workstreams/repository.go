package workstreams

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for workstreams.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workstreamColumns = `id, name, description, capacity, manager_id, is_active, created_at, updated_at`

func scanWorkstream(row pgx.Row) (Workstream, error) {
	var ws Workstream
	err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.Capacity, &ws.ManagerID, &ws.IsActive, &ws.CreatedAt, &ws.UpdatedAt)
	return ws, err
}

// Get fetches a workstream by ID regardless of active state.
func (r *Repository) Get(ctx context.Context, id int64) (Workstream, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workstreamColumns+` FROM work_streams WHERE id = $1`, id)
	ws, err := scanWorkstream(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workstream{}, httpx.ErrNotFound
	}
	return ws, err
}

// List returns active workstreams ordered by name. When onlyID is
// non-nil the result is restricted to that single workstream.
func (r *Repository) List(ctx context.Context, onlyID *int64, includeInactive bool) ([]Workstream, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if onlyID != nil {
		args = append(args, *onlyID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if !includeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	query := `SELECT ` + workstreamColumns + ` FROM work_streams WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workstream
	for rows.Next() {
		ws, err := scanWorkstream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Create inserts a new workstream.
func (r *Repository) Create(ctx context.Context, in CreateWorkstreamInput) (Workstream, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO work_streams (name, description, capacity, manager_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING `+workstreamColumns,
		in.Name, in.Description, in.Capacity, in.ManagerID,
	)
	ws, err := scanWorkstream(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Workstream{}, fmt.Errorf("%w: workstream name already taken", httpx.ErrDuplicate)
		}
		return Workstream{}, err
	}
	return ws, nil
}

// Update applies the given column values. fields is a map of column
// name to new value; callers have already filtered it by permission.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) (Workstream, error) {
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
		`UPDATE work_streams SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+workstreamColumns,
		args...,
	)
	ws, err := scanWorkstream(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workstream{}, httpx.ErrNotFound
	}
	return ws, err
}

// Deactivate soft-deletes the workstream.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE work_streams SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
