package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.full_name, u.role, u.school_id, u.work_stream_id, u.is_active, u.password_hash, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.SchoolID, &u.WorkstreamID, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = authz.ParseRole(role)
	u.RoleName = u.Role.String()
	return u, nil
}

// GetUser fetches an account by ID regardless of active state; callers
// apply the policy layer.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	return u, err
}

// GetUserByEmail fetches an active account by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1 AND u.is_active = TRUE`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	return u, err
}

// ActorByID loads the actor context for the session middleware. Only
// active accounts produce an actor.
func (r *Repository) ActorByID(ctx context.Context, userID int64) (authz.Actor, error) {
	row := r.pool.QueryRow(ctx, `SELECT u.id, u.role, u.school_id, u.work_stream_id FROM users u WHERE u.id = $1 AND u.is_active = TRUE`, userID)
	var actor authz.Actor
	var role string
	if err := row.Scan(&actor.ID, &role, &actor.SchoolID, &actor.WorkstreamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Actor{}, httpx.ErrNotFound
		}
		return authz.Actor{}, err
	}
	actor.Role = authz.ParseRole(role)
	return actor, nil
}

// ListUsers returns the page of accounts matching the scope filter,
// plus the unpaginated total.
func (r *Repository) ListUsers(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]User, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users u WHERE ` + filter.Where
	if err := r.pool.QueryRow(ctx, countQuery, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users u WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SchoolWorkstream returns the workstream owning an active school.
func (r *Repository) SchoolWorkstream(ctx context.Context, schoolID int64) (int64, error) {
	var wsID int64
	err := r.pool.QueryRow(ctx, `SELECT work_stream_id FROM schools WHERE id = $1 AND is_active = TRUE`, schoolID).Scan(&wsID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, httpx.ErrNotFound
	}
	return wsID, err
}

// CreateUser inserts the account, validating the school reference in
// the same transaction so a vanished school rolls everything back.
func (r *Repository) CreateUser(ctx context.Context, in CreateUserInput, passwordHash string) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if in.SchoolID != nil {
			var ok bool
			if err := tx.QueryRow(ctx, `SELECT TRUE FROM schools WHERE id = $1 AND is_active = TRUE`, *in.SchoolID).Scan(&ok); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return httpx.ErrNotFound
				}
				return err
			}
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO users (email, full_name, role, school_id, work_stream_id, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
			RETURNING id, email, full_name, role, school_id, work_stream_id, is_active, password_hash, created_at, updated_at`,
			in.Email, in.FullName, in.Role.String(), in.SchoolID, in.WorkstreamID, passwordHash,
		)
		u, err := scanUser(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
			}
			return err
		}
		created = u
		return nil
	})
	return created, err
}

// DeactivateUser soft-deletes the account.
func (r *Repository) DeactivateUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// UpdateProfile changes the mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, fullName string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users u SET full_name = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns, id, fullName)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	return u, err
}
