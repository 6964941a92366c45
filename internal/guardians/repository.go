package guardians

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

// Repository provides PostgreSQL backed persistence for guardian
// profiles and guardian-student links.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// The workstream column resolves through the guardian's school when the
// user row carries no direct workstream, which is how school staff
// create guardian accounts.
const guardianColumns = `g.user_id, u.full_name, u.email, g.phone, u.school_id, COALESCE(u.work_stream_id, s.work_stream_id), u.is_active, g.created_at, g.updated_at`

const guardianFrom = `FROM guardians g
		JOIN users u ON u.id = g.user_id
		LEFT JOIN schools s ON s.id = u.school_id`

func scanGuardian(row pgx.Row) (Guardian, error) {
	var g Guardian
	err := row.Scan(&g.UserID, &g.FullName, &g.Email, &g.Phone, &g.SchoolID, &g.WorkstreamID, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// Get fetches a guardian profile joined with its user row.
func (r *Repository) Get(ctx context.Context, userID int64) (Guardian, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+guardianColumns+`
		`+guardianFrom+`
		WHERE g.user_id = $1`, userID)
	g, err := scanGuardian(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guardian{}, httpx.ErrNotFound
	}
	return g, err
}

// List returns guardian profiles matching the scope filter.
func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Guardian, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+guardianFrom+` WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+guardianColumns+` `+guardianFrom+` WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Guardian
	for rows.Next() {
		g, err := scanGuardian(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpsertProfile creates or updates the phone of a guardian profile.
func (r *Repository) UpsertProfile(ctx context.Context, userID int64, phone string) (Guardian, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var role string
		if err := tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND is_active = TRUE`, userID).Scan(&role); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		if authz.ParseRole(role) != authz.RoleGuardian {
			return fmt.Errorf("%w: user is not a guardian", httpx.ErrValidation)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO guardians (user_id, phone, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE SET phone = EXCLUDED.phone, updated_at = NOW()`,
			userID, phone)
		return err
	})
	if err != nil {
		return Guardian{}, err
	}
	return r.Get(ctx, userID)
}

// Student loads the policy shape of a student account.
func (r *Repository) Student(ctx context.Context, userID int64) (Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx, `
		SELECT id, school_id, work_stream_id FROM users
		WHERE id = $1 AND role = 'student' AND is_active = TRUE`, userID).
		Scan(&s.ID, &s.SchoolID, &s.WorkstreamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, httpx.ErrNotFound
	}
	return s, err
}

const linkColumns = `l.id, l.guardian_user_id, l.student_user_id, l.relationship, l.is_active, l.created_at, l.deactivated_at, u.full_name`

func scanLink(row pgx.Row) (Link, error) {
	var l Link
	err := row.Scan(&l.ID, &l.GuardianUserID, &l.StudentUserID, &l.Relationship, &l.IsActive, &l.CreatedAt, &l.DeactivatedAt, &l.StudentFullName)
	return l, err
}

// GetLink fetches one link by ID.
func (r *Repository) GetLink(ctx context.Context, id int64) (Link, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM guardian_student_links l JOIN users u ON u.id = l.student_user_id
		WHERE l.id = $1`, id)
	l, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Link{}, httpx.ErrNotFound
	}
	return l, err
}

// LinksByGuardian returns the guardian's links, oldest first.
func (r *Repository) LinksByGuardian(ctx context.Context, guardianUserID int64, includeInactive bool) ([]Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM guardian_student_links l JOIN users u ON u.id = l.student_user_id
		WHERE l.guardian_user_id = $1`
	if !includeInactive {
		query += ` AND l.is_active = TRUE`
	}
	query += ` ORDER BY l.created_at ASC, l.id ASC`

	rows, err := r.pool.Query(ctx, query, guardianUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLink inserts a link; the unique (guardian, student) pair maps
// to a duplicate error. A previously deactivated pair is reactivated
// instead of duplicated.
func (r *Repository) CreateLink(ctx context.Context, in CreateLinkInput) (Link, error) {
	var linkID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var existing int64
		var active bool
		err := tx.QueryRow(ctx, `
			SELECT id, is_active FROM guardian_student_links
			WHERE guardian_user_id = $1 AND student_user_id = $2`,
			in.GuardianUserID, in.StudentUserID).Scan(&existing, &active)
		switch {
		case err == nil && active:
			return fmt.Errorf("%w: link already exists", httpx.ErrDuplicate)
		case err == nil:
			// Soft-deleted pair comes back to life with the new
			// relationship type.
			_, err := tx.Exec(ctx, `
				UPDATE guardian_student_links
				SET is_active = TRUE, relationship = $2, deactivated_at = NULL
				WHERE id = $1`, existing, in.Relationship)
			linkID = existing
			return err
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO guardian_student_links (guardian_user_id, student_user_id, relationship, is_active, created_at)
			VALUES ($1, $2, $3, TRUE, NOW())
			RETURNING id`, in.GuardianUserID, in.StudentUserID, in.Relationship).Scan(&linkID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: link already exists", httpx.ErrDuplicate)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Link{}, err
	}
	return r.GetLink(ctx, linkID)
}

// DeactivateLink soft-deletes the link.
func (r *Repository) DeactivateLink(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE guardian_student_links
		SET is_active = FALSE, deactivated_at = NOW()
		WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// FirstActiveLinkSchool implements the guardian scope fallback: the
// school of the student on the guardian's first active link, ordered by
// link creation. Nil without error when the guardian has no links.
func (r *Repository) FirstActiveLinkSchool(ctx context.Context, guardianUserID int64) (*int64, error) {
	var schoolID *int64
	err := r.pool.QueryRow(ctx, `
		SELECT u.school_id
		FROM guardian_student_links l
		JOIN users u ON u.id = l.student_user_id
		WHERE l.guardian_user_id = $1 AND l.is_active = TRUE AND u.is_active = TRUE
		ORDER BY l.created_at ASC, l.id ASC
		LIMIT 1`, guardianUserID).Scan(&schoolID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return schoolID, nil
}

var _ authz.GuardianLinkSource = (*Repository)(nil)
