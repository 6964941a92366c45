package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, user_id, kind, payload, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.IsRead, &n.CreatedAt)
	return n, err
}

// Create inserts a notification.
func (r *Repository) Create(ctx context.Context, userID int64, kind string, payload json.RawMessage) (Notification, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, payload, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING `+notificationColumns, userID, kind, payload)
	return scanNotification(row)
}

// ListByUser returns the user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	cond := `user_id = $1`
	if unreadOnly {
		cond += ` AND is_read = FALSE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+cond, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkRead stamps one of the user's notifications as read. The user
// condition keeps one user from acknowledging another's notifications.
func (r *Repository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_read = FALSE`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// UserEmail resolves the active user's address for the email fan-out.
func (r *Repository) UserEmail(ctx context.Context, userID int64) (string, string, error) {
	var email, fullName string
	err := r.pool.QueryRow(ctx, `SELECT email, full_name FROM users WHERE id = $1 AND is_active = TRUE`, userID).Scan(&email, &fullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", httpx.ErrNotFound
	}
	return email, fullName, err
}
