package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for messages and
// recipient discovery.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, sender_id, recipient_id, subject, body, is_read, read_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.IsRead, &m.ReadAt, &m.CreatedAt)
	return m, err
}

// Get fetches one message.
func (r *Repository) Get(ctx context.Context, id int64) (Message, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, httpx.ErrNotFound
	}
	return m, err
}

// Inbox returns messages received by the user, newest first.
func (r *Repository) Inbox(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error) {
	return r.listMessages(ctx, `recipient_id = $1`, userID, limit, offset)
}

// Sent returns messages sent by the user, newest first.
func (r *Repository) Sent(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error) {
	return r.listMessages(ctx, `sender_id = $1`, userID, limit, offset)
}

func (r *Repository) listMessages(ctx context.Context, cond string, userID int64, limit, offset int) ([]Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE `+cond, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Conversation returns both directions of traffic between two users,
// newest first.
func (r *Repository) Conversation(ctx context.Context, userID, otherID int64, limit, offset int) ([]Message, int, error) {
	const cond = `(sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE `+cond, userID, otherID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		userID, otherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a message.
func (r *Repository) Create(ctx context.Context, senderID int64, in SendInput) (Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, subject, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING `+messageColumns,
		senderID, in.RecipientID, in.Subject, in.Body)
	return scanMessage(row)
}

// MarkRead stamps the message as read.
func (r *Repository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE messages SET is_read = TRUE, read_at = NOW() WHERE id = $1 AND is_read = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// recipientPredicate renders the visibility edges as a SQL predicate
// over users u joined with their school s. Placeholders continue from
// the supplied args slice.
func recipientPredicate(vis authz.RecipientVisibility, actor authz.Actor, args *[]any) string {
	if vis.Unrestricted {
		return "TRUE"
	}
	if len(vis.Edges) == 0 {
		return "FALSE"
	}

	// The actor's workstream, directly or through their school.
	var wsCond func(col string) string
	switch {
	case vis.ActorScope.WorkstreamID != nil:
		ws := *vis.ActorScope.WorkstreamID
		wsCond = func(col string) string {
			*args = append(*args, ws)
			return fmt.Sprintf("%s = $%d", col, len(*args))
		}
	case vis.ActorScope.SchoolID != nil:
		school := *vis.ActorScope.SchoolID
		wsCond = func(col string) string {
			*args = append(*args, school)
			return fmt.Sprintf("%s = (SELECT work_stream_id FROM schools WHERE id = $%d)", col, len(*args))
		}
	default:
		wsCond = func(string) string { return "FALSE" }
	}

	branches := make([]string, 0, len(vis.Edges))
	for _, edge := range vis.Edges {
		conds := []string{}
		if len(edge.Roles) > 0 {
			names := make([]string, 0, len(edge.Roles))
			for _, role := range edge.Roles {
				*args = append(*args, role.String())
				names = append(names, fmt.Sprintf("$%d", len(*args)))
			}
			conds = append(conds, fmt.Sprintf("u.role IN (%s)", strings.Join(names, ", ")))
		}

		switch edge.Scope {
		case authz.EdgeAnyTenant:
			// No tenancy condition.
		case authz.EdgeSameWorkstream:
			conds = append(conds, wsCond("COALESCE(u.work_stream_id, s.work_stream_id)"))
		case authz.EdgeSameSchool:
			if vis.ActorScope.SchoolID == nil {
				conds = append(conds, "FALSE")
			} else {
				*args = append(*args, *vis.ActorScope.SchoolID)
				conds = append(conds, fmt.Sprintf("u.school_id = $%d", len(*args)))
			}
		case authz.EdgeLinkedStudents:
			*args = append(*args, actor.ID)
			conds = append(conds, fmt.Sprintf(`u.role = 'student' AND EXISTS (
				SELECT 1 FROM guardian_student_links l
				WHERE l.guardian_user_id = $%d AND l.student_user_id = u.id AND l.is_active = TRUE
			)`, len(*args)))
		}

		if len(conds) == 0 {
			conds = append(conds, "TRUE")
		}
		branches = append(branches, "("+strings.Join(conds, " AND ")+")")
	}
	return "(" + strings.Join(branches, " OR ") + ")"
}

// SearchRecipients returns candidate recipients reachable through the
// visibility edges whose name, email or role starts with the term. The
// service re-checks the match and applies the cap.
func (r *Repository) SearchRecipients(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, term string, limit int) ([]Recipient, error) {
	args := []any{vis.ExcludeUserID}
	predicate := recipientPredicate(vis, actor, &args)

	args = append(args, term+"%")
	termArg := len(args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT u.id, u.full_name, u.email, u.role
		FROM users u
		LEFT JOIN schools s ON s.id = u.school_id
		WHERE u.is_active = TRUE
		  AND u.id <> $1
		  AND %s
		  AND (u.full_name ILIKE $%d OR u.email ILIKE $%d OR u.role ILIKE $%d)
		ORDER BY u.full_name ASC, u.id ASC
		LIMIT $%d`, predicate, termArg, termArg, termArg, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.ID, &rec.FullName, &rec.Email, &rec.Role); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CanReach reports whether the recipient is discoverable through the
// visibility edges. Send uses the same predicate as search, so nobody
// can message a user they could not find.
func (r *Repository) CanReach(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, recipientID int64) (bool, error) {
	if recipientID == vis.ExcludeUserID {
		return false, nil
	}
	args := []any{vis.ExcludeUserID}
	predicate := recipientPredicate(vis, actor, &args)
	args = append(args, recipientID)

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM users u
			LEFT JOIN schools s ON s.id = u.school_id
			WHERE u.is_active = TRUE AND u.id <> $1 AND u.id = $%d AND %s
		)`, len(args), predicate)

	var ok bool
	err := r.pool.QueryRow(ctx, query, args...).Scan(&ok)
	return ok, err
}
