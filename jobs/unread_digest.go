package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/edutrack/edutrack/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// UnreadDigestJob emails users who accumulated unread messages during
// the day. It runs from the cron scheduler.
type UnreadDigestJob struct {
	pool    *pgxpool.Pool
	client  *Client
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewUnreadDigestJob constructs the digest job.
func NewUnreadDigestJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger) *UnreadDigestJob {
	return &UnreadDigestJob{pool: pool, client: client, logger: logger, metrics: defaultJobMetrics}
}

// Handle processes TaskTypeUnreadDigest tasks.
func (j *UnreadDigestJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskTypeUnreadDigest)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.pool.Query(ctx, `
		SELECT u.id, u.email, COUNT(*) AS unread
		FROM messages m
		JOIN users u ON u.id = m.recipient_id
		WHERE m.is_read = FALSE
		  AND m.created_at >= NOW() - INTERVAL '1 day'
		  AND u.is_active = TRUE
		GROUP BY u.id, u.email`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type entry struct {
		userID int64
		email  string
		unread int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.userID, &e.email, &e.unread); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		err := j.client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      e.email,
			Subject: "You have unread messages",
			Body:    "Unread messages are waiting for you. Log in to read them.",
		})
		if err != nil {
			j.logger.Warn("digest enqueue", slog.Int64("user_id", e.userID), slog.Any("error", err))
		}
	}
	j.logger.Info("unread digest processed", slog.Int("recipients", len(entries)))
	return nil
}
