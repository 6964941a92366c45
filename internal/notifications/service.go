package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/edutrack/edutrack/internal/accounts"
	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/messaging"
	"github.com/edutrack/edutrack/internal/shared"
	"github.com/edutrack/edutrack/jobs"
)

// RepositoryPort defines data access methods for notifications.
type RepositoryPort interface {
	Create(ctx context.Context, userID int64, kind string, payload json.RawMessage) (Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	UserEmail(ctx context.Context, userID int64) (string, string, error)
}

// Enqueuer submits email tasks to the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Service records notifications and fans them out to email via the
// worker queue.
type Service struct {
	repo     RepositoryPort
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewService builds a Service instance. enqueuer may be nil; records
// are still written without the email fan-out.
func NewService(repo RepositoryPort, enqueuer Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// List returns the actor's own notifications.
func (s *Service) List(ctx context.Context, actor authz.Actor, unreadOnly bool, page shared.Pagination) ([]Notification, shared.Pagination, error) {
	items, total, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// MarkRead acknowledges one of the actor's notifications.
func (s *Service) MarkRead(ctx context.Context, actor authz.Actor, id int64) error {
	return s.repo.MarkRead(ctx, actor.ID, id)
}

// Notify records a notification for a user and enqueues the email.
func (s *Service) Notify(ctx context.Context, userID int64, kind, subject, body string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := s.repo.Create(ctx, userID, kind, raw); err != nil {
		return err
	}
	if s.enqueuer == nil {
		return nil
	}
	email, _, err := s.repo.UserEmail(ctx, userID)
	if err != nil {
		s.logger.Warn("notification email lookup", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	if err := s.enqueuer.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: email, Subject: subject, Body: body}); err != nil {
		// The record exists; the queue hiccup only delays the email.
		s.logger.Warn("enqueue notification email", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return nil
}

// AccountCreated implements the accounts notifier hook.
func (s *Service) AccountCreated(ctx context.Context, userID int64, fullName string) error {
	return s.Notify(ctx, userID, KindAccountCreated,
		"Welcome to eduTrack",
		fmt.Sprintf("Hello %s, your account is ready. Log in to get started.", fullName),
		map[string]any{"user_id": userID},
	)
}

// MessageReceived implements the messaging notifier hook.
func (s *Service) MessageReceived(ctx context.Context, recipientID int64, msg messaging.Message) error {
	return s.Notify(ctx, recipientID, KindMessageReceived,
		fmt.Sprintf("New message: %s", msg.Subject),
		"You have received a new message. Log in to read it.",
		map[string]any{"message_id": msg.ID, "sender_id": msg.SenderID, "subject": msg.Subject},
	)
}

var _ RepositoryPort = (*Repository)(nil)
var _ messaging.Notifier = (*Service)(nil)
var _ accounts.Notifier = (*Service)(nil)
