package messaging

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for messaging.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Message, error)
	Inbox(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error)
	Sent(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error)
	Conversation(ctx context.Context, userID, otherID int64, limit, offset int) ([]Message, int, error)
	Create(ctx context.Context, senderID int64, in SendInput) (Message, error)
	MarkRead(ctx context.Context, id int64) error
	SearchRecipients(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, term string, limit int) ([]Recipient, error)
	CanReach(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, recipientID int64) (bool, error)
}

// Notifier is told about delivered messages; the notifications module
// fans them out to email.
type Notifier interface {
	MessageReceived(ctx context.Context, recipientID int64, msg Message) error
}

// Service handles messaging business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
	notifier Notifier
}

// NewService builds a Service instance. notifier may be nil.
func NewService(repo RepositoryPort, resolver *authz.Resolver, notifier Notifier) *Service {
	return &Service{repo: repo, resolver: resolver, notifier: notifier}
}

// Send delivers a message. The recipient must be discoverable through
// the sender's visibility edges; an unreachable recipient reads as not
// found so existence does not leak.
func (s *Service) Send(ctx context.Context, actor authz.Actor, in SendInput) (Message, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	errs := shared.FieldErrors{}
	if in.Subject == "" {
		errs.Add("subject", "subject is required")
	}
	if in.Body == "" {
		errs.Add("body", "body is required")
	}
	if in.RecipientID == actor.ID {
		errs.Add("recipient_id", "cannot message yourself")
	}
	if err := errs.OrNil(); err != nil {
		return Message{}, err
	}

	vis, err := s.resolver.RecipientVisibility(ctx, actor)
	if err != nil {
		return Message{}, err
	}
	reachable, err := s.repo.CanReach(ctx, vis, actor, in.RecipientID)
	if err != nil {
		return Message{}, err
	}
	if !reachable {
		return Message{}, authz.ErrNotFound
	}

	msg, err := s.repo.Create(ctx, actor.ID, in)
	if err != nil {
		return Message{}, err
	}
	if s.notifier != nil {
		// Delivery already happened; notification failures are not
		// surfaced to the sender.
		_ = s.notifier.MessageReceived(ctx, in.RecipientID, msg)
	}
	return msg, nil
}

// Inbox lists messages received by the actor.
func (s *Service) Inbox(ctx context.Context, actor authz.Actor, page shared.Pagination) ([]Message, shared.Pagination, error) {
	items, total, err := s.repo.Inbox(ctx, actor.ID, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Sent lists messages sent by the actor.
func (s *Service) Sent(ctx context.Context, actor authz.Actor, page shared.Pagination) ([]Message, shared.Pagination, error) {
	items, total, err := s.repo.Sent(ctx, actor.ID, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Conversation lists both directions of traffic between the actor and
// another user.
func (s *Service) Conversation(ctx context.Context, actor authz.Actor, otherID int64, page shared.Pagination) ([]Message, shared.Pagination, error) {
	items, total, err := s.repo.Conversation(ctx, actor.ID, otherID, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// MarkRead stamps a message read. Only the recipient may do this.
func (s *Service) MarkRead(ctx context.Context, actor authz.Actor, messageID int64) error {
	msg, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.RecipientID != actor.ID {
		return authz.ErrNotFound
	}
	if msg.IsRead {
		return nil
	}
	return s.repo.MarkRead(ctx, messageID)
}

// SearchRecipients finds users the actor may message whose name, email
// or role starts with the term. An empty term returns nothing.
func (s *Service) SearchRecipients(ctx context.Context, actor authz.Actor, term string) ([]Recipient, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Recipient{}, nil
	}

	vis, err := s.resolver.RecipientVisibility(ctx, actor)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.SearchRecipients(ctx, vis, actor, term, vis.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]Recipient, 0, len(candidates))
	for _, rec := range candidates {
		if !authz.MatchesRecipientTerm(term, rec.FullName, rec.Email, authz.ParseRole(rec.Role)) {
			continue
		}
		out = append(out, rec)
		if len(out) >= vis.Limit {
			break
		}
	}
	return out, nil
}

var _ RepositoryPort = (*Repository)(nil)
