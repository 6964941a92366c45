package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/messaging"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
	"github.com/edutrack/edutrack/jobs"
)

type mockRepository struct {
	notifications map[int64]Notification
	emails        map[int64]string
	nextID        int64
	emailErr      error
}

func newMockRepository() *mockRepository {
	return &mockRepository{notifications: map[int64]Notification{}, emails: map[int64]string{}}
}

func (m *mockRepository) Create(ctx context.Context, userID int64, kind string, payload json.RawMessage) (Notification, error) {
	m.nextID++
	n := Notification{ID: m.nextID, UserID: userID, Kind: kind, Payload: payload}
	m.notifications[n.ID] = n
	return n, nil
}

func (m *mockRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	var out []Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *mockRepository) MarkRead(ctx context.Context, userID, id int64) error {
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return httpx.ErrNotFound
	}
	n.IsRead = true
	m.notifications[id] = n
	return nil
}

func (m *mockRepository) UserEmail(ctx context.Context, userID int64) (string, string, error) {
	if m.emailErr != nil {
		return "", "", m.emailErr
	}
	email, ok := m.emails[userID]
	if !ok {
		return "", "", httpx.ErrNotFound
	}
	return email, "Some User", nil
}

type captureEnqueuer struct {
	sent []jobs.SendEmailPayload
	err  error
}

func (c *captureEnqueuer) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, payload)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyRecordsAndEnqueuesEmail(t *testing.T) {
	repo := newMockRepository()
	repo.emails[4] = "parent@example.com"
	enq := &captureEnqueuer{}
	svc := NewService(repo, enq, testLogger())

	err := svc.Notify(context.Background(), 4, KindAccountCreated, "Welcome", "Your account is ready.", map[string]any{"user_id": 4})
	require.NoError(t, err)

	require.Len(t, repo.notifications, 1)
	require.Len(t, enq.sent, 1)
	assert.Equal(t, "parent@example.com", enq.sent[0].To)
	assert.Equal(t, "Welcome", enq.sent[0].Subject)
}

func TestNotifyWithoutEnqueuerStillRecords(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, testLogger())

	err := svc.Notify(context.Background(), 4, KindAccountCreated, "Welcome", "body", nil)
	require.NoError(t, err)
	assert.Len(t, repo.notifications, 1)
}

func TestNotifySwallowsEmailLookupFailure(t *testing.T) {
	repo := newMockRepository()
	repo.emailErr = errors.New("connection reset")
	enq := &captureEnqueuer{}
	svc := NewService(repo, enq, testLogger())

	err := svc.Notify(context.Background(), 4, KindMessageReceived, "New message", "body", nil)
	require.NoError(t, err)

	assert.Len(t, repo.notifications, 1, "record must exist even when email lookup fails")
	assert.Empty(t, enq.sent)
}

func TestNotifySwallowsEnqueueFailure(t *testing.T) {
	repo := newMockRepository()
	repo.emails[4] = "parent@example.com"
	enq := &captureEnqueuer{err: errors.New("queue unavailable")}
	svc := NewService(repo, enq, testLogger())

	err := svc.Notify(context.Background(), 4, KindMessageReceived, "New message", "body", nil)
	require.NoError(t, err)
	assert.Len(t, repo.notifications, 1)
}

func TestMessageReceivedBuildsPayload(t *testing.T) {
	repo := newMockRepository()
	repo.emails[9] = "teacher@example.com"
	enq := &captureEnqueuer{}
	svc := NewService(repo, enq, testLogger())

	msg := messaging.Message{ID: 31, SenderID: 2, RecipientID: 9, Subject: "Field trip"}
	require.NoError(t, svc.MessageReceived(context.Background(), 9, msg))

	require.Len(t, repo.notifications, 1)
	var n Notification
	for _, v := range repo.notifications {
		n = v
	}
	assert.Equal(t, KindMessageReceived, n.Kind)
	assert.Equal(t, int64(9), n.UserID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(n.Payload, &payload))
	assert.EqualValues(t, 31, payload["message_id"])
	assert.Equal(t, "Field trip", payload["subject"])

	require.Len(t, enq.sent, 1)
	assert.Equal(t, "New message: Field trip", enq.sent[0].Subject)
}

func TestListAndMarkReadAreActorScoped(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, 4, KindMessageReceived, "s", "b", nil))
	require.NoError(t, svc.Notify(ctx, 5, KindMessageReceived, "s", "b", nil))

	actor := authz.Actor{ID: 4, Role: authz.RoleStudent}
	items, page, err := svc.List(ctx, actor, false, shared.NewPagination(1, 20, 0))
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.Total)

	// A notification belonging to another user is not acknowledgeable.
	err = svc.MarkRead(ctx, actor, 2)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	require.NoError(t, svc.MarkRead(ctx, actor, 1))
	items, _, err = svc.List(ctx, actor, true, shared.NewPagination(1, 20, 0))
	require.NoError(t, err)
	assert.Empty(t, items)
}
