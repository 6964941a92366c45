package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

type mockUser struct {
	id       int64
	fullName string
	email    string
	role     authz.Role
	schoolID *int64
	wsID     *int64
}

type mockRepository struct {
	users    map[int64]mockUser
	links    map[int64][]int64 // guardian -> linked student ids
	messages map[int64]Message
	schoolWS map[int64]int64 // school -> workstream
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:    map[int64]mockUser{},
		links:    map[int64][]int64{},
		messages: map[int64]Message{},
		schoolWS: map[int64]int64{},
		nextID:   1,
	}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return Message{}, httpx.ErrNotFound
	}
	return msg, nil
}

func (m *mockRepository) Inbox(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.RecipientID == userID {
			out = append(out, msg)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Sent(ctx context.Context, userID int64, limit, offset int) ([]Message, int, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.SenderID == userID {
			out = append(out, msg)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Conversation(ctx context.Context, userID, otherID int64, limit, offset int) ([]Message, int, error) {
	var out []Message
	for _, msg := range m.messages {
		if (msg.SenderID == userID && msg.RecipientID == otherID) || (msg.SenderID == otherID && msg.RecipientID == userID) {
			out = append(out, msg)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, senderID int64, in SendInput) (Message, error) {
	msg := Message{ID: m.nextID, SenderID: senderID, RecipientID: in.RecipientID, Subject: in.Subject, Body: in.Body}
	m.messages[msg.ID] = msg
	m.nextID++
	return msg, nil
}

func (m *mockRepository) MarkRead(ctx context.Context, id int64) error {
	msg, ok := m.messages[id]
	if !ok || msg.IsRead {
		return httpx.ErrNotFound
	}
	msg.IsRead = true
	m.messages[id] = msg
	return nil
}

// workstreamOf resolves a user's workstream directly or via school.
func (m *mockRepository) workstreamOf(u mockUser) *int64 {
	if u.wsID != nil {
		return u.wsID
	}
	if u.schoolID != nil {
		if ws, ok := m.schoolWS[*u.schoolID]; ok {
			return &ws
		}
	}
	return nil
}

func (m *mockRepository) reachable(vis authz.RecipientVisibility, actor authz.Actor, u mockUser) bool {
	if u.id == vis.ExcludeUserID {
		return false
	}
	if vis.Unrestricted {
		return true
	}
	var actorWS *int64
	if vis.ActorScope.WorkstreamID != nil {
		actorWS = vis.ActorScope.WorkstreamID
	} else if vis.ActorScope.SchoolID != nil {
		if ws, ok := m.schoolWS[*vis.ActorScope.SchoolID]; ok {
			actorWS = &ws
		}
	}
	for _, edge := range vis.Edges {
		if len(edge.Roles) > 0 {
			found := false
			for _, role := range edge.Roles {
				if role == u.role {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		switch edge.Scope {
		case authz.EdgeAnyTenant:
			return true
		case authz.EdgeSameWorkstream:
			uws := m.workstreamOf(u)
			if actorWS != nil && uws != nil && *actorWS == *uws {
				return true
			}
		case authz.EdgeSameSchool:
			if vis.ActorScope.SchoolID != nil && u.schoolID != nil && *vis.ActorScope.SchoolID == *u.schoolID {
				return true
			}
		case authz.EdgeLinkedStudents:
			for _, sid := range m.links[actor.ID] {
				if sid == u.id && u.role == authz.RoleStudent {
					return true
				}
			}
		}
	}
	return false
}

func (m *mockRepository) SearchRecipients(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, term string, limit int) ([]Recipient, error) {
	var out []Recipient
	for _, u := range m.users {
		if m.reachable(vis, actor, u) {
			out = append(out, Recipient{ID: u.id, FullName: u.fullName, Email: u.email, Role: u.role.String()})
		}
	}
	return out, nil
}

func (m *mockRepository) CanReach(ctx context.Context, vis authz.RecipientVisibility, actor authz.Actor, recipientID int64) (bool, error) {
	u, ok := m.users[recipientID]
	if !ok {
		return false, nil
	}
	return m.reachable(vis, actor, u), nil
}

func (m *mockRepository) FirstActiveLinkSchool(ctx context.Context, guardianUserID int64) (*int64, error) {
	for _, sid := range m.links[guardianUserID] {
		if u, ok := m.users[sid]; ok {
			return u.schoolID, nil
		}
	}
	return nil, nil
}

type countingNotifier struct {
	count int
}

func (n *countingNotifier) MessageReceived(ctx context.Context, recipientID int64, msg Message) error {
	n.count++
	return nil
}

func ptr[T any](v T) *T { return &v }

func seed() *mockRepository {
	repo := newMockRepository()
	repo.schoolWS[1] = 1
	repo.schoolWS[2] = 1
	repo.users[1] = mockUser{id: 1, fullName: "Ada Admin", email: "ada@edu.local", role: authz.RoleAdmin}
	repo.users[2] = mockUser{id: 2, fullName: "Wing Manager", email: "wing@edu.local", role: authz.RoleManagerWorkstream, wsID: ptr(int64(1))}
	repo.users[3] = mockUser{id: 3, fullName: "Sam Principal", email: "sam@edu.local", role: authz.RoleManagerSchool, schoolID: ptr(int64(1))}
	repo.users[4] = mockUser{id: 4, fullName: "Tess Teacher", email: "tess@edu.local", role: authz.RoleTeacher, schoolID: ptr(int64(1))}
	repo.users[5] = mockUser{id: 5, fullName: "Stu Dent", email: "stu@edu.local", role: authz.RoleStudent, schoolID: ptr(int64(1))}
	repo.users[6] = mockUser{id: 6, fullName: "Gail Guardian", email: "gail@edu.local", role: authz.RoleGuardian}
	repo.users[7] = mockUser{id: 7, fullName: "Far Principal", email: "far@edu.local", role: authz.RoleManagerSchool, schoolID: ptr(int64(2))}
	repo.links[6] = []int64{5}
	return repo
}

func newService(repo *mockRepository) (*Service, *countingNotifier) {
	notifier := &countingNotifier{}
	return NewService(repo, authz.NewResolver(repo), notifier), notifier
}

func TestSendRequiresReachableRecipient(t *testing.T) {
	repo := seed()
	svc, notifier := newService(repo)

	// Teacher reaches anyone in their school.
	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	msg, err := svc.Send(context.Background(), teacher, SendInput{RecipientID: 5, Subject: "Homework", Body: "See attachment."})
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.RecipientID)
	assert.Equal(t, 1, notifier.count)

	// The principal of another school is out of reach: not found, not
	// forbidden.
	_, err = svc.Send(context.Background(), teacher, SendInput{RecipientID: 7, Subject: "Hi", Body: "Hello."})
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestSendSelfExclusion(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	_, err := svc.Send(context.Background(), admin, SendInput{RecipientID: 1, Subject: "Note", Body: "To self."})
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "recipient_id")
}

func TestSendValidation(t *testing.T) {
	repo := seed()
	svc, notifier := newService(repo)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	_, err := svc.Send(context.Background(), admin, SendInput{RecipientID: 4, Subject: "  ", Body: ""})
	var fieldErrs shared.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs, "subject")
	assert.Contains(t, fieldErrs, "body")
	assert.Zero(t, notifier.count)
}

func TestGuardianReachesLinkedStudentsOnly(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	// Guardian 6 has no direct school; scope resolves through the
	// linked student in school 1.
	guardian := authz.Actor{ID: 6, Role: authz.RoleGuardian}

	_, err := svc.Send(context.Background(), guardian, SendInput{RecipientID: 5, Subject: "Dinner", Body: "At six."})
	require.NoError(t, err)

	// School staff of the linked school are reachable too.
	_, err = svc.Send(context.Background(), guardian, SendInput{RecipientID: 4, Subject: "Question", Body: "About homework."})
	require.NoError(t, err)

	// Another school's staff are not.
	_, err = svc.Send(context.Background(), guardian, SendInput{RecipientID: 7, Subject: "Hi", Body: "Hello."})
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestStudentCannotMessageGuardian(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	student := authz.Actor{ID: 5, Role: authz.RoleStudent, SchoolID: ptr(int64(1))}
	_, err := svc.Send(context.Background(), student, SendInput{RecipientID: 6, Subject: "Hi", Body: "Hello."})
	assert.ErrorIs(t, err, authz.ErrNotFound)

	// But staff of their school are reachable.
	_, err = svc.Send(context.Background(), student, SendInput{RecipientID: 4, Subject: "Hi", Body: "Hello."})
	require.NoError(t, err)
}

func TestSearchRecipientsEmptyTermYieldsNothing(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}
	recipients, err := svc.SearchRecipients(context.Background(), admin, "   ")
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestSearchRecipientsStartsWithNotContains(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	admin := authz.Actor{ID: 1, Role: authz.RoleAdmin}

	recipients, err := svc.SearchRecipients(context.Background(), admin, "tess")
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, int64(4), recipients[0].ID)

	// "ess" appears inside the name but is not a prefix of name, email
	// or role.
	recipients, err = svc.SearchRecipients(context.Background(), admin, "ess")
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestMarkReadRecipientOnly(t *testing.T) {
	repo := seed()
	svc, _ := newService(repo)

	teacher := authz.Actor{ID: 4, Role: authz.RoleTeacher, SchoolID: ptr(int64(1))}
	msg, err := svc.Send(context.Background(), teacher, SendInput{RecipientID: 5, Subject: "Homework", Body: "Due Friday."})
	require.NoError(t, err)

	// The sender cannot mark their own message read.
	err = svc.MarkRead(context.Background(), teacher, msg.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	student := authz.Actor{ID: 5, Role: authz.RoleStudent, SchoolID: ptr(int64(1))}
	require.NoError(t, svc.MarkRead(context.Background(), student, msg.ID))
	assert.True(t, repo.messages[msg.ID].IsRead)

	// Marking twice is a no-op, not an error.
	require.NoError(t, svc.MarkRead(context.Background(), student, msg.ID))
}
