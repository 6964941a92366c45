package guardians

import (
	"context"
	"strings"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

var relationships = map[string]bool{
	"father":      true,
	"mother":      true,
	"grandparent": true,
	"sibling":     true,
	"other":       true,
}

// RepositoryPort defines data access methods for guardians and links.
type RepositoryPort interface {
	Get(ctx context.Context, userID int64) (Guardian, error)
	List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Guardian, int, error)
	UpsertProfile(ctx context.Context, userID int64, phone string) (Guardian, error)
	Student(ctx context.Context, userID int64) (Student, error)
	GetLink(ctx context.Context, id int64) (Link, error)
	LinksByGuardian(ctx context.Context, guardianUserID int64, includeInactive bool) ([]Link, error)
	CreateLink(ctx context.Context, in CreateLinkInput) (Link, error)
	DeactivateLink(ctx context.Context, id int64) error
}

// Service handles guardian business rules.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the guardian profiles inside the actor's scope.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]Guardian, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityGuardians, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches a guardian profile the actor may read.
func (s *Service) Get(ctx context.Context, actor authz.Actor, userID int64) (Guardian, error) {
	guardian, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Guardian{}, err
	}
	if !authz.CanAccessGuardian(actor, guardian.Profile()) {
		return Guardian{}, authz.ErrNotFound
	}
	return guardian, nil
}

// UpsertProfile creates or updates a guardian profile. Staff with the
// management gate only; the per-instance scope still applies after the
// row exists.
func (s *Service) UpsertProfile(ctx context.Context, actor authz.Actor, userID int64, phone string) (Guardian, error) {
	if !authz.CanManageGuardians(actor) {
		return Guardian{}, authz.ErrDenied
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Guardian{}, shared.FieldErrors{"phone": "phone is required"}
	}
	guardian, err := s.repo.UpsertProfile(ctx, userID, phone)
	if err != nil {
		return Guardian{}, err
	}
	if !authz.CanAccessGuardian(actor, guardian.Profile()) {
		return Guardian{}, authz.ErrNotFound
	}
	return guardian, nil
}

// Links lists a guardian's student links. Both sides of each link are
// policy checked; links whose student the actor may not see are
// filtered out rather than failing the whole listing.
func (s *Service) Links(ctx context.Context, actor authz.Actor, guardianUserID int64) ([]Link, error) {
	guardian, err := s.repo.Get(ctx, guardianUserID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessGuardian(actor, guardian.Profile()) {
		return nil, authz.ErrNotFound
	}

	links, err := s.repo.LinksByGuardian(ctx, guardianUserID, false)
	if err != nil {
		return nil, err
	}

	visible := make([]Link, 0, len(links))
	for _, link := range links {
		student, err := s.repo.Student(ctx, link.StudentUserID)
		if err != nil {
			continue
		}
		if authz.CanAccessGuardianStudentLink(actor, guardian.Profile(), student.Target()) {
			visible = append(visible, link)
		}
	}
	return visible, nil
}

// CreateLink connects a guardian to a student. The actor needs the
// management gate plus visibility of both endpoints.
func (s *Service) CreateLink(ctx context.Context, actor authz.Actor, in CreateLinkInput) (Link, error) {
	if !authz.CanManageGuardians(actor) {
		return Link{}, authz.ErrDenied
	}

	in.Relationship = strings.ToLower(strings.TrimSpace(in.Relationship))
	if !relationships[in.Relationship] {
		return Link{}, shared.FieldErrors{"relationship": "unknown relationship type"}
	}

	guardian, err := s.repo.Get(ctx, in.GuardianUserID)
	if err != nil {
		return Link{}, err
	}
	if !authz.CanAccessGuardian(actor, guardian.Profile()) {
		return Link{}, authz.ErrNotFound
	}
	student, err := s.repo.Student(ctx, in.StudentUserID)
	if err != nil {
		return Link{}, err
	}
	if !authz.CanAccessGuardianStudentLink(actor, guardian.Profile(), student.Target()) {
		return Link{}, authz.ErrNotFound
	}
	return s.repo.CreateLink(ctx, in)
}

// DeactivateLink soft-deletes a link the actor may see and manage.
func (s *Service) DeactivateLink(ctx context.Context, actor authz.Actor, id int64) error {
	link, err := s.repo.GetLink(ctx, id)
	if err != nil {
		return err
	}
	guardian, err := s.repo.Get(ctx, link.GuardianUserID)
	if err != nil {
		return err
	}
	student, err := s.repo.Student(ctx, link.StudentUserID)
	if err != nil {
		return err
	}
	if !authz.CanAccessGuardianStudentLink(actor, guardian.Profile(), student.Target()) {
		return authz.ErrNotFound
	}
	if !authz.CanManageGuardians(actor) {
		return authz.ErrDenied
	}
	return s.repo.DeactivateLink(ctx, id)
}

var _ RepositoryPort = (*Repository)(nil)
