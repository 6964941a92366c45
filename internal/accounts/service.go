package accounts

import (
	"context"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]User, int, error)
	CreateUser(ctx context.Context, in CreateUserInput, passwordHash string) (User, error)
	DeactivateUser(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, fullName string) (User, error)
	SchoolWorkstream(ctx context.Context, schoolID int64) (int64, error)
}

// Notifier receives account lifecycle events. May be nil.
type Notifier interface {
	AccountCreated(ctx context.Context, userID int64, fullName string) error
}

// Service handles account business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
	notifier Notifier
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver, notifier Notifier) *Service {
	return &Service{repo: repo, resolver: resolver, notifier: notifier}
}

// List returns the accounts visible to the actor, scope first, then
// caller filters.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters authz.ListFilters, page shared.Pagination, includeInactive bool) ([]User, shared.Pagination, error) {
	filter, err := s.resolver.ScopePredicate(ctx, actor, authz.EntityUsers, filters, includeInactive)
	if err != nil {
		return nil, page, err
	}
	users, total, err := s.repo.ListUsers(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, err
	}
	return users, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get fetches a single account the actor may see. Cross-tenant probes
// get a not-found, not a forbidden, so existence does not leak.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if actor.ID == user.ID {
		return user, nil
	}
	if !authz.CanAccessUser(actor, user.Target()) {
		return User{}, authz.ErrNotFound
	}
	return user, nil
}

// Create registers a new account. The creator's role must be allowed to
// create the target role, and the new account must land inside the
// creator's own scope.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateUserInput) (User, error) {
	if !authz.CanCreateRole(actor.Role, in.Role) {
		return User{}, authz.ErrDenied
	}

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validateCreate(in); err != nil {
		return User{}, err
	}

	if err := s.checkCreateScope(ctx, actor, &in); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, in, string(hash))
	if err != nil {
		return User{}, err
	}
	if s.notifier != nil {
		// Welcome notification is best effort; the account exists either way.
		_ = s.notifier.AccountCreated(ctx, user.ID, user.FullName)
	}
	return user, nil
}

func (s *Service) validateCreate(in CreateUserInput) error {
	errs := shared.FieldErrors{}
	if in.Email == "" {
		errs.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		errs.Add("email", "invalid email address")
	}
	if in.FullName == "" {
		errs.Add("full_name", "full name is required")
	}
	if len(in.Password) < 8 {
		errs.Add("password", "password must be at least 8 characters")
	}
	switch in.Role {
	case authz.RoleGuest:
		errs.Add("role", "unknown role")
	case authz.RoleManagerWorkstream:
		if in.WorkstreamID == nil {
			errs.Add("work_stream_id", "workstream is required for this role")
		}
	case authz.RoleAdmin:
		// global, no tenant fields
	default:
		if in.SchoolID == nil {
			errs.Add("school_id", "school is required for this role")
		}
	}
	return errs.OrNil()
}

// checkCreateScope pins the new account inside the creator's tenancy.
func (s *Service) checkCreateScope(ctx context.Context, actor authz.Actor, in *CreateUserInput) error {
	switch actor.Role {
	case authz.RoleAdmin:
		return nil
	case authz.RoleManagerWorkstream:
		if actor.WorkstreamID == nil {
			return authz.ErrConfiguration
		}
		if in.Role == authz.RoleManagerSchool || in.SchoolID != nil {
			if in.SchoolID == nil {
				return shared.FieldErrors{"school_id": "school is required"}
			}
			wsID, err := s.repo.SchoolWorkstream(ctx, *in.SchoolID)
			if err != nil {
				return err
			}
			if wsID != *actor.WorkstreamID {
				return authz.ErrNotFound
			}
		}
		if in.WorkstreamID != nil && *in.WorkstreamID != *actor.WorkstreamID {
			return authz.ErrDenied
		}
		return nil
	default:
		// School staff create only inside their own school.
		if actor.SchoolID == nil {
			return authz.ErrConfiguration
		}
		if in.SchoolID == nil || *in.SchoolID != *actor.SchoolID {
			return authz.ErrDenied
		}
		return nil
	}
}

// Deactivate soft-deletes an account the actor may see. Self
// deactivation is not allowed.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, id int64) error {
	if actor.ID == id {
		return authz.ErrDenied
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanAccessUser(actor, user.Target()) {
		return authz.ErrNotFound
	}
	// Visibility is not management: staff below manager level see
	// students but do not deactivate them.
	switch actor.Role {
	case authz.RoleAdmin, authz.RoleManagerWorkstream, authz.RoleManagerSchool:
	default:
		return authz.ErrDenied
	}
	return s.repo.DeactivateUser(ctx, id)
}

// UpdateProfile changes the caller's own profile.
func (s *Service) UpdateProfile(ctx context.Context, actor authz.Actor, fullName string) (User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, shared.FieldErrors{"full_name": "full name is required"}
	}
	return s.repo.UpdateProfile(ctx, actor.ID, fullName)
}

var _ RepositoryPort = (*Repository)(nil)
