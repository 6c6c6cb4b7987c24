package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/rs/zerolog"
)

// Service maps verified identities onto local users.
type Service struct {
	users  UserRepository
	logger zerolog.Logger
}

func NewService(users UserRepository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// Register creates the local user for a verified identity. It is idempotent:
// an existing user is returned unchanged with created=false.
func (s *Service) Register(ctx context.Context, id auth.Identity) (*User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" || email == GuestUsername {
		return nil, false, ErrEmailRequired
	}

	name := id.Name
	if name == "" {
		name = "User"
	}
	role := RolePatient
	if id.HasRole(RoleAdmin) {
		role = RoleAdmin
	}

	return s.getOrCreate(ctx, &User{Username: email, FullName: name, Role: role})
}

// Resolve returns the registered user for a verified identity.
func (s *Service) Resolve(ctx context.Context, id auth.Identity) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.users.GetByUsername(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrNotRegistered
	}
	return u, err
}

// ResolveOptional falls back to the guest user when the caller carries no
// usable identity or is not registered.
func (s *Service) ResolveOptional(ctx context.Context, id auth.Identity, ok bool) (*User, error) {
	if ok {
		u, err := s.Resolve(ctx, id)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ErrNotRegistered) && !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}
	return s.Guest(ctx)
}

// Guest returns the sentinel guest user, creating it on first use.
func (s *Service) Guest(ctx context.Context) (*User, error) {
	u, _, err := s.getOrCreate(ctx, &User{Username: GuestUsername, FullName: GuestFullName, Role: RolePatient})
	return u, err
}

// getOrCreate tolerates concurrent first use: the loser of the insert race
// re-reads the winner's row.
func (s *Service) getOrCreate(ctx context.Context, want *User) (*User, bool, error) {
	u, err := s.users.GetByUsername(ctx, want.Username)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	err = s.users.Create(ctx, want)
	if errors.Is(err, ErrUserExists) {
		u, err = s.users.GetByUsername(ctx, want.Username)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	s.logger.Info().Str("user_id", want.ID.String()).Str("role", want.Role).Msg("user created")
	return want, true, nil
}
