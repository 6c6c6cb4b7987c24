package identity

import (
	"context"
)

// UserRepository returns ErrUserNotFound for a missing username and
// ErrUserExists when Create hits the unique username constraint.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}
