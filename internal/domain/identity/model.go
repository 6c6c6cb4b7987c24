package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleAdmin   = "admin"

	// The guest sentinel owns analyses submitted without a resolvable identity.
	GuestUsername = "guest"
	GuestFullName = "Guest User"
)

var (
	ErrUnauthenticated = errors.New("invalid authentication credentials")
	ErrNotRegistered   = errors.New("user not registered, please sign up first")
	ErrEmailRequired   = errors.New("token missing email")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
)

// User is the local account an identity-provider subject maps to. Username
// holds the verified email.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsGuest() bool {
	return u.Username == GuestUsername
}
