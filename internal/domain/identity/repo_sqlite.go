package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db"
)

type UserRepoSQLite struct {
	db *sql.DB
}

func NewUserRepoSQLite(conn *sql.DB) *UserRepoSQLite {
	return &UserRepoSQLite{db: conn}
}

func (r *UserRepoSQLite) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FullName, u.Role, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepoSQLite) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
