package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medassist/medassist/internal/platform/db"
)

type UserRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepoPG(pool *pgxpool.Pool) *UserRepoPG {
	return &UserRepoPG{pool: pool}
}

const userCols = `id, username, full_name, role, created_at`

func (r *UserRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.FullName, u.Role, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
