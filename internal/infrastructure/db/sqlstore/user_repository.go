package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// UserRepository implements ports.UserRepository on the users table.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		r.db.rebind(`INSERT INTO users (username, password_hash, role, created_at) VALUES ($1, $2, $3, $4) RETURNING id`),
		user.Username, user.PasswordHash, string(user.Role), createdAt.UnixMicro(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.ID = strconv.FormatInt(id, 10)
	created.CreatedAt = time.UnixMicro(createdAt.UnixMicro()).UTC()
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		id        int64
		u         domain.User
		role      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		r.db.rebind(`SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`),
		username,
	).Scan(&id, &u.Username, &u.PasswordHash, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if u.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	u.ID = strconv.FormatInt(id, 10)
	u.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		r.db.rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`),
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}
