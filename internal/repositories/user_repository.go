package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"group-service/internal/models"
)

// UserRepository resolves and materializes user identities.
type UserRepository interface {
	Upsert(ctx context.Context, user models.User) error
	GetUsers(ctx context.Context, ids []int) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert records the identity asserted by a verified token.
func (r *UserRepo) Upsert(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, username) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`, user.ID, user.Username)
	return err
}

// GetUsers fetches users by id; unknown ids are simply absent from the
// result.
func (r *UserRepo) GetUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, username FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return users, err
}
