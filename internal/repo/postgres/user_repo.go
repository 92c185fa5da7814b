package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, pageID int64, displayName string, role enums.Role) (model.User, error) {
	if r.pool == nil {
		return model.User{}, model.ErrStoreUnavailable
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (page_id, display_name, role)
VALUES ($1, $2, $3)
RETURNING id, page_id, display_name, role, created_at
`, pageID, displayName, string(role)).Scan(&user.ID, &user.PageID, &user.DisplayName, &user.Role, &user.CreatedAt)
	if err != nil {
		return model.User{}, classify("insert user", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, model.ErrStoreUnavailable
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, page_id, display_name, role, created_at
FROM users
WHERE id = $1
`, id).Scan(&user.ID, &user.PageID, &user.DisplayName, &user.Role, &user.CreatedAt)
	if err != nil {
		return model.User{}, classify("get user", err)
	}
	return user, nil
}
