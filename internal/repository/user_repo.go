package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"match-engine/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, email, COALESCE(display_name, ''), COALESCE(plan_tier, 'free'), COALESCE(time_zone, ''), created_at
		FROM users
		WHERE id = $1
	`
	var user domain.User
	var tier string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&tier,
		&user.TimeZone,
		&user.CreatedAt,
	)
	user.PlanTier = domain.PlanTier(tier)
	return user, err
}
