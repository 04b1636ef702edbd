package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"match-engine/internal/domain"
)

// SwipeRepository es el historial de swipes; el ranker lo usa para excluir candidatos ya vistos.
type SwipeRepository interface {
	Create(ctx context.Context, swipe domain.Swipe) error
	ListSwipedIDs(ctx context.Context, userID string) ([]string, error)
	HasSwipedRight(ctx context.Context, userID, targetUserID string) (bool, error)
}

type PgSwipeRepository struct {
	pool *pgxpool.Pool
}

func NewPgSwipeRepository(pool *pgxpool.Pool) *PgSwipeRepository {
	return &PgSwipeRepository{pool: pool}
}

func (r *PgSwipeRepository) Create(ctx context.Context, swipe domain.Swipe) error {
	const query = `
		INSERT INTO swipes (id, user_id, target_user_id, direction, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, target_user_id)
		DO UPDATE SET
			direction = EXCLUDED.direction,
			created_at = EXCLUDED.created_at
	`
	_, err := r.pool.Exec(ctx, query,
		swipe.ID,
		swipe.UserID,
		swipe.TargetUserID,
		swipe.Direction,
		swipe.CreatedAt,
	)
	return err
}

func (r *PgSwipeRepository) ListSwipedIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT target_user_id
		FROM swipes
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgSwipeRepository) HasSwipedRight(ctx context.Context, userID, targetUserID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM swipes
			WHERE user_id = $1 AND target_user_id = $2 AND direction = $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, targetUserID, domain.SwipeRight).Scan(&exists)
	return exists, err
}
