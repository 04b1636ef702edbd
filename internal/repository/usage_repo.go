package repository

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUsageRepository guarda daily_usage en Postgres. Consume es un solo UPSERT condicional:
// el lock de fila del ON CONFLICT serializa pedidos concurrentes del mismo usuario.
type PgUsageRepository struct {
	pool *pgxpool.Pool
}

func NewPgUsageRepository(pool *pgxpool.Pool) *PgUsageRepository {
	return &PgUsageRepository{pool: pool}
}

func (r *PgUsageRepository) Consume(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	if limit < 0 {
		limit = math.MaxInt32
	}
	if limit == 0 {
		used, err := r.Usage(ctx, userID, day)
		return used, false, err
	}
	const query = `
		INSERT INTO daily_usage (user_id, day, requests_used)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day)
		DO UPDATE SET requests_used = daily_usage.requests_used + 1
		WHERE daily_usage.requests_used < $3
		RETURNING requests_used
	`
	var used int
	err := r.pool.QueryRow(ctx, query, userID, day, limit).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		// El WHERE del UPDATE no se cumplió: el cupo de hoy ya está agotado.
		current, uerr := r.Usage(ctx, userID, day)
		return current, false, uerr
	}
	if err != nil {
		return 0, false, err
	}
	return used, true, nil
}

func (r *PgUsageRepository) Usage(ctx context.Context, userID, day string) (int, error) {
	const query = `
		SELECT requests_used
		FROM daily_usage
		WHERE user_id = $1 AND day = $2
	`
	var used int
	err := r.pool.QueryRow(ctx, query, userID, day).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return used, err
}

// PurgeBefore borra registros de días anteriores; son inertes y nunca cuentan para hoy.
func (r *PgUsageRepository) PurgeBefore(ctx context.Context, day string) (int, error) {
	const query = `DELETE FROM daily_usage WHERE day < $1`
	tag, err := r.pool.Exec(ctx, query, day)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
