package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Las columnas de atributos de profiles son JSONB a propósito: el almacenamiento aguas arriba
// mezcla arrays, strings serializados y escalares, y el normalizador resuelve cada forma.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		display_name TEXT,
		plan_tier TEXT NOT NULL DEFAULT 'free',
		time_zone TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		height INTEGER,
		date_of_birth DATE,
		body_type TEXT,
		skin_tone TEXT,
		interests JSONB,
		"values" JSONB,
		personality_traits JSONB,
		relationship_goals JSONB,
		profession TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS partner_requirements (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		age_range_min INTEGER,
		age_range_max INTEGER,
		height_range_min INTEGER,
		height_range_max INTEGER,
		preferred_body_types JSONB,
		preferred_values JSONB,
		preferred_personality_traits JSONB,
		preferred_relationship_goals JSONB,
		preferred_professions JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS swipes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		target_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		direction TEXT NOT NULL CHECK (direction IN ('left', 'right')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, target_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_usage (
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		requests_used INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_usage_day ON daily_usage (day)`,
}

// EnsureSchema crea las tablas si no existen. Es idempotente.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
