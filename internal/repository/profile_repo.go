package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"match-engine/internal/domain"
)

// ProfileRepository es el Profile Store Adapter: solo lectura de perfil + requisitos de pareja.
// Las columnas de atributos se escanean como any porque el almacenamiento no tiene formas consistentes.
type ProfileRepository interface {
	GetRecord(ctx context.Context, userID string) (domain.RawRecord, error)
	// ListCandidates devuelve hasta limit perfiles distintos de requesterID sobre los que todavía no hizo swipe.
	ListCandidates(ctx context.Context, requesterID string, limit int) ([]domain.RawRecord, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

const recordColumns = `
	p.user_id,
	p.height, p.date_of_birth, p.body_type, p.skin_tone,
	p.interests, p."values", p.personality_traits, p.relationship_goals, p.profession,
	r.age_range_min, r.age_range_max, r.height_range_min, r.height_range_max,
	r.preferred_body_types, r.preferred_values, r.preferred_personality_traits,
	r.preferred_relationship_goals, r.preferred_professions
`

func (r *PgProfileRepository) GetRecord(ctx context.Context, userID string) (domain.RawRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM profiles p
		LEFT JOIN partner_requirements r ON r.user_id = p.user_id
		WHERE p.user_id = $1
	`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return domain.RawRecord{}, err
	}
	return rec, nil
}

// ListCandidates excluye los swipes en la query: el LIMIT se aplica después de descartarlos.
func (r *PgProfileRepository) ListCandidates(ctx context.Context, requesterID string, limit int) ([]domain.RawRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM profiles p
		LEFT JOIN partner_requirements r ON r.user_id = p.user_id
		WHERE p.user_id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM swipes s
			WHERE s.user_id = $1 AND s.target_user_id = p.user_id
		  )
		ORDER BY p.user_id
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, requesterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanRecord(row pgx.Row) (domain.RawRecord, error) {
	var rec domain.RawRecord
	p := &rec.Profile
	q := &rec.Requirements
	err := row.Scan(
		&rec.UserID,
		&p.Height,
		&p.DateOfBirth,
		&p.BodyType,
		&p.SkinTone,
		&p.Interests,
		&p.Values,
		&p.PersonalityTraits,
		&p.RelationshipGoals,
		&p.Profession,
		&q.AgeRangeMin,
		&q.AgeRangeMax,
		&q.HeightRangeMin,
		&q.HeightRangeMax,
		&q.PreferredBodyTypes,
		&q.PreferredValues,
		&q.PreferredPersonalityTraits,
		&q.PreferredRelationshipGoals,
		&q.PreferredProfessions,
	)
	return rec, err
}
