package domain

import "time"

// RawProfile es el registro de cualidades tal como llega del almacenamiento.
// Cada campo puede ser nil, un string (a veces JSON serializado), un array o un escalar.
type RawProfile struct {
	Height            any `json:"height"`
	DateOfBirth       any `json:"date_of_birth"`
	BodyType          any `json:"body_type"`
	SkinTone          any `json:"skin_tone"`
	Interests         any `json:"interests"`
	Values            any `json:"values"`
	PersonalityTraits any `json:"personality_traits"`
	RelationshipGoals any `json:"relationship_goals"`
	Profession        any `json:"profession"`
}

// RawRequirements son las preferencias de pareja sin normalizar.
type RawRequirements struct {
	AgeRangeMin                any `json:"age_range_min"`
	AgeRangeMax                any `json:"age_range_max"`
	HeightRangeMin             any `json:"height_range_min"`
	HeightRangeMax             any `json:"height_range_max"`
	PreferredBodyTypes         any `json:"preferred_body_types"`
	PreferredValues            any `json:"preferred_values"`
	PreferredPersonalityTraits any `json:"preferred_personality_traits"`
	PreferredRelationshipGoals any `json:"preferred_relationship_goals"`
	PreferredProfessions       any `json:"preferred_professions"`
}

// RawRecord agrupa perfil y requisitos de un usuario tal como los entrega el Profile Store.
type RawRecord struct {
	UserID       string          `json:"user_id"`
	Profile      RawProfile      `json:"profile"`
	Requirements RawRequirements `json:"requirements"`
}

// Qualities son los atributos declarados de un usuario ya normalizados.
type Qualities struct {
	Height            *int       `json:"height,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	BodyType          string     `json:"body_type,omitempty"`
	SkinTone          string     `json:"skin_tone,omitempty"`
	Interests         []string   `json:"interests"`
	Values            []string   `json:"values"`
	PersonalityTraits []string   `json:"personality_traits"`
	RelationshipGoals []string   `json:"relationship_goals"`
	Profession        string     `json:"profession,omitempty"`
}

// IsEmpty indica que el usuario no declaró ninguna cualidad.
func (q Qualities) IsEmpty() bool {
	return q.Height == nil &&
		q.DateOfBirth == nil &&
		q.BodyType == "" &&
		q.SkinTone == "" &&
		len(q.Interests) == 0 &&
		len(q.Values) == 0 &&
		len(q.PersonalityTraits) == 0 &&
		len(q.RelationshipGoals) == 0 &&
		q.Profession == ""
}

// Requirements son las preferencias de pareja normalizadas. Un campo vacío significa "sin preferencia".
type Requirements struct {
	AgeRangeMin                *int     `json:"age_range_min,omitempty"`
	AgeRangeMax                *int     `json:"age_range_max,omitempty"`
	HeightRangeMin             *int     `json:"height_range_min,omitempty"`
	HeightRangeMax             *int     `json:"height_range_max,omitempty"`
	PreferredBodyTypes         []string `json:"preferred_body_types"`
	PreferredValues            []string `json:"preferred_values"`
	PreferredPersonalityTraits []string `json:"preferred_personality_traits"`
	PreferredRelationshipGoals []string `json:"preferred_relationship_goals"`
	PreferredProfessions       []string `json:"preferred_professions"`
}

// HasAgeRange indica si el usuario declaró al menos un extremo del rango de edad.
func (r Requirements) HasAgeRange() bool {
	return r.AgeRangeMin != nil || r.AgeRangeMax != nil
}

// IsEmpty indica que el usuario no declaró ninguna preferencia.
func (r Requirements) IsEmpty() bool {
	return r.AgeRangeMin == nil &&
		r.AgeRangeMax == nil &&
		r.HeightRangeMin == nil &&
		r.HeightRangeMax == nil &&
		len(r.PreferredBodyTypes) == 0 &&
		len(r.PreferredValues) == 0 &&
		len(r.PreferredPersonalityTraits) == 0 &&
		len(r.PreferredRelationshipGoals) == 0 &&
		len(r.PreferredProfessions) == 0
}

// CanonicalRecord es la representación tipada que consume el evaluador.
type CanonicalRecord struct {
	UserID       string       `json:"user_id"`
	Qualities    Qualities    `json:"qualities"`
	Requirements Requirements `json:"requirements"`
}

// HasData es falso cuando no hay nada contra lo que puntuar.
func (r CanonicalRecord) HasData() bool {
	return !r.Qualities.IsEmpty() || !r.Requirements.IsEmpty()
}

// AgeAt deriva la edad en la fecha dada; nunca se guarda.
func (q Qualities) AgeAt(now time.Time) (int, bool) {
	if q.DateOfBirth == nil {
		return 0, false
	}
	dob := *q.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}
