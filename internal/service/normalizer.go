package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"match-engine/internal/domain"
)

// maxDecodeDepth corta la recursión sobre strings serializados varias veces.
const maxDecodeDepth = 4

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// AttributeNormalizer convierte los registros heterogéneos del almacenamiento en registros canónicos.
// Nunca falla: lo que no se puede interpretar queda como set vacío o escalar nil.
type AttributeNormalizer struct{}

// DefaultNormalizer permite uso directo sin instanciar.
var DefaultNormalizer = AttributeNormalizer{}

// Normalize canonicaliza perfil y requisitos de un usuario.
func (AttributeNormalizer) Normalize(raw domain.RawRecord) domain.CanonicalRecord {
	p := raw.Profile
	r := raw.Requirements
	return domain.CanonicalRecord{
		UserID: strings.TrimSpace(raw.UserID),
		Qualities: domain.Qualities{
			Height:            normalizeInt(p.Height),
			DateOfBirth:       normalizeDate(p.DateOfBirth),
			BodyType:          normalizeString(p.BodyType),
			SkinTone:          normalizeString(p.SkinTone),
			Interests:         normalizeSet(p.Interests),
			Values:            normalizeSet(p.Values),
			PersonalityTraits: normalizeSet(p.PersonalityTraits),
			RelationshipGoals: normalizeSet(p.RelationshipGoals),
			Profession:        normalizeString(p.Profession),
		},
		Requirements: domain.Requirements{
			AgeRangeMin:                normalizeInt(r.AgeRangeMin),
			AgeRangeMax:                normalizeInt(r.AgeRangeMax),
			HeightRangeMin:             normalizeInt(r.HeightRangeMin),
			HeightRangeMax:             normalizeInt(r.HeightRangeMax),
			PreferredBodyTypes:         normalizeSet(r.PreferredBodyTypes),
			PreferredValues:            normalizeSet(r.PreferredValues),
			PreferredPersonalityTraits: normalizeSet(r.PreferredPersonalityTraits),
			PreferredRelationshipGoals: normalizeSet(r.PreferredRelationshipGoals),
			PreferredProfessions:       normalizeSet(r.PreferredProfessions),
		},
	}
}

// NormalizeAll canonicaliza un pool completo conservando el orden.
func (n AttributeNormalizer) NormalizeAll(raws []domain.RawRecord) []domain.CanonicalRecord {
	out := make([]domain.CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

// normalizeSet devuelve un set deduplicado (sin distinguir mayúsculas) en orden de aparición.
func normalizeSet(v any) []string {
	out := []string{}
	seen := make(map[string]struct{})
	collectSetValues(v, 0, func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	})
	return out
}

func collectSetValues(v any, depth int, add func(string)) {
	switch t := v.(type) {
	case nil:
	case string:
		collectFromString(t, depth, add)
	case *string:
		if t != nil {
			collectFromString(*t, depth, add)
		}
	case []byte:
		collectFromString(string(t), depth, add)
	case json.RawMessage:
		collectFromString(string(t), depth, add)
	case []string:
		for _, s := range t {
			add(stripWrappingQuotes(strings.TrimSpace(s)))
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				add(stripWrappingQuotes(strings.TrimSpace(s)))
				continue
			}
			if depth < maxDecodeDepth {
				collectSetValues(item, depth+1, add)
			}
		}
	case bool:
		add(strconv.FormatBool(t))
	case float64:
		add(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		add(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		add(fmt.Sprint(t))
	default:
		// Tipos del driver (ej. pgtype) que saben serializarse a JSON.
		if depth >= maxDecodeDepth {
			return
		}
		if b, err := json.Marshal(t); err == nil {
			collectFromString(string(b), depth+1, add)
		}
	}
}

func collectFromString(s string, depth int, add func(string)) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return
	}
	if depth < maxDecodeDepth {
		if decoded, ok := decodeStructured(s); ok {
			collectSetValues(decoded, depth+1, add)
			return
		}
		// Artefacto observado aguas arriba: escalares envueltos en comillas extra.
		if stripped := stripWrappingQuotes(s); stripped != s {
			collectFromString(stripped, depth+1, add)
			return
		}
	}
	add(s)
}

// decodeStructured intenta decodificar s como JSON. Los objetos no cuentan como estructura válida.
func decodeStructured(s string) (any, bool) {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, false
	}
	if _, isObject := decoded.(map[string]any); isObject {
		return nil, false
	}
	return decoded, true
}

func stripWrappingQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// normalizeString toma el primer valor utilizable; un array de un elemento cuenta como escalar.
func normalizeString(v any) string {
	vals := normalizeSet(v)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// normalizeInt devuelve nil para valores ausentes, no numéricos o no positivos.
func normalizeInt(v any) *int {
	var n float64
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		n = float64(t)
	case int8:
		n = float64(t)
	case int16:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case uint8:
		n = float64(t)
	case uint16:
		n = float64(t)
	case uint32:
		n = float64(t)
	case uint64:
		n = float64(t)
	case float32:
		n = float64(t)
	case float64:
		n = t
	case *int:
		if t == nil {
			return nil
		}
		n = float64(*t)
	default:
		s := normalizeString(v)
		s = strings.TrimRightFunc(s, func(r rune) bool {
			return !unicode.IsDigit(r) && r != '.'
		})
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return nil
	}
	out := int(math.Round(n))
	return &out
}

// normalizeDate acepta time.Time, fechas en texto y timestamps unix (segundos o milisegundos).
func normalizeDate(v any) *time.Time {
	var t time.Time
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return nil
		}
		t = *val
	case int64:
		t = unixToTime(val)
	case int:
		t = unixToTime(int64(val))
	case float64:
		t = unixToTime(int64(val))
	default:
		s := normalizeString(v)
		if s == "" {
			return nil
		}
		parsed, ok := parseDate(s)
		if !ok {
			return nil
		}
		t = parsed
	}
	if t.IsZero() {
		return nil
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixToTime(n), true
	}
	return time.Time{}, false
}

func unixToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	if n > 1e11 || n < -1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
