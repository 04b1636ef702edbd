package service

import (
	"strings"
	"time"

	"match-engine/internal/domain"
)

// Triple fijo para "datos insuficientes". No es la combinación ponderada de 50 y 75 (daría 65):
// se muestra tal cual para no exhibir un 0% a perfiles que simplemente están incompletos.
const (
	FallbackPhysicalScore = 50
	FallbackMentalScore   = 75
	FallbackOverallScore  = 63
)

// Topes por bucket. Los criterios mutuos otorgan la mitad del tope por cada dirección.
const (
	heightFitPoints = 10
	ageFitPoints    = 10
	bodyTypePoints  = 20

	interestPointsEach = 8
	interestPointsCap  = 40
	sharedGoalPoints   = 30
	valuePointsEach    = 10
	valuePointsCap     = 30

	personalityPointsEach   = 10
	personalityPointsCap    = 20
	valuePrefPointsEach     = 5
	valuePrefPointsCap      = 10
	professionPoints        = 10
	mutualGoalPointsPerSide = 5
)

// Rangos asumidos cuando el usuario no declaró preferencia.
const (
	defaultHeightMin = 150
	defaultHeightMax = 200
	defaultAgeMin    = 18
	defaultAgeMax    = 30
)

// Ponderación del overall en décimos: lo mental pesa más que lo físico.
const (
	mentalWeightTenths   = 6
	physicalWeightTenths = 4
)

// ScoringVariant selecciona el conjunto de buckets a evaluar.
type ScoringVariant int

const (
	// VariantBase puntúa altura, edad, tipo de cuerpo, intereses, metas y valores.
	VariantBase ScoringVariant = iota
	// VariantExtended agrega personalidad, preferencia de valores, profesión y bonus de metas mutuas.
	VariantExtended
)

// neutralCredit es el crédito para "sin preferencia": la mitad del premio de una sola preferencia
// satisfecha, así "sin opinión" nunca empata con una preferencia cumplida.
func neutralCredit(award int) int {
	return award / 2
}

// CompatibilityEvaluator calcula la compatibilidad de un par ordenado (solicitante, candidato).
// Es una función pura de los registros canónicos y del instante de evaluación.
type CompatibilityEvaluator struct {
	now func() time.Time
}

func NewCompatibilityEvaluator(now func() time.Time) *CompatibilityEvaluator {
	if now == nil {
		now = time.Now
	}
	return &CompatibilityEvaluator{now: now}
}

// Evaluate aplica la variante base con el reloj del evaluador.
func (e *CompatibilityEvaluator) Evaluate(requester, candidate domain.CanonicalRecord) domain.CompatibilityResult {
	return e.EvaluateAt(e.now(), requester, candidate, VariantBase)
}

// EvaluateExtended aplica la variante extendida que usa el ranking.
func (e *CompatibilityEvaluator) EvaluateExtended(requester, candidate domain.CanonicalRecord) domain.CompatibilityResult {
	return e.EvaluateAt(e.now(), requester, candidate, VariantExtended)
}

// EvaluateAt evalúa el par en un instante fijo; el ranking lo usa para que todo el pool comparta la misma fecha.
func (e *CompatibilityEvaluator) EvaluateAt(now time.Time, requester, candidate domain.CanonicalRecord, variant ScoringVariant) domain.CompatibilityResult {
	if !requester.HasData() || !candidate.HasData() {
		return fallbackResult(true)
	}

	card := &scorecard{}
	req, cand := requester, candidate

	// Físico.
	scoreHeight(card, req, cand)
	scoreAge(card, now, req, cand)
	scoreBodyType(card, req, cand)

	// Mental.
	shared := scoreInterests(card, req, cand)
	scoreSharedGoals(card, req, cand)
	scoreSharedValues(card, req, cand)

	if variant == VariantExtended {
		scorePersonality(card, req, cand)
		scoreValuePreference(card, req, cand)
		scoreProfession(card, req, cand)
		scoreMutualGoals(card, req, cand)
	}

	return card.result(shared)
}

func fallbackResult(insufficient bool) domain.CompatibilityResult {
	return domain.CompatibilityResult{
		PhysicalScore:      FallbackPhysicalScore,
		MentalScore:        FallbackMentalScore,
		OverallScore:       FallbackOverallScore,
		SharedInterests:    []string{},
		MatchedCriteria:    []string{},
		NotMatchedCriteria: []string{},
		InsufficientData:   insufficient,
	}
}

// scorecard acumula puntos contra el máximo de los buckets elegibles y los labels en orden de evaluación.
type scorecard struct {
	physicalPoints int
	physicalMax    int
	mentalPoints   int
	mentalMax      int
	matched        []string
	notMatched     []string
}

func (s *scorecard) physical(label string, awarded, max int) {
	s.physicalPoints += awarded
	s.physicalMax += max
	s.record(label, awarded)
}

func (s *scorecard) mental(awarded, max int) {
	s.mentalPoints += awarded
	s.mentalMax += max
}

func (s *scorecard) record(label string, awarded int) {
	label = criterionLabel(label)
	if label == "" {
		return
	}
	if awarded > 0 {
		s.matched = append(s.matched, label)
		return
	}
	s.notMatched = append(s.notMatched, label)
}

func (s *scorecard) result(shared []string) domain.CompatibilityResult {
	// Ambos tienen datos pero ningún bucket cruza: no hay contra qué puntuar.
	if s.physicalMax == 0 && s.mentalMax == 0 {
		return fallbackResult(true)
	}

	physical := FallbackPhysicalScore
	if s.physicalMax > 0 {
		physical = scaleToPercent(s.physicalPoints, s.physicalMax)
	}
	mental := FallbackMentalScore
	if s.mentalMax > 0 {
		mental = scaleToPercent(s.mentalPoints, s.mentalMax)
	}

	matched := append([]string{}, s.matched...)
	notMatched := append([]string{}, s.notMatched...)
	if shared == nil {
		shared = []string{}
	}

	if s.physicalMax > 0 && s.mentalMax > 0 && s.physicalPoints == 0 && s.mentalPoints == 0 {
		res := fallbackResult(false)
		res.SharedInterests = shared
		res.MatchedCriteria = matched
		res.NotMatchedCriteria = notMatched
		return res
	}

	return domain.CompatibilityResult{
		PhysicalScore:      physical,
		MentalScore:        mental,
		OverallScore:       overallScore(mental, physical),
		SharedInterests:    shared,
		MatchedCriteria:    matched,
		NotMatchedCriteria: notMatched,
	}
}

// overallScore = round(mental*0.6 + physical*0.4) en aritmética entera, redondeando .5 hacia arriba.
func overallScore(mental, physical int) int {
	weighted := mental*mentalWeightTenths + physical*physicalWeightTenths
	return clampScore((weighted + 5) / 10)
}

func scaleToPercent(points, max int) int {
	if max <= 0 {
		return 0
	}
	return clampScore((points*200 + max) / (2 * max))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// --- buckets físicos ---

func scoreHeight(card *scorecard, req, cand domain.CanonicalRecord) {
	rh, ch := req.Qualities.Height, cand.Qualities.Height
	if rh == nil || ch == nil {
		return
	}
	awarded := 0
	if fitsRange(*ch, req.Requirements.HeightRangeMin, req.Requirements.HeightRangeMax, defaultHeightMin, defaultHeightMax) {
		awarded += heightFitPoints
	}
	if fitsRange(*rh, cand.Requirements.HeightRangeMin, cand.Requirements.HeightRangeMax, defaultHeightMin, defaultHeightMax) {
		awarded += heightFitPoints
	}
	card.physical("height", awarded, 2*heightFitPoints)
}

func scoreAge(card *scorecard, now time.Time, req, cand domain.CanonicalRecord) {
	ra, okR := req.Qualities.AgeAt(now)
	ca, okC := cand.Qualities.AgeAt(now)
	if !okR || !okC {
		return
	}
	awarded := 0
	if fitsRange(ca, req.Requirements.AgeRangeMin, req.Requirements.AgeRangeMax, defaultAgeMin, defaultAgeMax) {
		awarded += ageFitPoints
	}
	if fitsRange(ra, cand.Requirements.AgeRangeMin, cand.Requirements.AgeRangeMax, defaultAgeMin, defaultAgeMax) {
		awarded += ageFitPoints
	}
	card.physical("age", awarded, 2*ageFitPoints)
}

func scoreBodyType(card *scorecard, req, cand domain.CanonicalRecord) {
	if req.Qualities.BodyType == "" || cand.Qualities.BodyType == "" {
		return
	}
	awarded := 0
	switch {
	case len(req.Requirements.PreferredBodyTypes) == 0:
		awarded = neutralCredit(bodyTypePoints)
	case containsFold(req.Requirements.PreferredBodyTypes, cand.Qualities.BodyType):
		awarded = bodyTypePoints
	}
	card.physical("body_type", awarded, bodyTypePoints)
}

// fitsRange usa el default para cualquier extremo no declarado.
func fitsRange(v int, min, max *int, defMin, defMax int) bool {
	lo, hi := defMin, defMax
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	return v >= lo && v <= hi
}

// --- buckets mentales ---

func scoreInterests(card *scorecard, req, cand domain.CanonicalRecord) []string {
	a, b := req.Qualities.Interests, cand.Qualities.Interests
	if len(a) == 0 || len(b) == 0 {
		return []string{}
	}
	shared := intersectFold(a, b)
	card.mental(minInt(len(shared)*interestPointsEach, interestPointsCap), interestPointsCap)
	recordShared(card, "interests", shared)
	return shared
}

// scoreSharedGoals es un gate booleano: cualquier meta compartida otorga el premio completo.
func scoreSharedGoals(card *scorecard, req, cand domain.CanonicalRecord) {
	a, b := req.Qualities.RelationshipGoals, cand.Qualities.RelationshipGoals
	if len(a) == 0 || len(b) == 0 {
		return
	}
	shared := intersectFold(a, b)
	awarded := 0
	if len(shared) > 0 {
		awarded = sharedGoalPoints
	}
	card.mental(awarded, sharedGoalPoints)
	recordShared(card, "relationship_goals", shared)
}

func scoreSharedValues(card *scorecard, req, cand domain.CanonicalRecord) {
	a, b := req.Qualities.Values, cand.Qualities.Values
	if len(a) == 0 || len(b) == 0 {
		return
	}
	shared := intersectFold(a, b)
	card.mental(minInt(len(shared)*valuePointsEach, valuePointsCap), valuePointsCap)
	recordShared(card, "values", shared)
}

func scorePersonality(card *scorecard, req, cand domain.CanonicalRecord) {
	traits := cand.Qualities.PersonalityTraits
	if len(traits) == 0 {
		return
	}
	prefs := req.Requirements.PreferredPersonalityTraits
	awarded := neutralCredit(personalityPointsEach)
	if len(prefs) > 0 {
		awarded = minInt(len(intersectFold(prefs, traits))*personalityPointsEach, personalityPointsCap)
	}
	card.mental(awarded, personalityPointsCap)
	card.record("personality", awarded)
}

func scoreValuePreference(card *scorecard, req, cand domain.CanonicalRecord) {
	values := cand.Qualities.Values
	if len(values) == 0 {
		return
	}
	prefs := req.Requirements.PreferredValues
	awarded := neutralCredit(valuePrefPointsEach)
	if len(prefs) > 0 {
		awarded = minInt(len(intersectFold(prefs, values))*valuePrefPointsEach, valuePrefPointsCap)
	}
	card.mental(awarded, valuePrefPointsCap)
	card.record("value_preferences", awarded)
}

func scoreProfession(card *scorecard, req, cand domain.CanonicalRecord) {
	profession := cand.Qualities.Profession
	if profession == "" {
		return
	}
	prefs := req.Requirements.PreferredProfessions
	awarded := 0
	switch {
	case len(prefs) == 0:
		awarded = neutralCredit(professionPoints)
	case containsFold(prefs, profession):
		awarded = professionPoints
	}
	card.mental(awarded, professionPoints)
	card.record("profession", awarded)
}

// scoreMutualGoals evalúa cada dirección por separado, igual que los criterios de ajuste mutuo.
func scoreMutualGoals(card *scorecard, req, cand domain.CanonicalRecord) {
	awarded, max := 0, 0
	if prefs := req.Requirements.PreferredRelationshipGoals; len(prefs) > 0 && len(cand.Qualities.RelationshipGoals) > 0 {
		max += mutualGoalPointsPerSide
		if len(intersectFold(prefs, cand.Qualities.RelationshipGoals)) > 0 {
			awarded += mutualGoalPointsPerSide
		}
	}
	if prefs := cand.Requirements.PreferredRelationshipGoals; len(prefs) > 0 && len(req.Qualities.RelationshipGoals) > 0 {
		max += mutualGoalPointsPerSide
		if len(intersectFold(prefs, req.Qualities.RelationshipGoals)) > 0 {
			awarded += mutualGoalPointsPerSide
		}
	}
	if max == 0 {
		return
	}
	card.mental(awarded, max)
	card.record("mutual_relationship_goal", awarded)
}

// recordShared agrega un label por elemento compartido, o el nombre del bucket si no hubo coincidencias.
func recordShared(card *scorecard, bucket string, shared []string) {
	if len(shared) == 0 {
		card.record(bucket, 0)
		return
	}
	for _, item := range shared {
		card.record(item, 1)
	}
}

// --- helpers de sets ---

// intersectFold devuelve los elementos de a presentes en b (sin distinguir mayúsculas), en el orden de a.
func intersectFold(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return []string{}
	}
	index := make(map[string]struct{}, len(b))
	for _, item := range b {
		index[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(a))
	for _, item := range a {
		key := strings.ToLower(strings.TrimSpace(item))
		if _, ok := index[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func containsFold(set []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, item := range set {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

// criterionLabel normaliza un criterio para los badges: minúsculas y espacios a guion bajo.
func criterionLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
