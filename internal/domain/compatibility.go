package domain

// CompatibilityResult es efímero: se recalcula en cada pedido y nunca se persiste.
type CompatibilityResult struct {
	PhysicalScore      int      `json:"physical_score"`
	MentalScore        int      `json:"mental_score"`
	OverallScore       int      `json:"overall_score"`
	SharedInterests    []string `json:"shared_interests"`
	MatchedCriteria    []string `json:"matched_criteria"`
	NotMatchedCriteria []string `json:"not_matched_criteria"`
	InsufficientData   bool     `json:"insufficient_data"`
}

// RankedCandidate es una fila del ranking lista para mostrar.
type RankedCandidate struct {
	Rank        int    `json:"rank"`
	CandidateID string `json:"candidate_id"`
	CompatibilityResult
	CanMessageDirectly bool `json:"can_message_directly"`
}

// RankResult es la salida del ranker. NoCandidates distingue "pool vacío" de un fallo.
type RankResult struct {
	Candidates   []RankedCandidate `json:"candidates"`
	NoCandidates bool              `json:"no_candidates"`
	Evaluated    int               `json:"evaluated"`
	Excluded     int               `json:"excluded"`
}

// PairCompatibility es la vista de detalle de un par, sin ranking ni consumo de cuota.
type PairCompatibility struct {
	RequesterID string `json:"requester_id"`
	CandidateID string `json:"candidate_id"`
	CompatibilityResult
	CanMessageDirectly bool `json:"can_message_directly"`
}
