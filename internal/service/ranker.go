package service

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"match-engine/internal/domain"
)

const defaultRankWorkers = 8

// RankRequest agrupa la entrada del ranking de un solicitante.
type RankRequest struct {
	Requester domain.CanonicalRecord
	Pool      []domain.CanonicalRecord
	// Swiped son los IDs sobre los que el solicitante ya hizo swipe (izquierda o derecha).
	Swiped map[string]struct{}
	Limit  int
}

// CandidateRanker puntúa un pool en paralelo y devuelve el top-N con orden determinista.
type CandidateRanker struct {
	evaluator *CompatibilityEvaluator
	workers   int
	now       func() time.Time
	// canMessage decide el flag de chat directo por candidato; nil lo deja en false.
	canMessage func(overall int) bool
}

func NewCandidateRanker(evaluator *CompatibilityEvaluator, workers int, now func() time.Time) *CandidateRanker {
	if evaluator == nil {
		evaluator = NewCompatibilityEvaluator(now)
	}
	if workers <= 0 {
		workers = defaultRankWorkers
	}
	if now == nil {
		now = time.Now
	}
	return &CandidateRanker{evaluator: evaluator, workers: workers, now: now}
}

// WithChatGate marca cada candidato con el resultado del gate de chat directo.
func (r *CandidateRanker) WithChatGate(gate ChatGate) *CandidateRanker {
	r.canMessage = gate.CanMessageDirectly
	return r
}

type scoredCandidate struct {
	id     string
	result domain.CompatibilityResult
}

// Rank excluye candidatos ya vistos y fuera del rango de edad declarado, evalúa el resto y ordena.
// Un pool vacío tras el filtrado devuelve NoCandidates=true sin error.
func (r *CandidateRanker) Rank(ctx context.Context, req RankRequest) (domain.RankResult, error) {
	ctx, span := otel.Tracer("match-engine/ranker").Start(ctx, "ranker.rank")
	defer span.End()

	now := r.now()
	eligible := r.prefilter(now, req)
	span.SetAttributes(
		attribute.Int("pool.size", len(req.Pool)),
		attribute.Int("pool.eligible", len(eligible)),
	)

	result := domain.RankResult{
		Candidates: []domain.RankedCandidate{},
		Evaluated:  len(eligible),
		Excluded:   len(req.Pool) - len(eligible),
	}
	if len(eligible) == 0 {
		result.NoCandidates = true
		return result, nil
	}

	scored := make([]scoredCandidate, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, cand := range eligible {
		i, cand := i, cand
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Cada goroutine escribe solo su propio índice.
			scored[i] = scoredCandidate{
				id:     cand.UserID,
				result: r.evaluator.EvaluateAt(now, req.Requester, cand, VariantExtended),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RankResult{}, err
	}

	sortScored(scored)

	limit := req.Limit
	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}
	for i := 0; i < limit; i++ {
		rc := domain.RankedCandidate{
			Rank:                i + 1,
			CandidateID:         scored[i].id,
			CompatibilityResult: scored[i].result,
		}
		if r.canMessage != nil {
			rc.CanMessageDirectly = r.canMessage(rc.OverallScore)
		}
		result.Candidates = append(result.Candidates, rc)
	}
	return result, nil
}

// prefilter descarta al propio solicitante, duplicados, swipes previos y edades fuera del rango declarado.
// Ningún otro atributo se filtra: los desajustes se puntúan, no se excluyen.
func (r *CandidateRanker) prefilter(now time.Time, req RankRequest) []domain.CanonicalRecord {
	out := make([]domain.CanonicalRecord, 0, len(req.Pool))
	seen := make(map[string]struct{}, len(req.Pool))
	prefs := req.Requester.Requirements
	for _, cand := range req.Pool {
		if cand.UserID == "" || cand.UserID == req.Requester.UserID {
			continue
		}
		if _, dup := seen[cand.UserID]; dup {
			continue
		}
		seen[cand.UserID] = struct{}{}
		if _, swiped := req.Swiped[cand.UserID]; swiped {
			continue
		}
		if prefs.HasAgeRange() {
			if age, ok := cand.Qualities.AgeAt(now); ok && !fitsRange(age, prefs.AgeRangeMin, prefs.AgeRangeMax, 0, 1<<30) {
				continue
			}
		}
		out = append(out, cand)
	}
	return out
}

// sortScored ordena por overall desc, mental desc y luego por ID para que pedidos repetidos den el mismo orden.
func sortScored(scored []scoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.result.OverallScore != b.result.OverallScore {
			return a.result.OverallScore > b.result.OverallScore
		}
		if a.result.MentalScore != b.result.MentalScore {
			return a.result.MentalScore > b.result.MentalScore
		}
		return a.id < b.id
	})
}
