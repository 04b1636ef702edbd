package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"match-engine/internal/domain"
	"match-engine/internal/repository"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCandidatePoolUnavailable es un fallo de lectura aguas arriba; distinto de "cero candidatos".
	ErrCandidatePoolUnavailable = errors.New("candidate pool unavailable")
	ErrInvalidSwipe             = errors.New("invalid swipe")
)

// MatchServiceConfig agrupa los parámetros operativos del ranking.
type MatchServiceConfig struct {
	DefaultLimit    int
	MaxLimit        int
	PoolSize        int
	FetchTimeout    time.Duration
	DefaultTimeZone *time.Location
}

func (c MatchServiceConfig) withDefaults() MatchServiceConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 500
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 3 * time.Second
	}
	if c.DefaultTimeZone == nil {
		c.DefaultTimeZone = time.UTC
	}
	return c
}

// MatchesResult combina la decisión de cuota con el ranking. Si Quota.Allowed es false no hay ranking.
type MatchesResult struct {
	Quota domain.QuotaDecision `json:"quota"`
	domain.RankResult
}

// MatchService coordina cuota, lectura de perfiles, normalización y ranking para un solicitante.
type MatchService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	profiles   repository.ProfileRepository
	swipes     repository.SwipeRepository
	normalizer AttributeNormalizer
	evaluator  *CompatibilityEvaluator
	ranker     *CandidateRanker
	quota      *QuotaGuard
	gate       ChatGate
	limiter    SwipeRateLimiter
	cfg        MatchServiceConfig
}

func NewMatchService(
	logger *zap.Logger,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	swipes repository.SwipeRepository,
	evaluator *CompatibilityEvaluator,
	ranker *CandidateRanker,
	quota *QuotaGuard,
	gate ChatGate,
	cfg MatchServiceConfig,
) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if evaluator == nil {
		evaluator = NewCompatibilityEvaluator(nil)
	}
	if ranker == nil {
		ranker = NewCandidateRanker(evaluator, 0, nil)
	}
	return &MatchService{
		logger:     logger,
		users:      users,
		profiles:   profiles,
		swipes:     swipes,
		normalizer: DefaultNormalizer,
		evaluator:  evaluator,
		ranker:     ranker.WithChatGate(gate),
		quota:      quota,
		gate:       gate,
		cfg:        cfg.withDefaults(),
	}
}

// WithSwipeLimiter acota ráfagas de swipes; nil desactiva el límite.
func (s *MatchService) WithSwipeLimiter(limiter SwipeRateLimiter) *MatchService {
	s.limiter = limiter
	return s
}

// FindMatches rankea candidatos para userID. Cuota agotada y pool vacío son resultados, no errores.
func (s *MatchService) FindMatches(ctx context.Context, userID string, limit int) (MatchesResult, error) {
	ctx, span := otel.Tracer("match-engine/match").Start(ctx, "match.find",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return MatchesResult{}, err
	}
	requesterRaw, err := s.loadRecord(ctx, userID)
	if err != nil {
		return MatchesResult{}, err
	}

	decision, err := s.quota.CheckAndConsumeIn(ctx, user.ID, user.PlanTier, s.locationFor(user))
	if err != nil {
		return MatchesResult{}, err
	}
	if !decision.Allowed {
		s.logger.Info("ranking quota exhausted",
			zap.String("user_id", userID),
			zap.Int("used_today", decision.UsedToday),
			zap.Int("daily_limit", decision.DailyLimit),
		)
		return MatchesResult{Quota: decision, RankResult: domain.RankResult{Candidates: []domain.RankedCandidate{}}}, nil
	}

	pool, swiped, err := s.fetchPool(ctx, userID)
	if err != nil {
		return MatchesResult{}, err
	}

	ranking, err := s.ranker.Rank(ctx, RankRequest{
		Requester: s.normalizer.Normalize(requesterRaw),
		Pool:      s.normalizer.NormalizeAll(pool),
		Swiped:    swiped,
		Limit:     s.clampLimit(limit),
	})
	if err != nil {
		return MatchesResult{}, fmt.Errorf("rank candidates: %w", err)
	}

	s.logger.Info("ranking completed",
		zap.String("user_id", userID),
		zap.Int("pool", len(pool)),
		zap.Int("evaluated", ranking.Evaluated),
		zap.Int("returned", len(ranking.Candidates)),
		zap.Bool("no_candidates", ranking.NoCandidates),
	)
	return MatchesResult{Quota: decision, RankResult: ranking}, nil
}

// fetchPool es la única parte con I/O del ranking; el timeout aplica acá y no al cálculo.
func (s *MatchService) fetchPool(ctx context.Context, userID string) ([]domain.RawRecord, map[string]struct{}, error) {
	ctx, span := otel.Tracer("match-engine/match").Start(ctx, "match.fetch_pool")
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	// El store ya descarta los swipes antes de truncar; la lista de swipes queda como resguardo en el ranker.
	pool, err := s.profiles.ListCandidates(fetchCtx, userID, s.cfg.PoolSize)
	if err != nil {
		span.SetStatus(codes.Error, "list candidates")
		s.logger.Error("list candidates failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrCandidatePoolUnavailable, err)
	}

	ids, err := s.swipes.ListSwipedIDs(fetchCtx, userID)
	if err != nil {
		s.logger.Error("list swiped ids failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrCandidatePoolUnavailable, err)
	}
	swiped := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		swiped[id] = struct{}{}
	}
	span.SetAttributes(attribute.Int("pool.size", len(pool)), attribute.Int("swiped", len(swiped)))
	return pool, swiped, nil
}

// Compatibility devuelve el detalle de un par (variante extendida) sin consumir cuota.
func (s *MatchService) Compatibility(ctx context.Context, requesterID, candidateID string) (domain.PairCompatibility, error) {
	reqRaw, err := s.loadRecord(ctx, requesterID)
	if err != nil {
		return domain.PairCompatibility{}, err
	}
	candRaw, err := s.loadRecord(ctx, candidateID)
	if err != nil {
		return domain.PairCompatibility{}, err
	}
	res := s.evaluator.EvaluateExtended(s.normalizer.Normalize(reqRaw), s.normalizer.Normalize(candRaw))
	return domain.PairCompatibility{
		RequesterID:         requesterID,
		CandidateID:         candidateID,
		CompatibilityResult: res,
		CanMessageDirectly:  s.gate.CanMessageDirectly(res.OverallScore),
	}, nil
}

// QuotaStatus devuelve la cuota de hoy sin consumir.
func (s *MatchService) QuotaStatus(ctx context.Context, userID string) (domain.QuotaDecision, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	return s.quota.Status(ctx, user.ID, user.PlanTier, s.locationFor(user))
}

// RecordSwipe guarda el swipe y detecta match mutuo. El chat directo se habilita con match mutuo
// o cuando el overall supera el umbral de producto.
func (s *MatchService) RecordSwipe(ctx context.Context, userID, targetUserID, direction string) (domain.SwipeOutcome, error) {
	userID = strings.TrimSpace(userID)
	targetUserID = strings.TrimSpace(targetUserID)
	direction = strings.ToLower(strings.TrimSpace(direction))
	if userID == "" || targetUserID == "" || userID == targetUserID {
		return domain.SwipeOutcome{}, ErrInvalidSwipe
	}
	if direction != domain.SwipeLeft && direction != domain.SwipeRight {
		return domain.SwipeOutcome{}, ErrInvalidSwipe
	}
	if s.limiter != nil {
		if rate := s.limiter.Allow(ctx, userID); !rate.Allowed {
			return domain.SwipeOutcome{}, &SwipeRateLimitedError{RetryAfter: rate.RetryAfter}
		}
	}

	swipe := domain.Swipe{
		ID:           uuid.NewString(),
		UserID:       userID,
		TargetUserID: targetUserID,
		Direction:    direction,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.swipes.Create(ctx, swipe); err != nil {
		return domain.SwipeOutcome{}, fmt.Errorf("create swipe: %w", err)
	}

	outcome := domain.SwipeOutcome{Swipe: swipe}
	if direction != domain.SwipeRight {
		return outcome, nil
	}

	matched, err := s.swipes.HasSwipedRight(ctx, targetUserID, userID)
	if err != nil {
		return domain.SwipeOutcome{}, fmt.Errorf("check reciprocal swipe: %w", err)
	}
	outcome.Matched = matched
	outcome.CanMessageDirectly = matched

	pair, err := s.Compatibility(ctx, userID, targetUserID)
	if err != nil {
		s.logger.Warn("swipe compatibility unavailable", zap.String("user_id", userID), zap.String("target_user_id", targetUserID), zap.Error(err))
		return outcome, nil
	}
	outcome.OverallScore = pair.OverallScore
	outcome.CanMessageDirectly = matched || pair.CanMessageDirectly
	return outcome, nil
}

func (s *MatchService) loadUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: load user: %v", ErrCandidatePoolUnavailable, err)
	}
	return user, nil
}

func (s *MatchService) loadRecord(ctx context.Context, userID string) (domain.RawRecord, error) {
	rec, err := s.profiles.GetRecord(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RawRecord{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("%w: load profile: %v", ErrCandidatePoolUnavailable, err)
	}
	return rec, nil
}

func (s *MatchService) locationFor(user domain.User) *time.Location {
	if tz := strings.TrimSpace(user.TimeZone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
		s.logger.Warn("invalid user time zone", zap.String("user_id", user.ID), zap.String("time_zone", tz))
	}
	return s.cfg.DefaultTimeZone
}

func (s *MatchService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
