package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"match-engine/internal/domain"
)

const dayLayout = "2006-01-02"

var ErrQuotaStoreUnavailable = errors.New("quota store unavailable")

// QuotaStore guarda el uso diario. Consume debe ser un único read-modify-write atómico:
// incrementa solo si el uso actual es menor que limit (limit < 0 = sin tope) y devuelve el uso resultante.
type QuotaStore interface {
	Consume(ctx context.Context, userID, day string, limit int) (used int, allowed bool, err error)
	Usage(ctx context.Context, userID, day string) (int, error)
}

// QuotaPurger lo implementan los stores que pueden borrar registros viejos en bloque.
type QuotaPurger interface {
	PurgeBefore(ctx context.Context, day string) (int, error)
}

// QuotaPolicy mapea plan -> límite diario. Viene de configuración; un límite negativo es ilimitado.
type QuotaPolicy struct {
	limits      map[domain.PlanTier]int
	defaultTier domain.PlanTier
}

func NewQuotaPolicy(limits map[string]int, defaultTier string) QuotaPolicy {
	p := QuotaPolicy{
		limits:      make(map[domain.PlanTier]int, len(limits)),
		defaultTier: domain.PlanTier(normalizeTier(defaultTier)),
	}
	for tier, limit := range limits {
		p.limits[domain.PlanTier(normalizeTier(tier))] = limit
	}
	if p.defaultTier == "" {
		p.defaultTier = domain.PlanTierFree
	}
	return p
}

// DailyLimit resuelve el límite del plan; un plan desconocido usa el plan por defecto.
func (p QuotaPolicy) DailyLimit(tier domain.PlanTier) (limit int, unlimited bool) {
	limit, ok := p.limits[domain.PlanTier(normalizeTier(string(tier)))]
	if !ok {
		limit = p.limits[p.defaultTier]
	}
	return limit, limit < 0
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}

// QuotaGuard aplica el tope diario de pedidos de ranking por usuario.
type QuotaGuard struct {
	store  QuotaStore
	policy QuotaPolicy
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewQuotaGuard(store QuotaStore, policy QuotaPolicy, loc *time.Location, now func() time.Time, logger *zap.Logger) *QuotaGuard {
	if store == nil {
		store = NewMemoryQuotaStore()
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaGuard{store: store, policy: policy, loc: loc, now: now, logger: logger}
}

// CheckAndConsume usa la zona por defecto del guard.
func (g *QuotaGuard) CheckAndConsume(ctx context.Context, userID string, tier domain.PlanTier) (domain.QuotaDecision, error) {
	return g.CheckAndConsumeIn(ctx, userID, tier, nil)
}

// CheckAndConsumeIn verifica y consume en una sola operación del store, con el día calendario de loc.
func (g *QuotaGuard) CheckAndConsumeIn(ctx context.Context, userID string, tier domain.PlanTier, loc *time.Location) (domain.QuotaDecision, error) {
	day, resetsAt := g.today(loc)
	limit, unlimited := g.policy.DailyLimit(tier)

	if !unlimited && limit == 0 {
		used, err := g.store.Usage(ctx, userID, day)
		if err != nil {
			return domain.QuotaDecision{}, fmt.Errorf("%w: %v", ErrQuotaStoreUnavailable, err)
		}
		return buildDecision(false, used, limit, unlimited, resetsAt), nil
	}

	used, allowed, err := g.store.Consume(ctx, userID, day, limit)
	if err != nil {
		g.logger.Warn("quota consume failed", zap.String("user_id", userID), zap.String("day", day), zap.Error(err))
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", ErrQuotaStoreUnavailable, err)
	}
	if allowed && used == 1 {
		g.purgeStale(ctx, day)
	}
	return buildDecision(allowed, used, limit, unlimited, resetsAt), nil
}

// purgeStale corre con el primer pedido del día de cada usuario. Deja un día de margen
// para no borrar el "hoy" de usuarios en zonas horarias atrasadas.
func (g *QuotaGuard) purgeStale(ctx context.Context, day string) {
	purger, ok := g.store.(QuotaPurger)
	if !ok {
		return
	}
	today, err := time.Parse(dayLayout, day)
	if err != nil {
		return
	}
	cutoff := today.AddDate(0, 0, -1).Format(dayLayout)
	if _, err := purger.PurgeBefore(ctx, cutoff); err != nil {
		g.logger.Warn("purge stale usage failed", zap.String("cutoff", cutoff), zap.Error(err))
	}
}

// Status devuelve la superficie de cuota sin consumir.
func (g *QuotaGuard) Status(ctx context.Context, userID string, tier domain.PlanTier, loc *time.Location) (domain.QuotaDecision, error) {
	day, resetsAt := g.today(loc)
	limit, unlimited := g.policy.DailyLimit(tier)
	used, err := g.store.Usage(ctx, userID, day)
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("%w: %v", ErrQuotaStoreUnavailable, err)
	}
	allowed := unlimited || used < limit
	return buildDecision(allowed, used, limit, unlimited, resetsAt), nil
}

// today calcula la clave de día y la próxima medianoche local. Los límites son por fecha exacta, no ventanas de 24h.
func (g *QuotaGuard) today(loc *time.Location) (string, time.Time) {
	if loc == nil {
		loc = g.loc
	}
	now := g.now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return now.Format(dayLayout), midnight.AddDate(0, 0, 1)
}

func buildDecision(allowed bool, used, limit int, unlimited bool, resetsAt time.Time) domain.QuotaDecision {
	d := domain.QuotaDecision{
		Allowed:    allowed,
		UsedToday:  used,
		DailyLimit: limit,
		Unlimited:  unlimited,
		ResetsAt:   resetsAt,
	}
	if unlimited {
		d.DailyLimit = -1
		d.RemainingRequests = -1
		return d
	}
	d.RemainingRequests = limit - used
	if d.RemainingRequests < 0 {
		d.RemainingRequests = 0
	}
	return d
}

// memoryQuotaStore guarda el uso en memoria; sirve para tests, el CLI y despliegues de una sola instancia.
type memoryQuotaStore struct {
	mu    sync.Mutex
	usage map[string]map[string]int // userID -> day -> requests
}

// NewMemoryQuotaStore crea un store en memoria protegido por mutex.
func NewMemoryQuotaStore() QuotaStore {
	return &memoryQuotaStore{usage: make(map[string]map[string]int)}
}

func (s *memoryQuotaStore) Consume(_ context.Context, userID, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := s.daysFor(userID, day)
	used := days[day]
	if limit >= 0 && used >= limit {
		return used, false, nil
	}
	used++
	days[day] = used
	return used, true, nil
}

func (s *memoryQuotaStore) Usage(_ context.Context, userID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daysFor(userID, day)[day], nil
}

// daysFor purga de paso los días anteriores a day: son basura, nunca cuentan para hoy.
func (s *memoryQuotaStore) daysFor(userID, day string) map[string]int {
	days, ok := s.usage[userID]
	if !ok {
		days = make(map[string]int)
		s.usage[userID] = days
	}
	for d := range days {
		if d < day {
			delete(days, d)
		}
	}
	return days
}

// PurgeBefore elimina todos los registros con día anterior a day.
func (s *memoryQuotaStore) PurgeBefore(_ context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for userID, days := range s.usage {
		for d := range days {
			if d < day {
				delete(days, d)
				purged++
			}
		}
		if len(days) == 0 {
			delete(s.usage, userID)
		}
	}
	return purged, nil
}
