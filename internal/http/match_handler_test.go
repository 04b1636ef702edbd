package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"match-engine/internal/domain"
	"match-engine/internal/service"
)

type mockUserRepo struct {
	users map[string]domain.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

type mockProfileRepo struct {
	records map[string]domain.RawRecord
	swipes  *mockSwipeRepo
	listErr error
}

func (m *mockProfileRepo) GetRecord(_ context.Context, userID string) (domain.RawRecord, error) {
	rec, ok := m.records[userID]
	if !ok {
		return domain.RawRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *mockProfileRepo) ListCandidates(ctx context.Context, requesterID string, _ int) ([]domain.RawRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	swiped := map[string]bool{}
	if m.swipes != nil {
		ids, _ := m.swipes.ListSwipedIDs(ctx, requesterID)
		for _, id := range ids {
			swiped[id] = true
		}
	}
	out := []domain.RawRecord{}
	for id, rec := range m.records {
		if id != requesterID && !swiped[id] {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockSwipeRepo struct {
	swipes []domain.Swipe
}

func (m *mockSwipeRepo) Create(_ context.Context, swipe domain.Swipe) error {
	m.swipes = append(m.swipes, swipe)
	return nil
}

func (m *mockSwipeRepo) ListSwipedIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, s := range m.swipes {
		if s.UserID == userID {
			ids = append(ids, s.TargetUserID)
		}
	}
	return ids, nil
}

func (m *mockSwipeRepo) HasSwipedRight(_ context.Context, userID, targetUserID string) (bool, error) {
	for _, s := range m.swipes {
		if s.UserID == userID && s.TargetUserID == targetUserID && s.Direction == domain.SwipeRight {
			return true, nil
		}
	}
	return false, nil
}

type testServer struct {
	router   *gin.Engine
	jwt      *service.JWTService
	svc      *service.MatchService
	profiles *mockProfileRepo
}

func setupMatchRouter(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := &mockProfileRepo{records: map[string]domain.RawRecord{
		"me": {UserID: "me", Profile: domain.RawProfile{Interests: `["hiking","music"]`}},
		"c1": {UserID: "c1", Profile: domain.RawProfile{Interests: `["music"]`}},
		"c2": {UserID: "c2", Profile: domain.RawProfile{Interests: `["chess"]`}},
	}}
	swipes := &mockSwipeRepo{}
	profiles.swipes = swipes
	users := &mockUserRepo{users: map[string]domain.User{
		"me": {ID: "me", PlanTier: domain.PlanTierFree},
		"c1": {ID: "c1", PlanTier: domain.PlanTierFree},
		"c2": {ID: "c2", PlanTier: domain.PlanTierFree},
	}}
	policy := service.NewQuotaPolicy(map[string]int{"free": 1}, "free")
	guard := service.NewQuotaGuard(service.NewMemoryQuotaStore(), policy, time.UTC, nil, zap.NewNop())
	matchSvc := service.NewMatchService(zap.NewNop(), users, profiles, swipes, nil, nil, guard, service.NewChatGate(80), service.MatchServiceConfig{})

	jwtSvc := service.NewJWTService("secret", 15*time.Minute)
	router := NewRouter(zap.NewNop(), jwtSvc, NewMatchHandler(zap.NewNop(), matchSvc), RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		ServiceName:    "match-engine-test",
	})
	return testServer{router: router, jwt: jwtSvc, svc: matchSvc, profiles: profiles}
}

func (s testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := s.jwt.IssueAccessToken(domain.User{ID: userID})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func performRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := setupMatchRouter(t)
	rec := performRequest(s.router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	s := setupMatchRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/matches", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestMatchHandlerFindMatches_RequiresAuth(t *testing.T) {
	s := setupMatchRouter(t)
	rec := performRequest(s.router, http.MethodGet, "/matches", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestMatchHandlerFindMatches_SuccessThenQuotaExhausted(t *testing.T) {
	s := setupMatchRouter(t)
	token := s.token(t, "me")

	rec := performRequest(s.router, http.MethodGet, "/matches?limit=5", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Quota      domain.QuotaDecision     `json:"quota"`
		Candidates []domain.RankedCandidate `json:"candidates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Candidates) != 2 || body.Candidates[0].CandidateID != "c1" || body.Candidates[0].Rank != 1 {
		t.Fatalf("unexpected candidates %+v", body.Candidates)
	}
	if body.Quota.RemainingRequests != 0 {
		t.Fatalf("expected remaining 0, got %+v", body.Quota)
	}

	rec = performRequest(s.router, http.MethodGet, "/matches", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 once quota is exhausted, got %d", rec.Code)
	}
	var exhausted map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &exhausted); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := exhausted["error"]; ok {
		t.Fatalf("quota exhaustion must not be reported as an error: %v", exhausted)
	}
	quota, _ := exhausted["quota"].(map[string]any)
	if quota["allowed"] != false || quota["remaining_requests"] != float64(0) {
		t.Fatalf("unexpected quota surface %v", quota)
	}
	if candidates, _ := exhausted["candidates"].([]any); len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", exhausted["candidates"])
	}
}

func TestMatchHandlerFindMatches_InvalidLimit(t *testing.T) {
	s := setupMatchRouter(t)
	rec := performRequest(s.router, http.MethodGet, "/matches?limit=abc", s.token(t, "me"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestMatchHandlerFindMatches_PoolUnavailable(t *testing.T) {
	s := setupMatchRouter(t)
	s.profiles.listErr = errors.New("connection reset")

	rec := performRequest(s.router, http.MethodGet, "/matches", s.token(t, "me"), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["retryable"] != true {
		t.Fatalf("expected retryable flag, got %v", body)
	}
}

func TestMatchHandlerFindMatches_UnknownProfile(t *testing.T) {
	s := setupMatchRouter(t)
	rec := performRequest(s.router, http.MethodGet, "/matches", s.token(t, "ghost"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestMatchHandlerCompatibility(t *testing.T) {
	s := setupMatchRouter(t)
	token := s.token(t, "me")

	rec := performRequest(s.router, http.MethodGet, "/matches/c1/compatibility", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var pair domain.PairCompatibility
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if pair.CandidateID != "c1" || len(pair.SharedInterests) != 1 {
		t.Fatalf("unexpected pair %+v", pair)
	}

	rec = performRequest(s.router, http.MethodGet, "/matches/me/compatibility", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for self, got %d", rec.Code)
	}
}

func TestMatchHandlerQuota(t *testing.T) {
	s := setupMatchRouter(t)
	rec := performRequest(s.router, http.MethodGet, "/quota", s.token(t, "me"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		Quota domain.QuotaDecision `json:"quota"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Quota.Allowed || body.Quota.UsedToday != 0 || body.Quota.DailyLimit != 1 {
		t.Fatalf("unexpected quota %+v", body.Quota)
	}
}

func TestMatchHandlerRecordSwipe(t *testing.T) {
	s := setupMatchRouter(t)

	rec := performRequest(s.router, http.MethodPost, "/swipes", s.token(t, "me"), map[string]string{
		"target_user_id": "c1",
		"direction":      "right",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	rec = performRequest(s.router, http.MethodPost, "/swipes", s.token(t, "c1"), map[string]string{
		"target_user_id": "me",
		"direction":      "right",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var outcome domain.SwipeOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !outcome.Matched || !outcome.CanMessageDirectly {
		t.Fatalf("expected mutual match, got %+v", outcome)
	}
}

func TestMatchHandlerRecordSwipe_RateLimited(t *testing.T) {
	s := setupMatchRouter(t)
	s.svc.WithSwipeLimiter(service.NewMemorySwipeRateLimiter(time.Minute, 1))
	token := s.token(t, "me")

	rec := performRequest(s.router, http.MethodPost, "/swipes", token, map[string]string{"target_user_id": "c1", "direction": "left"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	rec = performRequest(s.router, http.MethodPost, "/swipes", token, map[string]string{"target_user_id": "c2", "direction": "left"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
}

func TestMatchHandlerRecordSwipe_InvalidRequest(t *testing.T) {
	s := setupMatchRouter(t)
	token := s.token(t, "me")

	rec := performRequest(s.router, http.MethodPost, "/swipes", token, map[string]string{"direction": "right"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	rec = performRequest(s.router, http.MethodPost, "/swipes", token, map[string]string{
		"target_user_id": "c1",
		"direction":      "sideways",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
