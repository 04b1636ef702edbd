package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"match-engine/internal/service"
)

// MatchHandler expone ranking, detalle de compatibilidad, cuota y swipes.
type MatchHandler struct {
	logger   *zap.Logger
	matchSvc *service.MatchService
}

func NewMatchHandler(logger *zap.Logger, matchSvc *service.MatchService) *MatchHandler {
	return &MatchHandler{logger: logger, matchSvc: matchSvc}
}

// FindMatches maneja GET /matches?limit=N. Consume un pedido de la cuota diaria; con la cuota
// agotada responde 200 con quota.allowed=false y sin candidatos.
func (h *MatchHandler) FindMatches(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	res, err := h.matchSvc.FindMatches(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		h.writeError(c, "find matches failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Compatibility maneja GET /matches/:candidateID/compatibility.
func (h *MatchHandler) Compatibility(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	candidateID := strings.TrimSpace(c.Param("candidateID"))
	if candidateID == "" || candidateID == claims.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate"})
		return
	}

	pair, err := h.matchSvc.Compatibility(c.Request.Context(), claims.UserID, candidateID)
	if err != nil {
		h.writeError(c, "compatibility failed", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Quota maneja GET /quota; no consume.
func (h *MatchHandler) Quota(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	decision, err := h.matchSvc.QuotaStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, "quota status failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quota": decision})
}

// RecordSwipe maneja POST /swipes.
func (h *MatchHandler) RecordSwipe(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		TargetUserID string `json:"target_user_id" binding:"required"`
		Direction    string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid swipe request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	outcome, err := h.matchSvc.RecordSwipe(c.Request.Context(), claims.UserID, req.TargetUserID, req.Direction)
	if err != nil {
		h.writeError(c, "record swipe failed", err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (h *MatchHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, service.ErrInvalidSwipe):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid swipe"})
	case errors.Is(err, service.ErrSwipeRateLimited):
		var limited *service.SwipeRateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrCandidatePoolUnavailable):
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candidate pool unavailable", "retryable": true})
	case errors.Is(err, service.ErrQuotaStoreUnavailable):
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quota unavailable", "retryable": true})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
