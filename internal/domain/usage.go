package domain

import "time"

// PlanTier es el nivel de suscripción del usuario.
type PlanTier string

const (
	PlanTierFree     PlanTier = "free"
	PlanTierPremium  PlanTier = "premium"
	PlanTierPlatinum PlanTier = "platinum"
)

// DailyUsage cuenta pedidos de ranking de un usuario en un día calendario.
type DailyUsage struct {
	UserID       string `json:"user_id"`
	Day          string `json:"day"` // YYYY-MM-DD en la zona local del usuario
	RequestsUsed int    `json:"requests_used"`
}

// QuotaDecision es lo que la UI usa para mostrar pedidos restantes y avisos de upgrade.
// DailyLimit < 0 significa ilimitado.
type QuotaDecision struct {
	Allowed           bool      `json:"allowed"`
	UsedToday         int       `json:"used_today"`
	DailyLimit        int       `json:"daily_limit"`
	RemainingRequests int       `json:"remaining_requests"`
	Unlimited         bool      `json:"unlimited"`
	ResetsAt          time.Time `json:"resets_at"`
}
