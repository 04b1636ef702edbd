package domain

import "time"

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PlanTier    PlanTier  `json:"plan_tier"`
	TimeZone    string    `json:"time_zone,omitempty"` // nombre IANA, ej. "America/Argentina/Buenos_Aires"
	CreatedAt   time.Time `json:"created_at"`
}
