package domain

import "time"

const (
	SwipeLeft  = "left"
	SwipeRight = "right"
)

type Swipe struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	TargetUserID string    `json:"target_user_id"`
	Direction    string    `json:"direction"`
	CreatedAt    time.Time `json:"created_at"`
}

// SwipeOutcome informa si el swipe generó un match mutuo y si el chat directo queda habilitado.
type SwipeOutcome struct {
	Swipe              Swipe `json:"swipe"`
	Matched            bool  `json:"matched"`
	CanMessageDirectly bool  `json:"can_message_directly"`
	OverallScore       int   `json:"overall_score"`
}
