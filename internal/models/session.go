package models

import "time"

const (
	SessionStatusUpcoming  = "upcoming"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

type Session struct {
	ID           string    `json:"id"`
	CoachID      string    `json:"coach_id"`
	ClientID     string    `json:"client_id"`
	UserClientID *string   `json:"user_client_id"`
	SessionDate  time.Time `json:"session_date"`
	SessionType  string    `json:"session_type"`
	Duration     int       `json:"duration"`
	Location     *string   `json:"location"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
