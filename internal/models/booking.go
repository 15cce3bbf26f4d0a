package models

import "time"

const (
	BookingStatusPending  = "pending"
	BookingStatusAccepted = "accepted"
	BookingStatusRejected = "rejected"

	RelationshipStatusPending = "pending"
	RelationshipStatusActive  = "active"
)

type BookingRequest struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"client_id"`
	CoachID           string    `json:"coach_id"`
	PackageID         *string   `json:"package_id"`
	Message           string    `json:"message"`
	RequestedSessions *int      `json:"requested_sessions"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (b BookingRequest) IsTerminal() bool {
	return b.Status == BookingStatusAccepted || b.Status == BookingStatusRejected
}

type BookingRequestDetail struct {
	BookingRequest
	ClientProfile *Profile `json:"client_profile,omitempty"`
}

type CoachClientRelationship struct {
	ID        string    `json:"id"`
	CoachID   string    `json:"coach_id"`
	ClientID  string    `json:"client_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingDecision is the outcome of accepting or rejecting a booking request.
type BookingDecision struct {
	Request      *BookingRequest          `json:"booking_request"`
	Relationship *CoachClientRelationship `json:"relationship,omitempty"`
	// Replayed is set when the request already carried this decision.
	Replayed bool `json:"replayed"`
}
