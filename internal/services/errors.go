package services

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrEmptyMessage            = errors.New("message content is empty")
	ErrMissingBookingReference = errors.New("notification is missing booking_request_id or client_id")
	ErrCoachNotFound           = errors.New("coach not found")
	ErrStorageUnavailable      = errors.New("storage unavailable")
)

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if !validID(id) {
			return false
		}
	}
	return true
}
