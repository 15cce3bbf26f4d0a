package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TableMessages        = "messages"
	TableNotifications   = "notifications"
	TableBookingRequests = "booking_requests"

	OperationInsert = "insert"
	OperationUpdate = "update"
	// OperationResync is emitted locally after a feed source reconnects.
	// Subscribers reload their state because events may have been missed.
	OperationResync = "resync"
)

// ChangeEvent is a single row change observed on a table.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	Row       json.RawMessage `json:"row,omitempty"`
	// Origin identifies the process that published the event, when known.
	Origin string `json:"origin,omitempty"`
}

func NewInsertEvent(table string, row any) (ChangeEvent, error) {
	return newRowEvent(table, OperationInsert, row)
}

// NewUpdateEvent carries the row as it reads after the update.
func NewUpdateEvent(table string, row any) (ChangeEvent, error) {
	return newRowEvent(table, OperationUpdate, row)
}

func newRowEvent(table string, operation string, row any) (ChangeEvent, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("marshal %s row: %w", table, err)
	}
	return ChangeEvent{Table: table, Operation: operation, Row: payload}, nil
}

func ParseChangeEvent(payload []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if event.Table == "" || event.Operation == "" {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing table or operation")
	}
	return event, nil
}

// DecodeRow unmarshals the event row into dst.
func (e ChangeEvent) DecodeRow(dst any) error {
	if len(e.Row) == 0 {
		return fmt.Errorf("%s %s event has no row", e.Table, e.Operation)
	}
	if err := json.Unmarshal(e.Row, dst); err != nil {
		return fmt.Errorf("decode %s row: %w", e.Table, err)
	}
	return nil
}

// Filter decides whether a subscriber receives an event. A nil Filter accepts everything.
type Filter func(event ChangeEvent) bool

// ColumnEquals accepts events whose row has column == value. Resync events always pass.
func ColumnEquals(column string, value string) Filter {
	return func(event ChangeEvent) bool {
		if event.Operation == OperationResync {
			return true
		}
		var row map[string]any
		if err := json.Unmarshal(event.Row, &row); err != nil {
			return false
		}
		got, ok := row[column].(string)
		return ok && got == value
	}
}

// AnyColumnEquals accepts events where at least one of the columns equals value.
func AnyColumnEquals(value string, columns ...string) Filter {
	return func(event ChangeEvent) bool {
		if event.Operation == OperationResync {
			return true
		}
		var row map[string]any
		if err := json.Unmarshal(event.Row, &row); err != nil {
			return false
		}
		for _, column := range columns {
			if got, ok := row[column].(string); ok && got == value {
				return true
			}
		}
		return false
	}
}

// Publisher pushes change events into a feed.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ChangeEvent) error {
	return nil
}

func backoff(attempt int) time.Duration {
	delay := time.Second << uint(attempt)
	if delay > 30*time.Second || delay <= 0 {
		return 30 * time.Second
	}
	return delay
}
