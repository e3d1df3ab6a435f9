package model

import (
	"encoding/json"
	"time"
)

// HistoryAction names the mutation a history entry records.
type HistoryAction string

const (
	ActionCreated   HistoryAction = "created"
	ActionUpdated   HistoryAction = "updated"
	ActionCanceled  HistoryAction = "canceled"
	ActionCompleted HistoryAction = "completed"
	ActionDeleted   HistoryAction = "deleted"
)

// ActionForStatus maps a resulting status to the action recorded for it.
func ActionForStatus(s ReservationStatus) (HistoryAction, bool) {
	switch s {
	case StatusCanceled:
		return ActionCanceled, true
	case StatusCompleted:
		return ActionCompleted, true
	case StatusDeleted:
		return ActionDeleted, true
	}
	return "", false
}

// ReservationHistory is one append-only audit entry.  Snapshot holds the
// JSON encoded reservation as it was right after the mutation.  Entries
// of one reservation are ordered by ID.
type ReservationHistory struct {
	ID            uint64          `json:"id"`
	ReservationID uint64          `json:"reservation_id"`
	UserID        uint64          `json:"user_id"`
	Action        HistoryAction   `json:"action"`
	Snapshot      json.RawMessage `json:"snapshot"`
	Timestamp     time.Time       `json:"timestamp"`
}
