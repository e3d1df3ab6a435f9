package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// HistoryAppender persists one history entry.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, h *model.ReservationHistory) error
}

// Recorder builds audit entries.  It must be called after the mutation it
// describes has been written, on the same transaction, so a rolled back
// mutation leaves no entry behind.
type Recorder struct {
	now func() time.Time
}

func NewRecorder() *Recorder { return &Recorder{now: time.Now} }

// Record appends an entry for reservationID with a JSON copy of snapshot.
func (r *Recorder) Record(ctx context.Context, w HistoryAppender, reservationID, userID uint64, action model.HistoryAction, snapshot any) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return w.AppendHistory(ctx, &model.ReservationHistory{
		ReservationID: reservationID,
		UserID:        userID,
		Action:        action,
		Snapshot:      raw,
		Timestamp:     r.now().UTC(),
	})
}
