package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/table-reservation/internal/model"
)

// HistoryRepo appends to and reads the reservation_history table.  Rows
// are never updated or deleted.
type HistoryRepo struct {
	db querier
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func (r *HistoryRepo) WithTx(tx *sql.Tx) *HistoryRepo { return &HistoryRepo{db: tx} }

// Append inserts h and sets its ID.
func (r *HistoryRepo) Append(ctx context.Context, h *model.ReservationHistory) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reservation_history (reservation_id, user_id, action, snapshot, created_at) VALUES (?,?,?,?,?)",
		h.ReservationID, h.UserID, string(h.Action), []byte(h.Snapshot), h.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// ListByReservation returns the entries of a reservation in insertion order.
func (r *HistoryRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.ReservationHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, reservation_id, user_id, action, snapshot, created_at FROM reservation_history WHERE reservation_id=? ORDER BY id",
		reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationHistory{}
	for rows.Next() {
		var (
			h      model.ReservationHistory
			action string
			snap   []byte
		)
		if err := rows.Scan(&h.ID, &h.ReservationID, &h.UserID, &action, &snap, &h.Timestamp); err != nil {
			return nil, err
		}
		h.Action = model.HistoryAction(action)
		h.Snapshot = snap
		out = append(out, h)
	}
	return out, rows.Err()
}
