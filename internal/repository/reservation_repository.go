package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationRepo provides access to the reservations table.  Counting
// queries treat canceled and deleted rows as free.
type ReservationRepo struct {
	db querier
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// WithTx returns a copy of the repo that runs on tx.
func (r *ReservationRepo) WithTx(tx *sql.Tx) *ReservationRepo { return &ReservationRepo{db: tx} }

const reservationColumns = `id, user_id, restaurant_id, reserved_date, reserved_time, num_of_guests,
	status, created_by, updated_by, created_at, updated_at`

const activeStatus = "status NOT IN ('canceled','deleted')"

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		res      model.Reservation
		status   string
		crt, upd sql.NullInt64
	)
	if err := s.Scan(&res.ID, &res.UserID, &res.RestaurantID, &res.Date, &res.Time, &res.NumOfGuests,
		&status, &crt, &upd, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.CreatedBy, res.UpdatedBy = idPtr(crt), idPtr(upd)
	return &res, nil
}

// GetByID returns the reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// LockByID takes a row lock on reservation id.  Must run on a transaction.
func (r *ReservationRepo) LockByID(ctx context.Context, id uint64) error {
	var got uint64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM reservations WHERE id=? FOR UPDATE", id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReservationNotFound
	}
	return err
}

// List returns userID's reservations, or all reservations when userID is
// zero, newest first.
func (r *ReservationRepo) List(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	q := "SELECT " + reservationColumns + " FROM reservations"
	var args []any
	if userID != 0 {
		q += " WHERE user_id=?"
		args = append(args, userID)
	}
	q += " ORDER BY reserved_date DESC, reserved_time DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// CountActiveInSlot counts active reservations of slot other than excludeID.
func (r *ReservationRepo) CountActiveInSlot(ctx context.Context, slot model.Slot, excludeID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE restaurant_id=? AND reserved_date=? AND reserved_time=? AND id<>? AND "+activeStatus,
		slot.RestaurantID, slot.Date.Format(model.DateLayout), slot.Time, excludeID).Scan(&n)
	return n, err
}

// CountActiveForUser counts userID's active reservations dated in [from, to).
func (r *ReservationRepo) CountActiveForUser(ctx context.Context, userID uint64, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE user_id=? AND reserved_date>=? AND reserved_date<? AND "+activeStatus,
		userID, from.Format(model.DateLayout), to.Format(model.DateLayout)).Scan(&n)
	return n, err
}

// HasActiveOnDate reports whether any active reservation of restaurantID
// falls on day.
func (r *ReservationRepo) HasActiveOnDate(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE restaurant_id=? AND reserved_date=? AND "+activeStatus+")",
		restaurantID, day.Format(model.DateLayout)).Scan(&ok)
	return ok, err
}

// Create inserts res and reloads it so ID and timestamps are populated.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (user_id, restaurant_id, reserved_date, reserved_time, num_of_guests,
			status, created_by, updated_by) VALUES (?,?,?,?,?,?,?,?)`,
		res.UserID, res.RestaurantID, res.Date.Format(model.DateLayout), res.Time, res.NumOfGuests,
		string(res.Status), nullID(res.CreatedBy), nullID(res.UpdatedBy))
	if isMissingParent(err) {
		return ErrRestaurantNotFound
	}
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	return r.reload(ctx, uint64(id), res)
}

// Update writes the mutable columns of res and reloads it.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET restaurant_id=?, reserved_date=?, reserved_time=?, num_of_guests=?,
			status=?, updated_by=? WHERE id=?`,
		res.RestaurantID, res.Date.Format(model.DateLayout), res.Time, res.NumOfGuests,
		string(res.Status), nullID(res.UpdatedBy), res.ID)
	if isMissingParent(err) {
		return ErrRestaurantNotFound
	}
	if err != nil {
		return err
	}
	return r.reload(ctx, res.ID, res)
}

func (r *ReservationRepo) reload(ctx context.Context, id uint64, into *model.Reservation) error {
	got, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*into = *got
	return nil
}
