package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Reader is the read side used by the admission rules.  Lookups of a
// missing row return the matching repository sentinel error
// (repository.ErrRestaurantNotFound, repository.ErrReservationNotFound).
type Reader interface {
	GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error)
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	// ListReservations returns the reservations of userID, or all of them
	// when userID is zero, newest first.
	ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error)
	ListHistory(ctx context.Context, reservationID uint64) ([]model.ReservationHistory, error)

	HolidayExists(ctx context.Context, restaurantID uint64, day time.Time) (bool, error)
	// CountActiveInSlot counts reservations of the slot whose status is
	// active, ignoring excludeID when it is non-zero.
	CountActiveInSlot(ctx context.Context, slot model.Slot, excludeID uint64) (int, error)
	// CountActiveForUser counts userID's active reservations dated in [from, to).
	CountActiveForUser(ctx context.Context, userID uint64, from, to time.Time) (int, error)
	HasActiveOnDate(ctx context.Context, restaurantID uint64, day time.Time) (bool, error)
}

// Tx is a Reader bound to an open transaction plus the writes an
// admitted mutation performs.  Lock* methods take row locks that are
// held until the transaction ends.
type Tx interface {
	Reader
	HistoryAppender

	LockUser(ctx context.Context, userID uint64) error
	// LockRestaurants locks the given restaurant rows in ascending id
	// order.  Missing ids are ignored.
	LockRestaurants(ctx context.Context, ids ...uint64) error
	LockReservation(ctx context.Context, id uint64) error

	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	InsertHoliday(ctx context.Context, h *model.Holiday) error
}

// Store opens transactions.  WithinTx commits when fn returns nil and
// rolls back otherwise.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
