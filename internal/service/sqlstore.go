package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// SQLStore is the MySQL backed Store.  Transactions run at READ
// COMMITTED; the row locks taken through Tx make the admission checks
// hold until commit.
type SQLStore struct {
	db *sql.DB
	sqlOps
}

// sqlOps binds the repositories to one querier.
type sqlOps struct {
	restaurants  *repository.RestaurantRepo
	reservations *repository.ReservationRepo
	holidays     *repository.HolidayRepo
	history      *repository.HistoryRepo
	users        *repository.UserRepo
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, sqlOps: sqlOps{
		restaurants:  repository.NewRestaurantRepo(db),
		reservations: repository.NewReservationRepo(db),
		holidays:     repository.NewHolidayRepo(db),
		history:      repository.NewHistoryRepo(db),
		users:        repository.NewUserRepo(db),
	}}
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ops := &sqlOps{
		restaurants:  s.restaurants.WithTx(tx),
		reservations: s.reservations.WithTx(tx),
		holidays:     s.holidays.WithTx(tx),
		history:      s.history.WithTx(tx),
		users:        s.users.WithTx(tx),
	}
	if err := fn(ops); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (o *sqlOps) GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return o.restaurants.GetByID(ctx, id)
}

func (o *sqlOps) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return o.reservations.GetByID(ctx, id)
}

func (o *sqlOps) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return o.reservations.List(ctx, userID)
}

func (o *sqlOps) ListHistory(ctx context.Context, reservationID uint64) ([]model.ReservationHistory, error) {
	return o.history.ListByReservation(ctx, reservationID)
}

func (o *sqlOps) HolidayExists(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	return o.holidays.Exists(ctx, restaurantID, day)
}

func (o *sqlOps) CountActiveInSlot(ctx context.Context, slot model.Slot, excludeID uint64) (int, error) {
	return o.reservations.CountActiveInSlot(ctx, slot, excludeID)
}

func (o *sqlOps) CountActiveForUser(ctx context.Context, userID uint64, from, to time.Time) (int, error) {
	return o.reservations.CountActiveForUser(ctx, userID, from, to)
}

func (o *sqlOps) HasActiveOnDate(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	return o.reservations.HasActiveOnDate(ctx, restaurantID, day)
}

func (o *sqlOps) AppendHistory(ctx context.Context, h *model.ReservationHistory) error {
	return o.history.Append(ctx, h)
}

func (o *sqlOps) LockUser(ctx context.Context, userID uint64) error {
	return o.users.LockByID(ctx, userID)
}

func (o *sqlOps) LockRestaurants(ctx context.Context, ids ...uint64) error {
	return o.restaurants.LockByIDs(ctx, ids...)
}

func (o *sqlOps) LockReservation(ctx context.Context, id uint64) error {
	return o.reservations.LockByID(ctx, id)
}

func (o *sqlOps) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return o.reservations.Create(ctx, r)
}

func (o *sqlOps) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	return o.reservations.Update(ctx, r)
}

func (o *sqlOps) InsertHoliday(ctx context.Context, h *model.Holiday) error {
	return o.holidays.Create(ctx, h)
}
