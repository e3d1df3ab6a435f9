package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// EventPublisher receives reservation events once their transaction has
// committed.  Publishing is best effort; errors are dropped here.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Reservations runs admitted reservation mutations.  Every mutation
// locks the rows its checks depend on, admits, writes and records history
// inside a single transaction.
type Reservations struct {
	store    Store
	loc      *time.Location
	recorder *Recorder
	events   EventPublisher
	now      func() time.Time
}

// NewReservations wires the service.  events may be nil.
func NewReservations(store Store, loc *time.Location, events EventPublisher) *Reservations {
	if loc == nil {
		loc = time.UTC
	}
	return &Reservations{
		store:    store,
		loc:      loc,
		recorder: NewRecorder(),
		events:   events,
		now:      time.Now,
	}
}

// Location is the time zone calendar days are cut in.
func (s *Reservations) Location() *time.Location { return s.loc }

// Create books a table for actor.
func (s *Reservations) Create(ctx context.Context, actor model.Identity, req CreateRequest) (*model.Reservation, error) {
	req.UserID = actor.UserID
	var out *model.Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.LockUser(ctx, req.UserID); err != nil {
			return err
		}
		if err := tx.LockRestaurants(ctx, req.RestaurantID); err != nil {
			return err
		}
		draft, err := NewGuard(tx, s.loc).AdmitCreate(ctx, req)
		if err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, draft); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, draft.ID, actor.UserID, model.ActionCreated, draft); err != nil {
			return err
		}
		out = draft
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.ActionCreated, out, actor.UserID)
	return out, nil
}

// Update applies ch to reservation id on behalf of its owner or an admin.
func (s *Reservations) Update(ctx context.Context, actor model.Identity, id uint64, ch Changes) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		cur, err := s.lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canAccess(actor, cur) {
			return ErrForbidden
		}
		target := cur.RestaurantID
		if ch.RestaurantID != nil {
			target = *ch.RestaurantID
		}
		if err := tx.LockRestaurants(ctx, cur.RestaurantID, target); err != nil {
			return err
		}
		patch, err := NewGuard(tx, s.loc).AdmitUpdate(ctx, id, ch)
		if err != nil {
			return err
		}
		next := *cur
		patch.Apply(&next)
		by := actor.UserID
		next.UpdatedBy = &by
		if err := tx.UpdateReservation(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrRestaurantNotFound) {
				return ErrRestaurantNotFound
			}
			return err
		}
		if err := s.recorder.Record(ctx, tx, next.ID, actor.UserID, model.ActionUpdated, next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.ActionUpdated, out, actor.UserID)
	return out, nil
}

// Cancel cancels reservation id.  The owner's cancel yields canceled, an
// admin's yields deleted.
func (s *Reservations) Cancel(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error) {
	return s.changeStatus(ctx, actor, id, func(g *Guard) (*model.Reservation, error) {
		return g.AdmitCancel(ctx, id, actor)
	})
}

// Complete marks reservation id as completed.
func (s *Reservations) Complete(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error) {
	return s.changeStatus(ctx, actor, id, func(g *Guard) (*model.Reservation, error) {
		return g.AdmitComplete(ctx, id, actor)
	})
}

func (s *Reservations) changeStatus(ctx context.Context, actor model.Identity, id uint64, admit func(*Guard) (*model.Reservation, error)) (*model.Reservation, error) {
	var (
		out    *model.Reservation
		action model.HistoryAction
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := s.lockReservation(ctx, tx, id); err != nil {
			return err
		}
		next, err := admit(NewGuard(tx, s.loc))
		if err != nil {
			return err
		}
		a, ok := model.ActionForStatus(next.Status)
		if !ok {
			return ErrInvalidTransition
		}
		if err := tx.UpdateReservation(ctx, next); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, next.ID, actor.UserID, a, next); err != nil {
			return err
		}
		out, action = next, a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, action, out, actor.UserID)
	return out, nil
}

// Get returns reservation id when actor may see it.
func (s *Reservations) Get(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, res) {
		return nil, ErrForbidden
	}
	return res, nil
}

// List returns actor's reservations, or every reservation for admins.
func (s *Reservations) List(ctx context.Context, actor model.Identity) ([]model.Reservation, error) {
	uid := actor.UserID
	if actor.IsAdmin() {
		uid = 0
	}
	return s.store.ListReservations(ctx, uid)
}

// History returns the audit trail of reservation id in insertion order.
func (s *Reservations) History(ctx context.Context, actor model.Identity, id uint64) ([]model.ReservationHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, id)
}

// SlotAvailability is one hourly slot of a day.
type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DayAvailability lists the slots of one restaurant day.  On a holiday
// Holiday is set and Slots is empty.
type DayAvailability struct {
	RestaurantID uint64             `json:"restaurant_id"`
	Date         string             `json:"date"`
	Holiday      bool               `json:"holiday"`
	Slots        []SlotAvailability `json:"availability"`
}

// Availability reports, for every hourly slot between the restaurant's
// opening and closing hour, whether a table is still free.
func (s *Reservations) Availability(ctx context.Context, restaurantID uint64, date time.Time) (*DayAvailability, error) {
	rest, err := s.store.GetRestaurant(ctx, restaurantID)
	if errors.Is(err, repository.ErrRestaurantNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	day := model.DayOf(date, s.loc)
	out := &DayAvailability{
		RestaurantID: rest.ID,
		Date:         day.Format(model.DateLayout),
		Slots:        []SlotAvailability{},
	}
	holiday, err := s.store.HolidayExists(ctx, rest.ID, day)
	if err != nil {
		return nil, err
	}
	if holiday {
		out.Holiday = true
		return out, nil
	}
	times, err := rest.TimeSlots()
	if err != nil {
		return nil, err
	}
	checker := NewChecker(s.store)
	for _, t := range times {
		ok, err := checker.hasRoom(ctx, rest, model.Slot{RestaurantID: rest.ID, Date: day, Time: t}, 0)
		if err != nil {
			return nil, err
		}
		out.Slots = append(out.Slots, SlotAvailability{Time: t, Available: ok})
	}
	return out, nil
}

// CreateHoliday closes restaurantID on date.
func (s *Reservations) CreateHoliday(ctx context.Context, actor model.Identity, restaurantID uint64, date time.Time, description string) (*model.Holiday, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	day := model.DayOf(date, s.loc)
	by := actor.UserID
	h := &model.Holiday{
		RestaurantID: restaurantID,
		Date:         day,
		Description:  description,
		CreatedBy:    &by,
		UpdatedBy:    &by,
	}
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.LockRestaurants(ctx, restaurantID); err != nil {
			return err
		}
		if err := NewGuard(tx, s.loc).AdmitHoliday(ctx, restaurantID, day); err != nil {
			return err
		}
		err := tx.InsertHoliday(ctx, h)
		if errors.Is(err, repository.ErrDuplicateHoliday) {
			return ErrDuplicateHoliday
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Reservations) lockReservation(ctx context.Context, tx Tx, id uint64) (*model.Reservation, error) {
	if err := tx.LockReservation(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res, err := tx.GetReservation(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

func (s *Reservations) publish(ctx context.Context, action model.HistoryAction, r *model.Reservation, actorID uint64) {
	if s.events == nil || r == nil {
		return
	}
	_ = s.events.Publish(ctx, queue.NewReservationEvent(action, r, actorID, s.now()))
}

func canAccess(actor model.Identity, r *model.Reservation) bool {
	return actor.IsAdmin() || r.UserID == actor.UserID
}
