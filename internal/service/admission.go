package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// DailyQuota caps the active reservations a user may hold on one
// calendar day.
const DailyQuota = 3

// CreateRequest is a parsed booking request.
type CreateRequest struct {
	UserID       uint64
	RestaurantID uint64
	Date         time.Time
	Time         string
	NumOfGuests  int
}

// Changes is a partial update of a reservation.  A nil field is left as is.
type Changes struct {
	RestaurantID *uint64
	Date         *time.Time
	Time         *string
	NumOfGuests  *int
}

// Patch is an admitted update.  SlotChanged is true when the restaurant,
// date or time differs by value from the stored reservation.
type Patch struct {
	Changes
	SlotChanged bool
}

// Apply writes the non-nil fields of p onto r.
func (p Patch) Apply(r *model.Reservation) {
	if p.RestaurantID != nil {
		r.RestaurantID = *p.RestaurantID
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.NumOfGuests != nil {
		r.NumOfGuests = *p.NumOfGuests
	}
}

// Guard decides whether a mutation may proceed.  It only reads; callers
// that need the decision to hold until the write must run it inside a
// transaction holding the relevant row locks.
type Guard struct {
	r       Reader
	checker *Checker
	loc     *time.Location
}

// NewGuard returns a Guard reading through r.  Calendar days are cut in
// loc; nil means UTC.
func NewGuard(r Reader, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{r: r, checker: NewChecker(r), loc: loc}
}

// AdmitCreate runs the creation checks in order and returns a confirmed
// draft when all of them pass.
func (g *Guard) AdmitCreate(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	rest, err := g.restaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	day := model.DayOf(req.Date, g.loc)

	holiday, err := g.r.HolidayExists(ctx, rest.ID, day)
	if err != nil {
		return nil, err
	}
	if holiday {
		return nil, ErrHolidayBlackout
	}

	n, err := g.r.CountActiveForUser(ctx, req.UserID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if n >= DailyQuota {
		return nil, ErrDailyQuotaExceeded
	}

	slot := model.Slot{RestaurantID: rest.ID, Date: day, Time: req.Time}
	ok, err := g.checker.hasRoom(ctx, rest, slot, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotFull
	}

	uid := req.UserID
	return &model.Reservation{
		UserID:       req.UserID,
		RestaurantID: rest.ID,
		Date:         day,
		Time:         req.Time,
		NumOfGuests:  req.NumOfGuests,
		Status:       model.StatusConfirmed,
		CreatedBy:    &uid,
		UpdatedBy:    &uid,
	}, nil
}

// AdmitUpdate checks ch against reservation id.  Only a change of slot
// identity re-runs the capacity check; quota and holiday are not
// re-applied.  When the effective restaurant does not exist the capacity
// check is skipped.
func (g *Guard) AdmitUpdate(ctx context.Context, id uint64, ch Changes) (*Patch, error) {
	cur, err := g.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.Date != nil {
		d := model.DayOf(*ch.Date, g.loc)
		ch.Date = &d
	}

	p := &Patch{Changes: ch}
	next := *cur
	p.Apply(&next)
	p.SlotChanged = next.RestaurantID != cur.RestaurantID ||
		!model.SameDay(next.Date, cur.Date) ||
		next.Time != cur.Time
	if !p.SlotChanged {
		return p, nil
	}

	rest, err := g.r.GetRestaurant(ctx, next.RestaurantID)
	if errors.Is(err, repository.ErrRestaurantNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	ok, err := g.checker.hasRoom(ctx, rest, next.Slot(), cur.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotFull
	}
	return p, nil
}

// AdmitCancel authorizes actor to cancel reservation id and returns the
// reservation carrying its resulting status: deleted for admins,
// canceled for the owner.
func (g *Guard) AdmitCancel(ctx context.Context, id uint64, actor model.Identity) (*model.Reservation, error) {
	cur, err := g.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && cur.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	next := model.StatusCanceled
	if actor.IsAdmin() {
		next = model.StatusDeleted
	}
	return transition(cur, next, actor.UserID)
}

// AdmitComplete marks a confirmed reservation as honoured.  Only admins
// may do so.
func (g *Guard) AdmitComplete(ctx context.Context, id uint64, actor model.Identity) (*model.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	cur, err := g.reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	return transition(cur, model.StatusCompleted, actor.UserID)
}

// AdmitHoliday checks that restaurantID may be closed on day: the
// restaurant exists, the day is not already a holiday and no active
// reservation falls on it.
func (g *Guard) AdmitHoliday(ctx context.Context, restaurantID uint64, day time.Time) error {
	if _, err := g.restaurant(ctx, restaurantID); err != nil {
		return err
	}
	day = model.DayOf(day, g.loc)
	dup, err := g.r.HolidayExists(ctx, restaurantID, day)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateHoliday
	}
	busy, err := g.r.HasActiveOnDate(ctx, restaurantID, day)
	if err != nil {
		return err
	}
	if busy {
		return ErrHolidayHasReservations
	}
	return nil
}

func transition(cur *model.Reservation, next model.ReservationStatus, by uint64) (*model.Reservation, error) {
	if !cur.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	out := *cur
	out.Status = next
	out.UpdatedBy = &by
	return &out, nil
}

func (g *Guard) restaurant(ctx context.Context, id uint64) (*model.Restaurant, error) {
	rest, err := g.r.GetRestaurant(ctx, id)
	if errors.Is(err, repository.ErrRestaurantNotFound) {
		return nil, ErrRestaurantNotFound
	}
	return rest, err
}

func (g *Guard) reservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := g.r.GetReservation(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, ErrReservationNotFound
	}
	return res, err
}
