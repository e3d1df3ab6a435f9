package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of reservation and holiday dates.
const DateLayout = "2006-01-02"

// ReservationStatus is the state of a reservation.  The zero value is not
// a valid status.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCanceled  ReservationStatus = "canceled"
	StatusCompleted ReservationStatus = "completed"
	StatusDeleted   ReservationStatus = "deleted"
)

// transitions lists, for every status, the statuses it may move to.
// Terminal statuses map to nothing.
var transitions = map[ReservationStatus][]ReservationStatus{
	StatusConfirmed: {StatusCanceled, StatusDeleted, StatusCompleted},
	StatusCanceled:  nil,
	StatusCompleted: nil,
	StatusDeleted:   nil,
}

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s ReservationStatus) Terminal() bool { return s.Valid() && len(transitions[s]) == 0 }

// Active reports whether a reservation in status s occupies a table and
// counts towards the daily quota.
func (s ReservationStatus) Active() bool { return s != StatusCanceled && s != StatusDeleted }

// CanTransitionTo reports whether s -> next is allowed.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// InactiveStatuses are excluded from capacity and quota counts.
var InactiveStatuses = []ReservationStatus{StatusCanceled, StatusDeleted}

// Slot identifies one bookable period of a restaurant.
type Slot struct {
	RestaurantID uint64
	Date         time.Time
	Time         string
}

func (s Slot) String() string {
	return fmt.Sprintf("%d/%s/%s", s.RestaurantID, s.Date.Format(DateLayout), s.Time)
}

// Reservation records a user's table booking.  It corresponds to a row in
// the `reservations` table.  Date holds the calendar day at midnight in
// the service time zone and Time the slot start in HH:MM form.
type Reservation struct {
	ID           uint64            `json:"id"`
	UserID       uint64            `json:"user_id"`
	RestaurantID uint64            `json:"restaurant_id"`
	Date         time.Time         `json:"date"`
	Time         string            `json:"time"`
	NumOfGuests  int               `json:"num_of_guests"`
	Status       ReservationStatus `json:"status"`
	CreatedBy    *uint64           `json:"created_by,omitempty"`
	UpdatedBy    *uint64           `json:"updated_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Slot returns the slot the reservation occupies.
func (r Reservation) Slot() Slot {
	return Slot{RestaurantID: r.RestaurantID, Date: r.Date, Time: r.Time}
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date, read
// in their own locations.
func SameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}
