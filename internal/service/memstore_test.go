package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// memState is an in-memory database.  WithinTx works on a clone and only
// swaps it in on success, which gives the same all-or-nothing behaviour
// as a rolled back SQL transaction.
type memState struct {
	restaurants  map[uint64]model.Restaurant
	reservations map[uint64]model.Reservation
	holidays     map[string]model.Holiday
	history      []model.ReservationHistory
	seq          uint64
	locks        []string

	failHistory error
}

func newMemState() *memState {
	return &memState{
		restaurants:  map[uint64]model.Restaurant{},
		reservations: map[uint64]model.Reservation{},
		holidays:     map[string]model.Holiday{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	c.history = append([]model.ReservationHistory(nil), s.history...)
	c.seq = s.seq
	c.failHistory = s.failHistory
	return c
}

func (s *memState) next() uint64 { s.seq++; return s.seq }

func holidayKey(restaurantID uint64, day time.Time) string {
	return fmt.Sprintf("%d/%s", restaurantID, day.Format(model.DateLayout))
}

func (s *memState) GetRestaurant(_ context.Context, id uint64) (*model.Restaurant, error) {
	r, ok := s.restaurants[id]
	if !ok {
		return nil, repository.ErrRestaurantNotFound
	}
	return &r, nil
}

func (s *memState) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (s *memState) ListReservations(_ context.Context, userID uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	for _, r := range s.reservations {
		if userID == 0 || r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memState) ListHistory(_ context.Context, reservationID uint64) ([]model.ReservationHistory, error) {
	out := []model.ReservationHistory{}
	for _, h := range s.history {
		if h.ReservationID == reservationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memState) HolidayExists(_ context.Context, restaurantID uint64, day time.Time) (bool, error) {
	_, ok := s.holidays[holidayKey(restaurantID, day)]
	return ok, nil
}

func (s *memState) CountActiveInSlot(_ context.Context, slot model.Slot, excludeID uint64) (int, error) {
	n := 0
	for _, r := range s.reservations {
		if r.ID != excludeID && r.RestaurantID == slot.RestaurantID && model.SameDay(r.Date, slot.Date) &&
			r.Time == slot.Time && r.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *memState) CountActiveForUser(_ context.Context, userID uint64, from, to time.Time) (int, error) {
	n := 0
	for _, r := range s.reservations {
		if r.UserID == userID && !r.Date.Before(from) && r.Date.Before(to) && r.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *memState) HasActiveOnDate(_ context.Context, restaurantID uint64, day time.Time) (bool, error) {
	for _, r := range s.reservations {
		if r.RestaurantID == restaurantID && model.SameDay(r.Date, day) && r.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s *memState) AppendHistory(_ context.Context, h *model.ReservationHistory) error {
	if s.failHistory != nil {
		return s.failHistory
	}
	h.ID = s.next()
	s.history = append(s.history, *h)
	return nil
}

func (s *memState) LockUser(_ context.Context, userID uint64) error {
	s.locks = append(s.locks, fmt.Sprintf("user:%d", userID))
	return nil
}

func (s *memState) LockRestaurants(_ context.Context, ids ...uint64) error {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var prev uint64
	for _, id := range sorted {
		if id != prev {
			s.locks = append(s.locks, fmt.Sprintf("restaurant:%d", id))
		}
		prev = id
	}
	return nil
}

func (s *memState) LockReservation(_ context.Context, id uint64) error {
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	s.locks = append(s.locks, fmt.Sprintf("reservation:%d", id))
	return nil
}

func (s *memState) InsertReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := s.restaurants[r.RestaurantID]; !ok {
		return repository.ErrRestaurantNotFound
	}
	r.ID = s.next()
	r.CreatedAt, r.UpdatedAt = testNow, testNow
	s.reservations[r.ID] = *r
	return nil
}

func (s *memState) UpdateReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := s.restaurants[r.RestaurantID]; !ok {
		return repository.ErrRestaurantNotFound
	}
	if _, ok := s.reservations[r.ID]; !ok {
		return repository.ErrReservationNotFound
	}
	s.reservations[r.ID] = *r
	return nil
}

func (s *memState) InsertHoliday(_ context.Context, h *model.Holiday) error {
	k := holidayKey(h.RestaurantID, h.Date)
	if _, ok := s.holidays[k]; ok {
		return repository.ErrDuplicateHoliday
	}
	h.ID = s.next()
	s.holidays[k] = *h
	return nil
}

// memStore serialises transactions with a mutex, the same guarantee the
// row locks give the SQL store.
type memStore struct {
	mu sync.Mutex
	st *memState
	tx int
}

func newMemStore() *memStore { return &memStore{st: newMemState()} }

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tx++
	work := m.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *memStore) read() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.clone()
}

func (m *memStore) GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return m.read().GetRestaurant(ctx, id)
}

func (m *memStore) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return m.read().GetReservation(ctx, id)
}

func (m *memStore) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return m.read().ListReservations(ctx, userID)
}

func (m *memStore) ListHistory(ctx context.Context, id uint64) ([]model.ReservationHistory, error) {
	return m.read().ListHistory(ctx, id)
}

func (m *memStore) HolidayExists(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	return m.read().HolidayExists(ctx, restaurantID, day)
}

func (m *memStore) CountActiveInSlot(ctx context.Context, slot model.Slot, excludeID uint64) (int, error) {
	return m.read().CountActiveInSlot(ctx, slot, excludeID)
}

func (m *memStore) CountActiveForUser(ctx context.Context, userID uint64, from, to time.Time) (int, error) {
	return m.read().CountActiveForUser(ctx, userID, from, to)
}

func (m *memStore) HasActiveOnDate(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	return m.read().HasActiveOnDate(ctx, restaurantID, day)
}

// seed helpers write straight into the committed state.

func (m *memStore) addRestaurant(id uint64, tables int) {
	m.st.restaurants[id] = model.Restaurant{
		ID: id, Name: fmt.Sprintf("r%d", id), OpenTime: "10:00", CloseTime: "14:00", TotalTables: tables,
	}
}

func (m *memStore) addHoliday(restaurantID uint64, day time.Time) {
	m.st.holidays[holidayKey(restaurantID, day)] = model.Holiday{ID: m.st.next(), RestaurantID: restaurantID, Date: day}
}

func (m *memStore) addReservation(userID, restaurantID uint64, day time.Time, at string, status model.ReservationStatus) uint64 {
	id := m.st.next()
	m.st.reservations[id] = model.Reservation{
		ID: id, UserID: userID, RestaurantID: restaurantID, Date: day, Time: at,
		NumOfGuests: 2, Status: status,
	}
	return id
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) actions() []model.HistoryAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.HistoryAction, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Action)
	}
	return out
}

var testNow = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}
