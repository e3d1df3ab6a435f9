package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

var (
	alice = model.Identity{UserID: 1, Role: model.RoleUser}
	bob   = model.Identity{UserID: 2, Role: model.RoleUser}
	admin = model.Identity{UserID: 99, Role: model.RoleAdmin}
)

func newTestService(t *testing.T) (*Reservations, *memStore, *recordingPublisher) {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewReservations(store, nil, pub)
	svc.now = func() time.Time { return testNow }
	svc.recorder.now = svc.now
	return svc, store, pub
}

func book(restaurantID uint64, date, at string) CreateRequest {
	return CreateRequest{RestaurantID: restaurantID, Date: day(date), Time: at, NumOfGuests: 2}
}

func TestCreateAdmitsAndRecordsHistory(t *testing.T) {
	svc, store, pub := newTestService(t)
	store.addRestaurant(10, 2)

	res, err := svc.Create(context.Background(), alice, book(10, "2025-04-02", "11:00"))
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Equal(t, alice.UserID, res.UserID)
	assert.Equal(t, []string{"user:1", "restaurant:10"}, store.st.locks)

	hist, err := svc.History(context.Background(), alice, res.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.ActionCreated, hist[0].Action)
	assert.Equal(t, alice.UserID, hist[0].UserID)

	var snap model.Reservation
	require.NoError(t, json.Unmarshal(hist[0].Snapshot, &snap))
	assert.Equal(t, res.ID, snap.ID)
	assert.Equal(t, model.StatusConfirmed, snap.Status)

	assert.Equal(t, []model.HistoryAction{model.ActionCreated}, pub.actions())
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("restaurant not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Create(ctx, alice, book(404, "2025-04-02", "11:00"))
		assert.ErrorIs(t, err, ErrRestaurantNotFound)
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("holiday", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 5)
		store.addHoliday(10, day("2025-04-02"))
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		assert.ErrorIs(t, err, ErrHolidayBlackout)
	})

	t.Run("slot full", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		store.addReservation(5, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
		store.addReservation(6, 10, day("2025-04-02"), "11:00", model.StatusCompleted)
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		assert.ErrorIs(t, err, ErrSlotFull)
	})

	t.Run("canceled and deleted free their table", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		store.addReservation(5, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
		store.addReservation(6, 10, day("2025-04-02"), "11:00", model.StatusCanceled)
		store.addReservation(7, 10, day("2025-04-02"), "11:00", model.StatusDeleted)
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		assert.NoError(t, err)
	})

	t.Run("holiday is checked before quota", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 5)
		store.addHoliday(10, day("2025-04-02"))
		for i := 0; i < 3; i++ {
			store.addReservation(alice.UserID, 11, day("2025-04-02"), "12:00", model.StatusConfirmed)
		}
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		assert.ErrorIs(t, err, ErrHolidayBlackout)
	})

	t.Run("quota is checked before capacity", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		store.addReservation(5, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
		for i := 0; i < 3; i++ {
			store.addReservation(alice.UserID, 10, day("2025-04-02"), "12:00", model.StatusConfirmed)
		}
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		assert.ErrorIs(t, err, ErrDailyQuotaExceeded)
	})
}

func TestDailyQuota(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	store.addRestaurant(10, 10)
	store.addRestaurant(11, 10)

	for _, at := range []string{"10:00", "11:00"} {
		_, err := svc.Create(ctx, alice, book(10, "2025-04-02", at))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, alice, book(11, "2025-04-02", "12:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, alice, book(11, "2025-04-02", "13:00"))
	assert.ErrorIs(t, err, ErrDailyQuotaExceeded)
	assert.Len(t, store.read().history, 3)

	// another day and another user are unaffected
	_, err = svc.Create(ctx, alice, book(10, "2025-04-03", "10:00"))
	assert.NoError(t, err)
	_, err = svc.Create(ctx, bob, book(10, "2025-04-02", "10:00"))
	assert.NoError(t, err)

	// a cancellation frees a quota slot
	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	var sameDay uint64
	for _, r := range list {
		if model.SameDay(r.Date, day("2025-04-02")) {
			sameDay = r.ID
			break
		}
	}
	_, err = svc.Cancel(ctx, alice, sameDay)
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, book(11, "2025-04-02", "13:00"))
	assert.NoError(t, err)
}

func TestConcurrentCreateNeverOversells(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addRestaurant(10, 3)

	const callers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), model.Identity{UserID: uid, Role: model.RoleUser},
				book(10, "2025-04-02", "19:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, callers-3, full)
	n, err := store.CountActiveInSlot(context.Background(),
		model.Slot{RestaurantID: 10, Date: day("2025-04-02"), Time: "19:00"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("into a full slot leaves the reservation unchanged", func(t *testing.T) {
		svc, store, pub := newTestService(t)
		store.addRestaurant(10, 1)
		store.addReservation(bob.UserID, 10, day("2025-04-02"), "12:00", model.StatusConfirmed)
		res, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
		require.NoError(t, err)

		noon := "12:00"
		_, err = svc.Update(ctx, alice, res.ID, Changes{Time: &noon})
		assert.ErrorIs(t, err, ErrSlotFull)

		got, err := store.GetReservation(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, "11:00", got.Time)
		hist, err := store.ListHistory(ctx, res.ID)
		require.NoError(t, err)
		assert.Len(t, hist, 1)
		assert.Equal(t, []model.HistoryAction{model.ActionCreated}, pub.actions())
	})

	t.Run("repeating current values is not a slot change", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
		// overbook the slot behind the service's back
		store.addReservation(bob.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		rid, d, at, guests := uint64(10), day("2025-04-02"), "11:00", 6
		res, err := svc.Update(ctx, alice, id, Changes{RestaurantID: &rid, Date: &d, Time: &at, NumOfGuests: &guests})
		require.NoError(t, err)
		assert.Equal(t, 6, res.NumOfGuests)

		hist, err := store.ListHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, model.ActionUpdated, hist[0].Action)
	})

	t.Run("moving within a slot does not count itself", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		store.addRestaurant(11, 1)
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		ok, err := NewChecker(store).IsSlotAvailable(ctx, model.Slot{RestaurantID: 10, Date: day("2025-04-02"), Time: "11:00"}, id)
		require.NoError(t, err)
		assert.True(t, ok)

		rid := uint64(11)
		res, err := svc.Update(ctx, alice, id, Changes{RestaurantID: &rid})
		require.NoError(t, err)
		assert.Equal(t, uint64(11), res.RestaurantID)
		assert.Equal(t, []string{"reservation:" + strconv.FormatUint(id, 10), "restaurant:10", "restaurant:11"}, store.st.locks)
	})

	t.Run("quota and holiday are not re-applied", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 5)
		store.addHoliday(10, day("2025-04-05"))
		for _, at := range []string{"10:00", "11:00", "12:00"} {
			store.addReservation(alice.UserID, 10, day("2025-04-05"), at, model.StatusConfirmed)
		}
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		d := day("2025-04-05")
		at := "13:00"
		res, err := svc.Update(ctx, alice, id, Changes{Date: &d, Time: &at})
		require.NoError(t, err)
		assert.True(t, model.SameDay(d, res.Date))
	})

	t.Run("missing effective restaurant skips the capacity check", func(t *testing.T) {
		_, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		rid := uint64(404)
		patch, err := NewGuard(store, nil).AdmitUpdate(ctx, id, Changes{RestaurantID: &rid})
		require.NoError(t, err)
		assert.True(t, patch.SlotChanged)
	})

	t.Run("missing effective restaurant is rejected by the write", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		rid := uint64(404)
		_, err := svc.Update(ctx, alice, id, Changes{RestaurantID: &rid})
		assert.ErrorIs(t, err, ErrRestaurantNotFound)
		hist, err := store.ListHistory(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, hist)
	})

	t.Run("not found and forbidden", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 1)
		id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

		guests := 3
		_, err := svc.Update(ctx, alice, 404, Changes{NumOfGuests: &guests})
		assert.ErrorIs(t, err, ErrReservationNotFound)
		_, err = svc.Update(ctx, bob, id, Changes{NumOfGuests: &guests})
		assert.ErrorIs(t, err, ErrForbidden)
		res, err := svc.Update(ctx, admin, id, Changes{NumOfGuests: &guests})
		require.NoError(t, err)
		assert.Equal(t, admin.UserID, *res.UpdatedBy)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService(t)
	store.addRestaurant(10, 2)
	mine := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
	other := store.addReservation(bob.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

	_, err := svc.Cancel(ctx, alice, other)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Cancel(ctx, alice, 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	res, err := svc.Cancel(ctx, alice, mine)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, res.Status)

	res, err = svc.Cancel(ctx, admin, other)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, res.Status)

	for id, want := range map[uint64]model.HistoryAction{mine: model.ActionCanceled, other: model.ActionDeleted} {
		hist, err := store.ListHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, want, hist[0].Action)
	}

	_, err = svc.Cancel(ctx, alice, mine)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []model.HistoryAction{model.ActionCanceled, model.ActionDeleted}, pub.actions())
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	store.addRestaurant(10, 2)
	id := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
	gone := store.addReservation(alice.UserID, 10, day("2025-04-02"), "12:00", model.StatusCanceled)

	_, err := svc.Complete(ctx, alice, id)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := svc.Complete(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	hist, err := store.ListHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.ActionCompleted, hist[0].Action)

	_, err = svc.Complete(ctx, admin, gone)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(ctx, alice, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestHistoryFailureRollsBackMutation(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService(t)
	store.addRestaurant(10, 2)
	store.st.failHistory = errors.New("disk full")

	_, err := svc.Create(ctx, alice, book(10, "2025-04-02", "11:00"))
	require.Error(t, err)
	list, err := store.ListReservations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, pub.actions())
}

func TestCreateHoliday(t *testing.T) {
	ctx := context.Background()

	t.Run("admin only", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		_, err := svc.CreateHoliday(ctx, alice, 10, day("2025-04-10"), "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("created then duplicate", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		h, err := svc.CreateHoliday(ctx, admin, 10, day("2025-04-10"), "Songkran")
		require.NoError(t, err)
		assert.NotZero(t, h.ID)
		assert.Equal(t, admin.UserID, *h.CreatedBy)

		_, err = svc.CreateHoliday(ctx, admin, 10, day("2025-04-10"), "again")
		assert.ErrorIs(t, err, ErrDuplicateHoliday)

		_, err = svc.Create(ctx, alice, book(10, "2025-04-10", "11:00"))
		assert.ErrorIs(t, err, ErrHolidayBlackout)
	})

	t.Run("active reservation blocks the holiday", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		store.addReservation(alice.UserID, 10, day("2025-04-10"), "11:00", model.StatusConfirmed)
		_, err := svc.CreateHoliday(ctx, admin, 10, day("2025-04-10"), "")
		assert.ErrorIs(t, err, ErrHolidayHasReservations)
		assert.Equal(t, CodeHolidayBlackout, CodeOf(err))
	})

	t.Run("canceled reservation does not block", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.addRestaurant(10, 2)
		store.addReservation(alice.UserID, 10, day("2025-04-10"), "11:00", model.StatusCanceled)
		_, err := svc.CreateHoliday(ctx, admin, 10, day("2025-04-10"), "")
		assert.NoError(t, err)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreateHoliday(ctx, admin, 404, day("2025-04-10"), "")
		assert.ErrorIs(t, err, ErrRestaurantNotFound)
	})
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	store.addRestaurant(10, 1)
	store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
	store.addReservation(alice.UserID, 10, day("2025-04-02"), "12:00", model.StatusCanceled)
	store.addHoliday(10, day("2025-04-03"))

	got, err := svc.Availability(ctx, 10, day("2025-04-02"))
	require.NoError(t, err)
	assert.False(t, got.Holiday)
	assert.Equal(t, "2025-04-02", got.Date)
	assert.Equal(t, []SlotAvailability{
		{Time: "10:00", Available: true},
		{Time: "11:00", Available: false},
		{Time: "12:00", Available: true},
		{Time: "13:00", Available: true},
	}, got.Slots)

	closed, err := svc.Availability(ctx, 10, day("2025-04-03"))
	require.NoError(t, err)
	assert.True(t, closed.Holiday)
	assert.Empty(t, closed.Slots)

	_, err = svc.Availability(ctx, 404, day("2025-04-02"))
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	store.addRestaurant(10, 5)
	mine := store.addReservation(alice.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)
	store.addReservation(bob.UserID, 10, day("2025-04-02"), "11:00", model.StatusConfirmed)

	_, err := svc.Get(ctx, bob, mine)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.History(ctx, bob, mine)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, admin, 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	res, err := svc.Get(ctx, admin, mine)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, res.UserID)

	own, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
