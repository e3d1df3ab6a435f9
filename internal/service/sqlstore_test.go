package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

func TestSQLStoreCancelCommitsWithHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	apr2 := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "restaurant_id", "reserved_date", "reserved_time",
		"num_of_guests", "status", "created_by", "updated_by", "created_at", "updated_at"}
	selectRes := "SELECT .+ FROM reservations WHERE id=\\?"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM reservations WHERE id=? FOR UPDATE")).
		WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(selectRes).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 10, apr2, "11:00", 2, "confirmed", 1, 1, testNow, testNow))
	mock.ExpectQuery(selectRes).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 10, apr2, "11:00", 2, "confirmed", 1, 1, testNow, testNow))
	mock.ExpectExec("UPDATE reservations SET").
		WithArgs(10, "2025-04-02", "11:00", 2, "canceled", 1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectRes).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 10, apr2, "11:00", 2, "canceled", 1, 1, testNow, testNow))
	mock.ExpectExec("INSERT INTO reservation_history").
		WithArgs(7, 1, "canceled", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewReservations(NewSQLStore(db), time.UTC, nil)
	res, err := svc.Cancel(context.Background(), model.Identity{UserID: 1, Role: model.RoleUser}, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreRollsBackRejectedAdmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id=? FOR UPDATE")).
		WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM restaurants WHERE id=? FOR UPDATE")).
		WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT .+ FROM restaurants WHERE id=\\?").
		WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	svc := NewReservations(NewSQLStore(db), time.UTC, nil)
	_, err = svc.Create(context.Background(), model.Identity{UserID: 1, Role: model.RoleUser},
		CreateRequest{RestaurantID: 10, Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Time: "11:00", NumOfGuests: 2})
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
