// Package repository holds the MySQL access code.  Lookups of missing rows
// return the sentinel errors below so that higher layers never have to
// inspect sql.ErrNoRows or driver error numbers.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrHolidayNotFound     = errors.New("holiday not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateHoliday    = errors.New("holiday already exists")
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into a 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent state, such as deleting a restaurant that still
// has active reservations. Handlers translate it into a 409.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports a MySQL 1062 duplicate entry error.
func isDuplicateKey(err error) bool { return mysqlErrno(err) == 1062 }

// isDeadlock reports a MySQL 1213 deadlock, after which the transaction
// has already been rolled back.
func isDeadlock(err error) bool { return mysqlErrno(err) == 1213 }

// isMissingParent reports a MySQL 1452 foreign key failure.
func isMissingParent(err error) bool { return mysqlErrno(err) == 1452 }

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
