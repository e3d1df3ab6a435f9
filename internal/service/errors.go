package service

import "errors"

// Code classifies an AdmissionError.  The HTTP layer maps codes to
// status codes; the core never does.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeForbidden          Code = "forbidden"
	CodeHolidayBlackout    Code = "holiday_blackout"
	CodeDailyQuotaExceeded Code = "daily_quota_exceeded"
	CodeSlotFull           Code = "slot_full"
	CodeDuplicateHoliday   Code = "duplicate_holiday"
	CodeInvalidTransition  Code = "invalid_transition"
)

// AdmissionError is a business rejection of a requested mutation.  It is
// always recoverable by the caller and implies that nothing was written.
type AdmissionError struct {
	Code Code
	Msg  string
}

func (e *AdmissionError) Error() string { return e.Msg }

var (
	ErrRestaurantNotFound  = &AdmissionError{Code: CodeNotFound, Msg: "restaurant not found"}
	ErrReservationNotFound = &AdmissionError{Code: CodeNotFound, Msg: "reservation not found"}
	ErrHolidayNotFound     = &AdmissionError{Code: CodeNotFound, Msg: "holiday not found"}
	ErrForbidden           = &AdmissionError{Code: CodeForbidden, Msg: "not authorized"}
	ErrHolidayBlackout     = &AdmissionError{Code: CodeHolidayBlackout, Msg: "restaurant is closed on this date (holiday)"}
	// ErrHolidayHasReservations is the holiday-side mirror of ErrHolidayBlackout.
	ErrHolidayHasReservations = &AdmissionError{Code: CodeHolidayBlackout, Msg: "cannot set holiday on a date that has active reservations"}
	ErrDailyQuotaExceeded     = &AdmissionError{Code: CodeDailyQuotaExceeded, Msg: "you can only make up to 3 reservations per day"}
	ErrSlotFull               = &AdmissionError{Code: CodeSlotFull, Msg: "time slot is fully booked"}
	ErrDuplicateHoliday       = &AdmissionError{Code: CodeDuplicateHoliday, Msg: "this date is already marked as a holiday for this restaurant"}
	ErrInvalidTransition      = &AdmissionError{Code: CodeInvalidTransition, Msg: "reservation status does not allow this change"}
)

// CodeOf returns the admission code carried by err, or "" when err is not
// an AdmissionError.
func CodeOf(err error) Code {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
