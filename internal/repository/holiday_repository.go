package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// HolidayRepo provides access to the holidays table.  Dates are passed to
// MySQL as YYYY-MM-DD strings so the session time zone never shifts them.
type HolidayRepo struct {
	db querier
}

func NewHolidayRepo(db *sql.DB) *HolidayRepo { return &HolidayRepo{db: db} }

func (r *HolidayRepo) WithTx(tx *sql.Tx) *HolidayRepo { return &HolidayRepo{db: tx} }

const holidayColumns = "id, restaurant_id, holiday_date, description, created_by, updated_by, created_at, updated_at"

func scanHoliday(s rowScanner) (*model.Holiday, error) {
	var (
		h        model.Holiday
		crt, upd sql.NullInt64
	)
	if err := s.Scan(&h.ID, &h.RestaurantID, &h.Date, &h.Description, &crt, &upd, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.CreatedBy, h.UpdatedBy = idPtr(crt), idPtr(upd)
	return &h, nil
}

// Exists reports whether restaurantID is closed on day.
func (r *HolidayRepo) Exists(ctx context.Context, restaurantID uint64, day time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM holidays WHERE restaurant_id=? AND holiday_date=?)",
		restaurantID, day.Format(model.DateLayout)).Scan(&ok)
	return ok, err
}

// ListByRestaurant returns the holidays of a restaurant by date.
func (r *HolidayRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Holiday, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+holidayColumns+" FROM holidays WHERE restaurant_id=? ORDER BY holiday_date", restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Holiday{}
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// Get returns holiday id of restaurantID or ErrHolidayNotFound.
func (r *HolidayRepo) Get(ctx context.Context, restaurantID, id uint64) (*model.Holiday, error) {
	h, err := scanHoliday(r.db.QueryRowContext(ctx,
		"SELECT "+holidayColumns+" FROM holidays WHERE id=? AND restaurant_id=?", id, restaurantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHolidayNotFound
	}
	return h, err
}

// Create inserts h.  A second holiday on the same date yields
// ErrDuplicateHoliday and an unknown restaurant ErrRestaurantNotFound.
func (r *HolidayRepo) Create(ctx context.Context, h *model.Holiday) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO holidays (restaurant_id, holiday_date, description, created_by, updated_by) VALUES (?,?,?,?,?)",
		h.RestaurantID, h.Date.Format(model.DateLayout), h.Description, nullID(h.CreatedBy), nullID(h.UpdatedBy))
	switch {
	case isDuplicateKey(err):
		return ErrDuplicateHoliday
	case isMissingParent(err):
		return ErrRestaurantNotFound
	case err != nil:
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, h.RestaurantID, uint64(id))
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// UpdateDescription changes the description of a holiday; the date of a
// holiday is fixed once admitted.
func (r *HolidayRepo) UpdateDescription(ctx context.Context, restaurantID, id uint64, description string, by uint64) (*model.Holiday, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE holidays SET description=?, updated_by=? WHERE id=? AND restaurant_id=?",
		description, by, id, restaurantID); err != nil {
		return nil, err
	}
	return r.Get(ctx, restaurantID, id)
}

// Delete removes a holiday.
func (r *HolidayRepo) Delete(ctx context.Context, restaurantID, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id=? AND restaurant_id=?", id, restaurantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHolidayNotFound
	}
	return nil
}
