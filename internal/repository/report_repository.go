package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReportRepo runs the admin aggregate queries.  Deleted reservations are
// left out of every report.
type ReportRepo struct{ db querier }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// RestaurantSummary counts one restaurant's reservations by status.
type RestaurantSummary struct {
	RestaurantID      uint64 `json:"restaurant_id"`
	RestaurantName    string `json:"restaurant_name"`
	TotalReservations int    `json:"total_reservations"`
	Confirmed         int    `json:"confirmed"`
	Canceled          int    `json:"canceled"`
	Completed         int    `json:"completed"`
}

// Summary aggregates reservations dated in [from, to], both inclusive.
func (r *ReportRepo) Summary(ctx context.Context, from, to time.Time) ([]RestaurantSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rs.id, rs.name, COUNT(*),
			SUM(rv.status='confirmed'), SUM(rv.status='canceled'), SUM(rv.status='completed')
		FROM reservations rv
		JOIN restaurants rs ON rs.id = rv.restaurant_id
		WHERE rv.reserved_date BETWEEN ? AND ? AND rv.status <> 'deleted'
		GROUP BY rs.id, rs.name
		ORDER BY rs.id`,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RestaurantSummary{}
	for rows.Next() {
		var s RestaurantSummary
		if err := rows.Scan(&s.RestaurantID, &s.RestaurantName, &s.TotalReservations,
			&s.Confirmed, &s.Canceled, &s.Completed); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RestaurantPerformance is one row of the busiest-restaurants ranking.
type RestaurantPerformance struct {
	RestaurantID      uint64 `json:"restaurant_id"`
	RestaurantName    string `json:"restaurant_name"`
	TotalReservations int    `json:"total_reservations"`
}

// Performance ranks restaurants by reservation count, busiest first.  When
// month is non-zero only reservations of that month of year are counted.
func (r *ReportRepo) Performance(ctx context.Context, year int, month time.Month) ([]RestaurantPerformance, error) {
	q := `
		SELECT rs.id, rs.name, COUNT(*) AS total
		FROM reservations rv
		JOIN restaurants rs ON rs.id = rv.restaurant_id
		WHERE rv.status <> 'deleted'`
	var args []any
	if month != 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		q += " AND rv.reserved_date >= ? AND rv.reserved_date < ?"
		args = append(args, first.Format(model.DateLayout), first.AddDate(0, 1, 0).Format(model.DateLayout))
	}
	q += " GROUP BY rs.id, rs.name ORDER BY total DESC, rs.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RestaurantPerformance{}
	for rows.Next() {
		var p RestaurantPerformance
		if err := rows.Scan(&p.RestaurantID, &p.RestaurantName, &p.TotalReservations); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
