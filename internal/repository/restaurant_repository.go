package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

// RestaurantRepo provides CRUD access to the restaurants table.
type RestaurantRepo struct {
	db   querier
	conn *sql.DB // nil on WithTx copies
}

// NewRestaurantRepo returns a RestaurantRepo bound to db.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db, conn: db} }

// WithTx returns a copy of the repo that runs on tx.
func (r *RestaurantRepo) WithTx(tx *sql.Tx) *RestaurantRepo { return &RestaurantRepo{db: tx} }

const restaurantColumns = `id, name, address, telephone, open_time, close_time, total_tables,
	latitude, longitude, created_by, updated_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(s rowScanner) (*model.Restaurant, error) {
	var (
		rs       model.Restaurant
		crt, upd sql.NullInt64
	)
	if err := s.Scan(&rs.ID, &rs.Name, &rs.Address, &rs.Telephone, &rs.OpenTime, &rs.CloseTime,
		&rs.TotalTables, &rs.Location.Latitude, &rs.Location.Longitude, &crt, &upd,
		&rs.CreatedAt, &rs.UpdatedAt); err != nil {
		return nil, err
	}
	rs.CreatedBy, rs.UpdatedBy = idPtr(crt), idPtr(upd)
	return &rs, nil
}

// GetByID returns the restaurant or ErrRestaurantNotFound.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	rs, err := scanRestaurant(r.db.QueryRowContext(ctx,
		"SELECT "+restaurantColumns+" FROM restaurants WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	return rs, err
}

// LockByIDs takes row locks on the given restaurants in ascending id
// order so that concurrent writers never deadlock.  Missing ids are
// skipped.  Must run on a transaction.
func (r *RestaurantRepo) LockByIDs(ctx context.Context, ids ...uint64) error {
	ids = uniqueSorted(ids)
	for _, id := range ids {
		var got uint64
		err := r.db.QueryRowContext(ctx, "SELECT id FROM restaurants WHERE id=? FOR UPDATE", id).Scan(&got)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock restaurant %d: %w", id, err)
		}
	}
	return nil
}

func uniqueSorted(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortField orders a restaurant listing.
type SortField struct {
	Column string
	Desc   bool
}

// restaurantSortable maps API field names to columns.
var restaurantSortable = map[string]string{
	"id":           "id",
	"name":         "name",
	"total_tables": "total_tables",
	"created_at":   "created_at",
	"createdAt":    "created_at",
	"open_time":    "open_time",
}

// ParseSort turns "name,-created_at" into sort fields.  Unknown fields are
// ignored; an empty result means newest first.
func ParseSort(s string) []SortField {
	var out []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		if col, ok := restaurantSortable[strings.TrimPrefix(part, "-")]; ok {
			out = append(out, SortField{Column: col, Desc: desc})
		}
	}
	return out
}

// RestaurantFilter selects a page of restaurants.
type RestaurantFilter struct {
	Name   string // substring match, case insensitive
	Sort   []SortField
	Limit  int
	Offset int
}

// List returns a page of restaurants and the total number matching the filter.
func (r *RestaurantRepo) List(ctx context.Context, f RestaurantFilter) ([]model.Restaurant, int, error) {
	where := ""
	var args []any
	if f.Name != "" {
		where = " WHERE LOWER(name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Name)+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM restaurants"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := make([]string, 0, len(f.Sort)+1)
	for _, s := range f.Sort {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		order = append(order, s.Column+" "+dir)
	}
	if len(order) == 0 {
		order = append(order, "created_at DESC")
	}
	order = append(order, "id ASC")

	q := "SELECT " + restaurantColumns + " FROM restaurants" + where +
		" ORDER BY " + strings.Join(order, ", ") + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		rs, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rs)
	}
	return out, total, rows.Err()
}

// Create inserts rs and reloads it to populate ID and timestamps.
func (r *RestaurantRepo) Create(ctx context.Context, rs *model.Restaurant) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO restaurants (name, address, telephone, open_time, close_time, total_tables,
			latitude, longitude, created_by, updated_by) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rs.Name, rs.Address, rs.Telephone, rs.OpenTime, rs.CloseTime, rs.TotalTables,
		rs.Location.Latitude, rs.Location.Longitude, nullID(rs.CreatedBy), nullID(rs.UpdatedBy))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rs = *got
	return nil
}

// Update overwrites every mutable column of rs.
func (r *RestaurantRepo) Update(ctx context.Context, rs *model.Restaurant) error {
	// MySQL reports zero affected rows for a no-op update, so existence is
	// decided by the reload below.
	if _, err := r.db.ExecContext(ctx,
		`UPDATE restaurants SET name=?, address=?, telephone=?, open_time=?, close_time=?,
			total_tables=?, latitude=?, longitude=?, updated_by=? WHERE id=?`,
		rs.Name, rs.Address, rs.Telephone, rs.OpenTime, rs.CloseTime, rs.TotalTables,
		rs.Location.Latitude, rs.Location.Longitude, nullID(rs.UpdatedBy), rs.ID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, rs.ID)
	if err != nil {
		return err
	}
	*rs = *got
	return nil
}

// Delete removes a restaurant.  It fails with ErrConflict while the
// restaurant still has active reservations.  The restaurant row is locked
// before the check, the same lock bookings take, so no reservation can be
// admitted between the check and the delete.  Inactive reservations go
// with the restaurant through the foreign key cascade.
func (r *RestaurantRepo) Delete(ctx context.Context, id uint64) error {
	if r.conn == nil {
		return r.delete(ctx, id)
	}
	err := inTx(ctx, r.conn, func(tx *sql.Tx) error {
		return r.WithTx(tx).delete(ctx, id)
	})
	if isDeadlock(err) {
		return ErrConflict
	}
	return err
}

func (r *RestaurantRepo) delete(ctx context.Context, id uint64) error {
	if err := lockRow(ctx, r.db, "restaurants", id, ErrRestaurantNotFound); err != nil {
		return err
	}
	var active bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE restaurant_id=? AND status NOT IN ('canceled','deleted'))",
		id).Scan(&active); err != nil {
		return err
	}
	if active {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM restaurants WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRestaurantNotFound
	}
	return nil
}
