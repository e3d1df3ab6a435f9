package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

type UserRepo struct {
	db   querier
	conn *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db, conn: db} }

func (r *UserRepo) WithTx(tx *sql.Tx) *UserRepo { return &UserRepo{db: tx} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id, name, email, telephone, password_hash, role, created_at, updated_at"

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Telephone, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = model.ParseRole(role)
	return &u, nil
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts u, whose PasswordHash must already be set, and fills in
// ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, telephone, password_hash, role) VALUES (?,?,?,?,?)",
		u.Name, u.Email, u.Telephone, u.PasswordHash, string(u.Role))
	if isDuplicateKey(err) {
		return ErrEmailExists
	}
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
	*u = *got
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// LockByID takes a row lock on the user, serialising that user's
// bookings.  Must run on a transaction.
func (r *UserRepo) LockByID(ctx context.Context, id uint64) error {
	return lockRow(ctx, r.db, "users", id, ErrUserNotFound)
}

// List returns every account ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Update writes the profile fields and role of u and reloads it.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, telephone=?, role=? WHERE id=?",
		u.Name, u.Email, u.Telephone, string(u.Role), u.ID)
	if isDuplicateKey(err) {
		return ErrEmailExists
	}
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *got
	return nil
}

// Delete removes an account with its refresh tokens and inactive
// reservations.  It fails with ErrConflict while the user holds active
// reservations.  The user row is locked first, as bookings do, so none
// can be admitted in between.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
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

func (r *UserRepo) delete(ctx context.Context, id uint64) error {
	if err := r.LockByID(ctx, id); err != nil {
		return err
	}
	var active bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE user_id=? AND status NOT IN ('canceled','deleted'))",
		id).Scan(&active); err != nil {
		return err
	}
	if active {
		return ErrConflict
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		return err
	}
	return nil
}
