package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidateRefresh(t *testing.T) {
	q := regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1")
	cols := []string{"user_id", "expires_at", "revoked_at"}

	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	repo.now = func() time.Time { return stamp }

	mock.ExpectQuery(q).WithArgs("live").WillReturnRows(sqlmock.NewRows(cols).AddRow(1, stamp.Add(time.Hour), nil))
	mock.ExpectQuery(q).WithArgs("old").WillReturnRows(sqlmock.NewRows(cols).AddRow(1, stamp.Add(-time.Hour), nil))
	mock.ExpectQuery(q).WithArgs("revoked").WillReturnRows(sqlmock.NewRows(cols).AddRow(1, stamp.Add(time.Hour), stamp))
	mock.ExpectQuery(q).WithArgs("unknown").WillReturnRows(sqlmock.NewRows(cols))

	uid, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)
	for _, h := range []string{"old", "revoked", "unknown"} {
		_, err := repo.ValidateRefresh(context.Background(), h)
		assert.ErrorIs(t, err, ErrTokenInvalid, h)
	}
}
