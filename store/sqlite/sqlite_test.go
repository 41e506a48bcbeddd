package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestStore_Get(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = ?`)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantValue string
		wantOK    bool
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("@climapro/settings").
					WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"temperatureUnit":"fahrenheit"}`))
			},
			wantValue: `{"temperatureUnit":"fahrenheit"}`,
			wantOK:    true,
		},
		{
			name: "missing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("@climapro/settings").WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "driver error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(query).WithArgs("@climapro/settings").WillReturnError(errors.New("disk I/O error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setupMock(mock)

			value, ok, err := s.Get(context.Background(), "@climapro/settings")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, value)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_SetAndRemove(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries(key, value, updated_at)`)).
		WithArgs("@climapro/last_city", `{"id":"tokyo"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_entries WHERE key = ?`)).
		WithArgs("@climapro/last_city").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "@climapro/last_city", `{"id":"tokyo"}`))
	require.NoError(t, s.Remove(ctx, "@climapro/last_city"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries`)).WillReturnError(errors.New("database is locked"))

	err := s.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestOpen_RealDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "climapro.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "one"))
	require.NoError(t, s.Set(ctx, "k", "two"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	require.NoError(t, s.Close())

	// Values survive reopening.
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err = reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	require.NoError(t, reopened.Remove(ctx, "k"))
	_, ok, err = reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
