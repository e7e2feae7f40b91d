package docstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents WHERE collection = $1 AND id = $2`)).
		WithArgs("orders", "order-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"order-1","user_id":"u1","amount":12.5}`)))

	var got testDoc
	require.NoError(t, s.Get(context.Background(), "orders", "order-1", &got))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 12.5, got.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents`)).
		WithArgs("orders", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	err = s.Get(context.Background(), "orders", "missing", &testDoc{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`)).
		WithArgs("carts", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), "carts", "user-1", testDoc{Amount: 3}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryBuildsFilterSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT data FROM documents WHERE collection = $1 AND data->>$2 = $3 ORDER BY (data->>$4)::timestamptz DESC`)).
		WithArgs("orders", "user_id", "u1", "created_at").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"o2","user_id":"u1","created_at":"2026-02-01T00:00:00Z"}`)).
			AddRow([]byte(`{"id":"o1","user_id":"u1","created_at":"2026-01-01T00:00:00Z"}`)))

	var got []testDoc
	err = s.Query(context.Background(), "orders", Query{
		Filters:    map[string]string{"user_id": "u1"},
		OrderBy:    "created_at",
		Descending: true,
	}, &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o2", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryCastsTimestampOrdering(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	// Same second, differing fractional digits: as text "0.12Z" would sort
	// after "0.125Z", so ordering must go through a timestamptz cast.
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT data FROM documents WHERE collection = $1 ORDER BY (data->>$2)::timestamptz DESC`)).
		WithArgs("orders", "created_at").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"later","created_at":"2026-03-01T12:00:00.125Z"}`)).
			AddRow([]byte(`{"id":"earlier","created_at":"2026-03-01T12:00:00.12Z"}`)))

	var got []testDoc
	err = s.Query(context.Background(), "orders", Query{
		OrderBy:    "created_at",
		Descending: true,
	}, &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "later", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryOrdersTextFieldsWithoutCast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT data FROM documents WHERE collection = $1 ORDER BY data->>$2`)).
		WithArgs("products", "name").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	var got []testDoc
	require.NoError(t, s.Query(context.Background(), "products", Query{OrderBy: "name"}, &got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET data = data || $3::jsonb`)).
		WithArgs("orders", "missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.Update(context.Background(), "orders", "missing", map[string]any{"status": "shipped"})
	assert.ErrorIs(t, err, ErrNotFound)
}
