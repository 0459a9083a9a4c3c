package database

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmylchreest/tvrec/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockOperator(t *testing.T) (*SQLOperator, sqlmock.Sqlmock, *bytes.Buffer, func() int) {
	t.Helper()
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	pool, mock, sqlDB := newMockPool(t, logger)

	op, err := NewOperatorForDriver(pool, logger)
	require.NoError(t, err)

	inUse := func() int { return sqlDB.Stats().InUse }
	return op, mock, &buf, inUse
}

func TestSQLOperator_Query(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)

	mock.ExpectQuery(regexp.QuoteMeta("select id, name from recorded where id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "news"))

	rows, err := op.Query(context.Background(), "select id, name from recorded where id = $1", int64(3))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["id"])
	assert.Equal(t, "news", rows[0]["name"])

	assert.Equal(t, 0, inUse())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLOperator_Query_NoParams(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)

	mock.ExpectQuery(regexp.QuoteMeta("select id from recorded")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := op.Query(context.Background(), "select id from recorded")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Equal(t, 0, inUse())
}

func TestSQLOperator_Query_StatementError(t *testing.T) {
	op, mock, buf, inUse := newMockOperator(t)

	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "missing" does not exist`}
	mock.ExpectQuery(regexp.QuoteMeta("select * from missing")).WillReturnError(pgErr)

	_, err := op.Query(context.Background(), "select * from missing")
	require.Error(t, err)

	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "select * from missing", stmtErr.Query)
	assert.Equal(t, "42P01", SQLState(err))
	assert.NotErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, buf.String(), `"sqlstate":"42P01"`)

	assert.Equal(t, 0, inUse())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLOperator_Query_ConnectivityError(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)

	mock.ExpectQuery(regexp.QuoteMeta("select 1;")).WillReturnError(driver.ErrBadConn)

	_, err := op.Query(context.Background(), "select 1;")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, 0, inUse())
}

func TestSQLOperator_Query_IntegerColumns(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT8", int64(0)),
		sqlmock.NewColumn("count").OfType("INT4", int64(0)),
		sqlmock.NewColumn("name").OfType("TEXT", ""),
		sqlmock.NewColumn("code").OfType("VARCHAR", ""),
	).AddRow([]byte("9007199254740993"), "12", []byte("news"), []byte("007"))

	mock.ExpectQuery("select").WillReturnRows(rows)

	result, err := op.Query(context.Background(), "select id, count, name, code from recorded")
	require.NoError(t, err)
	require.Len(t, result, 1)

	assert.Equal(t, int64(9007199254740993), result[0]["id"])
	assert.Equal(t, int64(12), result[0]["count"])
	assert.Equal(t, "news", result[0]["name"])
	assert.Equal(t, "007", result[0]["code"], "non-integer columns keep their text")
}

func TestSQLOperator_Insert(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)

	query := "insert into thumbnails (recorded_id, file_path) values ($1, $2) returning id"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(int64(7), "/data/thumbnail/7.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := op.Insert(context.Background(), query, int64(7), "/data/thumbnail/7.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, 0, inUse())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLOperator_Insert_NoID(t *testing.T) {
	op, mock, buf, inUse := newMockOperator(t)

	mock.ExpectQuery("insert into thumbnails").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := op.Insert(context.Background(), "insert into thumbnails (recorded_id, file_path) values ($1, $2)", int64(1), "x")
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
	assert.Contains(t, buf.String(), "insert returned no id")
	assert.Equal(t, 0, inUse())
}

func TestSQLOperator_Insert_Error(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)

	mock.ExpectQuery("insert into thumbnails").WillReturnError(&pgconn.PgError{Code: "23505"})

	id, err := op.Insert(context.Background(), "insert into thumbnails (recorded_id) values ($1) returning id", int64(1))
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.Equal(t, int64(0), id)
	assert.Equal(t, 0, inUse())
}

func TestSQLOperator_Exists(t *testing.T) {
	op, mock, _, inUse := newMockOperator(t)
	query, _ := op.TableExistsQuery("")

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("Thumbnails").
		WillReturnRows(sqlmock.NewRows([]string{"relname"}).AddRow("thumbnails"))
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"relname"}))

	ctx := context.Background()
	exists, err := op.Exists(ctx, "Thumbnails")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = op.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, 0, inUse())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLOperator_Exists_Error(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)

	mock.ExpectQuery("pg_class").WillReturnError(errors.New("permission denied"))

	exists, err := op.Exists(context.Background(), "thumbnails")
	require.Error(t, err)
	assert.False(t, exists)
	assert.Contains(t, err.Error(), "thumbnails")
}

func TestSQLOperator_Ping(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)

	mock.ExpectQuery(regexp.QuoteMeta("select 1;")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))

	assert.NoError(t, op.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLOperator_Ping_Unreachable(t *testing.T) {
	var buf bytes.Buffer
	pool := NewPoolManager(testDBConfig(), nil).WithOpener(func(config.DatabaseConfig, *slog.Logger) (*DB, error) {
		return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	})
	op := NewOperator(pool, Postgres{}, newTestLogger(&buf))

	err := op.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, buf.String(), "connect error")
}

func TestSQLOperator_End(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("select 1;")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta(flushQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	require.NoError(t, op.Ping(ctx))
	require.NoError(t, op.End(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordedRow struct {
	ID    int64   `db:"id"`
	Name  string  `db:"name"`
	Notes *string `db:"notes"`
}

func TestQueryAs(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)

	mock.ExpectQuery("select id, name, notes from recorded").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "notes"}).
			AddRow("7", []byte("news"), nil).
			AddRow(int64(8), "film", "late"))

	got, err := QueryAs[recordedRow](context.Background(), op, "select id, name, notes from recorded")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "news", got[0].Name)
	assert.Nil(t, got[0].Notes)

	assert.Equal(t, int64(8), got[1].ID)
	require.NotNil(t, got[1].Notes)
	assert.Equal(t, "late", *got[1].Notes)
}

func TestQueryAs_Error(t *testing.T) {
	op, mock, _, _ := newMockOperator(t)

	mock.ExpectQuery("select").WillReturnError(errors.New("boom"))

	got, err := QueryAs[recordedRow](context.Background(), op, "select id from recorded")
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestRow_Int64(t *testing.T) {
	row := Row{"a": int64(1), "b": 2, "c": "3", "d": []byte("4"), "e": 5.0, "f": "x", "g": nil}

	for col, expected := range map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5} {
		got, ok := row.Int64(col)
		assert.True(t, ok, col)
		assert.Equal(t, expected, got, col)
	}

	_, ok := row.Int64("f")
	assert.False(t, ok)
	_, ok = row.Int64("g")
	assert.False(t, ok)
	_, ok = row.Int64("missing")
	assert.False(t, ok)
}
