package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_CreateValueStr(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		end      int
		expected string
	}{
		{"single", 1, 1, "$1"},
		{"range", 1, 3, "$1, $2, $3"},
		{"offset range", 4, 6, "$4, $5, $6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Postgres{}.CreateValueStr(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPostgres_CreateValueStr_InvalidRange(t *testing.T) {
	_, err := Postgres{}.CreateValueStr(3, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPostgres_CreateLimitStr(t *testing.T) {
	assert.Equal(t, "limit 10", Postgres{}.CreateLimitStr(10))
	assert.Equal(t, "limit 10 offset 20", Postgres{}.CreateLimitStr(10, 20))
	assert.Equal(t, "limit 5 offset 0", Postgres{}.CreateLimitStr(5, 0))
}

func TestPostgres_Fragments(t *testing.T) {
	d := Postgres{}
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, UpsertConflict, d.UpsertType())
	assert.Equal(t, "returning id", d.ReturningStr())

	query, args := d.TableExistsQuery("Recorded")
	assert.Equal(t, "select relname from pg_class where relkind = 'r' and relname ilike $1;", query)
	assert.Equal(t, []any{"Recorded"}, args)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = DialectFor("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = DialectFor("POSTGRES")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestDialectFor_Unsupported(t *testing.T) {
	_, err := DialectFor("mysql")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.Contains(t, err.Error(), "postgres")
}

// replaceDialect is a postgres variant that upserts by delete and insert.
type replaceDialect struct{ Postgres }

func (replaceDialect) Name() string           { return "replace-test" }
func (replaceDialect) UpsertType() UpsertType { return UpsertReplace }
func (replaceDialect) ReturningStr() string   { return "" }

func TestRegisterDialect(t *testing.T) {
	RegisterDialect(replaceDialect{})

	d, err := DialectFor("replace-test")
	require.NoError(t, err)
	assert.Equal(t, UpsertReplace, d.UpsertType())
	assert.Empty(t, d.ReturningStr())
	assert.Equal(t, "limit 1", d.CreateLimitStr(1))
}
