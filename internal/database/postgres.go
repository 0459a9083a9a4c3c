package database

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	RegisterDialect(Postgres{})
}

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

// Name implements Dialect.
func (Postgres) Name() string { return "postgres" }

// CreateValueStr returns "$start, ..., $end".
func (Postgres) CreateValueStr(start, end int) (string, error) {
	if start > end {
		return "", fmt.Errorf("%w: value range start %d is after end %d", ErrInvalidArgument, start, end)
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		if i > start {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String(), nil
}

// CreateLimitStr returns "limit N" or "limit N offset M".
func (Postgres) CreateLimitStr(limit int, offset ...int) string {
	if len(offset) == 0 {
		return "limit " + strconv.Itoa(limit)
	}
	return "limit " + strconv.Itoa(limit) + " offset " + strconv.Itoa(offset[0])
}

// UpsertType implements Dialect.
func (Postgres) UpsertType() UpsertType { return UpsertConflict }

// ReturningStr implements Dialect.
func (Postgres) ReturningStr() string { return "returning id" }

// TableExistsQuery matches ordinary tables case-insensitively.
func (Postgres) TableExistsQuery(table string) (string, []any) {
	return "select relname from pg_class where relkind = 'r' and relname ilike $1;", []any{table}
}
