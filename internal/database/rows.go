package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Row is one result row keyed by column name.
type Row map[string]any

// integerTypes are the database type names decoded into int64.
var integerTypes = map[string]struct{}{
	"INT8":     {},
	"BIGINT":   {},
	"INT4":     {},
	"INTEGER":  {},
	"INT2":     {},
	"SMALLINT": {},
}

func isIntegerType(dbType string) bool {
	_, ok := integerTypes[strings.ToUpper(dbType)]
	return ok
}

// scanRows reads every row from rows. It does not close rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col.Name()] = normalizeValue(col.DatabaseTypeName(), values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// normalizeValue converts textual integers from integer columns to int64 and
// any remaining byte slices to string.
func normalizeValue(dbType string, v any) any {
	switch val := v.(type) {
	case []byte:
		s := string(val)
		if isIntegerType(dbType) {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		return s
	case string:
		if isIntegerType(dbType) {
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				return n
			}
		}
		return val
	default:
		return v
	}
}

// Int64 returns the named column as an int64.
func (r Row) Int64(column string) (int64, bool) {
	switch v := r[column].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
