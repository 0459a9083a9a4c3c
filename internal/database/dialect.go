package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// UpsertType names how a backend expresses insert-or-update.
type UpsertType string

const (
	// UpsertReplace backends delete and re-insert the row.
	UpsertReplace UpsertType = "replace"
	// UpsertConflict backends use an on-conflict clause.
	UpsertConflict UpsertType = "conflict"
)

// Dialect produces backend-specific SQL fragments. Implementations must be
// safe for concurrent use.
type Dialect interface {
	// Name returns the driver name the dialect is registered under.
	Name() string
	// CreateValueStr returns the positional placeholders for parameters start..end inclusive.
	CreateValueStr(start, end int) (string, error)
	// CreateLimitStr returns a limit clause, with an offset when one is given.
	CreateLimitStr(limit int, offset ...int) string
	// UpsertType reports the upsert strategy of the backend.
	UpsertType() UpsertType
	// ReturningStr returns the clause appended to inserts to obtain the generated id.
	ReturningStr() string
	// TableExistsQuery returns the catalog query and arguments for a table name.
	TableExistsQuery(table string) (string, []any)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect makes d available to DialectFor under d.Name().
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name())] = d
}

// DialectFor returns the dialect registered for driver.
func DialectFor(driver string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()

	if driver == "" {
		driver = "postgres"
	}
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnsupportedDialect, driver, strings.Join(registeredDialects(), ", "))
	}
	return d, nil
}

func registeredDialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
