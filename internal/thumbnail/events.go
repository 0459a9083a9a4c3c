package thumbnail

import (
	"fmt"
	"log/slog"
	"sync"
)

// Listener is notified after a thumbnail has been written for recordedID.
type Listener func(recordedID int64, path string)

// listeners is a concurrency-safe observer list.
type listeners struct {
	mu     sync.RWMutex
	fns    []Listener
	logger *slog.Logger
}

func (l *listeners) add(fn Listener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

// notify calls every listener in registration order. A panicking listener is
// logged and skipped.
func (l *listeners) notify(recordedID int64, path string) {
	l.mu.RLock()
	fns := make([]Listener, len(l.fns))
	copy(fns, l.fns)
	l.mu.RUnlock()

	for i, fn := range fns {
		l.call(i, fn, recordedID, path)
	}
}

func (l *listeners) call(index int, fn Listener, recordedID int64, path string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("thumbnail listener panicked",
				slog.Int("listener", index),
				slog.Int64("recorded_id", recordedID),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(recordedID, path)
}
