package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// QueryAs runs query through q and decodes each row into a T using the
// struct's `db` tags. Embedded structs are flattened. Integer strings, numeric
// widths and RFC 3339 timestamps are converted as needed.
func QueryAs[T any](ctx context.Context, q Querier, query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := DecodeRow(row, &item); err != nil {
			return nil, fmt.Errorf("decoding row into %T: %w", item, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// DecodeRow decodes a single row into dest, which must be a pointer.
func DecodeRow(row Row, dest any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		TagName:          "db",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	return decoder.Decode(map[string]any(row))
}
