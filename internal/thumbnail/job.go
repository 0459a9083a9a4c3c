// Package thumbnail generates preview images for recordings.
//
// Jobs are queued on a Manager, which deduplicates them by recording and
// hands them one at a time to a Worker. The Worker runs ffmpeg and notifies
// registered listeners once an image has been written.
package thumbnail

import (
	"fmt"
	"log/slog"
)

// Job requests a thumbnail for one recording.
type Job struct {
	RecordedID int64
	// RecPath is the raw recording used when EncodedID is nil.
	RecPath string
	// EncodedID selects an encoded rendition, resolved when the job runs.
	EncodedID *int64
}

// FromEncoded reports whether the source is resolved through the media index.
func (j Job) FromEncoded() bool {
	return j.EncodedID != nil
}

// LogValue implements slog.LogValuer.
func (j Job) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Int64("recorded_id", j.RecordedID)}
	if j.EncodedID != nil {
		attrs = append(attrs, slog.Int64("encoded_id", *j.EncodedID))
	} else {
		attrs = append(attrs, slog.String("rec_path", j.RecPath))
	}
	return slog.GroupValue(attrs...)
}

func (j Job) String() string {
	if j.EncodedID != nil {
		return fmt.Sprintf("recorded %d (encoded %d)", j.RecordedID, *j.EncodedID)
	}
	return fmt.Sprintf("recorded %d", j.RecordedID)
}
