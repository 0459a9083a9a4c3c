package models

// Thumbnail records a generated preview image for a recording.
// There is at most one thumbnail per recording.
type Thumbnail struct {
	BaseModel

	RecordedID int64  `gorm:"not null;uniqueIndex" json:"recorded_id" db:"recorded_id"`
	FilePath   string `gorm:"not null;size:4096" json:"file_path" db:"file_path"`
}

// TableName returns the table name for Thumbnail.
func (Thumbnail) TableName() string {
	return "thumbnails"
}

// Validate checks that required fields are set.
func (t *Thumbnail) Validate() error {
	if t.RecordedID == 0 {
		return ErrRecordedIDRequired
	}
	if t.FilePath == "" {
		return ErrFilePathRequired
	}
	return nil
}
