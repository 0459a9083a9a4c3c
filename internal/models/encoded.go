package models

// Encoded is a transcoded copy of a recording.
type Encoded struct {
	BaseModel

	RecordedID int64  `gorm:"not null;index" json:"recorded_id" db:"recorded_id"`
	Name       string `gorm:"size:512" json:"name" db:"name"`
	Path       string `gorm:"not null;size:4096" json:"path" db:"path"`
}

// TableName returns the table name for Encoded.
func (Encoded) TableName() string {
	return "encoded"
}

// Validate checks that required fields are set.
func (e *Encoded) Validate() error {
	if e.RecordedID == 0 {
		return ErrRecordedIDRequired
	}
	if e.Path == "" {
		return ErrFilePathRequired
	}
	return nil
}
