package models

// Recorded is a finished recording of a programme.
type Recorded struct {
	BaseModel

	// Name is the programme title.
	Name string `gorm:"not null;size:512" json:"name" db:"name"`

	// RecPath is the path of the raw recording, empty once the file is removed.
	RecPath string `gorm:"size:4096" json:"rec_path,omitempty" db:"rec_path"`

	// Encoded lists transcoded copies of this recording.
	Encoded []Encoded `gorm:"foreignKey:RecordedID;constraint:OnDelete:CASCADE" json:"encoded,omitempty"`
}

// TableName returns the table name for Recorded.
func (Recorded) TableName() string {
	return "recorded"
}

// Validate checks that required fields are set.
func (r *Recorded) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}
