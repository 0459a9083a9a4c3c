// Package models defines GORM database models for tvrec entities.
package models

import (
	"time"
)

// BaseModel provides common fields for all models with an auto-increment primary key.
type BaseModel struct {
	ID        int64     `gorm:"primarykey;autoIncrement" json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Int64Ptr returns a pointer to an int64 value.
// Useful for optional references such as an encoded rendition id.
func Int64Ptr(v int64) *int64 {
	return &v
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Recorded{},
		&Encoded{},
		&Thumbnail{},
	}
}
