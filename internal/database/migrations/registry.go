package migrations

import (
	"gorm.io/gorm"

	"github.com/jmylchreest/tvrec/internal/models"
)

// AllMigrations returns every tvrec migration in order.
//   - 001: recorded and encoded tables
//   - 002: thumbnails table
func AllMigrations() []Migration {
	return []Migration{
		migration001Recordings(),
		migration002Thumbnails(),
	}
}

func migration001Recordings() Migration {
	return Migration{
		Version:     "001",
		Description: "Create recorded and encoded tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Recorded{}, &models.Encoded{})
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, "encoded", "recorded")
		},
	}
}

func migration002Thumbnails() Migration {
	return Migration{
		Version:     "002",
		Description: "Create thumbnails table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Thumbnail{})
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, "thumbnails")
		},
	}
}

// dropTables drops the named tables in order, skipping missing ones.
func dropTables(tx *gorm.DB, tables ...string) error {
	for _, table := range tables {
		if !tx.Migrator().HasTable(table) {
			continue
		}
		if err := tx.Migrator().DropTable(table); err != nil {
			return err
		}
	}
	return nil
}
