// Package testutil provides test utilities including an in-memory database and
// sample recording data.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/tvrec/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Standard fictional broadcasters for test data.
// NEVER use real brand names like BBC, ESPN, HBO, Sky, etc.
var (
	Broadcasters = []string{
		"StreamCast",
		"ViewMedia",
		"AeroVision",
		"GlobalStream",
		"NationalNet",
		"NewsFirst",
		"PrimeTV",
	}

	ProgrammeTitles = []string{
		"Evening News",
		"Morning Briefing",
		"Nature Watch",
		"Late Film",
		"Match of the Week",
		"Cooking Hour",
		"Quiz Night",
		"Documentary Special",
	}

	EncodingProfiles = []string{
		"h264-720p",
		"h264-1080p",
		"hevc-1080p",
		"av1-480p",
	}
)

// NewTestDB opens an in-memory SQLite database with every tvrec table migrated.
// The pool is limited to one connection so all queries share the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// SampleDataGenerator generates realistic test recordings.
type SampleDataGenerator struct {
	rng *rand.Rand
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomBroadcaster returns a random broadcaster name.
func (g *SampleDataGenerator) RandomBroadcaster() string {
	return Broadcasters[g.rng.Intn(len(Broadcasters))]
}

// RandomTitle returns a random programme title.
func (g *SampleDataGenerator) RandomTitle() string {
	return ProgrammeTitles[g.rng.Intn(len(ProgrammeTitles))]
}

// GenerateRecordings returns count unsaved recordings with unique paths under dir.
func (g *SampleDataGenerator) GenerateRecordings(count int, dir string) []*models.Recorded {
	recordings := make([]*models.Recorded, 0, count)
	for i := 0; i < count; i++ {
		title := g.RandomTitle()
		name := fmt.Sprintf("%s - %s", g.RandomBroadcaster(), title)
		recordings = append(recordings, &models.Recorded{
			Name:    name,
			RecPath: fmt.Sprintf("%s/%s-%03d.ts", strings.TrimRight(dir, "/"), slug(title), i+1),
		})
	}
	return recordings
}

// GenerateEncoded returns count unsaved encoded copies of rec.
// rec must already have an ID.
func (g *SampleDataGenerator) GenerateEncoded(rec *models.Recorded, count int) []*models.Encoded {
	encoded := make([]*models.Encoded, 0, count)
	for i := 0; i < count; i++ {
		profile := EncodingProfiles[g.rng.Intn(len(EncodingProfiles))]
		encoded = append(encoded, &models.Encoded{
			RecordedID: rec.ID,
			Name:       profile,
			Path:       fmt.Sprintf("%s.%s.%d.mp4", strings.TrimSuffix(rec.RecPath, ".ts"), profile, i+1),
		})
	}
	return encoded
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}
