package repository

import (
	"context"
	"testing"

	"github.com/jmylchreest/tvrec/internal/models"
	"github.com/jmylchreest/tvrec/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodedRepo_FindByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	recRepo := NewRecordedRepository(db)
	repo := NewEncodedRepository(db)
	ctx := context.Background()

	rec := &models.Recorded{Name: "Late Film", RecPath: "/recorded/late-film.ts"}
	require.NoError(t, recRepo.Create(ctx, rec))

	enc := &models.Encoded{RecordedID: rec.ID, Name: "h264-720p", Path: "/encoded/late-film.mp4"}
	require.NoError(t, repo.Create(ctx, enc))
	assert.NotZero(t, enc.ID)

	found, err := repo.FindByID(ctx, enc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "/encoded/late-film.mp4", found.Path)
	assert.Equal(t, rec.ID, found.RecordedID)
}

func TestEncodedRepo_FindByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEncodedRepository(db)

	found, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestEncodedRepo_Create_Validation(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEncodedRepository(db)

	err := repo.Create(context.Background(), &models.Encoded{RecordedID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFilePathRequired)
}

func TestEncodedRepo_GetByRecordedID(t *testing.T) {
	db := testutil.NewTestDB(t)
	recRepo := NewRecordedRepository(db)
	repo := NewEncodedRepository(db)
	ctx := context.Background()

	gen := testutil.NewSampleDataGeneratorWithSeed(11)
	recs := gen.GenerateRecordings(2, "/recorded")
	for _, rec := range recs {
		require.NoError(t, recRepo.Create(ctx, rec))
	}
	for _, enc := range gen.GenerateEncoded(recs[0], 3) {
		require.NoError(t, repo.Create(ctx, enc))
	}

	encs, err := repo.GetByRecordedID(ctx, recs[0].ID)
	require.NoError(t, err)
	assert.Len(t, encs, 3)

	encs, err = repo.GetByRecordedID(ctx, recs[1].ID)
	require.NoError(t, err)
	assert.Empty(t, encs)
}
