package repositories

import (
	"CNRS/models"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.RequestSequence{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestNextSequenceStartsAtOneAndHasNoGaps(t *testing.T) {
	repo := NewSequenceRepository(setupSequenceTestDB(t))
	ctx := context.Background()

	for want := 1; want <= 25; want++ {
		got, err := repo.NextSequence(ctx, "20250601")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNextSequenceIsIndependentPerDate(t *testing.T) {
	repo := NewSequenceRepository(setupSequenceTestDB(t))
	ctx := context.Background()

	first, err := repo.NextSequence(ctx, "20250601")
	assert.NoError(t, err)
	second, err := repo.NextSequence(ctx, "20250601")
	assert.NoError(t, err)
	otherDay, err := repo.NextSequence(ctx, "20250602")
	assert.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, otherDay)
}

func TestGenerateRequestNumberFormat(t *testing.T) {
	repo := NewSequenceRepository(setupSequenceTestDB(t))
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	number, err := repo.GenerateRequestNumber(ctx, day)
	assert.NoError(t, err)
	assert.Equal(t, "REQ202506010001", number)

	number, err = repo.GenerateRequestNumber(ctx, day)
	assert.NoError(t, err)
	assert.Equal(t, "REQ202506010002", number)
}

func TestGenerateRequestNumberPadsToFourDigits(t *testing.T) {
	db := setupSequenceTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Pre-seed the counter near the padding boundary
	assert.NoError(t, db.Create(&models.RequestSequence{DateKey: "20250601", CurrentSequence: 9}).Error)

	number, err := repo.GenerateRequestNumber(ctx, day)
	assert.NoError(t, err)
	assert.Equal(t, "REQ202506010010", number)

	db.Model(&models.RequestSequence{}).Where("date_key = ?", "20250601").Update("current_sequence", 999)
	number, err = repo.GenerateRequestNumber(ctx, day)
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("REQ%s%04d", "20250601", 1000), number)
}
