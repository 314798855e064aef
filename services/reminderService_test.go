package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReminderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.BatchRequest{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestNextRunAt(t *testing.T) {
	service := NewReminderService(nil, nil)

	// Before 08:00 the reminder fires the same morning
	beforeEight := time.Date(2025, 6, 2, 6, 30, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		service.nextRunAt(beforeEight))

	// At or after 08:00 it rolls to tomorrow
	atEight := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
		service.nextRunAt(atEight))

	afternoon := time.Date(2025, 6, 2, 15, 45, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
		service.nextRunAt(afternoon))
}

func TestRemindersQuietWhenNothingUnverified(t *testing.T) {
	db := setupReminderTestDB(t)
	batches := repositories.NewBatchRepository(db, nil)

	// No unverified batches means the user repository is never consulted
	service := NewReminderService(batches, nil)
	assert.NoError(t, service.SendUnverifiedBatchReminders(context.Background()))
}
