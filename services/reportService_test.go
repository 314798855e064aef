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

func setupReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Patient{},
		&models.Department{},
		&models.RequestSequence{},
		&models.CaseNoteRequest{},
		&models.RequestEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.Create(&models.Patient{ID: "pat-1", MRN: "MRN0001", Name: "Tan Wei Ming"})
	db.Create(&models.Department{Code: "OPD", Name: "Outpatient Department"})
	return db
}

func TestTrackingRowsFilterByDirection(t *testing.T) {
	db := setupReportTestDB(t)
	caseNotes := repositories.NewCaseNoteRepository(db, nil, repositories.NewSequenceRepository(db))
	service := NewReportService(repositories.NewEventRepository(db), caseNotes)
	ctx := context.Background()

	current := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	caseNotes.SetClock(func() time.Time {
		current = current.Add(time.Minute)
		return current
	})

	requester := models.Actor{ID: 10, Name: "Aminah Binte Rahim"}
	staff := models.Actor{ID: 20, Name: "Records Desk"}

	req := &models.CaseNoteRequest{PatientID: "pat-1", DepartmentID: 1, Purpose: "Review"}
	assert.NoError(t, caseNotes.Create(ctx, req, requester))
	_, err := caseNotes.Approve(ctx, req.ID, staff, "")
	assert.NoError(t, err)
	_, err = caseNotes.MarkReceived(ctx, req.ID, requester, "")
	assert.NoError(t, err)
	_, err = caseNotes.MarkReturned(ctx, req.ID, requester, "")
	assert.NoError(t, err)
	_, err = caseNotes.VerifyReturn(ctx, req.ID, staff, "")
	assert.NoError(t, err)

	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	out, err := service.TrackingRows(ctx, from, to, DirectionOut)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, string(models.EventReceived), out[0].EventType)
	assert.Equal(t, DirectionOut, out[0].Direction)
	assert.Equal(t, req.RequestNumber, out[0].RequestNumber)
	assert.Equal(t, "MRN0001", out[0].PatientMRN)
	assert.Equal(t, requester.Name, out[0].ActorName)

	in, err := service.TrackingRows(ctx, from, to, DirectionIn)
	assert.NoError(t, err)
	assert.Len(t, in, 2)
	assert.Equal(t, string(models.EventReturned), in[0].EventType)
	assert.Equal(t, string(models.EventReturnVerified), in[1].EventType)

	both, err := service.TrackingRows(ctx, from, to, "")
	assert.NoError(t, err)
	assert.Len(t, both, 3)
	for i := 1; i < len(both); i++ {
		assert.False(t, both[i].OccurredAt.Before(both[i-1].OccurredAt))
	}

	_, err = service.TrackingRows(ctx, from, to, "sideways")
	assert.Error(t, err)
}

func TestTrackingRowsEmptyRange(t *testing.T) {
	db := setupReportTestDB(t)
	caseNotes := repositories.NewCaseNoteRepository(db, nil, repositories.NewSequenceRepository(db))
	service := NewReportService(repositories.NewEventRepository(db), caseNotes)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows, err := service.TrackingRows(context.Background(), from, to, "")
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTrackingExports(t *testing.T) {
	db := setupReportTestDB(t)
	caseNotes := repositories.NewCaseNoteRepository(db, nil, repositories.NewSequenceRepository(db))
	service := NewReportService(repositories.NewEventRepository(db), caseNotes)
	ctx := context.Background()

	requester := models.Actor{ID: 10, Name: "Aminah Binte Rahim"}
	staff := models.Actor{ID: 20, Name: "Records Desk"}
	req := &models.CaseNoteRequest{PatientID: "pat-1", DepartmentID: 1, Purpose: "Review"}
	assert.NoError(t, caseNotes.Create(ctx, req, requester))
	_, err := caseNotes.Approve(ctx, req.ID, staff, "")
	assert.NoError(t, err)
	_, err = caseNotes.MarkReceived(ctx, req.ID, requester, "")
	assert.NoError(t, err)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)

	xlsx, err := service.ExportExcel(ctx, from, to, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, xlsx)

	pdf, err := service.ExportPDF(ctx, from, to, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
