package repositories

import (
	"CNRS/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCaseNoteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Patient{},
		&models.Department{},
		&models.RequestSequence{},
		&models.CaseNoteRequest{},
		&models.CaseNoteHandover{},
		&models.HandoverRequest{},
		&models.BatchRequest{},
		&models.FilingRequest{},
		&models.RequestEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.Patient{ID: "pat-1", MRN: "MRN0001", Name: "Tan Wei Ming"})
	db.Create(&models.Department{Code: "OPD", Name: "Outpatient Department"})
	return db
}

func newCaseNoteTestRepo(t *testing.T) (*CaseNoteRepository, *gorm.DB) {
	db := setupCaseNoteTestDB(t)
	repo := NewCaseNoteRepository(db, nil, NewSequenceRepository(db))
	return repo, db
}

func newTestRequest() *models.CaseNoteRequest {
	return &models.CaseNoteRequest{
		PatientID:    "pat-1",
		DepartmentID: 1,
		Purpose:      "Follow-up consultation",
	}
}

var (
	requesterCA = models.Actor{ID: 10, Name: "Aminah Binte Rahim"}
	mrStaff     = models.Actor{ID: 20, Name: "Records Desk"}
)

func TestCreateMintsNumberAndEvent(t *testing.T) {
	repo, db := newCaseNoteTestRepo(t)
	repo.SetClock(func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))

	assert.Equal(t, "REQ202506010001", req.RequestNumber)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, requesterCA.ID, req.RequestedByUserID)
	assert.Equal(t, models.PriorityNormal, req.Priority)

	var events []models.RequestEvent
	db.Where("case_note_request_id = ?", req.ID).Find(&events)
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventCreated, events[0].Type)
	assert.Equal(t, requesterCA.Name, events[0].MetadataMap()["actor_name"])

	second := newTestRequest()
	assert.NoError(t, repo.Create(ctx, second, requesterCA))
	assert.Equal(t, "REQ202506010002", second.RequestNumber)
}

func TestApproveTransitionsAndAppendsEvent(t *testing.T) {
	repo, db := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))

	approved, err := repo.Approve(ctx, req.ID, mrStaff, "available")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, mrStaff.ID, *approved.ApprovedByUserID)
	assert.NotNil(t, approved.ApprovedAt)

	var count int64
	db.Model(&models.RequestEvent{}).
		Where("case_note_request_id = ? AND type = ?", req.ID, models.EventApproved).
		Count(&count)
	assert.Equal(t, int64(1), count)

	// A second approve is refused and appends nothing
	_, err = repo.Approve(ctx, req.ID, mrStaff, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	db.Model(&models.RequestEvent{}).
		Where("case_note_request_id = ? AND type = ?", req.ID, models.EventApproved).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRejectFromPendingOnly(t *testing.T) {
	repo, _ := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))

	rejected, err := repo.Reject(ctx, req.ID, mrStaff, "note already in circulation")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "note already in circulation", rejected.RejectionReason)

	// No further transitions out of rejected
	_, err = repo.Approve(ctx, req.ID, mrStaff, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	_, err = repo.Complete(ctx, req.ID, mrStaff)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestMarkReceivedMovesCustody(t *testing.T) {
	repo, _ := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))

	// Must be approved first
	_, err := repo.MarkReceived(ctx, req.ID, requesterCA, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	_, err = repo.Approve(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)

	received, err := repo.MarkReceived(ctx, req.ID, requesterCA, "picked up at counter")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, received.Status)
	assert.True(t, received.IsReceived)
	assert.Equal(t, requesterCA.ID, *received.CurrentPICUserID)

	// Pickup can only be recorded once
	_, err = repo.MarkReceived(ctx, req.ID, requesterCA, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestReturnVerificationCompletesRequest(t *testing.T) {
	repo, _ := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))
	_, err := repo.Approve(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)
	_, err = repo.MarkReceived(ctx, req.ID, requesterCA, "")
	assert.NoError(t, err)

	returned, err := repo.MarkReturned(ctx, req.ID, requesterCA, "done with the notes")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPendingReturnVerification, returned.Status)
	assert.True(t, returned.IsReturned)

	verified, err := repo.VerifyReturn(ctx, req.ID, mrStaff, "counted in")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, verified.Status)
	assert.Nil(t, verified.CurrentPICUserID)
	assert.NotNil(t, verified.CompletedAt)
}

func TestRejectedReturnCanBeRetried(t *testing.T) {
	repo, db := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))
	_, err := repo.Approve(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)
	_, err = repo.MarkReceived(ctx, req.ID, requesterCA, "")
	assert.NoError(t, err)
	_, err = repo.MarkReturned(ctx, req.ID, requesterCA, "")
	assert.NoError(t, err)

	// Medical Records refuses the return; record reverts and the holder
	// keeps custody.
	rejected, err := repo.RejectReturn(ctx, req.ID, mrStaff, "missing discharge summary")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusApproved, rejected.Status)
	assert.False(t, rejected.IsReturned)
	assert.True(t, rejected.IsRejectedReturn)
	assert.Equal(t, requesterCA.ID, *rejected.CurrentPICUserID)

	// Second attempt goes through and clears the rejection flag
	_, err = repo.MarkReturned(ctx, req.ID, requesterCA, "summary attached")
	assert.NoError(t, err)
	verified, err := repo.VerifyReturn(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, verified.Status)
	assert.False(t, verified.IsRejectedReturn)

	var types []string
	db.Model(&models.RequestEvent{}).
		Where("case_note_request_id = ?", req.ID).
		Order("occurred_at ASC, id ASC").
		Pluck("type", &types)
	assert.Equal(t, []string{
		string(models.EventCreated),
		string(models.EventApproved),
		string(models.EventReceived),
		string(models.EventReturned),
		string(models.EventReturnRejected),
		string(models.EventReturned),
		string(models.EventReturnVerified),
	}, types)
}

func TestTimelineReplaysInOrder(t *testing.T) {
	db := setupCaseNoteTestDB(t)
	repo := NewCaseNoteRepository(db, nil, NewSequenceRepository(db))
	events := NewEventRepository(db)
	ctx := context.Background()

	// Advance the clock one hour per transition so occurred_at ordering is
	// meaningful.
	current := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time {
		current = current.Add(time.Hour)
		return current
	})

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))
	_, err := repo.Approve(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)
	_, err = repo.MarkReceived(ctx, req.ID, requesterCA, "")
	assert.NoError(t, err)
	_, err = repo.Complete(ctx, req.ID, mrStaff)
	assert.NoError(t, err)

	timeline, err := events.Timeline(ctx, req.ID)
	assert.NoError(t, err)
	assert.Len(t, timeline, 4)
	for i := 1; i < len(timeline); i++ {
		assert.True(t, timeline[i].OccurredAt.After(timeline[i-1].OccurredAt))
	}
	assert.Equal(t, models.EventCreated, timeline[0].Type)
	assert.Equal(t, models.EventCompleted, timeline[3].Type)
}

func TestListFilters(t *testing.T) {
	repo, _ := newCaseNoteTestRepo(t)
	ctx := context.Background()

	urgent := newTestRequest()
	urgent.Priority = models.PriorityUrgent
	assert.NoError(t, repo.Create(ctx, urgent, requesterCA))

	normal := newTestRequest()
	assert.NoError(t, repo.Create(ctx, normal, requesterCA))
	_, err := repo.Approve(ctx, normal.ID, mrStaff, "")
	assert.NoError(t, err)

	pending, err := repo.List(ctx, ListFilter{Status: models.StatusPending})
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, urgent.ID, pending[0].ID)

	urgentOnly, err := repo.List(ctx, ListFilter{Priority: models.PriorityUrgent})
	assert.NoError(t, err)
	assert.Len(t, urgentOnly, 1)

	all, err := repo.List(ctx, ListFilter{})
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetByIDPreloadsPatient(t *testing.T) {
	repo, _ := newCaseNoteTestRepo(t)
	ctx := context.Background()

	req := newTestRequest()
	assert.NoError(t, repo.Create(ctx, req, requesterCA))

	got, err := repo.GetByID(ctx, req.ID)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, "MRN0001", got.Patient.MRN)
	assert.Equal(t, "Tan Wei Ming", got.Patient.Name)

	missing, err := repo.GetByID(ctx, 9999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
