package repositories

import (
	"CNRS/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateFilingChecksPatientOwnership(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	filings := NewFilingRepository(db)
	ctx := context.Background()

	db.Create(&models.Patient{ID: "pat-2", MRN: "MRN0002", Name: "Ong Mei Ling"})

	mine := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, mine, requesterCA))

	other := newTestRequest()
	other.PatientID = "pat-2"
	assert.NoError(t, caseNotes.Create(ctx, other, requesterCA))

	// Covering another patient's note is refused
	err := filings.Create(ctx, &models.FilingRequest{PatientID: "pat-1"},
		[]uint{mine.ID, other.ID}, mrStaff)
	assert.Error(t, err)

	// So is an empty cover set
	err = filings.Create(ctx, &models.FilingRequest{PatientID: "pat-1"}, nil, mrStaff)
	assert.Error(t, err)

	filing := &models.FilingRequest{PatientID: "pat-1", Notes: "volume closed"}
	assert.NoError(t, filings.Create(ctx, filing, []uint{mine.ID}, mrStaff))
	assert.Equal(t, models.FilingPending, filing.Status)
	assert.Equal(t, []uint{mine.ID}, filing.CaseNoteIDList())

	var count int64
	db.Model(&models.RequestEvent{}).
		Where("case_note_request_id = ? AND type = ?", mine.ID, models.EventFilingRequested).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFilingDecidedOnce(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	filings := NewFilingRepository(db)
	ctx := context.Background()

	note := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, note, requesterCA))

	filing := &models.FilingRequest{PatientID: "pat-1"}
	assert.NoError(t, filings.Create(ctx, filing, []uint{note.ID}, mrStaff))

	approved, err := filings.Approve(ctx, filing.ID, mrStaff, "archived to offsite store")
	assert.NoError(t, err)
	assert.Equal(t, models.FilingApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, mrStaff.ID, *approved.ApprovedByUserID)

	_, err = filings.Reject(ctx, filing.ID, mrStaff, "changed my mind")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	_, err = filings.Approve(ctx, filing.ID, mrStaff, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestFilingRejectRecordsReason(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	filings := NewFilingRepository(db)
	ctx := context.Background()

	note := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, note, requesterCA))

	filing := &models.FilingRequest{PatientID: "pat-1"}
	assert.NoError(t, filings.Create(ctx, filing, []uint{note.ID}, mrStaff))

	rejected, err := filings.Reject(ctx, filing.ID, mrStaff, "volume still active")
	assert.NoError(t, err)
	assert.Equal(t, models.FilingRejected, rejected.Status)
	assert.Equal(t, "volume still active", rejected.RejectionReason)

	var count int64
	db.Model(&models.RequestEvent{}).
		Where("case_note_request_id = ? AND type = ?", note.ID, models.EventFilingRejected).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFilingListByStatus(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	filings := NewFilingRepository(db)
	ctx := context.Background()

	first := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, first, requesterCA))
	second := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, second, requesterCA))

	a := &models.FilingRequest{PatientID: "pat-1"}
	assert.NoError(t, filings.Create(ctx, a, []uint{first.ID}, mrStaff))
	b := &models.FilingRequest{PatientID: "pat-1"}
	assert.NoError(t, filings.Create(ctx, b, []uint{second.ID}, mrStaff))

	_, err := filings.Approve(ctx, a.ID, mrStaff, "")
	assert.NoError(t, err)

	pending, err := filings.List(ctx, models.FilingPending)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	all, err := filings.List(ctx, "")
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}
