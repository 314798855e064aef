package repositories

import (
	"CNRS/models"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// seedBatchWithChildren creates a batch and n child requests attached to it.
func seedBatchWithChildren(t *testing.T, caseNotes *CaseNoteRepository, batches *BatchRepository, n int) (*models.BatchRequest, []*models.CaseNoteRequest) {
	ctx := context.Background()

	batch := &models.BatchRequest{}
	if err := batches.Create(ctx, batch, requesterCA); err != nil {
		t.Fatalf("failed to seed batch: %v", err)
	}

	children := make([]*models.CaseNoteRequest, 0, n)
	for i := 0; i < n; i++ {
		child := newTestRequest()
		child.BatchID = &batch.ID
		if err := caseNotes.Create(ctx, child, requesterCA); err != nil {
			t.Fatalf("failed to seed batch child: %v", err)
		}
		children = append(children, child)
	}
	return batch, children
}

func TestCreateBatchMintsNumber(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)

	batch, children := seedBatchWithChildren(t, caseNotes, batches, 2)
	assert.True(t, strings.HasPrefix(batch.BatchNumber, "BAT-"))
	assert.Equal(t, models.BatchPending, batch.Status)
	assert.Equal(t, requesterCA.ID, batch.RequestedByUserID)

	got, err := batches.GetByID(context.Background(), batch.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Requests, 2)
	assert.Equal(t, children[0].ID, got.Requests[0].ID)

	// Each child's timeline records its batch membership
	var count int64
	db.Model(&models.RequestEvent{}).
		Where("type = ?", models.EventBatchCreated).
		Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestRefreshStatusDerivesAggregate(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		approve    int
		reject     int
		wantStatus string
	}{
		{"all approved", 3, 0, models.BatchApproved},
		{"all rejected", 0, 3, models.BatchRejected},
		{"mixed decisions", 2, 1, models.BatchPartiallyApproved},
		{"still pending", 1, 1, models.BatchPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, children := seedBatchWithChildren(t, caseNotes, batches, 3)

			for i := 0; i < tt.approve; i++ {
				_, err := caseNotes.Approve(ctx, children[i].ID, mrStaff, "")
				assert.NoError(t, err)
			}
			for i := tt.approve; i < tt.approve+tt.reject; i++ {
				_, err := caseNotes.Reject(ctx, children[i].ID, mrStaff, "unavailable")
				assert.NoError(t, err)
			}

			got, err := batches.RefreshStatus(ctx, batch.ID)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.approve, *got.ApprovedCount)
		})
	}
}

func TestRefreshStatusStableAfterPickup(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	batch, children := seedBatchWithChildren(t, caseNotes, batches, 2)
	_, err := caseNotes.Approve(ctx, children[0].ID, mrStaff, "")
	assert.NoError(t, err)
	_, err = caseNotes.Reject(ctx, children[1].ID, mrStaff, "unavailable")
	assert.NoError(t, err)

	got, err := batches.RefreshStatus(ctx, batch.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BatchPartiallyApproved, got.Status)
	assert.Equal(t, 1, *got.ApprovedCount)

	// Picking up the approved note moves its status on, but the batch
	// decision outcome must not drift.
	_, err = caseNotes.MarkReceived(ctx, children[0].ID, requesterCA, "")
	assert.NoError(t, err)

	got, err = batches.RefreshStatus(ctx, batch.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BatchPartiallyApproved, got.Status)
	assert.Equal(t, 1, *got.ApprovedCount)
}

func TestMarkVerifiedAfterPickup(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	batch, children := seedBatchWithChildren(t, caseNotes, batches, 2)
	for _, child := range children {
		_, err := caseNotes.Approve(ctx, child.ID, mrStaff, "")
		assert.NoError(t, err)
	}
	_, err := batches.RefreshStatus(ctx, batch.ID)
	assert.NoError(t, err)

	// The normal flow is approve, pick up, then verify receipt
	for _, child := range children {
		_, err := caseNotes.MarkReceived(ctx, child.ID, requesterCA, "")
		assert.NoError(t, err)
	}
	_, err = batches.RefreshStatus(ctx, batch.ID)
	assert.NoError(t, err)

	verified, err := batches.MarkVerified(ctx, batch.ID, mrStaff, 2, "")
	assert.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, 2, *verified.ReceivedCount)
}

func TestMarkVerifiedRequiresApprovedBatch(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	batch, _ := seedBatchWithChildren(t, caseNotes, batches, 2)

	_, err := batches.MarkVerified(ctx, batch.ID, mrStaff, 2, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestMarkVerifiedCountsAndEvents(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	batch, children := seedBatchWithChildren(t, caseNotes, batches, 3)
	for _, child := range children {
		_, err := caseNotes.Approve(ctx, child.ID, mrStaff, "")
		assert.NoError(t, err)
	}
	_, err := batches.RefreshStatus(ctx, batch.ID)
	assert.NoError(t, err)

	// Out-of-range counts are refused outright
	_, err = batches.MarkVerified(ctx, batch.ID, mrStaff, 4, "")
	assert.Error(t, err)
	_, err = batches.MarkVerified(ctx, batch.ID, mrStaff, -1, "")
	assert.Error(t, err)

	// Partial physical delivery is accepted
	verified, err := batches.MarkVerified(ctx, batch.ID, mrStaff, 2, "one note still at ward")
	assert.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, 2, *verified.ReceivedCount)
	assert.NotNil(t, verified.VerifiedAt)

	// Each approved child gets a timeline entry
	var count int64
	db.Model(&models.RequestEvent{}).
		Where("type = ?", models.EventBatchVerified).
		Count(&count)
	assert.Equal(t, int64(3), count)

	// Verification happens once
	_, err = batches.MarkVerified(ctx, batch.ID, mrStaff, 3, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestListUnverifiedFeedsReminders(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	first, firstChildren := seedBatchWithChildren(t, caseNotes, batches, 1)
	second, secondChildren := seedBatchWithChildren(t, caseNotes, batches, 1)
	for _, child := range append(firstChildren, secondChildren...) {
		_, err := caseNotes.Approve(ctx, child.ID, mrStaff, "")
		assert.NoError(t, err)
	}
	_, err := batches.RefreshStatus(ctx, first.ID)
	assert.NoError(t, err)
	_, err = batches.RefreshStatus(ctx, second.ID)
	assert.NoError(t, err)

	unverified, err := batches.ListUnverified(ctx)
	assert.NoError(t, err)
	assert.Len(t, unverified, 2)

	_, err = batches.MarkVerified(ctx, first.ID, mrStaff, 1, "")
	assert.NoError(t, err)

	unverified, err = batches.ListUnverified(ctx)
	assert.NoError(t, err)
	assert.Len(t, unverified, 1)
	assert.Equal(t, second.ID, unverified[0].ID)
}

func TestMarkProcessedWritesChildEvents(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	batches := NewBatchRepository(db, nil)
	ctx := context.Background()

	batch, _ := seedBatchWithChildren(t, caseNotes, batches, 2)

	processed, err := batches.MarkProcessed(ctx, batch.ID, models.BatchApproved, mrStaff, "bulk approved by supervisor")
	assert.NoError(t, err)
	assert.Equal(t, models.BatchApproved, processed.Status)
	assert.NotNil(t, processed.ProcessedAt)

	var count int64
	db.Model(&models.RequestEvent{}).
		Where("type = ?", models.EventBatchProcessed).
		Count(&count)
	assert.Equal(t, int64(2), count)
}
