package repositories

import (
	"CNRS/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// seedCirculatingRequest creates an approved, received request whose custody
// sits with holder.
func seedCirculatingRequest(t *testing.T, repo *CaseNoteRepository, holder models.Actor) *models.CaseNoteRequest {
	ctx := context.Background()
	req := newTestRequest()
	if err := repo.Create(ctx, req, holder); err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}
	if _, err := repo.Approve(ctx, req.ID, mrStaff, ""); err != nil {
		t.Fatalf("failed to approve request: %v", err)
	}
	got, err := repo.MarkReceived(ctx, req.ID, holder, "")
	if err != nil {
		t.Fatalf("failed to mark received: %v", err)
	}
	return got
}

func TestOfferRequiresCurrentHolder(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	stranger := models.Actor{ID: 31, Name: "Lim Boon Keng"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	err := repo.Offer(ctx, &models.CaseNoteHandover{
		CaseNoteRequestID: req.ID,
		ToUserID:          stranger.ID,
	}, stranger)
	assert.ErrorIs(t, err, ErrNotCurrentHolder)
}

func TestOfferAcknowledgeCompleteMovesCustody(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	receiver := models.Actor{ID: 31, Name: "Lim Boon Keng"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	handover := &models.CaseNoteHandover{
		CaseNoteRequestID: req.ID,
		ToUserID:          receiver.ID,
		Reason:            "clinic moving to level 2",
	}
	assert.NoError(t, repo.Offer(ctx, handover, holder))
	assert.Equal(t, holder.ID, handover.FromUserID)
	assert.Equal(t, models.HandoverPending, handover.Status)

	// The parent record now carries the in-flight pointer
	after, err := caseNotes.GetByID(ctx, req.ID)
	assert.NoError(t, err)
	assert.Equal(t, handover.ID, *after.CurrentHandoverID)

	acked, err := repo.Acknowledge(ctx, handover.ID, receiver, "will collect after rounds")
	assert.NoError(t, err)
	assert.Equal(t, models.HandoverAcknowledged, acked.Status)
	assert.NotNil(t, acked.AcknowledgedAt)

	done, err := repo.Complete(ctx, handover.ID, receiver)
	assert.NoError(t, err)
	assert.Equal(t, models.HandoverCompleted, done.Status)

	after, err = caseNotes.GetByID(ctx, req.ID)
	assert.NoError(t, err)
	assert.Equal(t, receiver.ID, *after.CurrentPICUserID)
	assert.Nil(t, after.CurrentHandoverID)

	// Acknowledge is required before Complete; replaying either is refused
	_, err = repo.Acknowledge(ctx, handover.ID, receiver, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	_, err = repo.Complete(ctx, handover.ID, receiver)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestSecondOfferWhileInFlightIsRefused(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	first := &models.CaseNoteHandover{CaseNoteRequestID: req.ID, ToUserID: 31}
	assert.NoError(t, repo.Offer(ctx, first, holder))

	second := &models.CaseNoteHandover{CaseNoteRequestID: req.ID, ToUserID: 32}
	err := repo.Offer(ctx, second, holder)
	assert.ErrorIs(t, err, ErrTransferInFlight)

	// A pull request while the handover is open is refused too
	err = repo.CreateRequest(ctx, &models.HandoverRequest{
		CaseNoteRequestID: req.ID,
		Reason:            "needed at emergency",
	}, models.Actor{ID: 33, Name: "Devi Krishnan"})
	assert.ErrorIs(t, err, ErrTransferInFlight)
}

func TestPullRequestApproveMovesCustody(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	requester := models.Actor{ID: 33, Name: "Devi Krishnan"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	pull := &models.HandoverRequest{
		CaseNoteRequestID: req.ID,
		Reason:            "needed at emergency",
	}
	assert.NoError(t, repo.CreateRequest(ctx, pull, requester))
	assert.Equal(t, requester.ID, pull.RequestedByUserID)
	assert.Equal(t, holder.ID, pull.CurrentHolderUserID)
	assert.Equal(t, models.HandoverRequestPending, pull.Status)

	// Only the current holder may answer
	_, err := repo.Respond(ctx, pull.ID, requester, true, "")
	assert.ErrorIs(t, err, ErrNotCurrentHolder)

	answered, err := repo.Respond(ctx, pull.ID, holder, true, "take it")
	assert.NoError(t, err)
	assert.Equal(t, models.HandoverRequestApproved, answered.Status)

	after, err := caseNotes.GetByID(ctx, req.ID)
	assert.NoError(t, err)
	assert.Equal(t, requester.ID, *after.CurrentPICUserID)

	// Decided once; a second answer is refused
	_, err = repo.Respond(ctx, pull.ID, holder, false, "")
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestPullRequestRejectKeepsCustody(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	requester := models.Actor{ID: 33, Name: "Devi Krishnan"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	pull := &models.HandoverRequest{CaseNoteRequestID: req.ID, Reason: "urgent review"}
	assert.NoError(t, repo.CreateRequest(ctx, pull, requester))

	answered, err := repo.Respond(ctx, pull.ID, holder, false, "still charting")
	assert.NoError(t, err)
	assert.Equal(t, models.HandoverRequestRejected, answered.Status)
	assert.Equal(t, "still charting", answered.ResponseNotes)

	after, err := caseNotes.GetByID(ctx, req.ID)
	assert.NoError(t, err)
	assert.Equal(t, holder.ID, *after.CurrentPICUserID)
}

func TestListRequestsForHolder(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	requester := models.Actor{ID: 33, Name: "Devi Krishnan"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	pull := &models.HandoverRequest{CaseNoteRequestID: req.ID, Reason: "review"}
	assert.NoError(t, repo.CreateRequest(ctx, pull, requester))

	pending, err := repo.ListRequestsForHolder(ctx, holder.ID)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, pull.ID, pending[0].ID)

	_, err = repo.Respond(ctx, pull.ID, holder, false, "no")
	assert.NoError(t, err)

	pending, err = repo.ListRequestsForHolder(ctx, holder.ID)
	assert.NoError(t, err)
	assert.Empty(t, pending)

	none, err := repo.ListRequestsForHolder(ctx, 99)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestReturnRefusedWhileHandoverInFlight(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	receiver := models.Actor{ID: 31, Name: "Lim Boon Keng"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	handover := &models.CaseNoteHandover{CaseNoteRequestID: req.ID, ToUserID: receiver.ID}
	assert.NoError(t, repo.Offer(ctx, handover, holder))

	// The note cannot come back to Medical Records mid-transfer
	_, err := caseNotes.MarkReturned(ctx, req.ID, holder, "")
	assert.ErrorIs(t, err, ErrTransferInFlight)

	// Once the handover settles, the new holder returns it normally
	_, err = repo.Acknowledge(ctx, handover.ID, receiver, "")
	assert.NoError(t, err)
	_, err = repo.Complete(ctx, handover.ID, receiver)
	assert.NoError(t, err)

	_, err = caseNotes.MarkReturned(ctx, req.ID, receiver, "")
	assert.NoError(t, err)
	verified, err := caseNotes.VerifyReturn(ctx, req.ID, mrStaff, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, verified.Status)
	assert.Nil(t, verified.CurrentPICUserID)
	assert.Nil(t, verified.CurrentHandoverID)
}

func TestOfferSurfacesPullCountFailure(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	req := seedCirculatingRequest(t, caseNotes, holder)

	// A broken pull-request table must fail the offer, not silently pass
	// the one-transfer-in-flight guard.
	assert.NoError(t, db.Migrator().DropTable(&models.HandoverRequest{}))
	err := repo.Offer(ctx, &models.CaseNoteHandover{
		CaseNoteRequestID: req.ID,
		ToUserID:          31,
	}, holder)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransferInFlight)
	assert.NotErrorIs(t, err, models.ErrIllegalTransition)
}

func TestOfferOnPendingRequestIsIllegal(t *testing.T) {
	caseNotes, db := newCaseNoteTestRepo(t)
	repo := NewHandoverRepository(db, nil)
	ctx := context.Background()

	holder := models.Actor{ID: 30, Name: "Siti Nurhaliza"}
	req := newTestRequest()
	assert.NoError(t, caseNotes.Create(ctx, req, holder))

	// Nobody holds a pending note yet
	err := repo.Offer(ctx, &models.CaseNoteHandover{
		CaseNoteRequestID: req.ID,
		ToUserID:          31,
	}, holder)
	assert.ErrorIs(t, err, ErrNotCurrentHolder)

	err = repo.CreateRequest(ctx, &models.HandoverRequest{CaseNoteRequestID: req.ID}, holder)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}
