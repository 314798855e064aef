package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusGuards(t *testing.T) {
	req := CaseNoteRequest{Status: StatusPending}
	assert.True(t, req.CanApprove())
	assert.True(t, req.CanReject())
	assert.False(t, req.CanComplete())
	assert.False(t, req.CanMarkReceived())
	assert.False(t, req.CanVerifyReturn())

	req.Status = StatusApproved
	assert.False(t, req.CanApprove())
	assert.False(t, req.CanReject())
	assert.True(t, req.CanComplete())
	assert.True(t, req.CanMarkReceived())

	req.Status = StatusRejected
	assert.False(t, req.CanApprove())
	assert.False(t, req.CanComplete())
	assert.False(t, req.CanMarkReceived())

	req.Status = StatusCompleted
	assert.False(t, req.CanComplete())
	assert.False(t, req.CanMarkReturned())
}

func TestCanMarkReturned(t *testing.T) {
	req := CaseNoteRequest{Status: StatusInProgress, IsReceived: true}
	assert.True(t, req.CanMarkReturned())

	// Not picked up yet
	req = CaseNoteRequest{Status: StatusApproved, IsReceived: false}
	assert.False(t, req.CanMarkReturned())

	// Already returned, awaiting verification
	req = CaseNoteRequest{Status: StatusPendingReturnVerification, IsReceived: true, IsReturned: true}
	assert.False(t, req.CanMarkReturned())
	assert.True(t, req.CanVerifyReturn())

	// After a rejected return the record reverts to approved and can be
	// returned again.
	req = CaseNoteRequest{Status: StatusApproved, IsReceived: true, IsReturned: false, IsRejectedReturn: true}
	assert.True(t, req.CanMarkReturned())
}

func TestCanStartHandover(t *testing.T) {
	handoverID := uint(7)

	req := CaseNoteRequest{Status: StatusInProgress}
	assert.True(t, req.CanStartHandover())

	req.CurrentHandoverID = &handoverID
	assert.False(t, req.CanStartHandover())

	req = CaseNoteRequest{Status: StatusPending}
	assert.False(t, req.CanStartHandover())
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	req := CaseNoteRequest{Status: StatusApproved, NeededDate: &yesterday}
	assert.True(t, req.IsOverdue(now))

	req.NeededDate = &tomorrow
	assert.False(t, req.IsOverdue(now))

	// Terminal states are never overdue
	req = CaseNoteRequest{Status: StatusCompleted, NeededDate: &yesterday}
	assert.False(t, req.IsOverdue(now))
	req.Status = StatusRejected
	assert.False(t, req.IsOverdue(now))

	// No needed date, no deadline
	req = CaseNoteRequest{Status: StatusPending}
	assert.False(t, req.IsOverdue(now))
}

func TestDaysToComplete(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	completed := created.Add(72 * time.Hour)

	req := CaseNoteRequest{CreatedAt: created}
	assert.Nil(t, req.DaysToComplete())

	req.CompletedAt = &completed
	days := req.DaysToComplete()
	assert.NotNil(t, days)
	assert.Equal(t, 3, *days)
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(PriorityLow))
	assert.True(t, ValidPriority(PriorityNormal))
	assert.True(t, ValidPriority(PriorityHigh))
	assert.True(t, ValidPriority(PriorityUrgent))
	assert.False(t, ValidPriority(""))
	assert.False(t, ValidPriority("critical"))
}

func TestValidBatchStatus(t *testing.T) {
	assert.True(t, ValidBatchStatus(BatchPending))
	assert.True(t, ValidBatchStatus(BatchApproved))
	assert.True(t, ValidBatchStatus(BatchRejected))
	assert.True(t, ValidBatchStatus(BatchPartiallyApproved))
	assert.False(t, ValidBatchStatus(""))
	assert.False(t, ValidBatchStatus("done"))
}

func TestDeriveBatchStatus(t *testing.T) {
	tests := []struct {
		name       string
		approved   int64
		rejected   int64
		pending    int64
		wantStatus string
		wantApply  bool
	}{
		{"all approved", 3, 0, 0, BatchApproved, true},
		{"all rejected", 0, 3, 0, BatchRejected, true},
		{"mixed", 2, 1, 0, BatchPartiallyApproved, true},
		{"pending children block derivation", 2, 0, 1, "", false},
		{"single approved", 1, 0, 0, BatchApproved, true},
		{"single rejected", 0, 1, 0, BatchRejected, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apply := DeriveBatchStatus(tt.approved, tt.rejected, tt.pending)
			assert.Equal(t, tt.wantApply, apply)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestBatchCanBeVerified(t *testing.T) {
	batch := BatchRequest{Status: BatchApproved}
	assert.True(t, batch.CanBeVerified(3))
	assert.False(t, batch.CanBeVerified(0))

	batch.IsVerified = true
	assert.False(t, batch.CanBeVerified(3))

	batch = BatchRequest{Status: BatchPending}
	assert.False(t, batch.CanBeVerified(3))
}

func TestHandoverGuards(t *testing.T) {
	handover := CaseNoteHandover{Status: HandoverPending}
	assert.True(t, handover.CanAcknowledge())
	assert.False(t, handover.CanComplete())

	handover.Status = HandoverAcknowledged
	assert.False(t, handover.CanAcknowledge())
	assert.True(t, handover.CanComplete())

	handover.Status = HandoverCompleted
	assert.False(t, handover.CanAcknowledge())
	assert.False(t, handover.CanComplete())

	pull := HandoverRequest{Status: HandoverRequestPending}
	assert.True(t, pull.CanRespond())
	pull.Status = HandoverRequestApproved
	assert.False(t, pull.CanRespond())
}

func TestNewRequestEventMetadata(t *testing.T) {
	actor := Actor{ID: 42, Name: "Jordan Lim"}
	occurred := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

	event := NewRequestEvent(11, EventApproved, actor, occurred, map[string]interface{}{
		"old_status": "pending",
		"new_status": "approved",
	})

	assert.Equal(t, uint(11), event.CaseNoteRequestID)
	assert.Equal(t, EventApproved, event.Type)
	assert.Equal(t, int64(42), event.ActorUserID)
	assert.Equal(t, occurred, event.OccurredAt)

	meta := event.MetadataMap()
	assert.Equal(t, "Jordan Lim", meta["actor_name"])
	assert.Equal(t, "pending", meta["old_status"])
	assert.Equal(t, "approved", meta["new_status"])
}

func TestNewRequestEventNilMetadata(t *testing.T) {
	event := NewRequestEvent(1, EventCreated, Actor{ID: 1, Name: "MR Desk"}, time.Now(), nil)
	meta := event.MetadataMap()
	assert.Equal(t, "MR Desk", meta["actor_name"])
}

func TestFilingCaseNoteIDList(t *testing.T) {
	filing := FilingRequest{CaseNoteIDs: "[1,2,3]"}
	assert.Equal(t, []uint{1, 2, 3}, filing.CaseNoteIDList())

	filing.CaseNoteIDs = ""
	assert.Empty(t, filing.CaseNoteIDList())

	filing.CaseNoteIDs = "not json"
	assert.Empty(t, filing.CaseNoteIDList())
}
