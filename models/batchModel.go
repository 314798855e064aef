package models

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Batch statuses.
const (
	BatchPending           = "pending"
	BatchApproved          = "approved"
	BatchRejected          = "rejected"
	BatchPartiallyApproved = "partially_approved"
)

// BatchRequest groups case note requests submitted together for approval and
// receipt verification. Children hang off requests.batch_id (1:N).
type BatchRequest struct {
	ID               uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	BatchNumber      string     `gorm:"column:batch_number;size:24;not null;unique" json:"batch_number"`
	Status           string     `gorm:"column:status;size:20;not null;default:'pending';index" json:"status"`
	RequestedByUserID int64     `gorm:"column:requested_by_user_id;not null;index" json:"requested_by_user_id"`
	ProcessedByUserID *int64    `gorm:"column:processed_by_user_id" json:"processed_by_user_id"`
	ProcessedAt      *time.Time `gorm:"column:processed_at" json:"processed_at"`
	ProcessingNotes  string     `gorm:"column:processing_notes;type:text" json:"processing_notes"`

	// Cached counters with a live-count fallback when nil; a stale cache
	// degrades to an extra query, never to a wrong answer.
	ApprovedCount *int `gorm:"column:approved_count" json:"approved_count"`
	ReceivedCount *int `gorm:"column:received_count" json:"received_count"`

	IsVerified        bool       `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	VerifiedByUserID  *int64     `gorm:"column:verified_by_user_id" json:"verified_by_user_id"`
	VerifiedAt        *time.Time `gorm:"column:verified_at" json:"verified_at"`
	VerificationNotes string     `gorm:"column:verification_notes;type:text" json:"verification_notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Requests []CaseNoteRequest `gorm:"foreignKey:BatchID;references:ID" json:"requests,omitempty"`
}

func (BatchRequest) TableName() string {
	return "batch_requests"
}

// ValidBatchStatus checks a batch status against the accepted values.
func ValidBatchStatus(status string) bool {
	switch status {
	case BatchPending, BatchApproved, BatchRejected, BatchPartiallyApproved:
		return true
	}
	return false
}

// DeriveBatchStatus computes the aggregate batch status from child counts.
// Any pending child means no change yet; otherwise all-approved, all-rejected
// or a mix. Returns the derived status and whether it should be applied.
func DeriveBatchStatus(approved, rejected, pending int64) (string, bool) {
	if pending > 0 {
		return "", false
	}
	switch {
	case rejected == 0:
		return BatchApproved, true
	case approved == 0:
		return BatchRejected, true
	default:
		return BatchPartiallyApproved, true
	}
}

// CanBeVerified reports whether Medical Records may record physical receipt
// of the batch's approved notes.
func (b *BatchRequest) CanBeVerified(approvedCount int) bool {
	return b.Status == BatchApproved && !b.IsVerified && approvedCount > 0
}

// ApprovedCountValue returns the cached approved count, falling back to a
// live count when the cache column is null. The decision is read from the
// approval stamp so picked-up children still count.
func (b *BatchRequest) ApprovedCountValue(db *gorm.DB) (int, error) {
	if b.ApprovedCount != nil {
		return *b.ApprovedCount, nil
	}
	var count int64
	err := db.Model(&CaseNoteRequest{}).
		Where("batch_id = ? AND approved_at IS NOT NULL", b.ID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Filing statuses.
const (
	FilingPending  = "pending"
	FilingApproved = "approved"
	FilingRejected = "rejected"
)

// FilingRequest is the terminal archival disposition request for a set of
// case notes belonging to one patient. The note IDs are stored as a JSON
// array; filing operates on the group as a whole.
type FilingRequest struct {
	ID                uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID         string     `gorm:"column:patient_id;not null;index" json:"patient_id"`
	CaseNoteIDs       string     `gorm:"column:case_note_ids;type:text;not null" json:"case_note_ids"`
	Status            string     `gorm:"column:status;size:20;not null;default:'pending';index" json:"status"`
	RequestedByUserID int64      `gorm:"column:requested_by_user_id;not null" json:"requested_by_user_id"`
	ApprovedByUserID  *int64     `gorm:"column:approved_by_user_id" json:"approved_by_user_id"`
	ApprovedAt        *time.Time `gorm:"column:approved_at" json:"approved_at"`
	RejectionReason   string     `gorm:"column:rejection_reason;type:text" json:"rejection_reason"`
	RejectedAt        *time.Time `gorm:"column:rejected_at" json:"rejected_at"`
	RejectedByUserID  *int64     `gorm:"column:rejected_by_user_id" json:"rejected_by_user_id"`
	Notes             string     `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (FilingRequest) TableName() string {
	return "filing_requests"
}

// CanDecide reports whether the filing request is still awaiting a decision.
func (f *FilingRequest) CanDecide() bool {
	return f.Status == FilingPending
}

// CaseNoteIDList decodes the covered case note IDs. A malformed payload
// yields an empty list rather than an error; the column is written by the
// repository only.
func (f *FilingRequest) CaseNoteIDList() []uint {
	var ids []uint
	if f.CaseNoteIDs == "" {
		return ids
	}
	if err := json.Unmarshal([]byte(f.CaseNoteIDs), &ids); err != nil {
		log.Printf("Failed to decode filing case note IDs: %v", err)
	}
	return ids
}
