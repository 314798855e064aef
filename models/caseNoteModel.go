package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// State machine errors. Every transition either applies atomically or fails
// with one of these so call sites cannot ignore a refused transition.
var (
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrConcurrentModification = errors.New("record was modified concurrently, retry the operation")
)

// RequestStatus is the primary workflow state of a case note request.
type RequestStatus string

const (
	StatusPending                   RequestStatus = "pending"
	StatusApproved                  RequestStatus = "approved"
	StatusInProgress                RequestStatus = "in_progress"
	StatusCompleted                 RequestStatus = "completed"
	StatusRejected                  RequestStatus = "rejected"
	StatusPendingReturnVerification RequestStatus = "pending_return_verification"
)

// HandoverState tracks whether a handover is in flight on the parent record.
type HandoverState string

const (
	HandoverStateNone         HandoverState = "none"
	HandoverStatePending      HandoverState = "pending"
	HandoverStateAcknowledged HandoverState = "acknowledged"
	HandoverStateCompleted    HandoverState = "completed"
)

// Priority levels for a case note request.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Actor identifies who performed a transition. The name is carried into the
// event metadata so reports survive later user deletion.
type Actor struct {
	ID   int64
	Name string
}

// CaseNoteRequest is the authoritative custody and status record for one
// physical case note tied to one patient-visit purpose.
type CaseNoteRequest struct {
	ID            uint          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RequestNumber string        `gorm:"column:request_number;size:20;not null;unique;index" json:"request_number"`
	PatientID     string        `gorm:"column:patient_id;not null;index" json:"patient_id"`
	BatchID       *uint         `gorm:"column:batch_id;index" json:"batch_id"`
	Status        RequestStatus `gorm:"column:status;size:30;not null;default:'pending';index" json:"status"`

	// Custody: who physically holds the note right now, and the in-flight
	// handover if any. CurrentHandoverID being set is what enforces the
	// at-most-one-in-flight rule.
	CurrentPICUserID  *int64        `gorm:"column:current_pic_user_id;index" json:"current_pic_user_id"`
	CurrentHandoverID *uint         `gorm:"column:current_handover_id" json:"current_handover_id"`
	HandoverState     HandoverState `gorm:"column:handover_status;size:20;not null;default:'none'" json:"handover_status"`

	// Reception sub-state: was the approved note physically picked up.
	IsReceived       bool       `gorm:"column:is_received;not null;default:false" json:"is_received"`
	ReceivedAt       *time.Time `gorm:"column:received_at" json:"received_at"`
	ReceivedByUserID *int64     `gorm:"column:received_by_user_id" json:"received_by_user_id"`

	// Return sub-state.
	IsReturned       bool       `gorm:"column:is_returned;not null;default:false" json:"is_returned"`
	ReturnedAt       *time.Time `gorm:"column:returned_at" json:"returned_at"`
	ReturnedByUserID *int64     `gorm:"column:returned_by_user_id" json:"returned_by_user_id"`
	IsRejectedReturn bool       `gorm:"column:is_rejected_return;not null;default:false" json:"is_rejected_return"`

	ApprovedAt       *time.Time `gorm:"column:approved_at" json:"approved_at"`
	ApprovedByUserID *int64     `gorm:"column:approved_by_user_id" json:"approved_by_user_id"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at"`

	RejectionReason  string     `gorm:"column:rejection_reason;type:text" json:"rejection_reason"`
	RejectedAt       *time.Time `gorm:"column:rejected_at" json:"rejected_at"`
	RejectedByUserID *int64     `gorm:"column:rejected_by_user_id" json:"rejected_by_user_id"`

	RequestedByUserID int64      `gorm:"column:requested_by_user_id;not null;index" json:"requested_by_user_id"`
	DepartmentID      uint       `gorm:"column:department_id;not null;index" json:"department_id"`
	DoctorID          *uint      `gorm:"column:doctor_id" json:"doctor_id"`
	LocationID        *uint      `gorm:"column:location_id" json:"location_id"`
	Priority          string     `gorm:"column:priority;size:10;not null;default:'normal'" json:"priority"`
	Purpose           string     `gorm:"column:purpose;type:text;not null" json:"purpose"`
	NeededDate        *time.Time `gorm:"column:needed_date" json:"needed_date"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	Patient    Patient     `gorm:"foreignKey:PatientID;references:ID" json:"patient,omitempty"`
	Department Department  `gorm:"foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
	Handovers  []CaseNoteHandover `gorm:"foreignKey:CaseNoteRequestID;references:ID" json:"-"`
	Events     []RequestEvent     `gorm:"foreignKey:CaseNoteRequestID;references:ID" json:"-"`
}

func (CaseNoteRequest) TableName() string {
	return "requests"
}

// CanApprove reports whether the approve transition is legal.
func (r *CaseNoteRequest) CanApprove() bool {
	return r.Status == StatusPending
}

// CanReject reports whether the reject transition is legal.
func (r *CaseNoteRequest) CanReject() bool {
	return r.Status == StatusPending
}

// CanComplete reports whether the complete transition is legal.
func (r *CaseNoteRequest) CanComplete() bool {
	return r.Status == StatusApproved || r.Status == StatusInProgress
}

// CanMarkReceived reports whether physical pickup can be confirmed.
func (r *CaseNoteRequest) CanMarkReceived() bool {
	return r.Status == StatusApproved && !r.IsReceived
}

// CanMarkReturned reports whether the holder can hand the note back to
// Medical Records. A rejected return leaves the record re-returnable.
func (r *CaseNoteRequest) CanMarkReturned() bool {
	return (r.Status == StatusApproved || r.Status == StatusInProgress) &&
		r.IsReceived && !r.IsReturned
}

// CanVerifyReturn reports whether Medical Records can verify or reject a
// pending return.
func (r *CaseNoteRequest) CanVerifyReturn() bool {
	return r.Status == StatusPendingReturnVerification
}

// CanStartHandover reports whether a new handover may be offered for this
// record. At most one handover may be in flight at a time.
func (r *CaseNoteRequest) CanStartHandover() bool {
	return r.CurrentHandoverID == nil &&
		(r.Status == StatusApproved || r.Status == StatusInProgress)
}

// DaysToComplete returns the whole-day difference between creation and
// completion, or nil while the request is not completed.
func (r *CaseNoteRequest) DaysToComplete() *int {
	if r.CompletedAt == nil {
		return nil
	}
	days := int(r.CompletedAt.Sub(r.CreatedAt).Hours() / 24)
	return &days
}

// IsOverdue is computed on read against the supplied clock so it is always
// consistent with current time, never persisted.
func (r *CaseNoteRequest) IsOverdue(now time.Time) bool {
	if r.NeededDate == nil {
		return false
	}
	if r.Status == StatusCompleted || r.Status == StatusRejected {
		return false
	}
	return r.NeededDate.Before(now)
}

// ValidPriority reports whether p is one of the accepted priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
