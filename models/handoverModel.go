package models

import (
	"time"
)

// Handover row statuses. The middle state keeps the historical wire value
// "Acknowledge" because exported timelines and the UI already depend on it.
const (
	HandoverPending      = "pending"
	HandoverAcknowledged = "Acknowledge"
	HandoverCompleted    = "completed"
)

// CaseNoteHandover is one offered handover attempt, holder-initiated. A
// record accumulates many of these over its life; the parent's
// current_handover_id pointer is what keeps at most one in flight.
// There is no reject or cancel: an offer is acknowledged and completed,
// or it stays pending.
type CaseNoteHandover struct {
	ID                uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CaseNoteRequestID uint       `gorm:"column:case_note_request_id;not null;index" json:"case_note_request_id"`
	FromUserID        int64      `gorm:"column:from_user_id;not null" json:"from_user_id"`
	ToUserID          int64      `gorm:"column:to_user_id;not null;index" json:"to_user_id"`
	DepartmentID      *uint      `gorm:"column:department_id" json:"department_id"`
	LocationID        *uint      `gorm:"column:location_id" json:"location_id"`
	DoctorID          *uint      `gorm:"column:doctor_id" json:"doctor_id"`
	Status            string     `gorm:"column:status;size:20;not null;default:'pending';index" json:"status"`
	Reason            string     `gorm:"column:reason;type:text" json:"reason"`
	AcknowledgedAt    *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at"`
	AcknowledgeNotes  string     `gorm:"column:acknowledge_notes;type:text" json:"acknowledge_notes"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CaseNoteHandover) TableName() string {
	return "case_note_handovers"
}

// CanAcknowledge reports whether the receiver may confirm intent to take
// custody.
func (h *CaseNoteHandover) CanAcknowledge() bool {
	return h.Status == HandoverPending
}

// CanComplete reports whether the receiver may confirm physical possession.
func (h *CaseNoteHandover) CanComplete() bool {
	return h.Status == HandoverAcknowledged
}

// Handover request statuses (receiver-initiated pull).
const (
	HandoverRequestPending  = "pending"
	HandoverRequestApproved = "approved"
	HandoverRequestRejected = "rejected"
)

// HandoverRequest is the receiver-initiated variant: another CA asks to pull
// a note from its current holder. The current holder decides, not Medical
// Records. Kept as a separate table from CaseNoteHandover because the
// direction of initiation differs, but both converge on the same custody
// change on the parent record.
type HandoverRequest struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CaseNoteRequestID   uint       `gorm:"column:case_note_request_id;not null;index" json:"case_note_request_id"`
	RequestedByUserID   int64      `gorm:"column:requested_by_user_id;not null;index" json:"requested_by_user_id"`
	CurrentHolderUserID int64      `gorm:"column:current_holder_user_id;not null;index" json:"current_holder_user_id"`
	Status              string     `gorm:"column:status;size:20;not null;default:'pending';index" json:"status"`
	Priority            string     `gorm:"column:priority;size:10;not null;default:'normal'" json:"priority"`
	Reason              string     `gorm:"column:reason;type:text;not null" json:"reason"`
	RespondedAt         *time.Time `gorm:"column:responded_at" json:"responded_at"`
	ResponseNotes       string     `gorm:"column:response_notes;type:text" json:"response_notes"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (HandoverRequest) TableName() string {
	return "handover_requests"
}

// CanRespond reports whether the holder may still approve or reject.
func (h *HandoverRequest) CanRespond() bool {
	return h.Status == HandoverRequestPending
}
