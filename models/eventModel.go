package models

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType enumerates every kind of timeline entry a case note request can
// accumulate.
type EventType string

const (
	EventCreated                 EventType = "created"
	EventApproved                EventType = "approved"
	EventRejected                EventType = "rejected"
	EventCompleted               EventType = "completed"
	EventReceived                EventType = "received"
	EventReturned                EventType = "returned"
	EventReturnVerified          EventType = "return_verified"
	EventReturnRejected          EventType = "return_rejected"
	EventHandedOver              EventType = "handed_over"
	EventHandoverAcknowledged    EventType = "handover_acknowledged"
	EventHandoverCompleted       EventType = "handover_completed"
	EventHandoverRequested       EventType = "handover_requested"
	EventHandoverRequestApproved EventType = "handover_request_approved"
	EventHandoverRequestRejected EventType = "handover_request_rejected"
	EventBatchCreated            EventType = "batch_created"
	EventBatchProcessed          EventType = "batch_processed"
	EventBatchVerified           EventType = "batch_verified"
	EventFilingRequested         EventType = "filing_requested"
	EventFilingApproved          EventType = "filing_approved"
	EventFilingRejected          EventType = "filing_rejected"
)

// RequestEvent is one append-only timeline row. Rows are never updated after
// creation. OccurredAt defaults to the transition time rather than insertion
// time so entries can be backdated; consumers must order by occurred_at to
// reconstruct history.
type RequestEvent struct {
	ID                uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CaseNoteRequestID uint      `gorm:"column:case_note_request_id;not null;index" json:"case_note_request_id"`
	Type              EventType `gorm:"column:type;size:40;not null;index" json:"type"`
	ActorUserID       int64     `gorm:"column:actor_user_id;not null" json:"actor_user_id"`
	OccurredAt        time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Metadata          string    `gorm:"column:metadata;type:text" json:"metadata"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RequestEvent) TableName() string {
	return "request_events"
}

// NewRequestEvent builds a timeline row for a transition. The metadata map
// should carry the pre/post status and human-readable actor name so exported
// reports outlive foreign-key joins.
func NewRequestEvent(requestID uint, eventType EventType, actor Actor, occurredAt time.Time, metadata map[string]interface{}) RequestEvent {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["actor_name"] = actor.Name

	payload, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("Failed to marshal event metadata: %v", err)
		payload = []byte("{}")
	}

	return RequestEvent{
		CaseNoteRequestID: requestID,
		Type:              eventType,
		ActorUserID:       actor.ID,
		OccurredAt:        occurredAt,
		Metadata:          string(payload),
	}
}

// MetadataMap decodes the JSON metadata payload for display.
func (e *RequestEvent) MetadataMap() map[string]interface{} {
	out := map[string]interface{}{}
	if e.Metadata == "" {
		return out
	}
	if err := json.Unmarshal([]byte(e.Metadata), &out); err != nil {
		log.Printf("Failed to unmarshal event metadata: %v", err)
	}
	return out
}
