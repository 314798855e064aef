package repositories

import (
	"CNRS/cache"
	"CNRS/models"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrNotCurrentHolder is returned when someone other than the current PIC
// tries to offer a handover or answer a handover request.
var ErrNotCurrentHolder = errors.New("actor is not the current holder of this case note")

// ErrTransferInFlight is returned when a handover or handover request is
// already active for the record. At most one custody transfer may be in
// flight per case note.
var ErrTransferInFlight = errors.New("another custody transfer is already in flight for this case note")

// HandoverRepository implements both custody-transfer protocols: the
// holder-initiated offer/acknowledge/complete handover and the
// receiver-initiated handover request. The CaseNoteHandover row tracks the
// offer; the parent CaseNoteRequest tracks current truth, and both are
// updated in the same transaction.
type HandoverRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	now   func() time.Time
}

func NewHandoverRepository(db *gorm.DB, cache *cache.Cache) *HandoverRepository {
	return &HandoverRepository{db: db, cache: cache, now: time.Now}
}

// SetClock overrides the repository clock for tests.
func (r *HandoverRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Offer starts a holder-initiated handover to another user. The parent's
// current_handover_id pointer is claimed with a conditional update, which is
// what serializes concurrent offers.
func (r *HandoverRepository) Offer(ctx context.Context, handover *models.CaseNoteHandover, actor models.Actor) error {
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.CaseNoteRequest
		if err := tx.First(&req, handover.CaseNoteRequestID).Error; err != nil {
			return err
		}
		if req.CurrentPICUserID == nil || *req.CurrentPICUserID != actor.ID {
			return ErrNotCurrentHolder
		}
		pullPending, err := r.hasPendingPullRequest(tx, req.ID)
		if err != nil {
			return err
		}
		if pullPending {
			return ErrTransferInFlight
		}

		handover.FromUserID = actor.ID
		handover.Status = models.HandoverPending
		if err := tx.Create(handover).Error; err != nil {
			return fmt.Errorf("failed to create handover: %w", err)
		}

		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND current_handover_id IS NULL AND status IN ?",
				req.ID, []models.RequestStatus{models.StatusApproved, models.StatusInProgress}).
			Updates(map[string]interface{}{
				"current_handover_id": handover.ID,
				"handover_status":     models.HandoverStatePending,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim handover slot: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !req.CanStartHandover() {
				if req.CurrentHandoverID != nil {
					return ErrTransferInFlight
				}
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		event := models.NewRequestEvent(req.ID, models.EventHandedOver, actor, now, map[string]interface{}{
			"handover_id":  handover.ID,
			"from_user_id": handover.FromUserID,
			"to_user_id":   handover.ToUserID,
			"reason":       handover.Reason,
		})
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	r.invalidateCaseNote(ctx, handover.CaseNoteRequestID)
	return nil
}

// Acknowledge is the receiver confirming intent to take custody. The paper
// has not changed hands yet.
func (r *HandoverRepository) Acknowledge(ctx context.Context, handoverID uint, actor models.Actor, notes string) (*models.CaseNoteHandover, error) {
	now := r.now()
	var out models.CaseNoteHandover

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var handover models.CaseNoteHandover
		if err := tx.First(&handover, handoverID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CaseNoteHandover{}).
			Where("id = ? AND status = ?", handoverID, models.HandoverPending).
			Updates(map[string]interface{}{
				"status":            models.HandoverAcknowledged,
				"acknowledged_at":   now,
				"acknowledge_notes": notes,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to acknowledge handover: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !handover.CanAcknowledge() {
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		if err := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ?", handover.CaseNoteRequestID).
			Update("handover_status", models.HandoverStateAcknowledged).Error; err != nil {
			return err
		}

		event := models.NewRequestEvent(handover.CaseNoteRequestID, models.EventHandoverAcknowledged, actor, now, map[string]interface{}{
			"handover_id": handover.ID,
			"notes":       notes,
		})
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return tx.First(&out, handoverID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCaseNote(ctx, out.CaseNoteRequestID)
	return &out, nil
}

// Complete is the receiver confirming physical possession. Custody on the
// parent record moves to the receiver and the in-flight pointer is cleared so
// a new handover may start.
func (r *HandoverRepository) Complete(ctx context.Context, handoverID uint, actor models.Actor) (*models.CaseNoteHandover, error) {
	now := r.now()
	var out models.CaseNoteHandover

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var handover models.CaseNoteHandover
		if err := tx.First(&handover, handoverID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CaseNoteHandover{}).
			Where("id = ? AND status = ?", handoverID, models.HandoverAcknowledged).
			Updates(map[string]interface{}{
				"status":       models.HandoverCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete handover: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !handover.CanComplete() {
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		if err := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ?", handover.CaseNoteRequestID).
			Updates(map[string]interface{}{
				"current_pic_user_id": handover.ToUserID,
				"current_handover_id": nil,
				"handover_status":     models.HandoverStateCompleted,
			}).Error; err != nil {
			return err
		}

		event := models.NewRequestEvent(handover.CaseNoteRequestID, models.EventHandoverCompleted, actor, now, map[string]interface{}{
			"handover_id":  handover.ID,
			"from_user_id": handover.FromUserID,
			"to_user_id":   handover.ToUserID,
		})
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return tx.First(&out, handoverID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCaseNote(ctx, out.CaseNoteRequestID)
	return &out, nil
}

// ListForRequest returns every handover attempt a record has accumulated,
// oldest first.
func (r *HandoverRepository) ListForRequest(ctx context.Context, requestID uint) ([]models.CaseNoteHandover, error) {
	var handovers []models.CaseNoteHandover
	err := r.db.WithContext(ctx).
		Where("case_note_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&handovers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list handovers: %w", err)
	}
	return handovers, nil
}

// CreateRequest starts a receiver-initiated pull: another CA asks the current
// holder for the note. Only one transfer intent may be active per record, so
// this refuses while a handover or another pull request is in flight.
func (r *HandoverRepository) CreateRequest(ctx context.Context, pull *models.HandoverRequest, actor models.Actor) error {
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.CaseNoteRequest
		if err := tx.First(&req, pull.CaseNoteRequestID).Error; err != nil {
			return err
		}
		if req.CurrentPICUserID == nil {
			return models.ErrIllegalTransition
		}
		if req.CurrentHandoverID != nil {
			return ErrTransferInFlight
		}
		pullPending, err := r.hasPendingPullRequest(tx, req.ID)
		if err != nil {
			return err
		}
		if pullPending {
			return ErrTransferInFlight
		}

		pull.RequestedByUserID = actor.ID
		pull.CurrentHolderUserID = *req.CurrentPICUserID
		pull.Status = models.HandoverRequestPending
		if pull.Priority == "" {
			pull.Priority = models.PriorityNormal
		}
		if err := tx.Create(pull).Error; err != nil {
			return fmt.Errorf("failed to create handover request: %w", err)
		}

		event := models.NewRequestEvent(req.ID, models.EventHandoverRequested, actor, now, map[string]interface{}{
			"handover_request_id": pull.ID,
			"current_holder_id":   pull.CurrentHolderUserID,
			"reason":              pull.Reason,
		})
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	r.invalidateCaseNote(ctx, pull.CaseNoteRequestID)
	return nil
}

// Respond lets the current holder approve or reject a pull request. Approval
// moves custody to the requester in the same transaction.
func (r *HandoverRepository) Respond(ctx context.Context, pullID uint, actor models.Actor, approve bool, notes string) (*models.HandoverRequest, error) {
	now := r.now()
	var out models.HandoverRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pull models.HandoverRequest
		if err := tx.First(&pull, pullID).Error; err != nil {
			return err
		}
		if pull.CurrentHolderUserID != actor.ID {
			return ErrNotCurrentHolder
		}

		newStatus := models.HandoverRequestRejected
		eventType := models.EventHandoverRequestRejected
		if approve {
			newStatus = models.HandoverRequestApproved
			eventType = models.EventHandoverRequestApproved
		}

		res := tx.Model(&models.HandoverRequest{}).
			Where("id = ? AND status = ?", pullID, models.HandoverRequestPending).
			Updates(map[string]interface{}{
				"status":         newStatus,
				"responded_at":   now,
				"response_notes": notes,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to respond to handover request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !pull.CanRespond() {
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		if approve {
			if err := tx.Model(&models.CaseNoteRequest{}).
				Where("id = ?", pull.CaseNoteRequestID).
				Update("current_pic_user_id", pull.RequestedByUserID).Error; err != nil {
				return err
			}
		}

		event := models.NewRequestEvent(pull.CaseNoteRequestID, eventType, actor, now, map[string]interface{}{
			"handover_request_id": pull.ID,
			"requested_by_id":     pull.RequestedByUserID,
			"notes":               notes,
		})
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return tx.First(&out, pullID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCaseNote(ctx, out.CaseNoteRequestID)
	return &out, nil
}

// GetRequestByID fetches one pull request.
func (r *HandoverRepository) GetRequestByID(ctx context.Context, id uint) (*models.HandoverRequest, error) {
	var pull models.HandoverRequest
	err := r.db.WithContext(ctx).First(&pull, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get handover request: %w", err)
	}
	return &pull, nil
}

// ListRequestsForHolder returns the pending pulls a holder must answer.
func (r *HandoverRepository) ListRequestsForHolder(ctx context.Context, holderUserID int64) ([]models.HandoverRequest, error) {
	var pulls []models.HandoverRequest
	err := r.db.WithContext(ctx).
		Where("current_holder_user_id = ? AND status = ?", holderUserID, models.HandoverRequestPending).
		Order("created_at ASC").
		Find(&pulls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list handover requests: %w", err)
	}
	return pulls, nil
}

func (r *HandoverRepository) hasPendingPullRequest(tx *gorm.DB, requestID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.HandoverRequest{}).
		Where("case_note_request_id = ? AND status = ?", requestID, models.HandoverRequestPending).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count pending handover requests: %w", err)
	}
	return count > 0, nil
}

func (r *HandoverRepository) invalidateCaseNote(ctx context.Context, requestID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, fmt.Sprintf("case_note_cache:%d", requestID)); err != nil {
		log.Printf("Failed to delete case note cache: %v", err)
	}
	if err := r.cache.DeleteAll(ctx, "case_notes_cache*"); err != nil {
		log.Printf("Failed to delete case note list cache: %v", err)
	}
}
