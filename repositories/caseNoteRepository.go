package repositories

import (
	"CNRS/cache"
	"CNRS/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	CaseNoteCacheExpiry = 24 * time.Hour
)

// CaseNoteRepository owns persistence for case note requests and every
// status/custody transition on them. Each transition is one transaction
// containing a single atomic conditional update plus the event append, so a
// refused transition leaves no partial state and two racing writers cannot
// both pass a guard.
type CaseNoteRepository struct {
	db        *gorm.DB
	cache     *cache.Cache
	sequences *SequenceRepository

	// now is the injected clock; tests override it.
	now func() time.Time
}

func NewCaseNoteRepository(db *gorm.DB, cache *cache.Cache, sequences *SequenceRepository) *CaseNoteRepository {
	return &CaseNoteRepository{
		db:        db,
		cache:     cache,
		sequences: sequences,
		now:       time.Now,
	}
}

// SetClock overrides the repository clock. Intended for tests and for the
// backdating allowance on event timestamps.
func (r *CaseNoteRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Create mints a request number, persists the request with status pending and
// appends the created event.
func (r *CaseNoteRepository) Create(ctx context.Context, req *models.CaseNoteRequest, actor models.Actor) error {
	now := r.now()

	number, err := r.sequences.GenerateRequestNumber(ctx, now)
	if err != nil {
		return err
	}

	req.RequestNumber = number
	req.Status = models.StatusPending
	req.HandoverState = models.HandoverStateNone
	req.RequestedByUserID = actor.ID
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return fmt.Errorf("failed to create case note request: %w", err)
		}
		event := models.NewRequestEvent(req.ID, models.EventCreated, actor, now, map[string]interface{}{
			"request_number": req.RequestNumber,
			"new_status":     string(models.StatusPending),
		})
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if req.BatchID != nil {
			batchEvent := models.NewRequestEvent(req.ID, models.EventBatchCreated, actor, now, map[string]interface{}{
				"batch_id": *req.BatchID,
			})
			return tx.Create(&batchEvent).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx, req.ID)
	return nil
}

// Approve moves a pending request to approved.
func (r *CaseNoteRepository) Approve(ctx context.Context, id uint, actor models.Actor, remarks string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]interface{}{
				"status":              models.StatusApproved,
				"approved_at":         now,
				"approved_by_user_id": actor.ID,
			})
		if err := r.checkApplied(res, req.CanApprove()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventApproved, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusApproved),
			"remarks":    remarks,
		}), nil
	})
}

// Reject moves a pending request to rejected. The reason is mandatory, but
// that is enforced at the API boundary, not here.
func (r *CaseNoteRepository) Reject(ctx context.Context, id uint, actor models.Actor, reason string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]interface{}{
				"status":              models.StatusRejected,
				"rejection_reason":    reason,
				"rejected_at":         now,
				"rejected_by_user_id": actor.ID,
			})
		if err := r.checkApplied(res, req.CanReject()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventRejected, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusRejected),
			"reason":     reason,
		}), nil
	})
}

// Complete finishes an approved or in-progress request.
func (r *CaseNoteRepository) Complete(ctx context.Context, id uint, actor models.Actor) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status IN ?", id, []models.RequestStatus{models.StatusApproved, models.StatusInProgress}).
			Updates(map[string]interface{}{
				"status":       models.StatusCompleted,
				"completed_at": now,
			})
		if err := r.checkApplied(res, req.CanComplete()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventCompleted, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusCompleted),
		}), nil
	})
}

// MarkReceived confirms physical pickup of an approved note by the requester
// and moves the record into active circulation. Custody passes to the actor.
func (r *CaseNoteRepository) MarkReceived(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status = ? AND is_received = ?", id, models.StatusApproved, false).
			Updates(map[string]interface{}{
				"status":              models.StatusInProgress,
				"is_received":         true,
				"received_at":         now,
				"received_by_user_id": actor.ID,
				"current_pic_user_id": actor.ID,
			})
		if err := r.checkApplied(res, req.CanMarkReceived()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventReceived, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusInProgress),
			"notes":      notes,
		}), nil
	})
}

// MarkReturned records that the holder handed the note back to Medical
// Records; the return still awaits verification. An open handover must settle
// first, the paper cannot be mid-transfer and back at Medical Records at
// once.
func (r *CaseNoteRepository) MarkReturned(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		if req.CurrentHandoverID != nil {
			return models.RequestEvent{}, ErrTransferInFlight
		}
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status IN ? AND is_received = ? AND is_returned = ? AND current_handover_id IS NULL",
				id, []models.RequestStatus{models.StatusApproved, models.StatusInProgress}, true, false).
			Updates(map[string]interface{}{
				"status":              models.StatusPendingReturnVerification,
				"is_returned":         true,
				"returned_at":         now,
				"returned_by_user_id": actor.ID,
			})
		if err := r.checkApplied(res, req.CanMarkReturned()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventReturned, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusPendingReturnVerification),
			"notes":      notes,
		}), nil
	})
}

// VerifyReturn is the Medical Records confirmation that the physical note is
// back; it completes the request, takes custody back and clears any earlier
// rejected-return flag.
func (r *CaseNoteRepository) VerifyReturn(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status = ?", id, models.StatusPendingReturnVerification).
			Updates(map[string]interface{}{
				"status":             models.StatusCompleted,
				"completed_at":       now,
				"is_rejected_return": false,
				"current_pic_user_id": nil,
			})
		if err := r.checkApplied(res, req.CanVerifyReturn()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventReturnVerified, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusCompleted),
			"notes":      notes,
		}), nil
	})
}

// RejectReturn refuses a return attempt (for example an illegible stamp) and
// reverts the record to approved so the holder can re-attempt the return.
// This reject/retry loop is the system's only built-in compensating
// transaction.
func (r *CaseNoteRepository) RejectReturn(ctx context.Context, id uint, actor models.Actor, reason string) (*models.CaseNoteRequest, error) {
	now := r.now()
	return r.transition(ctx, id, func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error) {
		res := tx.Model(&models.CaseNoteRequest{}).
			Where("id = ? AND status = ?", id, models.StatusPendingReturnVerification).
			Updates(map[string]interface{}{
				"status":             models.StatusApproved,
				"is_returned":        false,
				"is_rejected_return": true,
			})
		if err := r.checkApplied(res, req.CanVerifyReturn()); err != nil {
			return models.RequestEvent{}, err
		}
		return models.NewRequestEvent(id, models.EventReturnRejected, actor, now, map[string]interface{}{
			"old_status": string(req.Status),
			"new_status": string(models.StatusApproved),
			"reason":     reason,
		}), nil
	})
}

// transition runs one status transition: load the record, apply the atomic
// conditional update, append exactly one event, reload, invalidate caches.
func (r *CaseNoteRepository) transition(ctx context.Context, id uint, apply func(tx *gorm.DB, req *models.CaseNoteRequest) (models.RequestEvent, error)) (*models.CaseNoteRequest, error) {
	var out models.CaseNoteRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.CaseNoteRequest
		if err := tx.First(&req, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("case note request %d: %w", id, gorm.ErrRecordNotFound)
			}
			return err
		}

		event, err := apply(tx, &req)
		if err != nil {
			return err
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append request event: %w", err)
		}

		return tx.First(&out, id).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id)
	return &out, nil
}

// checkApplied turns the affected-row count of a conditional update into the
// transition result. A zero count with a guard that had read as legal means a
// concurrent writer got there first.
func (r *CaseNoteRepository) checkApplied(res *gorm.DB, guardHeld bool) error {
	if res.Error != nil {
		return fmt.Errorf("failed to apply transition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if !guardHeld {
			return models.ErrIllegalTransition
		}
		return models.ErrConcurrentModification
	}
	return nil
}

// GetByID fetches a single request, through the cache when available.
func (r *CaseNoteRepository) GetByID(ctx context.Context, id uint) (*models.CaseNoteRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getCaseNoteCacheKey(id)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var req models.CaseNoteRequest
			if err := json.Unmarshal([]byte(cached), &req); err == nil {
				return &req, nil
			}
		} else if err != nil && err != redis.Nil {
			log.Printf("Failed to get case note request from cache: %v", err)
		}
	}

	var req models.CaseNoteRequest
	err := r.db.WithContext(ctx).
		Preload("Patient", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, mrn, name")
		}).
		Preload("Department").
		First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get case note request: %w", err)
	}

	if r.cache != nil {
		reqJSON, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal case note request: %w", err)
		}
		if err := r.cache.Set(ctx, cacheKey, reqJSON, CaseNoteCacheExpiry); err != nil {
			log.Printf("Failed to set case note request in cache: %v", err)
		}
	}

	return &req, nil
}

// ListFilter narrows the request list query.
type ListFilter struct {
	Status       models.RequestStatus
	Priority     string
	DepartmentID uint
	PatientID    string
	HolderUserID int64
	BatchID      uint
	OverdueOnly  bool
	From         time.Time
	To           time.Time
}

// List returns requests matching the filter, newest first. The overdue filter
// is evaluated against the repository clock, mirroring IsOverdue.
func (r *CaseNoteRepository) List(ctx context.Context, filter ListFilter) ([]models.CaseNoteRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := r.db.WithContext(ctx).Model(&models.CaseNoteRequest{}).
		Preload("Patient", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, mrn, name")
		}).
		Preload("Department")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.DepartmentID != 0 {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.HolderUserID != 0 {
		query = query.Where("current_pic_user_id = ?", filter.HolderUserID)
	}
	if filter.BatchID != 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.OverdueOnly {
		query = query.Where("needed_date < ? AND status NOT IN ?",
			r.now(), []models.RequestStatus{models.StatusCompleted, models.StatusRejected})
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}

	var requests []models.CaseNoteRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list case note requests: %w", err)
	}
	return requests, nil
}

// Delete soft-deletes a request. Administrative only, never part of the
// normal workflow.
func (r *CaseNoteRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.CaseNoteRequest{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete case note request: %w", err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CaseNoteRepository) invalidate(ctx context.Context, id uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, r.getCaseNoteCacheKey(id)); err != nil {
		log.Printf("Failed to delete case note cache: %v", err)
	}
	if err := r.cache.DeleteAll(ctx, "case_notes_cache*"); err != nil {
		log.Printf("Failed to delete case note list cache: %v", err)
	}
}

func (r *CaseNoteRepository) getCaseNoteCacheKey(id uint) string {
	return fmt.Sprintf("case_note_cache:%d", id)
}
