package repositories

import (
	"CNRS/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FilingRepository persists terminal archival disposition requests. A filing
// request covers a set of case notes of one patient; Medical Records approves
// or rejects the group as a whole.
type FilingRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewFilingRepository(db *gorm.DB) *FilingRepository {
	return &FilingRepository{db: db, now: time.Now}
}

// SetClock overrides the repository clock for tests.
func (r *FilingRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Create persists a filing request for the given case note IDs and appends a
// filing_requested event to each covered record.
func (r *FilingRepository) Create(ctx context.Context, filing *models.FilingRequest, caseNoteIDs []uint, actor models.Actor) error {
	if len(caseNoteIDs) == 0 {
		return errors.New("filing request must cover at least one case note")
	}
	now := r.now()

	encoded, err := json.Marshal(caseNoteIDs)
	if err != nil {
		return fmt.Errorf("failed to encode case note IDs: %w", err)
	}
	filing.CaseNoteIDs = string(encoded)
	filing.Status = models.FilingPending
	filing.RequestedByUserID = actor.ID

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CaseNoteRequest{}).
			Where("id IN ? AND patient_id = ?", caseNoteIDs, filing.PatientID).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(caseNoteIDs)) {
			return errors.New("filing request references case notes of another patient or missing records")
		}

		if err := tx.Create(filing).Error; err != nil {
			return fmt.Errorf("failed to create filing request: %w", err)
		}

		for _, id := range caseNoteIDs {
			event := models.NewRequestEvent(id, models.EventFilingRequested, actor, now, map[string]interface{}{
				"filing_request_id": filing.ID,
			})
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Approve archives the covered case notes.
func (r *FilingRepository) Approve(ctx context.Context, id uint, actor models.Actor, notes string) (*models.FilingRequest, error) {
	return r.decide(ctx, id, actor, true, notes)
}

// Reject refuses the filing request; reason required at the API boundary.
func (r *FilingRepository) Reject(ctx context.Context, id uint, actor models.Actor, reason string) (*models.FilingRequest, error) {
	return r.decide(ctx, id, actor, false, reason)
}

func (r *FilingRepository) decide(ctx context.Context, id uint, actor models.Actor, approve bool, notes string) (*models.FilingRequest, error) {
	now := r.now()
	var out models.FilingRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var filing models.FilingRequest
		if err := tx.First(&filing, id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		eventType := models.EventFilingRejected
		if approve {
			updates["status"] = models.FilingApproved
			updates["approved_by_user_id"] = actor.ID
			updates["approved_at"] = now
			updates["notes"] = notes
			eventType = models.EventFilingApproved
		} else {
			updates["status"] = models.FilingRejected
			updates["rejection_reason"] = notes
			updates["rejected_at"] = now
			updates["rejected_by_user_id"] = actor.ID
		}

		res := tx.Model(&models.FilingRequest{}).
			Where("id = ? AND status = ?", id, models.FilingPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to decide filing request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !filing.CanDecide() {
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		for _, noteID := range filing.CaseNoteIDList() {
			event := models.NewRequestEvent(noteID, eventType, actor, now, map[string]interface{}{
				"filing_request_id": filing.ID,
				"notes":             notes,
			})
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}

		return tx.First(&out, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID fetches one filing request.
func (r *FilingRepository) GetByID(ctx context.Context, id uint) (*models.FilingRequest, error) {
	var filing models.FilingRequest
	err := r.db.WithContext(ctx).First(&filing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get filing request: %w", err)
	}
	return &filing, nil
}

// List returns filing requests, optionally narrowed to one status.
func (r *FilingRepository) List(ctx context.Context, status string) ([]models.FilingRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.FilingRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var filings []models.FilingRequest
	if err := query.Order("created_at DESC").Find(&filings).Error; err != nil {
		return nil, fmt.Errorf("failed to list filing requests: %w", err)
	}
	return filings, nil
}
