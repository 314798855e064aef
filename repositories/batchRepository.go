package repositories

import (
	"CNRS/cache"
	"CNRS/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	BatchCacheExpiry = 24 * time.Hour
)

// BatchRepository persists batch requests and the aggregate-status
// derivation. The derived status is recomputed on demand rather than
// maintained incrementally, so RefreshStatus must be called after every child
// mutation.
type BatchRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	now   func() time.Time
}

func NewBatchRepository(db *gorm.DB, cache *cache.Cache) *BatchRepository {
	return &BatchRepository{db: db, cache: cache, now: time.Now}
}

// SetClock overrides the repository clock for tests.
func (r *BatchRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Create persists an empty batch shell; children are created against it by
// the case note repository with batch_id set.
func (r *BatchRepository) Create(ctx context.Context, batch *models.BatchRequest, actor models.Actor) error {
	batch.BatchNumber = fmt.Sprintf("BAT-%s", uuid.New().String())
	batch.Status = models.BatchPending
	batch.RequestedByUserID = actor.ID

	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch request: %w", err)
	}
	r.invalidate(ctx, batch.ID)
	return nil
}

// RefreshStatus recomputes the aggregate batch status from its children's
// decision outcomes: all approved means approved, all rejected means
// rejected, a mix means partially approved, and any pending child means no
// change yet. An approved child keeps counting as approved after pickup moves
// it on from the approved status. The approved-count cache column is
// refreshed at the same time.
func (r *BatchRepository) RefreshStatus(ctx context.Context, batchID uint) (*models.BatchRequest, error) {
	var out models.BatchRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.BatchRequest
		if err := tx.First(&batch, batchID).Error; err != nil {
			return err
		}

		approved, err := r.countApprovedChildren(tx, batchID)
		if err != nil {
			return err
		}
		rejected, err := r.countChildren(tx, batchID, models.StatusRejected)
		if err != nil {
			return err
		}
		pending, err := r.countChildren(tx, batchID, models.StatusPending)
		if err != nil {
			return err
		}

		approvedInt := int(approved)
		updates := map[string]interface{}{
			"approved_count": approvedInt,
		}
		if status, apply := models.DeriveBatchStatus(approved, rejected, pending); apply {
			updates["status"] = status
		}
		if err := tx.Model(&models.BatchRequest{}).Where("id = ?", batchID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to refresh batch status: %w", err)
		}

		return tx.First(&out, batchID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, batchID)
	return &out, nil
}

// MarkProcessed sets the batch-level status directly. This is the
// administrative override path; the usual path is child decisions followed by
// RefreshStatus.
func (r *BatchRepository) MarkProcessed(ctx context.Context, batchID uint, status string, actor models.Actor, notes string) (*models.BatchRequest, error) {
	now := r.now()
	var out models.BatchRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.BatchRequest
		if err := tx.First(&batch, batchID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.BatchRequest{}).
			Where("id = ?", batchID).
			Updates(map[string]interface{}{
				"status":               status,
				"processed_by_user_id": actor.ID,
				"processed_at":         now,
				"processing_notes":     notes,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark batch as processed: %w", err)
		}

		// One timeline entry per child so each record's history shows the
		// batch decision.
		var children []models.CaseNoteRequest
		if err := tx.Where("batch_id = ?", batchID).Find(&children).Error; err != nil {
			return err
		}
		for _, child := range children {
			event := models.NewRequestEvent(child.ID, models.EventBatchProcessed, actor, now, map[string]interface{}{
				"batch_id":     batchID,
				"batch_status": status,
				"notes":        notes,
			})
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}

		return tx.First(&out, batchID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, batchID)
	return &out, nil
}

// MarkVerified records how many of the approved notes were physically
// received. receivedCount may be less than the approved count: partial
// physical delivery is a legitimate outcome, not an error.
func (r *BatchRepository) MarkVerified(ctx context.Context, batchID uint, actor models.Actor, receivedCount int, notes string) (*models.BatchRequest, error) {
	now := r.now()
	var out models.BatchRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.BatchRequest
		if err := tx.First(&batch, batchID).Error; err != nil {
			return err
		}

		approvedCount, err := batch.ApprovedCountValue(tx)
		if err != nil {
			return fmt.Errorf("failed to resolve approved count: %w", err)
		}
		if receivedCount < 0 || receivedCount > approvedCount {
			return fmt.Errorf("received count %d out of range, batch has %d approved notes", receivedCount, approvedCount)
		}

		res := tx.Model(&models.BatchRequest{}).
			Where("id = ? AND status = ? AND is_verified = ?", batchID, models.BatchApproved, false).
			Updates(map[string]interface{}{
				"is_verified":        true,
				"verified_by_user_id": actor.ID,
				"verified_at":        now,
				"received_count":     receivedCount,
				"verification_notes": notes,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to verify batch: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if !batch.CanBeVerified(approvedCount) {
				return models.ErrIllegalTransition
			}
			return models.ErrConcurrentModification
		}

		var children []models.CaseNoteRequest
		if err := tx.Where("batch_id = ? AND approved_at IS NOT NULL", batchID).Find(&children).Error; err != nil {
			return err
		}
		for _, child := range children {
			event := models.NewRequestEvent(child.ID, models.EventBatchVerified, actor, now, map[string]interface{}{
				"batch_id":       batchID,
				"received_count": receivedCount,
				"approved_count": approvedCount,
				"notes":          notes,
			})
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}

		return tx.First(&out, batchID).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, batchID)
	return &out, nil
}

// GetByID fetches a batch with its children.
func (r *BatchRepository) GetByID(ctx context.Context, id uint) (*models.BatchRequest, error) {
	var batch models.BatchRequest
	err := r.db.WithContext(ctx).
		Preload("Requests").
		First(&batch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch request: %w", err)
	}
	return &batch, nil
}

// List returns batches, optionally narrowed to one status, newest first.
func (r *BatchRepository) List(ctx context.Context, status string) ([]models.BatchRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var batches []models.BatchRequest
	if err := query.Order("created_at DESC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("failed to list batch requests: %w", err)
	}
	return batches, nil
}

// ListUnverified returns approved batches still awaiting receipt
// verification, oldest first. Feeds the daily reminder job.
func (r *BatchRepository) ListUnverified(ctx context.Context) ([]models.BatchRequest, error) {
	var batches []models.BatchRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_verified = ?", models.BatchApproved, false).
		Order("created_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unverified batches: %w", err)
	}
	return batches, nil
}

// countApprovedChildren counts children whose approval decision stands. The
// status column moves on once the note is picked up, so the decision is read
// from the approval stamp instead.
func (r *BatchRepository) countApprovedChildren(tx *gorm.DB, batchID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.CaseNoteRequest{}).
		Where("batch_id = ? AND approved_at IS NOT NULL", batchID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count approved batch children: %w", err)
	}
	return count, nil
}

func (r *BatchRepository) countChildren(tx *gorm.DB, batchID uint, status models.RequestStatus) (int64, error) {
	var count int64
	err := tx.Model(&models.CaseNoteRequest{}).
		Where("batch_id = ? AND status = ?", batchID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count batch children: %w", err)
	}
	return count, nil
}

func (r *BatchRepository) invalidate(ctx context.Context, batchID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, fmt.Sprintf("batch_cache:%d", batchID)); err != nil {
		log.Printf("Failed to delete batch cache: %v", err)
	}
	if err := r.cache.DeleteAll(ctx, "batches_cache*"); err != nil {
		log.Printf("Failed to delete batch list cache: %v", err)
	}
}
