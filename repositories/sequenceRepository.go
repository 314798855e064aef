package repositories

import (
	"CNRS/models"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository mints globally unique, date-scoped, monotonically
// increasing request numbers. All concurrent requesters for the same date
// serialize on a row lock held for the duration of the transaction; numbering
// correctness is valued over throughput here, and volume is low enough
// (hundreds per day) that the queue is not a bottleneck.
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// NextSequence returns the next counter value for the given date key,
// starting at 1, with no gaps and no duplicates under concurrent callers.
// If the transaction aborts the whole operation fails and the caller retries;
// no partial state is left because the read and the increment share one
// transaction.
func (r *SequenceRepository) NextSequence(ctx context.Context, dateKey string) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.RequestSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("date_key = ?", dateKey).
			First(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = models.RequestSequence{DateKey: dateKey, CurrentSequence: 0}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create sequence row: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to lock sequence row: %w", err)
		}

		seq.CurrentSequence++
		next = seq.CurrentSequence

		return tx.Model(&models.RequestSequence{}).
			Where("date_key = ?", dateKey).
			Update("current_sequence", seq.CurrentSequence).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// GenerateRequestNumber mints the next request number for the given day in
// the format REQ{YYYYMMDD}{0000}.
func (r *SequenceRepository) GenerateRequestNumber(ctx context.Context, day time.Time) (string, error) {
	dateKey := day.Format("20060102")
	seq, err := r.NextSequence(ctx, dateKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate request number: %w", err)
	}
	return fmt.Sprintf("REQ%s%04d", dateKey, seq), nil
}
