package repositories

import (
	"CNRS/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventRepository reads and appends the immutable timeline. Rows are never
// updated or deleted; replay order is occurred_at ascending because the
// backdating allowance means insertion order need not match chronology.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append persists one event.
func (r *EventRepository) Append(ctx context.Context, event *models.RequestEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append request event: %w", err)
	}
	return nil
}

// Timeline returns every event of one request in replay order.
func (r *EventRepository) Timeline(ctx context.Context, requestID uint) ([]models.RequestEvent, error) {
	var events []models.RequestEvent
	err := r.db.WithContext(ctx).
		Where("case_note_request_id = ?", requestID).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load request timeline: %w", err)
	}
	return events, nil
}

// ListBetween returns all events in a date range in replay order, optionally
// narrowed to a set of types. Feeds the tracking report.
func (r *EventRepository) ListBetween(ctx context.Context, from, to time.Time, types []models.EventType) ([]models.RequestEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.RequestEvent{}).
		Where("occurred_at >= ? AND occurred_at <= ?", from, to)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}

	var events []models.RequestEvent
	if err := query.Order("occurred_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list request events: %w", err)
	}
	return events, nil
}
