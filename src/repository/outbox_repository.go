package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// OutboxRepository handles the transactional side-effect queue. Rows are
// usually created inside another repository's transaction; this type covers
// the dispatcher's read/ack cycle.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{db: database.MainDB}
}

func (r *OutboxRepository) WithDB(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.WithError(err).WithField("topic", event.Topic).Error("Failed to create outbox event")
		return err
	}
	return nil
}

// FindDue lists pending events whose next attempt is due, oldest first.
func (r *OutboxRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []model.OutboxEvent

	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxStatusPending, now).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		logger.WithError(err).Error("Failed to list due outbox events")
		return nil, err
	}

	return events, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Update("status", model.OutboxStatusSent).Error
}

// MarkFailed records a delivery failure and schedules the next attempt, or
// parks the event as DEAD once attempts are exhausted.
func (r *OutboxRepository) MarkFailed(ctx context.Context, event *model.OutboxEvent, deliveryErr string, nextAttemptAt time.Time, dead bool) error {
	updates := map[string]interface{}{
		"attempts":        event.Attempts + 1,
		"last_error":      deliveryErr,
		"next_attempt_at": nextAttemptAt,
	}
	if dead {
		updates["status"] = model.OutboxStatusDead
	}

	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(updates).Error
}
