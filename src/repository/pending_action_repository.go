package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// PendingActionRepository handles the per-account pull queue of server
// issued terminal commands.
type PendingActionRepository struct {
	db *gorm.DB
}

func NewPendingActionRepository() *PendingActionRepository {
	return &PendingActionRepository{db: database.MainDB}
}

func (r *PendingActionRepository) WithDB(db *gorm.DB) *PendingActionRepository {
	return &PendingActionRepository{db: db}
}

func (r *PendingActionRepository) Create(ctx context.Context, action *model.PendingAction) error {
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"account_id": action.AccountID,
			"trade_id":   action.TradeID,
			"type":       action.ActionType,
		}).Error("Failed to create pending action")
		return err
	}
	return nil
}

// FindByID returns (nil, nil) if the action is unknown.
func (r *PendingActionRepository) FindByID(ctx context.Context, id uint) (*model.PendingAction, error) {
	var action model.PendingAction

	err := r.db.WithContext(ctx).First(&action, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &action, nil
}

// DeliverResult is what one poll cycle hands back: the actions newly marked
// DELIVERED plus the count of actions failed out by the retry policy.
type DeliverResult struct {
	Delivered []model.PendingAction
	Expired   int
}

// Deliver returns every action due for this account and marks it DELIVERED:
// PENDING rows plus DELIVERED rows older than the redelivery window. Each
// delivery bumps Attempts; rows exceeding maxAttempts are failed with a
// delivery-expired error instead of being handed out again. The status
// guard on the update keeps a row from going out on two concurrent polls.
func (r *PendingActionRepository) Deliver(
	ctx context.Context,
	accountID uint,
	now time.Time,
	redeliverAfter time.Duration,
	maxAttempts int,
) (DeliverResult, error) {

	var result DeliverResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []model.PendingAction

		redeliverBefore := now.Add(-redeliverAfter)
		err := tx.
			Where("account_id = ?", accountID).
			Where("status = ? OR (status = ? AND delivered_at < ?)",
				model.ActionStatusPending, model.ActionStatusDelivered, redeliverBefore).
			Order("id ASC").
			Find(&due).Error
		if err != nil {
			return err
		}

		for i := range due {
			action := due[i]

			if action.Attempts+1 > maxAttempts {
				res := tx.Model(&model.PendingAction{}).
					Where("id = ? AND status = ?", action.ID, action.Status).
					Updates(map[string]interface{}{
						"status":        model.ActionStatusFailed,
						"completed_at":  now,
						"error_message": "delivery expired",
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					result.Expired++
				}
				continue
			}

			res := tx.Model(&model.PendingAction{}).
				Where("id = ? AND status = ?", action.ID, action.Status).
				Updates(map[string]interface{}{
					"status":       model.ActionStatusDelivered,
					"delivered_at": now,
					"attempts":     action.Attempts + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// lost the race to a concurrent poll or result report
				continue
			}

			action.Status = model.ActionStatusDelivered
			action.DeliveredAt = &now
			action.Attempts++
			result.Delivered = append(result.Delivered, action)
		}

		return nil
	})
	if err != nil {
		logger.WithError(err).WithField("account_id", accountID).Error("Failed to deliver pending actions")
		return DeliverResult{}, err
	}

	return result, nil
}

// Complete records the terminal's result for an action and appends the
// audit event in one transaction. Reporting against an already-terminal
// action is a no-op: the stored status is returned unchanged so retried
// reports stay idempotent.
func (r *PendingActionRepository) Complete(
	ctx context.Context,
	action *model.PendingAction,
	success bool,
	errorMessage string,
	now time.Time,
	event *model.TradeEvent,
) (string, error) {

	if action.Terminal() {
		return action.Status, nil
	}

	status := model.ActionStatusSucceeded
	if !success {
		status = model.ActionStatusFailed
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PendingAction{}).
			Where("id = ? AND status IN ?", action.ID,
				[]string{model.ActionStatusPending, model.ActionStatusDelivered}).
			Updates(map[string]interface{}{
				"status":        status,
				"completed_at":  now,
				"error_message": errorMessage,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// raced with another report; keep whatever landed first
			status = ""
			return nil
		}

		return tx.Create(event).Error
	})
	if err != nil {
		logger.WithError(err).WithField("action_id", action.ID).Error("Failed to complete pending action")
		return "", err
	}

	if status == "" {
		fresh, err := r.FindByID(ctx, action.ID)
		if err != nil || fresh == nil {
			return "", fmt.Errorf("action %d vanished during result race", action.ID)
		}
		return fresh.Status, nil
	}

	return status, nil
}
