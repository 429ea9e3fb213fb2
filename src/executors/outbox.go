package executors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
)

// OutboxDispatcher drains the transactional outbox: PENDING rows are POSTed
// to the collaborator service with exponential backoff, and rows that
// exhaust their attempts are parked DEAD for manual inspection.
type OutboxDispatcher struct {
	outbox *repository.OutboxRepository
	client *resty.Client
	cfg    Config

	now func() time.Time
}

func NewOutboxDispatcher(outbox *repository.OutboxRepository) *OutboxDispatcher {
	cfg := GetConfig()

	client := resty.New().
		SetBaseURL(cfg.CollaboratorBaseURL).
		SetTimeout(cfg.CollaboratorTimeout).
		SetHeader("Content-Type", "application/json")

	return &OutboxDispatcher{
		outbox: outbox,
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// RunOnce delivers one batch of due events. Returns the number delivered.
func (d *OutboxDispatcher) RunOnce(ctx context.Context) (int, error) {
	now := d.now()

	events, err := d.outbox.FindDue(ctx, now, d.cfg.OutboxBatch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range events {
		event := &events[i]

		if err := d.deliver(ctx, event); err != nil {
			d.recordFailure(ctx, event, err)
			continue
		}

		if err := d.outbox.MarkSent(ctx, event.ID); err != nil {
			logger.WithError(err).WithField("event_id", event.EventID).Error("Delivered outbox event but failed to mark sent")
			continue
		}
		monitor.IncOutboxDispatch("sent")
		sent++
	}

	return sent, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, event *model.OutboxEvent) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("X-Event-ID", event.EventID).
		SetBody(event.Payload).
		Post("/internal/events/" + event.Topic)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("collaborator returned %d", resp.StatusCode())
	}
	return nil
}

func (d *OutboxDispatcher) recordFailure(ctx context.Context, event *model.OutboxEvent, deliveryErr error) {
	attempts := event.Attempts + 1
	dead := attempts >= d.cfg.OutboxMaxAttempts

	backoff := d.cfg.OutboxBaseBackoff * (1 << uint(event.Attempts))
	if backoff > time.Hour {
		backoff = time.Hour
	}

	if err := d.outbox.MarkFailed(ctx, event, deliveryErr.Error(), d.now().Add(backoff), dead); err != nil {
		logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to record outbox failure")
		return
	}

	if dead {
		logger.WithFields(map[string]interface{}{
			"event_id": event.EventID,
			"topic":    event.Topic,
			"attempts": attempts,
		}).Error("Outbox event dead-lettered")
		monitor.IncOutboxDispatch("dead")
	} else {
		logger.WithError(deliveryErr).WithFields(map[string]interface{}{
			"event_id": event.EventID,
			"topic":    event.Topic,
			"attempts": attempts,
		}).Warn("Outbox delivery failed, will retry")
		monitor.IncOutboxDispatch("retry")
	}
}

// StartLoop drains the outbox until the context is cancelled.
func (d *OutboxDispatcher) StartLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.OutboxPeriod)
	defer ticker.Stop()

	logger.WithField("period", d.cfg.OutboxPeriod).Info("Outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox dispatcher stopped")
			return

		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				logger.WithError(err).Error("Outbox drain failed")
			}
		}
	}
}
