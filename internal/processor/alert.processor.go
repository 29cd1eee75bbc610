package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gateway "github.com/nimasrn/xpensemate/internal/gateways"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/queue"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/nimasrn/xpensemate/pkg/prom"
)

const (
	deliveryPushed    = "pushed"
	deliveryDuplicate = "duplicate"
	deliveryFailed    = "failed"
	deliveryDropped   = "dropped"
)

// AlertProcessor pushes queued budget alerts to the device push gateway.
type AlertProcessor struct {
	client      gateway.PushClient
	idempotency *IdempotencyService
}

func NewAlertProcessor(client gateway.PushClient, idempotency *IdempotencyService) *AlertProcessor {
	return &AlertProcessor{
		client:      client,
		idempotency: idempotency,
	}
}

func (p *AlertProcessor) GetType() string {
	return "budget_alert"
}

// Process returns nil when the message should be acked and an error when it should be retried.
func (p *AlertProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var event model.AlertEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// malformed payloads never succeed on retry
		logger.Error("failed to decode alert event", "message_id", msg.ID, "error", err)
		prom.IncAlertDelivery(deliveryDropped)
		return nil
	}

	alertID := strconv.FormatInt(event.NotificationID, 10)

	pc, err := p.idempotency.AcquireProcessingLock(ctx, alertID)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Info("alert already delivered, skipping", "alert_id", alertID)
		prom.IncAlertDelivery(deliveryDuplicate)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("alert delivery gave up", "alert_id", alertID)
		prom.IncAlertDelivery(deliveryDropped)
		return nil
	case err != nil:
		return fmt.Errorf("alert %s: %w", alertID, err)
	}
	defer func() {
		_ = p.idempotency.ReleaseLock(ctx, pc)
	}()

	resp, err := p.client.SendPush(ctx, &gateway.PushRequest{
		NotificationID: event.NotificationID,
		Title:          event.Title,
		Body:           event.Message,
		CategoryID:     event.CategoryID,
	})
	if err != nil {
		prom.IncAlertDelivery(deliveryFailed)
		if errors.Is(err, gateway.ErrRejected) {
			logger.Warn("push provider rejected alert", "alert_id", alertID, "error", err)
			return nil
		}
		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("failed to record delivery failure", "alert_id", alertID, "error", markErr)
		}
		return err
	}

	if !event.CreatedAt.IsZero() {
		prom.ObserveAlertDelivery(time.Since(event.CreatedAt).Seconds())
	}
	prom.IncAlertDelivery(deliveryPushed)
	logger.Info("alert pushed", "alert_id", alertID, "push_id", resp.PushID, "retry_count", pc.RetryCount)

	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		// the push went out; a retry would duplicate it
		logger.Error("failed to mark alert delivered", "alert_id", alertID, "error", err)
	}
	return nil
}
