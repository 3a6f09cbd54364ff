package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	gateway "github.com/nimasrn/dues-ledger/internal/gateways"
	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/queue"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

type Deliverer interface {
	Deliver(ctx context.Context, n *model.AdminNotification) (*gateway.DeliveryResponse, error)
}

// NotificationProcessor delivers admin notifications from the queue to the
// webhook endpoints.
type NotificationProcessor struct {
	deliverer   Deliverer
	idempotency *IdempotencyService
}

func NewNotificationProcessor(deliverer Deliverer, idempotency *IdempotencyService) *NotificationProcessor {
	return &NotificationProcessor{deliverer: deliverer, idempotency: idempotency}
}

func (p *NotificationProcessor) Type() string { return "admin_notification" }

// Process returns nil when the message should be acked: on delivery, on a
// duplicate, on a malformed payload and once retries are exhausted.
func (p *NotificationProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var n model.AdminNotification
	if err := json.Unmarshal(msg.Data, &n); err != nil || n.ID == "" {
		logger.Error("dropping malformed notification", "message_id", msg.ID, "error", err)
		prom.AddNotificationDelivery("malformed", "", 0)
		return nil
	}

	pc, err := p.idempotency.Acquire(ctx, n.ID)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Debug("notification already delivered", "notification_id", n.ID)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("giving up on notification", "notification_id", n.ID, "kind", string(n.Kind))
		prom.AddNotificationDelivery("abandoned", string(n.Kind), 0)
		return nil
	case err != nil:
		return err
	}
	defer func() {
		if err := p.idempotency.Release(ctx, pc); err != nil {
			logger.Warn("failed to release lock", "notification_id", n.ID, "error", err)
		}
	}()

	start := time.Now()
	resp, err := p.deliverer.Deliver(ctx, &n)
	elapsed := time.Since(start).Seconds()
	if err == nil && resp.Status != gateway.StatusAccepted {
		err = errors.Errorf("webhook answered %s", resp.Status)
	}
	if err != nil {
		prom.AddNotificationDelivery("failed", string(n.Kind), elapsed)
		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("failed to record delivery failure", "notification_id", n.ID, "error", markErr)
		}
		return err
	}

	prom.AddNotificationDelivery("delivered", string(n.Kind), elapsed)
	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("failed to mark notification delivered", "notification_id", n.ID, "error", err)
	}
	logger.Info("notification delivered",
		"notification_id", n.ID,
		"kind", string(n.Kind),
		"reset_request_id", n.ResetRequestID,
		"endpoint", resp.Endpoint,
		"retry_count", pc.RetryCount)
	return nil
}
