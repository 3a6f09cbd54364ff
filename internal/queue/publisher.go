package queue

import (
	"context"

	"github.com/nimasrn/dues-ledger/internal/model"
)

// NotificationPublisher puts admin notifications on the queue for the
// processor to deliver.
type NotificationPublisher struct {
	queue *Queue
}

func NewNotificationPublisher(q *Queue) *NotificationPublisher {
	return &NotificationPublisher{queue: q}
}

func (p *NotificationPublisher) Notify(ctx context.Context, n *model.AdminNotification) error {
	_, err := p.queue.PublishJSON(ctx, n, map[string]string{
		"kind":            string(n.Kind),
		"notification_id": n.ID,
	})
	return err
}
