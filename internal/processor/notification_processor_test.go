package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	gateway "github.com/nimasrn/dues-ledger/internal/gateways"
	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/queue"
)

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, n *model.AdminNotification) (*gateway.DeliveryResponse, error) {
	args := m.Called(ctx, n)
	resp, _ := args.Get(0).(*gateway.DeliveryResponse)
	return resp, args.Error(1)
}

func notificationMessage(t *testing.T, id string) *queue.Message {
	t.Helper()
	data, err := json.Marshal(model.AdminNotification{
		ID:             id,
		Kind:           model.NotifyResetRequested,
		ResetRequestID: 7,
		Message:        "factory reset requested",
		OccurredAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data, Attempts: 1}
}

func accepted(id string) *gateway.DeliveryResponse {
	return &gateway.DeliveryResponse{NotificationID: id, Status: gateway.StatusAccepted, Endpoint: "primary"}
}

func TestNotificationProcessor_Delivers(t *testing.T) {
	ctx := context.Background()
	_, adapter := setupTestRedis(t)
	idem := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	d := &mockDeliverer{}
	p := NewNotificationProcessor(d, idem)

	d.On("Deliver", mock.Anything, mock.MatchedBy(func(n *model.AdminNotification) bool {
		return n.ID == "n-1" && n.ResetRequestID == 7
	})).Return(accepted("n-1"), nil).Once()

	require.NoError(t, p.Process(ctx, notificationMessage(t, "n-1")))
	// redelivery of the same notification is acked without a second POST
	require.NoError(t, p.Process(ctx, notificationMessage(t, "n-1")))

	d.AssertExpectations(t)
	done, err := idem.IsProcessed(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestNotificationProcessor_FailureLeavesMessagePending(t *testing.T) {
	ctx := context.Background()
	_, adapter := setupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = 2
	idem := NewIdempotencyService(adapter, cfg)
	d := &mockDeliverer{}
	p := NewNotificationProcessor(d, idem)

	d.On("Deliver", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Twice()

	assert.Error(t, p.Process(ctx, notificationMessage(t, "n-2")))
	assert.Error(t, p.Process(ctx, notificationMessage(t, "n-2")))
	// retries exhausted, so the message is acked and dropped
	assert.NoError(t, p.Process(ctx, notificationMessage(t, "n-2")))

	d.AssertExpectations(t)
}

func TestNotificationProcessor_Rejected(t *testing.T) {
	_, adapter := setupTestRedis(t)
	d := &mockDeliverer{}
	p := NewNotificationProcessor(d, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))

	d.On("Deliver", mock.Anything, mock.Anything).
		Return(&gateway.DeliveryResponse{NotificationID: "n-3", Status: gateway.StatusRejected}, nil)

	err := p.Process(context.Background(), notificationMessage(t, "n-3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REJECTED")
}

func TestNotificationProcessor_MalformedIsDropped(t *testing.T) {
	_, adapter := setupTestRedis(t)
	d := &mockDeliverer{}
	p := NewNotificationProcessor(d, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))

	assert.NoError(t, p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{not json")}))
	assert.NoError(t, p.Process(context.Background(), &queue.Message{ID: "2-0", Data: []byte(`{"kind":"x"}`)}))
	d.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}
