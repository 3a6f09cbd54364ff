package prom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_RegistersBillingMetrics(t *testing.T) {
	require.NoError(t, Create("test-host", "test", "dues"))
	require.True(t, MetricSystemEnabled)

	assert.Contains(t, MetricCollectionCounterVec, SystemBilling+MetricInvoices)
	assert.Contains(t, MetricCollectionCounterVec, SystemBilling+MetricPayments)
	assert.Contains(t, MetricCollectionCounterVec, SystemBilling+MetricResets)
	assert.Contains(t, MetricCollectionHistogram, SystemBilling+MetricPaymentAmount)
	assert.Contains(t, MetricCollectionHistogramVec, SystemNotifications+MetricDeliverSeconds)
	assert.Contains(t, MetricCollectionGaugeVec, SystemNotifications+MetricQueueDepth)
	assert.Contains(t, MetricCollectionCounters, SystemBilling+MetricPurgeSweeps)

	assert.NotPanics(t, func() {
		AddInvoiceOutcome("generated", 3)
		AddInvoiceOutcome("skipped", 0)
		AddPaymentApplied("single", 2000)
		IncLedgerEntry("Credit")
		IncReset("requested")
		AddNotificationDelivery("delivered", "reset.requested", 0.2)
		SetQueueDepth("pending", 4)
		IncPurgeSweep()
	})
}

func TestCreateMetric_UnknownType(t *testing.T) {
	err := CreateMetric("summary", "x", "y")
	assert.Error(t, err)
}
