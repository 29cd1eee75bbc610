package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// helpers are no-ops until Create runs
	assert.NotPanics(t, func() { IncLedgerWrite("transaction", "create") })

	require.NoError(t, Create("test-host", "test", "xpensemate"))
	t.Cleanup(func() { MetricSystemEnabled = false })

	IncLedgerWrite("transaction", "create")
	IncLedgerWrite("transaction", "create")
	IncBudgetAlert("fired")
	SetQueuePending("alerts", 7)
	ObserveAlertDelivery(0.2)

	writes := MetricCollectionCounterVec[SystemLedger+MetricLedgerWrites]
	assert.Equal(t, float64(2), testutil.ToFloat64(writes.WithLabelValues("transaction", "create")))

	alerts := MetricCollectionCounterVec[SystemAlerts+MetricBudgetAlerts]
	assert.Equal(t, float64(1), testutil.ToFloat64(alerts.WithLabelValues("fired")))

	pending := MetricCollectionGaugeVec[SystemQueue+MetricQueuePending]
	assert.Equal(t, float64(7), testutil.ToFloat64(pending.WithLabelValues("alerts")))

	assert.Error(t, CreateMetric("summary", SystemLedger, "x", ""))

	// a second Create reuses the registered collectors
	require.NoError(t, Create("test-host", "test", "xpensemate"))
	IncLedgerWrite("transaction", "create")
	writes = MetricCollectionCounterVec[SystemLedger+MetricLedgerWrites]
	assert.Equal(t, float64(3), testutil.ToFloat64(writes.WithLabelValues("transaction", "create")))
}
