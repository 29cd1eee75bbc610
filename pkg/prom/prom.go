package prom

import (
	"errors"
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/xpensemate/pkg/http"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger = "ledger"
	SystemAlerts = "alerts"
	SystemQueue  = "queue"
)
const (
	MetricLedgerWrites     = "writes_total"
	MetricBudgetAlerts     = "budget_alerts_total"
	MetricAlertDeliveries  = "deliveries_total"
	MetricAlertDeliverySec = "delivery_seconds"
	MetricQueuePending     = "pending"
)

const (
	TypeCounterVec = "counterVec"
	TypeHistogram  = "histogram"
	TypeGaugeVec   = "gaugeVec"
)

// definition describes one collector registered by Create.
type definition struct {
	kind      string
	subsystem string
	name      string
	help      string
	labels    []string
}

var definitions = []definition{
	{TypeCounterVec, SystemLedger, MetricLedgerWrites, "Committed ledger writes by entity and operation.", []string{"entity", "op"}},
	{TypeCounterVec, SystemAlerts, MetricBudgetAlerts, "Budget alert evaluations by outcome.", []string{"outcome"}},
	{TypeCounterVec, SystemAlerts, MetricAlertDeliveries, "Alert push attempts by status.", []string{"status"}},
	{TypeHistogram, SystemAlerts, MetricAlertDeliverySec, "Seconds between an alert being recorded and pushed.", nil},
	{TypeGaugeVec, SystemQueue, MetricQueuePending, "Delivered but unacknowledged stream entries.", []string{"stream"}},
}

var (
	mu        sync.Mutex
	namespace = "none"

	MetricSystemEnabled = false

	MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
	MetricCollectionGaugeVec   = make(map[string]*prometheus.GaugeVec)
	MetricCollectionHistogram  = make(map[string]prometheus.Histogram)

	defaultLabels prometheus.Labels
)

// Create registers every ledger metric with the default registry. Until it
// runs, the recording helpers are no-ops.
func Create(host string, env string, nameSpace string) error {
	mu.Lock()
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	mu.Unlock()

	var first error
	for _, d := range definitions {
		if err := CreateMetric(d.kind, d.subsystem, d.name, d.help, d.labels...); err != nil && first == nil {
			first = err
		}
	}
	MetricSystemEnabled = true
	return first
}

func CreateMetric(metricType, subsystem, name, help string, labels ...string) error {
	mu.Lock()
	defer mu.Unlock()

	key := subsystem + name
	var err error
	switch metricType {
	case TypeCounterVec:
		MetricCollectionCounterVec[key], err = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: defaultLabels,
		}, labels))
	case TypeHistogram:
		MetricCollectionHistogram[key], err = register(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: defaultLabels,
			Buckets: prometheus.DefBuckets,
		}))
	case TypeGaugeVec:
		MetricCollectionGaugeVec[key], err = register(prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: defaultLabels,
		}, labels))
	default:
		return fmt.Errorf("metric type %s is not defined", metricType)
	}
	return err
}

// register returns the collector already registered under the same
// descriptor, so Create may run more than once in one process.
func register[T prometheus.Collector](c T) (T, error) {
	err := prometheus.Register(c)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer(0, 0)
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func addCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func observeHistogram(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogram[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func setGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func IncLedgerWrite(entity, op string) {
	addCounterVec(SystemLedger, MetricLedgerWrites, 1, entity, op)
}

func IncBudgetAlert(outcome string) {
	addCounterVec(SystemAlerts, MetricBudgetAlerts, 1, outcome)
}

func IncAlertDelivery(status string) {
	addCounterVec(SystemAlerts, MetricAlertDeliveries, 1, status)
}

func ObserveAlertDelivery(seconds float64) {
	observeHistogram(SystemAlerts, MetricAlertDeliverySec, seconds)
}

func SetQueuePending(stream string, pending int64) {
	setGaugeVec(SystemQueue, MetricQueuePending, float64(pending), stream)
}
