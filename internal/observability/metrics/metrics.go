// Package metrics exposes prometheus instrumentation for the billing core.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the metrics registry and collectors.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

type Metrics struct {
	Registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ledgerEntries     *prometheus.CounterVec
	paymentsApplied   prometheus.Counter
	invoicesGenerated *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisaab_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hisaab_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisaab_ledger_entries_total",
			Help: "Ledger entries written, by entry and transaction type.",
		}, []string{"type", "transaction_type"}),
		paymentsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisaab_payments_applied_total",
			Help: "Multi-invoice payment applications.",
		}),
		invoicesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisaab_invoices_generated_total",
			Help: "Invoices created by the monthly generator, per merchant.",
		}, []string{"merchant"}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.ledgerEntries,
		m.paymentsApplied,
		m.invoicesGenerated,
	)
	return m
}

func (m *Metrics) RecordLedgerEntry(entryType, transactionType string) {
	m.ledgerEntries.WithLabelValues(entryType, transactionType).Inc()
}

func (m *Metrics) RecordPaymentApplied() {
	m.paymentsApplied.Inc()
}

func (m *Metrics) RecordInvoicesGenerated(merchantCode string, count int) {
	m.invoicesGenerated.WithLabelValues(merchantCode).Add(float64(count))
}

// GinMiddleware instruments every request with count and latency.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
