package obs

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentEventsTotal counts document lifecycle events by kind and topic.
	DocumentEventsTotal *prometheus.CounterVec
	// TotalsComputedTotal counts invoice total recomputations.
	TotalsComputedTotal prometheus.Counter
	// StockAdjustmentsTotal counts stock movements caused by issuing or voiding documents.
	StockAdjustmentsTotal *prometheus.CounterVec
	// PDFRenderDuration records PDF rendering latency in milliseconds.
	PDFRenderDuration *prometheus.HistogramVec
	// LoginAttemptsTotal counts login outcomes.
	LoginAttemptsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the billing collectors.
// Subsequent calls are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_events_total",
			Help:      "Count of document lifecycle events.",
		}, []string{"topic"})
		TotalsComputedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_totals_computed_total",
			Help:      "Number of invoice total recomputations.",
		})
		StockAdjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Stock movements applied by document transitions.",
		}, []string{"direction"})
		PDFRenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_render_duration_ms",
			Help:      "Latency of PDF rendering in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"template"})
		LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Count of login attempts by outcome.",
		}, []string{"result"})

		register(reg, &DocumentEventsTotal)
		register(reg, &TotalsComputedTotal)
		register(reg, &StockAdjustmentsTotal)
		register(reg, &PDFRenderDuration)
		register(reg, &LoginAttemptsTotal)
	})
}

// ObserveDocumentEvent increments the event counter for topic.
func ObserveDocumentEvent(topic string) {
	if DocumentEventsTotal != nil {
		DocumentEventsTotal.WithLabelValues(topic).Inc()
	}
}

// ObserveTotalsComputed records one totals recomputation.
func ObserveTotalsComputed() {
	if TotalsComputedTotal != nil {
		TotalsComputedTotal.Inc()
	}
}

// ObserveStockAdjustment records a stock movement; direction is "in" or "out".
func ObserveStockAdjustment(direction string) {
	if StockAdjustmentsTotal != nil {
		StockAdjustmentsTotal.WithLabelValues(direction).Inc()
	}
}

// ObservePDFRender records how long rendering template took.
func ObservePDFRender(template string, d time.Duration) {
	if PDFRenderDuration != nil {
		PDFRenderDuration.WithLabelValues(template).Observe(DurationMillis(d))
	}
}

// ObserveLogin records a login outcome such as "success" or "invalid".
func ObserveLogin(result string) {
	if LoginAttemptsTotal != nil {
		LoginAttemptsTotal.WithLabelValues(strings.ToLower(result)).Inc()
	}
}
