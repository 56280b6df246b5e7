package app

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

// Metrics is nil-safe so tests and tools can run a service without a registry.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	bodyBytes  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templates_operations_total",
				Help: "Count of template service operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "templates_operation_duration_seconds",
				Help:    "Latency of template service operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		bodyBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "templates_body_bytes",
				Help:    "Serialized size of template bodies accepted for writing",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
	}
	reg.MustRegister(m.operations, m.latency, m.bodyBytes)
	return m
}

func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveBodySize(size int) {
	if m == nil {
		return
	}
	m.bodyBytes.Observe(float64(size))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTemplateNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTemplateConflict):
		return "conflict"
	case errors.Is(err, domain.ErrBodyTooLarge):
		return "too_large"
	case isValidationError(err):
		return "invalid"
	default:
		return "error"
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidOwnerType) ||
		errors.Is(err, domain.ErrEmptyTemplateType) ||
		errors.Is(err, domain.ErrTemplateTypeTooLong) ||
		errors.Is(err, domain.ErrEmptyTemplateName) ||
		errors.Is(err, domain.ErrTemplateNameTooLong) ||
		errors.Is(err, domain.ErrDescriptionTooLong) ||
		errors.Is(err, domain.ErrInvalidBody)
}
