package observability

import (
	stderrors "errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"lumenchain/core/writeset"
)

// ConversionMetrics counts write-op conversions by slot class and outcome.
// The conversion functions themselves stay pure; recording happens in the
// surrounding layer that invokes them.
type ConversionMetrics struct {
	conversions *prometheus.CounterVec
	aborts      *prometheus.CounterVec
}

var (
	conversionOnce     sync.Once
	conversionRegistry *ConversionMetrics
)

// Conversion returns the lazily-initialised conversion metrics registry.
func Conversion() *ConversionMetrics {
	conversionOnce.Do(func() {
		conversionRegistry = &ConversionMetrics{
			conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lumen",
				Subsystem: "writeset",
				Name:      "conversions_total",
				Help:      "Total write-op conversions segmented by slot class and outcome.",
			}, []string{"class", "outcome"}),
			aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lumen",
				Subsystem: "writeset",
				Name:      "speculative_aborts_total",
				Help:      "Total conversions surfacing a speculative abort, segmented by slot class.",
			}, []string{"class"}),
		}
	})
	return conversionRegistry
}

// Register attaches the collectors to the supplied registry.
func (m *ConversionMetrics) Register(registry prometheus.Registerer) error {
	if err := registry.Register(m.conversions); err != nil {
		return err
	}
	return registry.Register(m.aborts)
}

// Observe records one conversion outcome. Speculative aborts are counted
// separately from fatal faults since they drive retries, not failures.
func (m *ConversionMetrics) Observe(class string, err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.conversions.WithLabelValues(class, "ok").Inc()
	case stderrors.Is(err, writeset.ErrSpeculativeAbort):
		m.conversions.WithLabelValues(class, "speculative_abort").Inc()
		m.aborts.WithLabelValues(class).Inc()
	default:
		m.conversions.WithLabelValues(class, "fault").Inc()
	}
}
