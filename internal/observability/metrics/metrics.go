package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gridbill_"

	resultSuccess = "success"
)

var (
	registerOnce sync.Once

	costCalcTotal   *prometheus.CounterVec
	costCalcLatency *prometheus.HistogramVec

	reconciliationRuns    *prometheus.CounterVec
	reconciliationLatency *prometheus.HistogramVec

	meterErrors          *prometheus.CounterVec
	corruptReadings      prometheus.Counter
	unmatchedTOUReadings prometheus.Counter
	cycleWarnings        prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	cleanupTotal *prometheus.CounterVec
)

// Init registers observability metrics. Safe to call more than once.
func Init(logger *log.Logger) {
	registerOnce.Do(func() {
		costCalcTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cost_calculations_total",
				Help: "Total tariff cost calculations by result",
			},
			[]string{"result"},
		)
		costCalcLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cost_calculation_latency_seconds",
				Help:    "Tariff cost calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reconciliationRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconciliation_runs_total",
				Help: "Total site reconciliation runs by result",
			},
			[]string{"result"},
		)
		reconciliationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reconciliation_run_latency_seconds",
				Help:    "Site reconciliation run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		meterErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "meter_errors_total",
				Help: "Total per-meter calculation errors by reason",
			},
			[]string{"reason"},
		)
		corruptReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "corrupt_readings_total",
				Help: "Total reading values flagged over corruption thresholds",
			},
		)
		unmatchedTOUReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "unmatched_tou_readings_total",
				Help: "Total readings that matched no time-of-use period",
			},
		)
		cycleWarnings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "connection_cycle_warnings_total",
				Help: "Total meter connection cycles detected during traversal",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		cleanupTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "maintenance_cleanup_total",
				Help: "Total maintenance cleanup operations by kind and result",
			},
			[]string{"kind", "result"},
		)

		prometheus.MustRegister(
			costCalcTotal,
			costCalcLatency,
			reconciliationRuns,
			reconciliationLatency,
			meterErrors,
			corruptReadings,
			unmatchedTOUReadings,
			cycleWarnings,
			exportTotal,
			exportLatency,
			cleanupTotal,
		)

		if logger != nil {
			logger.Printf("metrics registered")
		}
	})
}

// ObserveCostCalculation records one cost calculation.
func ObserveCostCalculation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if costCalcTotal != nil {
		costCalcTotal.WithLabelValues(result).Inc()
	}
	if costCalcLatency != nil {
		costCalcLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReconciliationRun records one site reconciliation run.
func ObserveReconciliationRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reconciliationRuns != nil {
		reconciliationRuns.WithLabelValues(result).Inc()
	}
	if reconciliationLatency != nil {
		reconciliationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncMeterError increments the per-meter error counter.
func IncMeterError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if meterErrors != nil {
		meterErrors.WithLabelValues(reason).Inc()
	}
}

// AddCorruptReadings increments the corrupt reading counter by count.
func AddCorruptReadings(count int) {
	if count <= 0 {
		return
	}
	if corruptReadings != nil {
		corruptReadings.Add(float64(count))
	}
}

// AddUnmatchedTOUReadings increments the unmatched time-of-use counter.
func AddUnmatchedTOUReadings(count int) {
	if count <= 0 {
		return
	}
	if unmatchedTOUReadings != nil {
		unmatchedTOUReadings.Add(float64(count))
	}
}

// IncCycleWarning increments the connection-cycle warning counter.
func IncCycleWarning() {
	if cycleWarnings != nil {
		cycleWarnings.Inc()
	}
}

// ObserveExport records one report export.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncCleanup records one maintenance cleanup operation.
func IncCleanup(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if cleanupTotal != nil {
		cleanupTotal.WithLabelValues(kind, result).Inc()
	}
}
