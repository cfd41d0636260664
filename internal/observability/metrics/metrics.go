package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "genx_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	caseLoadTotal   *prometheus.CounterVec
	caseLoadLatency *prometheus.HistogramVec

	periodCompileTotal   *prometheus.CounterVec
	periodCompileLatency *prometheus.HistogramVec

	emitTotal   *prometheus.CounterVec
	emitLatency *prometheus.HistogramVec

	transferTotal *prometheus.CounterVec

	extraCostDollars *prometheus.GaugeVec
)

// Init registers the compiler metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		caseLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "case_load_total",
				Help: "Total case folder loads by result",
			},
			[]string{"result"},
		)
		caseLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "case_load_latency_seconds",
				Help:    "Case folder load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		periodCompileTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_compile_total",
				Help: "Total planning period compilations by result",
			},
			[]string{"result"},
		)
		periodCompileLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "period_compile_latency_seconds",
				Help:    "Planning period compilation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		emitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "emit_total",
				Help: "Total report emissions by format and result",
			},
			[]string{"format", "result"},
		)
		emitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "emit_latency_seconds",
				Help:    "Report emission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		transferTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transfer_cases_total",
				Help: "Total period input transfers by outcome",
			},
			[]string{"outcome"},
		)

		extraCostDollars = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "extra_cost_dollars",
				Help: "Region-attributed trade and policy costs of the last compilation",
			},
			[]string{"year", "region", "case", "component"},
		)

		prometheus.MustRegister(
			caseLoadTotal,
			caseLoadLatency,
			periodCompileTotal,
			periodCompileLatency,
			emitTotal,
			emitLatency,
			transferTotal,
			extraCostDollars,
		)
	})
}

// ObserveCaseLoad records case load duration and result.
func ObserveCaseLoad(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if caseLoadTotal != nil {
		caseLoadTotal.WithLabelValues(result).Inc()
	}
	if caseLoadLatency != nil {
		caseLoadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePeriodCompile records period compilation duration and result.
func ObservePeriodCompile(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if periodCompileTotal != nil {
		periodCompileTotal.WithLabelValues(result).Inc()
	}
	if periodCompileLatency != nil {
		periodCompileLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveEmit records report emission latency and result.
func ObserveEmit(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if emitTotal != nil {
		emitTotal.WithLabelValues(format, result).Inc()
	}
	if emitLatency != nil {
		emitLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncTransfer counts one transferred, skipped or already-updated case pair.
func IncTransfer(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if transferTotal != nil {
		transferTotal.WithLabelValues(outcome).Inc()
	}
}

// SetExtraCost publishes one attributed cost component.
func SetExtraCost(year int, region, caseLabel, component string, dollars int64) {
	if extraCostDollars != nil {
		extraCostDollars.WithLabelValues(strconv.Itoa(year), region, caseLabel, component).Set(float64(dollars))
	}
}

// Result returns the result label for err.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	TransferUpdated = "updated"
	TransferSkipped = "skipped"
	TransferCurrent = "already_updated"
)
