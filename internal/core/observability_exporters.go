package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetricsRecorder publishes per-operation outcome counters and
// accumulated durations through a prometheus registry. It fulfills
// MetricsRecorder for deployments that scrape process metrics.
type PromMetricsRecorder struct {
	results   *prometheus.CounterVec
	durations *prometheus.CounterVec
}

// NewPromMetricsRecorder constructs a recorder and registers its
// collectors with reg. Passing nil registers with the default registry.
func NewPromMetricsRecorder(reg prometheus.Registerer) (*PromMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PromMetricsRecorder{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcore_operations_total",
			Help: "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcore_operation_seconds_total",
			Help: "Accumulated service operation duration in seconds.",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.results, rec.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PromMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.results.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Add(duration.Seconds())
}

// FleetCollector exports the dashboard rollup as prometheus gauges,
// recomputed from store state on every scrape.
type FleetCollector struct {
	stats *StatsEngine

	machinesDesc   *prometheus.Desc
	statusDesc     *prometheus.Desc
	anomaliesDesc  *prometheus.Desc
	customersDesc  *prometheus.Desc
	hoursDesc      *prometheus.Desc
	efficiencyDesc *prometheus.Desc
}

// NewFleetCollector constructs a collector over the given stats engine.
func NewFleetCollector(stats *StatsEngine) *FleetCollector {
	return &FleetCollector{
		stats:          stats,
		machinesDesc:   prometheus.NewDesc("fleetcore_machines", "Machines in the fleet.", nil, nil),
		statusDesc:     prometheus.NewDesc("fleetcore_machines_by_status", "Machines per status.", []string{"status"}, nil),
		anomaliesDesc:  prometheus.NewDesc("fleetcore_machines_with_anomalies", "Machines with an active anomaly flag.", nil, nil),
		customersDesc:  prometheus.NewDesc("fleetcore_customers", "Registered customers.", nil, nil),
		hoursDesc:      prometheus.NewDesc("fleetcore_operation_hours", "Summed machine operation hours.", nil, nil),
		efficiencyDesc: prometheus.NewDesc("fleetcore_average_efficiency", "Mean heuristic efficiency score.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *FleetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.machinesDesc
	ch <- c.statusDesc
	ch <- c.anomaliesDesc
	ch <- c.customersDesc
	ch <- c.hoursDesc
	ch <- c.efficiencyDesc
}

// Collect implements prometheus.Collector.
func (c *FleetCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats.DashboardStats()
	ch <- prometheus.MustNewConstMetric(c.machinesDesc, prometheus.GaugeValue, float64(stats.TotalMachines))
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(stats.RunningMachines), string(StatusRunning))
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(stats.StoppedMachines), string(StatusStopped))
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(stats.MaintenanceMachines), string(StatusMaintenance))
	errored := stats.TotalMachines - stats.RunningMachines - stats.StoppedMachines - stats.MaintenanceMachines
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(errored), string(StatusError))
	ch <- prometheus.MustNewConstMetric(c.anomaliesDesc, prometheus.GaugeValue, float64(stats.MachinesWithAnomalies))
	ch <- prometheus.MustNewConstMetric(c.customersDesc, prometheus.GaugeValue, float64(stats.TotalCustomers))
	ch <- prometheus.MustNewConstMetric(c.hoursDesc, prometheus.GaugeValue, stats.TotalOperationHours)
	ch <- prometheus.MustNewConstMetric(c.efficiencyDesc, prometheus.GaugeValue, float64(stats.AverageEfficiency))
}

// JSONTraceEntry represents a serialized trace span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer serializes spans to a writer and retains them for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer that writes spans as JSON lines to
// the writer. Spans are retained for later inspection via Entries.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{enc: enc}
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements the Tracer interface.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	span := &jsonTraceSpan{
		tracer:    t,
		operation: operation,
		started:   time.Now().UTC(),
	}
	return ctx, span
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	status := "success"
	var errMsg string
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     status,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		Error:      errMsg,
		StartedAt:  s.started,
		EndedAt:    ended,
	}

	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}
