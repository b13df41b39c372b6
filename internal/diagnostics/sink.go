package diagnostics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Sink receives diagnostic records. It is one-way: nothing a sink does may
// influence computed results.
type Sink interface {
	RecordEdge(EdgeRecord)
	RecordRun(RunRecord)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordEdge(EdgeRecord) {}
func (Nop) RecordRun(RunRecord)   {}

// LogSink writes records to a zerolog logger: edges at debug, runs at info.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink wraps logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) RecordEdge(r EdgeRecord) {
	if r.Skipped {
		s.logger.Debug().
			Str("edge", r.EdgeID).
			Str("reason", r.SkipReason).
			Float64("prior_days", float64(r.PriorDays)).
			Msg("Edge skipped")
		return
	}

	s.logger.Debug().
		Str("edge", r.EdgeID).
		Str("from", r.From).
		Str("to", r.To).
		Int("cohorts_scoped", r.CohortsScoped).
		Int("cohorts_all", r.CohortsAll).
		Float64("prior_days", float64(r.PriorDays)).
		Float64("anchor_days", float64(r.AnchorDelay.EffectiveDays)).
		Float64("anchor_weight", r.AnchorDelay.Weight).
		Float64("t95", r.Stats.T95).
		Float64("path_t95", r.PathT95).
		Float64("completeness", r.ConditionalCompleteness).
		Float64("p_infinity", r.Stats.PInfinity).
		Bool("fit_ok", r.Stats.Fit.EmpiricalQualityOK).
		Str("fit_reason", r.Stats.Fit.QualityFailureReason).
		Float64("w_evidence", r.Blend.WEvidence).
		Float64("blended_mean", r.Blend.Mean).
		Msg("Edge latency computed")
}

func (s *LogSink) RecordRun(r RunRecord) {
	ev := s.logger.Info()
	if len(r.Unreachable) > 0 {
		ev = s.logger.Warn().Strs("unreachable", r.Unreachable)
	}
	ev.Str("run_id", r.RunID).
		Str("query_date", r.QueryDate).
		Str("semantics", string(r.Semantics)).
		Int("active_edges", r.ActiveEdges).
		Int("processed", r.EdgesProcessed).
		Int("with_lag", r.EdgesWithLAG).
		Int("skipped", r.EdgesSkipped).
		Msg("Latency enhancement finished")
}

// MetricsSink exports record counts and distributions to Prometheus.
type MetricsSink struct {
	Edges        *prometheus.CounterVec
	Runs         prometheus.Counter
	Completeness prometheus.Histogram
	EvidenceW    prometheus.Histogram
	AnchorW      prometheus.Histogram
	Unreachable  prometheus.Counter
}

// NewMetricsSink registers the engine metrics with reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	weightBuckets := prometheus.LinearBuckets(0, 0.1, 11)

	return &MetricsSink{
		Edges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_latency_edges_total",
				Help: "Edges evaluated by the latency engine, by outcome",
			},
			[]string{"outcome"},
		),
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnel_latency_runs_total",
			Help: "Latency enhancement runs",
		}),
		Completeness: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_latency_completeness",
			Help:    "Conditional completeness of processed edges",
			Buckets: weightBuckets,
		}),
		EvidenceW: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_latency_evidence_weight",
			Help:    "Evidence weight of applied forecast blends",
			Buckets: weightBuckets,
		}),
		AnchorW: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_latency_anchor_weight",
			Help:    "Credibility weight of observed anchor delay",
			Buckets: weightBuckets,
		}),
		Unreachable: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnel_latency_unreachable_edges_total",
			Help: "Active edges left out of topological order by cycles",
		}),
	}
}

func (m *MetricsSink) RecordEdge(r EdgeRecord) {
	if r.Skipped {
		m.Edges.WithLabelValues("skipped").Inc()
		return
	}
	m.Edges.WithLabelValues("processed").Inc()
	m.Completeness.Observe(r.ConditionalCompleteness)
	m.AnchorW.Observe(r.AnchorDelay.Weight)
	if r.Blend.Applied {
		m.EvidenceW.Observe(r.Blend.WEvidence)
	}
}

func (m *MetricsSink) RecordRun(r RunRecord) {
	m.Runs.Inc()
	m.Unreachable.Add(float64(len(r.Unreachable)))
}

// Recorder keeps records in memory.
type Recorder struct {
	mu    sync.Mutex
	edges []EdgeRecord
	runs  []RunRecord
}

func (r *Recorder) RecordEdge(rec EdgeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, rec)
}

func (r *Recorder) RecordRun(rec RunRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rec)
}

// Edges returns a copy of the recorded edge records.
func (r *Recorder) Edges() []EdgeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EdgeRecord(nil), r.edges...)
}

// Runs returns a copy of the recorded run records.
func (r *Recorder) Runs() []RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunRecord(nil), r.runs...)
}

// Edge returns the last record for edgeID.
func (r *Recorder) Edge(edgeID string) (EdgeRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.edges) - 1; i >= 0; i-- {
		if r.edges[i].EdgeID == edgeID {
			return r.edges[i], true
		}
	}
	return EdgeRecord{}, false
}

type multi []Sink

// Multi fans records out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) RecordEdge(r EdgeRecord) {
	for _, s := range m {
		s.RecordEdge(r)
	}
}

func (m multi) RecordRun(r RunRecord) {
	for _, s := range m {
		s.RecordRun(r)
	}
}
