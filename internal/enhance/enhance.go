package enhance

import (
	"math"
	"time"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/diagnostics"
	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/lag"

	"github.com/google/uuid"
)

// Skip reasons reported through the diagnostics sink.
const (
	SkipNotTracked  = "latency_not_tracked"
	SkipNoCohorts   = "no_cohorts_in_window"
	SkipUnreachable = "unreachable_in_topological_order"
)

// Path t95 sources.
const (
	PathT95MomentMatched = "moment_matched"
	PathT95Topological   = "topological"
)

// Options configures one enhancement pass. Zero values select defaults.
type Options struct {
	Helpers      cohort.Helpers
	CohortWindow *cohort.DateRange
	WhatIf       *graph.WhatIf
	Resolver     graph.ProbabilityResolver
	// PathPercentile is a precomputed ComputePathPercentile result.
	PathPercentile map[string]lag.TailPercentileDays
	AnchorNodeID   string
	// SliceSource selects which rows drive the pass. Window-mode ages are
	// already edge-relative, so no anchor delay is applied.
	SliceSource cohort.SliceMode
	Settings    *lag.Settings
	Sink        diagnostics.Sink
}

// LatencyValues are the latency fields written back to an edge.
type LatencyValues struct {
	MedianLagDays float64 `json:"median_lag_days"`
	MeanLagDays   float64 `json:"mean_lag_days,omitempty"`
	T95           float64 `json:"t95"`
	PathT95       float64 `json:"path_t95"`
	Completeness  float64 `json:"completeness"`
}

// ForecastValues passes the forecast used by the blend through to the caller.
type ForecastValues struct {
	Mean float64 `json:"mean"`
}

// EvidenceValues passes the evidence used by the blend through to the caller.
type EvidenceValues struct {
	Mean float64 `json:"mean"`
	N    float64 `json:"n"`
	K    float64 `json:"k"`
}

// EdgeLAGValues is the per-edge result record. The engine never writes it into
// the graph; use Apply.
type EdgeLAGValues struct {
	EdgeUUID    string                  `json:"edge_uuid"`
	Latency     LatencyValues           `json:"latency"`
	BlendedMean *float64                `json:"blended_mean,omitempty"`
	Forecast    *ForecastValues         `json:"forecast,omitempty"`
	Evidence    *EvidenceValues         `json:"evidence,omitempty"`
	Debug       *diagnostics.EdgeRecord `json:"debug,omitempty"`
}

// Result is the output of EnhanceGraphLatencies.
type Result struct {
	// EdgesProcessed counts active edges visited in topological order;
	// EdgesWithLAG counts those that produced a record.
	EdgesProcessed int             `json:"edges_processed"`
	EdgesWithLAG   int             `json:"edges_with_lag"`
	EdgeValues     []EdgeLAGValues `json:"edge_values"`
}

// EnhanceGraphLatencies computes latency statistics and the evidence/forecast
// blend for every active edge in topological order. It does not modify g.
func EnhanceGraphLatencies(g *graph.Graph, lookup cohort.Lookup, queryDate time.Time, opts Options) Result {
	r := newRun(g, lookup, queryDate, opts)
	return r.execute()
}

type run struct {
	g       *graph.Graph
	lookup  cohort.Lookup
	now     time.Time
	opts    Options
	s       lag.Settings
	helpers cohort.Helpers
	resolve graph.ProbabilityResolver
	sink    diagnostics.Sink

	active  graph.EdgeSet
	topo    *graph.Topology
	pathPct map[string]lag.TailPercentileDays

	// Per-node accumulators. Two distinct quantities, never mixed.
	nodePathT95 map[string]lag.TailPercentileDays
	nodePrior   map[string]lag.MedianPriorDays
	reach       map[string]float64
}

func newRun(g *graph.Graph, lookup cohort.Lookup, queryDate time.Time, opts Options) *run {
	r := &run{
		g:       g,
		lookup:  lookup,
		now:     cohort.Day(queryDate),
		opts:    opts,
		s:       lag.DefaultSettings(),
		helpers: opts.Helpers,
		resolve: opts.Resolver,
		sink:    opts.Sink,
	}
	if opts.Settings != nil {
		r.s = *opts.Settings
	}
	if r.helpers == nil {
		r.helpers = cohort.DefaultHelpers{}
	}
	if r.resolve == nil {
		r.resolve = graph.DefaultResolver
	}
	if r.sink == nil {
		r.sink = diagnostics.Nop{}
	}
	if r.opts.SliceSource == "" {
		r.opts.SliceSource = cohort.ModeCohort
	}
	return r
}

func (r *run) execute() Result {
	// 1. Active subgraph and topology
	r.active = graph.GetActiveEdges(r.g, r.resolve, r.opts.WhatIf, r.s.ActiveEdgeEpsilon)
	r.topo = graph.NewTopology(r.g, r.active, r.opts.AnchorNodeID)

	// 2. Declared horizons
	r.pathPct = r.opts.PathPercentile
	if r.pathPct == nil {
		r.pathPct = ComputePathPercentile(r.g, r.active, r.opts.AnchorNodeID, r.s)
	}

	// 3. Fresh accumulators, zero at start nodes
	r.nodePathT95 = make(map[string]lag.TailPercentileDays)
	r.nodePrior = make(map[string]lag.MedianPriorDays)
	r.reach = make(map[string]float64)
	for _, s := range r.topo.Starts {
		r.nodePathT95[s] = 0
		r.nodePrior[s] = 0
		r.reach[s] = 1
	}

	res := Result{EdgeValues: []EdgeLAGValues{}}
	skipped := 0

	unvisited := r.topo.Walk(func(e *graph.Edge, from, to string) {
		res.EdgesProcessed++
		v, ok := r.processEdge(e, from, to)
		if !ok {
			skipped++
			return
		}
		res.EdgeValues = append(res.EdgeValues, v)
	})
	res.EdgesWithLAG = len(res.EdgeValues)

	for _, id := range unvisited {
		e := r.g.FindEdge(id)
		from, to := r.topo.Index.Endpoints(e)
		r.sink.RecordEdge(diagnostics.EdgeRecord{EdgeID: id, From: from, To: to, Skipped: true, SkipReason: SkipUnreachable})
	}

	r.sink.RecordRun(diagnostics.RunRecord{
		RunID:          uuid.NewString(),
		QueryDate:      r.now.Format("2006-01-02"),
		Semantics:      r.s.Semantics,
		ActiveEdges:    len(r.active),
		EdgesProcessed: res.EdgesProcessed,
		EdgesWithLAG:   res.EdgesWithLAG,
		EdgesSkipped:   skipped + len(unvisited),
		Unreachable:    unvisited,
	})
	return res
}

// processEdge runs the per-edge pipeline and always advances the accumulators
// at the target node. ok is false when the edge produced no result this cycle.
func (r *run) processEdge(e *graph.Edge, from, to string) (EdgeLAGValues, bool) {
	id := graph.EdgeID(e)
	rows := r.lookup[id]

	srcPathT95 := r.nodePathT95[from]
	srcPrior := r.nodePrior[from]
	srcReach := r.reach[from]
	r.reach[to] += srcReach * r.resolve(r.g, id, r.opts.WhatIf)

	rec := diagnostics.EdgeRecord{
		EdgeID:         id,
		From:           from,
		To:             to,
		LatencyEnabled: e.LatencyEnabled(),
		PriorDays:      srcPrior,
	}

	// Applicability
	if !e.LatencyEnabled() && r.pathPct[id] <= 0 {
		r.propagate(to, srcPathT95, srcPrior)
		rec.Skipped, rec.SkipReason = true, SkipNotTracked
		r.sink.RecordEdge(rec)
		return EdgeLAGValues{}, false
	}

	// Cohort retrieval: scoped for completeness and evidence, full history for the fit
	var scoped, all []lag.CohortData
	if r.opts.SliceSource == cohort.ModeWindow {
		scoped = r.helpers.AggregateWindowData(rows, r.now, r.opts.CohortWindow)
		all = r.helpers.AggregateWindowData(rows, r.now, nil)
	} else {
		scoped = r.helpers.AggregateCohortData(rows, r.now, r.opts.CohortWindow)
		all = r.helpers.AggregateCohortData(rows, r.now, nil)
	}
	rec.CohortsScoped, rec.CohortsAll = len(scoped), len(all)

	fitSource := all
	if len(fitSource) == 0 {
		fitSource = scoped
	}
	edgeLag, hasEdgeLag := r.helpers.AggregateLatencyStats(fitSource)
	baselineLag := r.baselineMedianLag(e, rows, edgeLag, hasEdgeLag)
	rec.BaselineMedianLag = baselineLag

	if len(scoped) == 0 {
		// Out of scope, but downstream edges still need a prior.
		r.propagate(to, srcPathT95+ownPercentile(e, r.s), srcPrior+lag.MedianPriorDays(baselineLag))
		rec.Skipped, rec.SkipReason = true, SkipNoCohorts
		r.sink.RecordEdge(rec)
		return EdgeLAGValues{}, false
	}

	// Aggregate lag fit inputs
	medianLag, meanLag := edgeLag.MedianLagDays, edgeLag.MeanLagDays
	if !hasEdgeLag {
		if l := e.Latency(); l != nil {
			medianLag, meanLag = l.MedianLagDays, l.MeanLagDays
		}
	}
	totalK := float64(lag.TotalSuccesses(fitSource))

	// Anchor delay
	anchorScoped := summarizeAnchorLag(scoped)
	delay := lag.AnchorDelayEstimate{EffectiveDays: srcPrior}
	if r.opts.SliceSource == cohort.ModeCohort {
		delay = lag.EstimateAnchorDelay(lag.AnchorDelayInput{
			Prior:        srcPrior,
			Observed:     anchorScoped.MedianDays,
			Coverage:     anchorScoped.Coverage,
			Starters:     float64(lag.TotalPopulation(scoped)),
			RateEstimate: rateEstimate(e),
		}, r.s.AnchorDelayBlendK)
	}
	rec.ObservedAnchorDays = anchorScoped.MedianDays
	rec.AnchorCoverage = anchorScoped.Coverage
	rec.AnchorDelay = delay

	// Edge-local statistics on edge-relative ages
	edgeScoped, edgeAll := scoped, all
	if r.opts.SliceSource == cohort.ModeCohort {
		edgeScoped = lag.ShiftAges(scoped, delay.EffectiveDays)
		edgeAll = lag.ShiftAges(all, delay.EffectiveDays)
	}

	stats := lag.ComputeEdgeLatencyStats(lag.EdgeStatsInput{
		Cohorts:              edgeScoped,
		MaturityCohorts:      edgeAll,
		MedianLagDays:        medianLag,
		MeanLagDays:          meanLag,
		TotalK:               totalK,
		FallbackT95Days:      declaredT95(e, r.s),
		AuthoritativeT95Days: authoritativeT95(e),
	}, r.s)
	rec.Stats = stats

	// Horizon
	horizon := float64(r.pathPct[id])
	horizonCohorts := all
	if e.LatencyEnabled() {
		horizon = stats.T95
		horizonCohorts = edgeAll
	}
	rec.EffectiveHorizonDays = horizon

	// Path t95
	pathT95, pathSource := r.edgePathT95(all, scoped, stats, srcPathT95)
	rec.PathT95, rec.PathT95Source = pathT95, pathSource

	// Blend
	blendIn, ev := r.blendInputs(e, rows, scoped, horizonCohorts, horizon, stats, &rec)
	blend := lag.ComputeBlendedMean(blendIn, r.s.ForecastBlendLambda)
	rec.Blend = blend

	// Propagate
	r.propagate(to, lag.TailPercentileDays(pathT95), srcPrior+lag.MedianPriorDays(baselineLag))

	// Completeness semantics
	conditional := stats.Completeness
	displayed := conditional
	if r.s.Semantics == lag.SemanticsUnconditional {
		displayed = conditional * math.Min(1, srcReach)
	}
	rec.ConditionalCompleteness = conditional
	rec.ReachProbability = srcReach
	rec.DisplayedCompleteness = displayed
	r.sink.RecordEdge(rec)

	out := EdgeLAGValues{
		EdgeUUID: id,
		Latency: LatencyValues{
			MedianLagDays: lag.FiniteOr(medianLag, 0),
			MeanLagDays:   lag.FiniteOr(meanLag, 0),
			T95:           lag.FiniteOr(stats.T95, 0),
			PathT95:       lag.FiniteOr(pathT95, 0),
			Completeness:  lag.FiniteOr(displayed, 0),
		},
		Evidence: ev,
	}
	if !lag.ValidLag(out.Latency.MedianLagDays) {
		out.Latency.MedianLagDays = 0
	}
	if !lag.ValidLag(out.Latency.MeanLagDays) {
		out.Latency.MeanLagDays = 0
	}
	mean := lag.FiniteOr(blend.Mean, blendIn.EvidenceMean)
	out.BlendedMean = &mean
	if blendIn.ForecastAvailable {
		out.Forecast = &ForecastValues{Mean: lag.FiniteOr(blendIn.ForecastMean, 0)}
	}
	debug := rec
	out.Debug = &debug
	return out, true
}

func (r *run) propagate(to string, pathT95 lag.TailPercentileDays, prior lag.MedianPriorDays) {
	r.nodePathT95[to] = maxTail(r.nodePathT95[to], pathT95)
	r.nodePrior[to] = maxPrior(r.nodePrior[to], prior)
}

// baselineMedianLag is the median-scale delay this edge adds to the prior.
// Window-mode rows are preferred, then this edge's cohort lags, then the
// median declared on the graph.
func (r *run) baselineMedianLag(e *graph.Edge, rows []cohort.ParamValue, edgeLag cohort.LatencyStats, hasEdgeLag bool) float64 {
	window := r.helpers.AggregateWindowData(rows, r.now, nil)
	if stats, ok := r.helpers.AggregateLatencyStats(window); ok && lag.ValidLag(stats.MedianLagDays) {
		return stats.MedianLagDays
	}
	if hasEdgeLag && lag.ValidLag(edgeLag.MedianLagDays) {
		return edgeLag.MedianLagDays
	}
	if l := e.Latency(); l != nil && lag.ValidLag(l.MedianLagDays) {
		return l.MedianLagDays
	}
	return 0
}

// edgePathT95 prefers a moment-matched anchor+edge horizon over summing tails.
func (r *run) edgePathT95(all, scoped []lag.CohortData, stats lag.EdgeLatencyStats, srcPathT95 lag.TailPercentileDays) (float64, string) {
	anchor := summarizeAnchorLag(all)
	if !anchor.present() {
		anchor = summarizeAnchorLag(scoped)
	}

	if anchor.present() {
		anchorFit := lag.FitLagDistribution(anchor.MedianDays, anchor.MeanDays, anchor.Arrivals, r.s)
		if days, ok := lag.ApproximateLogNormalSumPercentileDays(anchorFit, stats.Fit, lag.T95Percentile); ok {
			return days, PathT95MomentMatched
		}
	}
	return float64(srcPathT95) + stats.T95, PathT95Topological
}

func (r *run) blendInputs(e *graph.Edge, rows []cohort.ParamValue, scoped, horizonCohorts []lag.CohortData, horizon float64, stats lag.EdgeLatencyStats, rec *diagnostics.EdgeRecord) (lag.BlendInput, *EvidenceValues) {
	in := lag.BlendInput{Completeness: stats.Completeness}

	// Evidence comes from the graph; cohorts stand in when the graph has none.
	ev := &EvidenceValues{
		Mean: stats.PEvidence,
		N:    float64(lag.TotalPopulation(scoped)),
		K:    float64(lag.TotalSuccesses(scoped)),
	}
	if e.P != nil && e.P.Evidence != nil {
		ev = &EvidenceValues{Mean: e.P.Evidence.Mean, N: e.P.Evidence.N, K: e.P.Evidence.K}
	}
	in.EvidenceMean = ev.Mean
	rec.EvidenceMean = ev.Mean

	switch {
	case e.P != nil && e.P.Forecast != nil:
		in.ForecastMean, in.ForecastAvailable = e.P.Forecast.Mean, true
		rec.ForecastSource = "graph"
	case stats.ForecastAvailable:
		in.ForecastMean, in.ForecastAvailable = stats.PInfinity, true
		rec.ForecastSource = "p_infinity"
	}
	rec.ForecastMean = in.ForecastMean

	switch {
	case e.P != nil && e.P.N > 0:
		in.NQuery, rec.NQuerySource = e.P.N, "forecast_population"
	case e.P != nil && e.P.Evidence != nil && e.P.Evidence.N > 0:
		in.NQuery, rec.NQuerySource = e.P.Evidence.N, "evidence"
	default:
		in.NQuery, rec.NQuerySource = float64(lag.TotalPopulation(scoped)), "cohorts"
	}
	rec.NQuery = in.NQuery

	if n, ok := cohort.BaselinePopulation(rows); ok {
		in.NBaseline, rec.NBaselineSource = n, "window_slice"
	} else {
		mature := 0
		for _, c := range horizonCohorts {
			if c.Age >= horizon {
				mature += c.N
			}
		}
		in.NBaseline, rec.NBaselineSource = float64(mature), "mature_cohorts"
	}
	rec.NBaseline = in.NBaseline

	return in, ev
}

// rateEstimate prefers the forecast mean over the raw mean.
func rateEstimate(e *graph.Edge) float64 {
	if e.P == nil {
		return 0
	}
	if e.P.Forecast != nil && e.P.Forecast.Mean > 0 {
		return e.P.Forecast.Mean
	}
	return e.P.Mean
}

// authoritativeT95 is a user-declared t95; computed values never constrain the tail.
func authoritativeT95(e *graph.Edge) float64 {
	l := e.Latency()
	if l == nil || !l.T95Overridden || !lag.ValidLag(l.T95) {
		return 0
	}
	return l.T95
}
