package mcp

import (
	"context"
	"fmt"
	"strings"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/diagnostics"
	"funnel-mcp/internal/enhance"
	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/store"
	"funnel-mcp/internal/visuals"

	"github.com/rs/zerolog/log"
)

type enhanceRun struct {
	graph    *graph.Graph
	result   enhance.Result
	summary  enhance.Summary
	recorder *diagnostics.Recorder
}

func (s *Server) runEnhance(ctx context.Context, in EnhanceInput) (*enhanceRun, error) {
	g, err := s.resolveGraph(in.GraphPath, in.Graph)
	if err != nil {
		return nil, err
	}
	lookup, err := s.resolveLookup(ctx, in.ParamDir, in.Params)
	if err != nil {
		return nil, err
	}
	queryDate, err := s.resolveQueryDate(in.QueryDate)
	if err != nil {
		return nil, err
	}
	window, err := cohort.ParseDateRange(in.CohortFrom, in.CohortTo)
	if err != nil {
		return nil, fmt.Errorf("invalid cohort window: %w", err)
	}
	settings, err := s.settingsFor(in.Semantics)
	if err != nil {
		return nil, err
	}
	source, err := parseSliceSource(in.SliceSource)
	if err != nil {
		return nil, err
	}

	recorder := &diagnostics.Recorder{}
	res := enhance.EnhanceGraphLatencies(g, lookup, queryDate, enhance.Options{
		CohortWindow: window,
		WhatIf:       whatIfFor(in.WhatIf),
		AnchorNodeID: in.AnchorNodeID,
		SliceSource:  source,
		Settings:     &settings,
		Sink:         s.sinks(recorder),
	})

	return &enhanceRun{
		graph:    g,
		result:   res,
		summary:  enhance.Summarize(res),
		recorder: recorder,
	}, nil
}

func (s *Server) handleEnhance(ctx context.Context, in EnhanceInput) (ResponseEnvelope, error) {
	run, err := s.runEnhance(ctx, in)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	data := map[string]any{}
	if in.Apply || in.SaveTo != "" {
		applied := enhance.Apply(run.graph, run.result)
		if in.SaveTo != "" {
			if err := store.SaveGraph(in.SaveTo, applied); err != nil {
				return ResponseEnvelope{}, err
			}
			data["saved_to"] = in.SaveTo
		}
		if in.Apply {
			data["graph"] = applied
		}
	}

	res := run.result
	if !in.IncludeDebug {
		res = stripDebug(res)
	}
	data["result"] = res

	var diagrams map[string]string
	if s.cfg.EnableMermaidCharts {
		diagrams = map[string]string{
			"completeness": visuals.GenerateCompletenessChart(run.result),
		}
	}

	log.Info().
		Int("edges_processed", res.EdgesProcessed).
		Int("edges_with_lag", res.EdgesWithLAG).
		Msg("Graph latencies enhanced")

	return WrapResponse(data, run.summary, enhanceWarnings(run), diagrams), nil
}

func (s *Server) handleRender(ctx context.Context, in EnhanceInput) (ResponseEnvelope, error) {
	run, err := s.runEnhance(ctx, in)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	diagrams := map[string]string{
		"flowchart":    visuals.GenerateFunnelFlowchart(run.graph, run.result),
		"completeness": visuals.GenerateCompletenessChart(run.result),
		"horizons":     visuals.GeneratePathHorizonChart(run.result),
	}
	return WrapResponse(map[string]any{"edges_with_lag": run.result.EdgesWithLAG}, run.summary, enhanceWarnings(run), diagrams), nil
}

// stripDebug returns res without per-edge diagnostic records. The engine's
// slice is shared, so records are copied rather than edited in place.
func stripDebug(res enhance.Result) enhance.Result {
	out := res
	out.EdgeValues = make([]enhance.EdgeLAGValues, len(res.EdgeValues))
	for i, v := range res.EdgeValues {
		v.Debug = nil
		out.EdgeValues[i] = v
	}
	return out
}

func enhanceWarnings(run *enhanceRun) []string {
	var warnings []string

	for _, r := range run.recorder.Runs() {
		if len(r.Unreachable) > 0 {
			warnings = append(warnings, fmt.Sprintf("CYCLE WARNING: %d active edge(s) could not be placed in topological order and were left out: %s.", len(r.Unreachable), strings.Join(r.Unreachable, ", ")))
		}
	}

	var noCohorts []string
	for _, e := range run.recorder.Edges() {
		if e.Skipped && e.SkipReason == enhance.SkipNoCohorts {
			noCohorts = append(noCohorts, e.EdgeID)
		}
	}
	if len(noCohorts) > 0 {
		warnings = append(warnings, fmt.Sprintf("DATA COVERAGE WARNING: no cohorts in the query window for %s. These edges keep their previous latency values.", strings.Join(noCohorts, ", ")))
	}

	if run.summary.LowQualityFits > 0 {
		warnings = append(warnings, fmt.Sprintf("FIT QUALITY WARNING: %d edge(s) fell back to the default lag shape because the empirical fit failed its quality gates. Their t95 and completeness are less reliable.", run.summary.LowQualityFits))
	}

	var immature []string
	for _, v := range run.result.EdgeValues {
		if v.Latency.Completeness < 0.5 {
			immature = append(immature, v.EdgeUUID)
		}
	}
	if len(immature) > 0 {
		warnings = append(warnings, fmt.Sprintf("MATURITY WARNING: completeness is below 50%% for %s. Most eventual conversions have not been observed yet.", strings.Join(immature, ", ")))
	}
	return warnings
}
