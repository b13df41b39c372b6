package mcp

import (
	"fmt"
	"math"

	"funnel-mcp/internal/enhance"
	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/lag"
)

func (s *Server) handleFit(in FitInput) (ResponseEnvelope, error) {
	if in.AgeDays < 0 {
		return ResponseEnvelope{}, fmt.Errorf("age_days must not be negative")
	}

	settings := s.cfg.Settings
	mean := in.MeanLagDays
	if mean == 0 {
		mean = math.NaN()
	}
	fit := lag.FitLagDistribution(in.MedianLagDays, mean, in.TotalK, settings)

	data := map[string]any{
		"fit": fit,
		"t95": lag.ComputeT95(fit, settings.DefaultT95Days),
	}

	if in.AgeDays > 0 {
		cohorts := []lag.CohortData{{Age: in.AgeDays, N: 1}}
		params := lag.GetCompletenessCdfParams(fit, in.MedianLagDays, in.T95Days, settings.MaxSigma)
		c := lag.CalculateCompleteness(cohorts, params.Mu, params.Sigma)
		if params.TailConstraintApplied {
			c = lag.CalculateCompletenessWithTailConstraint(cohorts, params.Mu, params.SigmaMoments, params.Sigma)
		}
		data["completeness_at_age"] = c
		data["cdf_params"] = params
	}

	var warnings []string
	if !fit.EmpiricalQualityOK {
		warnings = append(warnings, fmt.Sprintf("FIT QUALITY WARNING: %s. The default sigma %.2f was used.", fit.QualityFailureReason, settings.DefaultSigma))
	}
	return WrapResponse(data, nil, warnings, nil), nil
}

func (s *Server) handleInbound(in InboundInput) (ResponseEnvelope, error) {
	g, err := s.resolveGraph(in.GraphPath, in.Graph)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	whatIf := whatIfFor(in.WhatIf)
	active := graph.GetActiveEdges(g, nil, whatIf, s.cfg.Settings.ActiveEdgeEpsilon)
	inbound := enhance.ComputeInboundN(g, active, nil, whatIf, in.AnchorNodeID)

	data := map[string]any{"inbound": inbound}
	if in.Apply {
		data["graph"] = enhance.ApplyInboundN(g, inbound)
	}

	var warnings []string
	if dropped := len(g.Edges) - len(active); dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d edge(s) have zero effective probability and carry no population.", dropped))
	}
	if missing := len(active) - len(inbound); missing > 0 {
		warnings = append(warnings, fmt.Sprintf("CYCLE WARNING: %d active edge(s) could not be placed in topological order.", missing))
	}
	return WrapResponse(data, nil, warnings, nil), nil
}
