package mcp

import (
	"context"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/graph"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EnhanceInput is the argument object of enhance_graph_latencies and
// render_graph. Exactly one of graph_path or graph is required.
type EnhanceInput struct {
	GraphPath    string             `json:"graph_path,omitempty" jsonschema:"Path to a JSON or YAML graph document"`
	Graph        *graph.Graph       `json:"graph,omitempty" jsonschema:"Inline graph document"`
	ParamDir     string             `json:"param_dir,omitempty" jsonschema:"Directory of per-edge parameter documents. Defaults to the configured PARAM_DIR"`
	Params       cohort.Lookup      `json:"params,omitempty" jsonschema:"Inline parameter rows keyed by edge id, merged after param_dir rows"`
	QueryDate    string             `json:"query_date,omitempty" jsonschema:"Evaluation date (YYYY-MM-DD). Default: today"`
	CohortFrom   string             `json:"cohort_from,omitempty" jsonschema:"First cohort entry date in scope (YYYY-MM-DD)"`
	CohortTo     string             `json:"cohort_to,omitempty" jsonschema:"Last cohort entry date in scope (YYYY-MM-DD)"`
	AnchorNodeID string             `json:"anchor_node_id,omitempty" jsonschema:"Node where cohorts enter the funnel. Default: the graph's start nodes"`
	SliceSource  string             `json:"slice_source,omitempty" jsonschema:"Which rows drive the pass: cohort (default) or window"`
	Semantics    string             `json:"completeness_semantics,omitempty" jsonschema:"conditional (default) or unconditional completeness display"`
	WhatIf       map[string]float64 `json:"what_if,omitempty" jsonschema:"Scenario overrides of effective edge probabilities keyed by edge id"`
	Apply        bool               `json:"apply,omitempty" jsonschema:"If true, also return the graph with results written in. The input graph is never modified"`
	SaveTo       string             `json:"save_to,omitempty" jsonschema:"Optional path to atomically write the applied graph to. Implies apply"`
	IncludeDebug bool               `json:"include_debug,omitempty" jsonschema:"Include per-edge diagnostic records"`
}

// InboundInput is the argument object of compute_inbound_n.
type InboundInput struct {
	GraphPath    string             `json:"graph_path,omitempty" jsonschema:"Path to a JSON or YAML graph document"`
	Graph        *graph.Graph       `json:"graph,omitempty" jsonschema:"Inline graph document"`
	AnchorNodeID string             `json:"anchor_node_id,omitempty" jsonschema:"Node where the population enters. Default: the graph's start nodes"`
	WhatIf       map[string]float64 `json:"what_if,omitempty" jsonschema:"Scenario overrides of effective edge probabilities keyed by edge id"`
	Apply        bool               `json:"apply,omitempty" jsonschema:"If true, also return the graph with p.n populated"`
}

// FitInput is the argument object of fit_lag_distribution.
type FitInput struct {
	MedianLagDays float64 `json:"median_lag_days" jsonschema:"Aggregate median days to convert"`
	MeanLagDays   float64 `json:"mean_lag_days,omitempty" jsonschema:"Aggregate mean days to convert. Omit if unknown"`
	TotalK        float64 `json:"total_k" jsonschema:"Number of converters behind the aggregate lags"`
	AgeDays       float64 `json:"age_days,omitempty" jsonschema:"Optional cohort age at which to report the conversion CDF"`
	T95Days       float64 `json:"t95_days,omitempty" jsonschema:"Optional authoritative t95 that may widen the tail"`
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "enhance_graph_latencies",
		Description: "Compute latency-aware completeness, t95 horizons and the evidence/forecast blend for every active edge of a funnel graph, in topological order. \n\n" +
			"Reads per-edge cohort and window rows from a parameter directory and/or inline params. " +
			"Returns one record per edge that tracks latency; the input graph is never modified. Use 'apply' to receive an updated copy.\n\n" +
			"STRICT GUARDRAIL: completeness below 50% means most eventual conversions have not happened yet. " +
			"DO NOT report raw evidence rates for such edges as final conversion rates; use the blended mean.",
	}, s.enhanceTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "compute_inbound_n",
		Description: "Propagate expected arrival populations through the funnel graph. " +
			"Start nodes take the largest observed evidence population among their outgoing edges; converging paths sum. " +
			"Returns n, forecast_k and the effective probability per edge.",
	}, s.inboundTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "fit_lag_distribution",
		Description: "Fit a log-normal time-to-convert distribution from an aggregate median and mean lag. " +
			"Reports mu, sigma, t95 and whether the empirical fit passed its quality gates. Never fails: bad inputs fall back to the default sigma with a reason.",
	}, s.fitTool)

	if s.cfg.EnableMermaidCharts {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "render_graph",
			Description: "Run the latency engine and render the funnel as a Mermaid flowchart annotated with blended probability, completeness and t95 per edge, plus completeness and horizon charts.",
		}, s.renderTool)
	}
}

func (s *Server) enhanceTool(ctx context.Context, _ *mcp.CallToolRequest, in EnhanceInput) (*mcp.CallToolResult, ResponseEnvelope, error) {
	env, err := s.handleEnhance(ctx, in)
	return nil, env, err
}

func (s *Server) inboundTool(_ context.Context, _ *mcp.CallToolRequest, in InboundInput) (*mcp.CallToolResult, ResponseEnvelope, error) {
	env, err := s.handleInbound(in)
	return nil, env, err
}

func (s *Server) fitTool(_ context.Context, _ *mcp.CallToolRequest, in FitInput) (*mcp.CallToolResult, ResponseEnvelope, error) {
	env, err := s.handleFit(in)
	return nil, env, err
}

func (s *Server) renderTool(ctx context.Context, _ *mcp.CallToolRequest, in EnhanceInput) (*mcp.CallToolResult, ResponseEnvelope, error) {
	env, err := s.handleRender(ctx, in)
	return nil, env, err
}
