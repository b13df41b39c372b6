package mcp

import "context"

// ResponseEnvelope is the common shape of every tool result.
type ResponseEnvelope struct {
	Data     any               `json:"data"`
	Summary  any               `json:"summary,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Diagrams map[string]string `json:"diagrams,omitempty"`
}

// WrapResponse builds an envelope, dropping empty optional parts.
func WrapResponse(data, summary any, warnings []string, diagrams map[string]string) ResponseEnvelope {
	env := ResponseEnvelope{Data: data, Summary: summary}
	if len(warnings) > 0 {
		env.Warnings = warnings
	}
	for name, d := range diagrams {
		if d == "" {
			continue
		}
		if env.Diagrams == nil {
			env.Diagrams = make(map[string]string)
		}
		env.Diagrams[name] = d
	}
	return env
}

// Enhance runs enhance_graph_latencies outside a protocol session.
func (s *Server) Enhance(ctx context.Context, in EnhanceInput) (ResponseEnvelope, error) {
	return s.handleEnhance(ctx, in)
}

// Render runs render_graph outside a protocol session, regardless of
// ENABLE_MERMAID_CHARTS.
func (s *Server) Render(ctx context.Context, in EnhanceInput) (ResponseEnvelope, error) {
	return s.handleRender(ctx, in)
}

// Inbound runs compute_inbound_n outside a protocol session.
func (s *Server) Inbound(in InboundInput) (ResponseEnvelope, error) {
	return s.handleInbound(in)
}

// Fit runs fit_lag_distribution outside a protocol session.
func (s *Server) Fit(in FitInput) (ResponseEnvelope, error) {
	return s.handleFit(in)
}
