package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/lag"
	"funnel-mcp/internal/store"
)

func (s *Server) resolveGraph(path string, inline *graph.Graph) (*graph.Graph, error) {
	switch {
	case path != "" && inline != nil:
		return nil, fmt.Errorf("provide either graph_path or graph, not both")
	case inline != nil:
		return inline, nil
	case path != "":
		return store.LoadGraph(path)
	}
	return nil, fmt.Errorf("graph_path or graph is required")
}

// resolveLookup loads rows from dir (or the configured directory) and appends
// inline rows. A missing default directory is not an error.
func (s *Server) resolveLookup(ctx context.Context, dir string, inline cohort.Lookup) (cohort.Lookup, error) {
	explicit := dir != ""
	if !explicit {
		dir = s.cfg.ParamDir
	}

	lookup := make(cohort.Lookup)
	if dir != "" {
		ps, err := s.paramStore(dir)
		if err != nil {
			return nil, err
		}
		loaded, err := ps.Load(ctx)
		switch {
		case err == nil:
			lookup = loaded
		case !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	for edgeID, rows := range inline {
		for i := range rows {
			row := rows[i]
			if err := row.Classify(); err != nil {
				return nil, fmt.Errorf("params[%s][%d]: %w", edgeID, i, err)
			}
			lookup[edgeID] = append(lookup[edgeID], row)
		}
	}
	return lookup, nil
}

func (s *Server) resolveQueryDate(value string) (time.Time, error) {
	if value == "" {
		return cohort.Day(s.now()), nil
	}
	t, err := cohort.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid query_date: %w", err)
	}
	return t, nil
}

func (s *Server) settingsFor(semantics string) (lag.Settings, error) {
	settings := s.cfg.Settings
	if semantics != "" {
		settings.Semantics = lag.CompletenessSemantics(semantics)
	}
	if err := settings.Validate(); err != nil {
		return lag.Settings{}, err
	}
	return settings, nil
}

func parseSliceSource(value string) (cohort.SliceMode, error) {
	if value == "" {
		return cohort.ModeCohort, nil
	}
	mode := cohort.SliceMode(value)
	if !mode.Valid() {
		return "", fmt.Errorf("unknown slice_source %q. Available: cohort, window", value)
	}
	return mode, nil
}

func whatIfFor(overrides map[string]float64) *graph.WhatIf {
	if len(overrides) == 0 {
		return nil
	}
	return &graph.WhatIf{Overrides: overrides}
}
