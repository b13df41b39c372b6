package store

import (
	"encoding/json"
	"fmt"
	"os"

	"funnel-mcp/internal/graph"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadGraph reads a JSON or YAML graph document.
func LoadGraph(path string) (*graph.Graph, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}

	g, err := DecodeGraph(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("nodes", len(g.Nodes)).Int("edges", len(g.Edges)).Msg("Loaded graph")
	return g, nil
}

// SaveGraph writes g atomically in the format implied by path.
func SaveGraph(path string, g *graph.Graph) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(g)
	default:
		data, err = json.MarshalIndent(g, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("edges", len(g.Edges)).Msg("Graph saved")
	return nil
}

// SaveParams writes a parameter document atomically in the format implied by path.
func SaveParams(path string, doc *ParamDocument) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}

	log.Debug().Str("path", path).Str("edge", doc.EdgeID).Int("values", len(doc.Values)).Msg("Params saved")
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}
	return nil
}
