package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/graph"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument marks documents that fail to parse or validate.
var ErrInvalidDocument = errors.New("invalid document")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
}

// ParamDocument holds the retrieved rows for one edge.
type ParamDocument struct {
	EdgeID string              `json:"edge_id" yaml:"edge_id"`
	Values []cohort.ParamValue `json:"values" yaml:"values"`
}

var (
	schemaOnce   sync.Once
	schemaErr    error
	graphSchema  *jsonschema.Resolved
	paramsSchema *jsonschema.Resolved
)

func schemas() (*jsonschema.Resolved, *jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		graphSchema, schemaErr = resolve[graph.Graph]()
		if schemaErr != nil {
			return
		}
		paramsSchema, schemaErr = resolve[ParamDocument]()
	})
	return graphSchema, paramsSchema, schemaErr
}

func resolve[T any]() (*jsonschema.Resolved, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer schema: %w", err)
	}
	return s.Resolve(nil)
}

// DecodeGraph parses and validates a graph document.
func DecodeGraph(data []byte, format Format) (*graph.Graph, error) {
	gs, _, err := schemas()
	if err != nil {
		return nil, err
	}

	raw, err := normalise(data, format)
	if err != nil {
		return nil, err
	}
	if err := validate(gs, raw); err != nil {
		return nil, err
	}

	var g graph.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkGraph(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeParams parses and validates a parameter document. Rows without an
// explicit mode are classified from their legacy slice descriptor here, once.
func DecodeParams(data []byte, format Format) (*ParamDocument, error) {
	_, ps, err := schemas()
	if err != nil {
		return nil, err
	}

	raw, err := normalise(data, format)
	if err != nil {
		return nil, err
	}
	if err := validate(ps, raw); err != nil {
		return nil, err
	}

	var doc ParamDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.EdgeID == "" {
		return nil, fmt.Errorf("%w: edge_id is empty", ErrInvalidDocument)
	}
	for i := range doc.Values {
		if err := doc.Values[i].Classify(); err != nil {
			return nil, fmt.Errorf("%w: edge %s value %d: %v", ErrInvalidDocument, doc.EdgeID, i, err)
		}
		if err := checkParallel(&doc.Values[i]); err != nil {
			return nil, fmt.Errorf("%w: edge %s value %d: %v", ErrInvalidDocument, doc.EdgeID, i, err)
		}
	}
	return &doc, nil
}

// normalise turns either encoding into JSON bytes.
func normalise(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

func validate(schema *jsonschema.Resolved, raw []byte) error {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func checkGraph(g *graph.Graph) error {
	seen := make(map[string]bool, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.From == "" || e.To == "" {
			return fmt.Errorf("%w: edge %d has an empty endpoint", ErrInvalidDocument, i)
		}
		id := graph.EdgeID(e)
		if seen[id] {
			return fmt.Errorf("%w: duplicate edge id %q", ErrInvalidDocument, id)
		}
		seen[id] = true
	}
	return nil
}

func checkParallel(v *cohort.ParamValue) error {
	n := len(v.Dates)
	if len(v.NDaily) != n || len(v.KDaily) != n {
		return fmt.Errorf("dates, n_daily and k_daily must have equal length (%d, %d, %d)", n, len(v.NDaily), len(v.KDaily))
	}
	for name, xs := range map[string][]float64{
		"median_lag_days":        v.MedianLagDays,
		"mean_lag_days":          v.MeanLagDays,
		"anchor_median_lag_days": v.AnchorMedianLagDays,
		"anchor_mean_lag_days":   v.AnchorMeanLagDays,
	} {
		if len(xs) > n {
			return fmt.Errorf("%s is longer than dates", name)
		}
	}
	return nil
}
