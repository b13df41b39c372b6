package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"funnel-mcp/internal/config"
	"funnel-mcp/internal/diagnostics"
	"funnel-mcp/internal/store"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	serverName    = "funnel-mcp"
	serverVersion = "0.3.0"
)

// Server holds the state for the MCP server.
type Server struct {
	cfg     *config.AppConfig
	metrics *diagnostics.MetricsSink
	now     func() time.Time

	mu     sync.Mutex
	stores map[string]*store.ParamStore
}

// NewServer creates a new MCP server. reg may be nil to disable metrics.
func NewServer(cfg *config.AppConfig, reg prometheus.Registerer) *Server {
	s := &Server{
		cfg:    cfg,
		now:    time.Now,
		stores: make(map[string]*store.ParamStore),
	}
	if reg != nil {
		s.metrics = diagnostics.NewMetricsSink(reg)
	}
	return s
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the MCP session over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("param_dir", s.cfg.ParamDir).Msg("Starting MCP server on stdio")
	if err := s.MCP().Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp session ended: %w", err)
	}
	return nil
}

// paramStore returns the cached store for dir, creating it on first use.
func (s *Server) paramStore(dir string) (*store.ParamStore, error) {
	key := filepath.Clean(dir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ps, ok := s.stores[key]; ok {
		return ps, nil
	}
	ps, err := store.NewParamStore(key, s.cfg.ParamCacheSize)
	if err != nil {
		return nil, err
	}
	s.stores[key] = ps
	return ps, nil
}

func (s *Server) sinks(extra ...diagnostics.Sink) diagnostics.Sink {
	all := append([]diagnostics.Sink{diagnostics.NewLogSink(log.Logger)}, extra...)
	if s.metrics != nil {
		all = append(all, s.metrics)
	}
	return diagnostics.Multi(all...)
}
