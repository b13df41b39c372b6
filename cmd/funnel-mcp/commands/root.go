package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"funnel-mcp/internal/config"
	"funnel-mcp/internal/logging"
	"funnel-mcp/internal/mcp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	// registry collects engine metrics for the lifetime of the process.
	registry = prometheus.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "funnel-mcp",
	Short: "Funnel-MCP is a latency-aware conversion forecasting MCP Server",
	Long: `An MCP Server and CLI that computes latency-aware completeness, t95 horizons and
evidence/forecast blends for conversion funnel graphs from daily cohort data.

Run without a subcommand to serve MCP over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("semantics", string(cfg.Settings.Semantics)).
			Msg("Funnel-MCP starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Version = Version
}

func newServer() *mcp.Server {
	return mcp.NewServer(cfg, registry)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
