package commands

import (
	"fmt"
	"strconv"

	"funnel-mcp/internal/mcp"

	"github.com/spf13/cobra"
)

var enhanceFlags struct {
	graph      string
	params     string
	date       string
	cohortFrom string
	cohortTo   string
	anchor     string
	source     string
	semantics  string
	whatIf     map[string]string
	apply      bool
	out        string
	debug      bool
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Compute latency statistics and blended probabilities for a graph",
	Example: `  funnel-mcp enhance --graph funnel.yaml --params ./params --date 2025-03-31
  funnel-mcp enhance --graph funnel.json --cohort-from 2025-03-01 --cohort-to 2025-03-30 --apply --out funnel.enhanced.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		whatIf, err := parseWhatIf(enhanceFlags.whatIf)
		if err != nil {
			return err
		}

		env, err := newServer().Enhance(cmd.Context(), mcp.EnhanceInput{
			GraphPath:    enhanceFlags.graph,
			ParamDir:     enhanceFlags.params,
			QueryDate:    enhanceFlags.date,
			CohortFrom:   enhanceFlags.cohortFrom,
			CohortTo:     enhanceFlags.cohortTo,
			AnchorNodeID: enhanceFlags.anchor,
			SliceSource:  enhanceFlags.source,
			Semantics:    enhanceFlags.semantics,
			WhatIf:       whatIf,
			Apply:        enhanceFlags.apply,
			SaveTo:       enhanceFlags.out,
			IncludeDebug: enhanceFlags.debug,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), env)
	},
}

func init() {
	f := enhanceCmd.Flags()
	f.StringVar(&enhanceFlags.graph, "graph", "", "graph document (.json, .yaml)")
	f.StringVar(&enhanceFlags.params, "params", "", "directory of per-edge parameter documents (default: PARAM_DIR)")
	f.StringVar(&enhanceFlags.date, "date", "", "query date YYYY-MM-DD (default: today)")
	f.StringVar(&enhanceFlags.cohortFrom, "cohort-from", "", "first cohort date in scope")
	f.StringVar(&enhanceFlags.cohortTo, "cohort-to", "", "last cohort date in scope")
	f.StringVar(&enhanceFlags.anchor, "anchor", "", "anchor node id (default: start nodes)")
	f.StringVar(&enhanceFlags.source, "source", "", "slice source: cohort or window")
	f.StringVar(&enhanceFlags.semantics, "semantics", "", "completeness semantics: conditional or unconditional")
	f.StringToStringVar(&enhanceFlags.whatIf, "what-if", nil, "effective probability overrides, e.g. ab=0.9,bc=0.2")
	f.BoolVar(&enhanceFlags.apply, "apply", false, "include the updated graph in the output")
	f.StringVar(&enhanceFlags.out, "out", "", "write the updated graph to this path atomically")
	f.BoolVar(&enhanceFlags.debug, "debug", false, "include per-edge diagnostic records")
	_ = enhanceCmd.MarkFlagRequired("graph")
	rootCmd.AddCommand(enhanceCmd)
}

func parseWhatIf(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for edge, v := range raw {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid what-if probability for %s: %w", edge, err)
		}
		out[edge] = p
	}
	return out, nil
}
