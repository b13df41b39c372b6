package commands

import (
	"funnel-mcp/internal/mcp"

	"github.com/spf13/cobra"
)

var inboundFlags struct {
	graph  string
	anchor string
	whatIf map[string]string
	apply  bool
}

var inboundCmd = &cobra.Command{
	Use:   "inbound",
	Short: "Propagate expected arrival populations through a graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		whatIf, err := parseWhatIf(inboundFlags.whatIf)
		if err != nil {
			return err
		}
		env, err := newServer().Inbound(mcp.InboundInput{
			GraphPath:    inboundFlags.graph,
			AnchorNodeID: inboundFlags.anchor,
			WhatIf:       whatIf,
			Apply:        inboundFlags.apply,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), env)
	},
}

func init() {
	f := inboundCmd.Flags()
	f.StringVar(&inboundFlags.graph, "graph", "", "graph document (.json, .yaml)")
	f.StringVar(&inboundFlags.anchor, "anchor", "", "anchor node id (default: start nodes)")
	f.StringToStringVar(&inboundFlags.whatIf, "what-if", nil, "effective probability overrides, e.g. ab=0.9")
	f.BoolVar(&inboundFlags.apply, "apply", false, "include the graph with p.n populated")
	_ = inboundCmd.MarkFlagRequired("graph")
	rootCmd.AddCommand(inboundCmd)
}
