package commands

import (
	"fmt"

	"funnel-mcp/internal/mcp"

	"github.com/spf13/cobra"
)

var renderFlags struct {
	graph  string
	params string
	date   string
	chart  string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an enhanced graph as Mermaid",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newServer().Render(cmd.Context(), mcp.EnhanceInput{
			GraphPath: renderFlags.graph,
			ParamDir:  renderFlags.params,
			QueryDate: renderFlags.date,
		})
		if err != nil {
			return err
		}

		diagram, ok := env.Diagrams[renderFlags.chart]
		if !ok {
			return fmt.Errorf("unknown chart %q. Available: flowchart, completeness, horizons", renderFlags.chart)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), diagram)
		return err
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.graph, "graph", "", "graph document (.json, .yaml)")
	f.StringVar(&renderFlags.params, "params", "", "directory of per-edge parameter documents (default: PARAM_DIR)")
	f.StringVar(&renderFlags.date, "date", "", "query date YYYY-MM-DD (default: today)")
	f.StringVar(&renderFlags.chart, "chart", "flowchart", "flowchart, completeness or horizons")
	_ = renderCmd.MarkFlagRequired("graph")
	rootCmd.AddCommand(renderCmd)
}
