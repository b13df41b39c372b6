package commands

import (
	"funnel-mcp/internal/mcp"

	"github.com/spf13/cobra"
)

var fitInput mcp.FitInput

var fitCmd = &cobra.Command{
	Use:     "fit",
	Short:   "Fit a log-normal lag distribution from a median and mean lag",
	Example: `  funnel-mcp fit --median 6.5 --mean 7.8 --k 50 --age 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newServer().Fit(fitInput)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), env)
	},
}

func init() {
	f := fitCmd.Flags()
	f.Float64Var(&fitInput.MedianLagDays, "median", 0, "median lag in days")
	f.Float64Var(&fitInput.MeanLagDays, "mean", 0, "mean lag in days (0 = unknown)")
	f.Float64Var(&fitInput.TotalK, "k", 0, "number of converters")
	f.Float64Var(&fitInput.AgeDays, "age", 0, "report the conversion CDF at this cohort age")
	f.Float64Var(&fitInput.T95Days, "t95", 0, "authoritative t95 that may widen the tail")
	_ = fitCmd.MarkFlagRequired("median")
	rootCmd.AddCommand(fitCmd)
}
