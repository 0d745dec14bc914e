package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "billplan",
	Short: "schedule bill payments across a date window",
	Long:  `billplan spreads each bill's remaining balance over the days before its due date, weighted by urgency, and rebalances the result against recorded paydays`,
}

func init() {
	RootCmd.AddCommand(planCmd())
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
}
