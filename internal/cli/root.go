package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "synapse",
	Short: "Reinforcement pathway ledger for autonomous agents",
	Long:  "Synapse tracks directed pathways between agent identities, each carrying a bounded strength score adjusted by reinforcement outcomes, and issues token records snapshotting strength at issuance. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(reinforceCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(statsCmd)
}
