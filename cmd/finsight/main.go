package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "Finsight CLI - Financial insight from documents and prices",
		Long: `Finsight CLI ingests documents and price series into the daemon and asks
risk-aware questions about tracked symbols.

Environment variables:
  FINSIGHT_API_KEY   API key for authentication (omit for an open daemon)
  FINSIGHT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.LogoutCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.RiskCmd())
	rootCmd.AddCommand(client.SeriesCmd())
	rootCmd.AddCommand(client.RefreshCmd())
	rootCmd.AddCommand(client.SymbolsCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
