package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IndexStats represents the index stats API response.
type IndexStats struct {
	Entries   int `json:"entries"`
	Symbols   int `json:"symbols"`
	Dimension int `json:"dimension"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector index statistics",
		Long:  "Displays chunk count, symbol count, and embedding dimension of the vector index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}

	return cmd
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/v1/index/stats")
	if err != nil {
		return fmt.Errorf("stats request failed: %w", err)
	}

	var stats IndexStats
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse stats response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Index entries: %d\n", stats.Entries)
	fmt.Printf("Symbols:       %d\n", stats.Symbols)
	fmt.Printf("Dimension:     %d\n", stats.Dimension)

	return nil
}
