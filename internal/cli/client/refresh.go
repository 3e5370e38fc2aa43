package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// RefreshRequest represents the refresh API request.
type RefreshRequest struct {
	Since string `json:"since,omitempty"`
}

// RefreshResponse represents the refresh API response.
type RefreshResponse struct {
	Symbol      string   `json:"symbol"`
	Since       string   `json:"since"`
	PricePoints int      `json:"price_points"`
	Documents   int      `json:"documents"`
	Chunks      int      `json:"chunks"`
	FeedErrors  []string `json:"feed_errors,omitempty"`
}

// RefreshCmd creates the refresh command.
func RefreshCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "refresh <symbol>",
		Short: "Pull fresh market data for a symbol",
		Long:  "Fetches recent daily bars and configured news feeds for the symbol and ingests them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRefresh(cmd, args[0], since, outputJSON)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Fetch data published after this day (YYYY-MM-DD, default: daemon lookback)")

	return cmd
}

func runRefresh(cmd *cobra.Command, symbol, since string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := "/v1/symbols/" + url.PathEscape(symbol) + "/refresh"
	resp, err := api.Post(path, RefreshRequest{Since: since})
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	var refreshResp RefreshResponse
	if err := json.Unmarshal(resp.Data, &refreshResp); err != nil {
		return fmt.Errorf("failed to parse refresh response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(refreshResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Refreshed %s since %s\n", refreshResp.Symbol, refreshResp.Since)
	fmt.Printf("  Price points: %d\n", refreshResp.PricePoints)
	fmt.Printf("  Documents:    %d\n", refreshResp.Documents)
	fmt.Printf("  Chunks:       %d\n", refreshResp.Chunks)
	for _, feedErr := range refreshResp.FeedErrors {
		fmt.Printf("  Feed warning: %s\n", feedErr)
	}

	return nil
}
