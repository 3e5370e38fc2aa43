package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// SymbolInfo represents one tracked symbol in the list API response.
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Bars     int    `json:"bars"`
	FirstDay string `json:"first_day"`
	LastDay  string `json:"last_day"`
}

// SymbolListResponse represents the symbol list API response.
type SymbolListResponse struct {
	Items   []SymbolInfo `json:"items"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more"`
}

// SymbolsCmd creates the symbols command.
func SymbolsCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List tracked symbols",
		Long:  "Lists symbols with stored price history and their coverage.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSymbols(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of symbols (default: daemon setting)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runSymbols(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/v1/symbols"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("symbols request failed: %w", err)
	}

	var listResp SymbolListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse symbols response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No symbols tracked yet. Ingest price documents or run 'finsight refresh <symbol>'.")
		return nil
	}

	fmt.Printf("Tracked symbols (%d):\n", len(listResp.Items))
	for _, item := range listResp.Items {
		fmt.Printf("  %-8s %5d bars  %s to %s\n", item.Symbol, item.Bars, item.FirstDay, item.LastDay)
	}
	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\nMore symbols available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
