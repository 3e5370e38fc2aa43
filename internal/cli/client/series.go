package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// PricePoint represents one daily bar in the series API response.
type PricePoint struct {
	Day    string  `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SeriesResponse represents the series API response.
type SeriesResponse struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// SeriesCmd creates the series command.
func SeriesCmd() *cobra.Command {
	var from string
	var to string

	cmd := &cobra.Command{
		Use:   "series <symbol>",
		Short: "Show the stored price series for a symbol",
		Long:  "Lists daily bars for the symbol, optionally restricted to a date range.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSeries(cmd, args[0], from, to, outputJSON)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start day (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "End day (YYYY-MM-DD, inclusive)")

	return cmd
}

func runSeries(cmd *cobra.Command, symbol, from, to string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}

	path := "/v1/symbols/" + url.PathEscape(symbol) + "/series"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("series request failed: %w", err)
	}

	var seriesResp SeriesResponse
	if err := json.Unmarshal(resp.Data, &seriesResp); err != nil {
		return fmt.Errorf("failed to parse series response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(seriesResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(seriesResp.Points) == 0 {
		fmt.Printf("No bars stored for %s in the requested range.\n", seriesResp.Symbol)
		return nil
	}

	fmt.Printf("Price series for %s (%d bars)\n", seriesResp.Symbol, len(seriesResp.Points))
	for _, p := range seriesResp.Points {
		fmt.Printf("  %s  open %.2f  high %.2f  low %.2f  close %.2f  volume %d\n",
			p.Day, p.Open, p.High, p.Low, p.Close, p.Volume)
	}

	return nil
}
