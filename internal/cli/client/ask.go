package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// InsightOptions tunes retrieval and risk for a single question.
type InsightOptions struct {
	K              int      `json:"k,omitempty"`
	RiskWindowDays int      `json:"risk_window_days,omitempty"`
	RiskFreeRate   *float64 `json:"risk_free_rate,omitempty"`
	SourceTypes    []string `json:"source_types,omitempty"`
}

// InsightRequest represents the insight API request.
type InsightRequest struct {
	Symbol  string         `json:"symbol"`
	Query   string         `json:"query"`
	Options InsightOptions `json:"options"`
}

// SupportingChunk represents one retrieved evidence chunk.
type SupportingChunk struct {
	ChunkID   string  `json:"chunk_id"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	Sentiment float64 `json:"sentiment"`
	WindowEnd string  `json:"window_end"`
	Excerpt   string  `json:"excerpt"`
}

// Recommendation represents the synthesized action.
type Recommendation struct {
	Action      string   `json:"action"`
	Confidence  string   `json:"confidence"`
	Rationale   []string `json:"rationale"`
	RiskFactors []string `json:"risk_factors"`
}

// InsightResponse represents the insight API response.
type InsightResponse struct {
	Symbol         string            `json:"symbol"`
	Query          string            `json:"query"`
	GeneratedAt    string            `json:"generated_at"`
	Risk           RiskProfile       `json:"risk"`
	Trends         []Trend           `json:"trends"`
	Supporting     []SupportingChunk `json:"supporting"`
	Recommendation Recommendation    `json:"recommendation"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		topK       int
		windowDays int
		rate       float64
		sources    []string
	)

	cmd := &cobra.Command{
		Use:   "ask <symbol> <query>",
		Short: "Ask a question about a symbol",
		Long:  "Retrieves supporting evidence and synthesizes a risk-aware answer for the symbol.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			opts := InsightOptions{
				K:              topK,
				RiskWindowDays: windowDays,
				SourceTypes:    sources,
			}
			if cmd.Flags().Changed("rate") {
				opts.RiskFreeRate = &rate
			}
			return runAsk(cmd, args[0], args[1], opts, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Supporting chunks to retrieve (default: daemon setting)")
	cmd.Flags().IntVar(&windowDays, "window-days", 0, "Risk window in trading days (default: daemon setting)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Annualized risk-free rate override")
	cmd.Flags().StringSliceVarP(&sources, "sources", "s", nil, "Filter evidence by source type (news, filing)")

	return cmd
}

func runAsk(cmd *cobra.Command, symbol, query string, opts InsightOptions, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := InsightRequest{
		Symbol:  symbol,
		Query:   query,
		Options: opts,
	}

	resp, err := api.Post("/v1/insights", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var insight InsightResponse
	if err := json.Unmarshal(resp.Data, &insight); err != nil {
		return fmt.Errorf("failed to parse insight response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(insight, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s: %s\n", insight.Symbol, insight.Query)
	fmt.Printf("Generated at %s\n\n", insight.GeneratedAt)

	rec := insight.Recommendation
	fmt.Printf("Recommendation: %s (%s confidence)\n", rec.Action, rec.Confidence)
	for _, reason := range rec.Rationale {
		fmt.Printf("  - %s\n", reason)
	}
	if len(rec.RiskFactors) > 0 {
		fmt.Println("Risk factors:")
		for _, factor := range rec.RiskFactors {
			fmt.Printf("  ! %s\n", factor)
		}
	}

	fmt.Println()
	renderRiskProfile(insight.Risk)
	renderTrends(insight.Trends)

	if len(insight.Supporting) > 0 {
		fmt.Printf("\nSupporting evidence (%d chunks):\n", len(insight.Supporting))
		for i, chunk := range insight.Supporting {
			excerpt := chunk.Excerpt
			if len(excerpt) > 100 {
				excerpt = excerpt[:97] + "..."
			}
			fmt.Printf("%d. [%s] %s (score %.3f, sentiment %+.2f)\n", i+1, chunk.Source, chunk.ChunkID, chunk.Score, chunk.Sentiment)
			if excerpt != "" {
				fmt.Printf("   %s\n", excerpt)
			}
			if i < len(insight.Supporting)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
