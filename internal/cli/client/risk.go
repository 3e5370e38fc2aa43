package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

const insufficientData = "insufficient data"

// Metric is a numeric measure that may be unavailable for thin series. The
// wire format is a JSON number when valid and the marker string otherwise.
type Metric struct {
	Value float64
	Valid bool
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(insufficientData)
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		m.Value, m.Valid = 0, false
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}

func (m Metric) String() string {
	if !m.Valid {
		return insufficientData
	}
	return strconv.FormatFloat(m.Value, 'f', 4, 64)
}

// RiskProfile represents the risk block of the API response.
type RiskProfile struct {
	Symbol       string `json:"symbol"`
	WindowDays   int    `json:"window_days"`
	WindowStart  string `json:"window_start,omitempty"`
	WindowEnd    string `json:"window_end,omitempty"`
	Observations int    `json:"observations"`
	Volatility   Metric `json:"volatility"`
	VaR95        Metric `json:"var_95"`
	Sharpe       Metric `json:"sharpe"`
	MaxDrawdown  Metric `json:"max_drawdown"`
	Beta         Metric `json:"beta"`
	Level        string `json:"level"`
}

// Trend represents one trailing-window trend summary.
type Trend struct {
	PeriodDays int    `json:"period_days"`
	Return     Metric `json:"return"`
	Volatility Metric `json:"volatility"`
	Direction  string `json:"direction"`
	Strength   string `json:"strength"`
	SMASignal  string `json:"sma_signal"`
}

// RiskResponse represents the risk API response.
type RiskResponse struct {
	Profile RiskProfile `json:"profile"`
	Trends  []Trend     `json:"trends"`
}

// RiskCmd creates the risk command.
func RiskCmd() *cobra.Command {
	var windowDays int
	var riskFreeRate float64

	cmd := &cobra.Command{
		Use:   "risk <symbol>",
		Short: "Show the risk profile for a symbol",
		Long:  "Computes volatility, VaR, Sharpe, max drawdown, and beta over the stored price series.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRisk(cmd, args[0], windowDays, riskFreeRate, cmd.Flags().Changed("rate"), outputJSON)
		},
	}

	cmd.Flags().IntVar(&windowDays, "window-days", 0, "Risk window in trading days (default: daemon setting)")
	cmd.Flags().Float64Var(&riskFreeRate, "rate", 0, "Annualized risk-free rate override")

	return cmd
}

func runRisk(cmd *cobra.Command, symbol string, windowDays int, riskFreeRate float64, rateSet, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if windowDays > 0 {
		query.Set("window_days", strconv.Itoa(windowDays))
	}
	if rateSet {
		query.Set("risk_free_rate", strconv.FormatFloat(riskFreeRate, 'f', -1, 64))
	}

	path := "/v1/symbols/" + url.PathEscape(symbol) + "/risk"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("risk request failed: %w", err)
	}

	var riskResp RiskResponse
	if err := json.Unmarshal(resp.Data, &riskResp); err != nil {
		return fmt.Errorf("failed to parse risk response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(riskResp, "", "  ")
		fmt.Println(string(output))
	} else {
		renderRiskProfile(riskResp.Profile)
		renderTrends(riskResp.Trends)
	}

	return nil
}

func renderRiskProfile(p RiskProfile) {
	fmt.Printf("Risk profile for %s (%d-day window", p.Symbol, p.WindowDays)
	if p.WindowStart != "" && p.WindowEnd != "" {
		fmt.Printf(", %s to %s", p.WindowStart, p.WindowEnd)
	}
	fmt.Printf(", %d observations)\n", p.Observations)
	fmt.Printf("  Level:        %s\n", p.Level)
	fmt.Printf("  Volatility:   %s\n", p.Volatility)
	fmt.Printf("  VaR (95%%):    %s\n", p.VaR95)
	fmt.Printf("  Sharpe:       %s\n", p.Sharpe)
	fmt.Printf("  Max drawdown: %s\n", p.MaxDrawdown)
	fmt.Printf("  Beta:         %s\n", p.Beta)
}

func renderTrends(trends []Trend) {
	if len(trends) == 0 {
		return
	}
	fmt.Println("Trends:")
	for _, t := range trends {
		fmt.Printf("  %3dd  %-7s %-8s sma=%-8s return=%s volatility=%s\n",
			t.PeriodDays, t.Direction, t.Strength, t.SMASignal, t.Return, t.Volatility)
	}
}
