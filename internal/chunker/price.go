package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/risk"
)

const summaryDateLayout = "2006-01-02"

// chunkPrices summarizes a price document into one chunk per trailing
// window. Windows that resolve to the same span of data collapse into one
// chunk, so a short series does not repeat itself at 30/90/365 days.
func (c *Chunker) chunkPrices(doc *domain.Document) ([]domain.Chunk, error) {
	series := domain.NewPriceSeries(doc.Symbol)
	for _, p := range doc.Points {
		if err := series.Append(p); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid price document", err)
		}
	}
	if series.Len() == 0 {
		return nil, nil
	}

	end := series.End()
	seen := make(map[string]bool, len(c.cfg.WindowDays))
	chunks := make([]domain.Chunk, 0, len(c.cfg.WindowDays))

	for _, days := range c.cfg.WindowDays {
		if days <= 0 {
			continue
		}
		w := series.Window(end.AddDate(0, 0, -(days-1)), end)
		if w.Len() == 0 {
			continue
		}
		span := w.Start().Format(summaryDateLayout) + "|" + w.End().Format(summaryDateLayout)
		if seen[span] {
			continue
		}
		seen[span] = true

		ordinal := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:          domain.NewChunkID(doc.ID, ordinal),
			DocumentID:  doc.ID,
			Symbol:      doc.Symbol,
			Source:      domain.SourceTypePriceSeries,
			Ordinal:     ordinal,
			WindowStart: w.Start(),
			WindowEnd:   w.End(),
			Text:        summarizeWindow(w, days),
		})
	}
	return chunks, nil
}

// summarizeWindow renders the deterministic summary sentence for one window.
// Start and end closes are written in shortest round-trip notation so the
// exact values can be recovered from the text.
func summarizeWindow(w *domain.PriceSeries, days int) string {
	startClose := w.Points[0].Close
	endClose := w.Points[len(w.Points)-1].Close

	var b strings.Builder
	fmt.Fprintf(&b, "Price summary for %s over %d trailing days (%s to %s, %s): ",
		w.Symbol, days,
		w.Start().Format(summaryDateLayout), w.End().Format(summaryDateLayout),
		sessions(w.Len()))
	fmt.Fprintf(&b, "close moved from %s to %s",
		formatClose(startClose), formatClose(endClose))

	if w.Len() >= 2 {
		ret := (endClose - startClose) / startClose * 100
		vol := risk.Annualize(risk.StdDev(w.Returns())) * 100
		fmt.Fprintf(&b, ", return %+.2f%%, average close %.2f, annualized volatility %.2f%%",
			ret, risk.Mean(w.Closes()), vol)
	}

	fmt.Fprintf(&b, ", trend %s.", trendWord(startClose, endClose))
	return b.String()
}

func trendWord(start, end float64) string {
	switch {
	case end > start:
		return domain.TrendUp
	case end < start:
		return domain.TrendDown
	default:
		return domain.TrendFlat
	}
}

func sessions(n int) string {
	if n == 1 {
		return "1 session"
	}
	return fmt.Sprintf("%d sessions", n)
}

func formatClose(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WindowSummary holds the fields recoverable from a price summary sentence.
type WindowSummary struct {
	Symbol     string
	WindowDays int
	Start      time.Time
	End        time.Time
	Sessions   int
	StartClose float64
	EndClose   float64
}

var windowSummaryRe = regexp.MustCompile(
	`^Price summary for (\S+) over (\d+) trailing days ` +
		`\((\d{4}-\d{2}-\d{2}) to (\d{4}-\d{2}-\d{2}), (\d+) sessions?\): ` +
		`close moved from ([0-9eE.+-]+) to ([0-9eE.+-]+),`)

// ParseWindowSummary recovers the window fields from a summary produced by
// summarizeWindow.
func ParseWindowSummary(text string) (*WindowSummary, error) {
	m := windowSummaryRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("text is not a price window summary")
	}

	days, _ := strconv.Atoi(m[2])
	count, _ := strconv.Atoi(m[5])
	start, err := time.Parse(summaryDateLayout, m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	end, err := time.Parse(summaryDateLayout, m[4])
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	startClose, err := strconv.ParseFloat(m[6], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start close: %w", err)
	}
	endClose, err := strconv.ParseFloat(m[7], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end close: %w", err)
	}

	return &WindowSummary{
		Symbol:     m[1],
		WindowDays: days,
		Start:      start,
		End:        end,
		Sessions:   count,
		StartClose: startClose,
		EndClose:   endClose,
	}, nil
}
