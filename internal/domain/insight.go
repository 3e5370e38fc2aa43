package domain

import (
	"fmt"
	"time"
)

// Action represents the recommended position change
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Confidence represents how strongly the evidence supports the recommendation
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// QueryState represents the pipeline stage of one answer query. Failures
// carry the stage they occurred in.
type QueryState string

const (
	StateReceived     QueryState = "received"
	StateEmbedded     QueryState = "embedded"
	StateRetrieved    QueryState = "retrieved"
	StateRiskComputed QueryState = "risk_computed"
	StateSynthesized  QueryState = "synthesized"
	StateDone         QueryState = "done"
	StateFailed       QueryState = "failed"
)

// SupportingChunk represents one retrieved chunk cited by an insight,
// ordered by final retrieval rank
type SupportingChunk struct {
	ChunkID   string
	Source    SourceType
	Score     float64
	Sentiment float64
	WindowEnd time.Time
	Excerpt   string
}

// Recommendation represents the synthesized advice of an insight
type Recommendation struct {
	Action      Action
	Confidence  Confidence
	Rationale   []string
	RiskFactors []string
}

// Insight represents the complete answer to one query: risk metrics, trend
// statistics, supporting evidence and a recommendation
type Insight struct {
	Symbol         string
	Query          string
	GeneratedAt    time.Time
	Risk           RiskProfile
	Trends         []TrendSummary
	Supporting     []SupportingChunk
	Recommendation Recommendation
}

// QueryOptions represents per-query overrides for answer. Zero values fall
// back to configured defaults.
type QueryOptions struct {
	K              int
	RiskWindowDays int
	RiskFreeRate   *float64
	SourceTypes    []SourceType
}

// ValidateQueryOptions validates a QueryOptions instance
func ValidateQueryOptions(o QueryOptions) error {
	if o.K < 0 {
		return fmt.Errorf("k cannot be negative")
	}
	if o.RiskWindowDays < 0 {
		return fmt.Errorf("risk window cannot be negative")
	}
	for _, st := range o.SourceTypes {
		if !isValidSourceType(st) {
			return fmt.Errorf("source type is invalid: %s", st)
		}
	}
	return nil
}
