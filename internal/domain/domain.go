package domain

import (
	"strings"
	"time"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

var SupportedActions = []Action{ActionBuy, ActionSell, ActionHold}

func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// ParseAction is case-insensitive; use IsValid for the exact-match check
// applied to provider replies.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	return a, a.IsValid()
}

const (
	SnapshotSourceLive      = "coingecko"
	SnapshotSourceCache     = "cache"
	SnapshotSourceSynthetic = "synthetic"
)

// MarketSnapshot is a point-in-time read of one trading pair.
type MarketSnapshot struct {
	Pair      string    `json:"pair"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume_24h"`
	Change24h float64   `json:"change_24h"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type Probabilities struct {
	Short   float64 `json:"short"`
	Neutral float64 `json:"neutral"`
	Long    float64 `json:"long"`
}

func (p Probabilities) Sum() float64 {
	return p.Short + p.Neutral + p.Long
}

// Ordered returns the wire order [short, neutral, long].
func (p Probabilities) Ordered() [3]float64 {
	return [3]float64{p.Short, p.Neutral, p.Long}
}

type AnalysisResult struct {
	Action        Action        `json:"action"`
	Confidence    float64       `json:"confidence"`
	Reasoning     string        `json:"reasoning"`
	Probabilities Probabilities `json:"probabilities"`
}

const FallbackReasoning = "AI analysis failed, defaulting to HOLD"

// FallbackAnalysis is the neutral result used when every provider failed.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		Action:     ActionHold,
		Confidence: 0.5,
		Reasoning:  FallbackReasoning,
		Probabilities: Probabilities{
			Short:   0.33,
			Neutral: 0.34,
			Long:    0.33,
		},
	}
}

// Signal is the message published to the prediction topic.
type Signal struct {
	Timestamp     int64          `json:"timestamp"`
	Probabilities [3]float64     `json:"probabilities"`
	TargetPct     float64        `json:"target_pct"`
	Features      SignalFeatures `json:"features"`
}

type SignalFeatures struct {
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	Change     float64 `json:"change"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SignalRecord is the history entry kept for every published signal.
type SignalRecord struct {
	ID           int64     `json:"id"`
	Pair         string    `json:"pair"`
	Topic        string    `json:"topic"`
	Provider     string    `json:"provider"`
	Signal       Signal    `json:"signal"`
	Published    bool      `json:"published"`
	PublishError string    `json:"publish_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SignalFilter struct {
	Action Action
	Limit  int
}

// Quote is the subset of a Jupiter quote the API exposes.
type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	SlippageBps    int    `json:"slippageBps"`
}

type TradeStatus string

const (
	TradeStatusPrepared TradeStatus = "prepared"
	TradeStatusFailed   TradeStatus = "failed"
)

type Trade struct {
	ID          int64       `json:"id"`
	InputMint   string      `json:"inputMint"`
	OutputMint  string      `json:"outputMint"`
	Amount      uint64      `json:"amount"`
	OutAmount   string      `json:"outAmount,omitempty"`
	Status      TradeStatus `json:"status"`
	Transaction string      `json:"swapTransaction,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}
