package publish

import (
	"encoding/json"
	"time"

	"freeco-signals/internal/domain"
)

// Shape builds the wire signal for one cycle. targetPct is already a fraction.
func Shape(snap domain.MarketSnapshot, result domain.AnalysisResult, targetPct float64, now time.Time) domain.Signal {
	return domain.Signal{
		Timestamp:     now.UnixMilli(),
		Probabilities: result.Probabilities.Ordered(),
		TargetPct:     targetPct,
		Features: domain.SignalFeatures{
			Price:      snap.Price,
			Volume:     snap.Volume24h,
			Change:     snap.Change24h,
			Action:     result.Action,
			Confidence: result.Confidence,
			Reasoning:  result.Reasoning,
		},
	}
}

// Encode is the canonical JSON encoding of a signal.
func Encode(sig domain.Signal) ([]byte, error) {
	return json.Marshal(sig)
}
