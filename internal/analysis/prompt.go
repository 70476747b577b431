package analysis

import (
	"fmt"
	"strconv"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/llm"
)

const systemPrompt = "You are a professional crypto trading analyst. Always respond with valid JSON only."

const userPromptTemplate = `You are a professional crypto trading analyst. Analyze the following market data for %s:

Price: $%s
24h Volume: $%s
24h Change: %s%%

Based on this data, provide your trading recommendation in the following JSON format:
{
  "action": "BUY" | "SELL" | "HOLD",
  "confidence": 0.0-1.0,
  "reasoning": "brief explanation",
  "probabilities": {
    "short": 0.0-1.0,
    "neutral": 0.0-1.0,
    "long": 0.0-1.0
  }
}

The probabilities must sum to 1.0. Respond ONLY with valid JSON, no additional text.`

// BuildPrompt renders the chat messages for one snapshot. Output depends only on the snapshot.
func BuildPrompt(snap domain.MarketSnapshot) []llm.Message {
	user := fmt.Sprintf(userPromptTemplate,
		snap.Pair,
		strconv.FormatFloat(snap.Price, 'f', 6, 64),
		strconv.FormatFloat(snap.Volume24h, 'f', 2, 64),
		strconv.FormatFloat(snap.Change24h, 'f', 2, 64),
	)
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: user},
	}
}
