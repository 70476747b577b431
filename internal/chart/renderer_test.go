package chart

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"

	"freeco-signals/internal/domain"
)

func TestRenderSignalHistory(t *testing.T) {
	renderer := NewRenderer()
	recs := buildTestSignals(40)

	data, err := renderer.RenderSignalHistory(recs)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != defaultChartWidth || b.Dy() != defaultChartHeight {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestRenderSignalHistoryFlatPrice(t *testing.T) {
	recs := buildTestSignals(3)
	for i := range recs {
		recs[i].Signal.Features.Price = 1
	}
	if _, err := NewRenderer().RenderSignalHistory(recs); err != nil {
		t.Fatalf("flat series should render, got %v", err)
	}
}

func TestRenderSignalHistoryNeedsTwoSignals(t *testing.T) {
	_, err := NewRenderer().RenderSignalHistory(buildTestSignals(1))
	if !errors.Is(err, ErrNotEnoughSignals) {
		t.Fatalf("expected ErrNotEnoughSignals, got %v", err)
	}
}

func TestNormalizeSignalsOrdersOldestFirst(t *testing.T) {
	recs := buildTestSignals(5)
	// newest first, as the history APIs return them
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	out := normalizeSignals(recs)
	for i := 1; i < len(out); i++ {
		if out[i].Signal.Timestamp < out[i-1].Signal.Timestamp {
			t.Fatalf("expected ascending timestamps, got %d before %d", out[i-1].Signal.Timestamp, out[i].Signal.Timestamp)
		}
	}
}

func buildTestSignals(count int) []domain.SignalRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	actions := []domain.Action{domain.ActionBuy, domain.ActionHold, domain.ActionSell}
	out := make([]domain.SignalRecord, 0, count)
	price := 1.0
	for i := 0; i < count; i++ {
		price += float64((i%7)-3) * 0.002
		out = append(out, domain.SignalRecord{
			ID:   int64(i + 1),
			Pair: "FREECO/CHF",
			Signal: domain.Signal{
				Timestamp: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
				Features: domain.SignalFeatures{
					Price:      price,
					Action:     actions[i%len(actions)],
					Confidence: 0.5 + float64(i%5)*0.1,
				},
			},
		})
	}
	return out
}
