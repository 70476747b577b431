package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"freeco-signals/internal/domain"
)

const noisyReply = `noise {"action":"BUY","confidence":0.8,"reasoning":"x","probabilities":{"short":0.1,"neutral":0.1,"long":0.8}} trailing`

func TestExtractGreedyOuterBraces(t *testing.T) {
	got, err := Extract(`text {"a":{"b":1}} more } end`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":{"b":1}} more }` {
		t.Fatalf("unexpected extraction %q", got)
	}
}

func TestExtractNoJSON(t *testing.T) {
	for _, raw := range []string{"", "no braces here", "} reversed {"} {
		if _, err := Extract(raw); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("expected ErrNoJSON for %q, got %v", raw, err)
		}
	}
}

func TestValidateEmbeddedObject(t *testing.T) {
	got, err := Validate(noisyReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.AnalysisResult{
		Action:        domain.ActionBuy,
		Confidence:    0.8,
		Reasoning:     "x",
		Probabilities: domain.Probabilities{Short: 0.1, Neutral: 0.1, Long: 0.8},
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	first, err1 := Validate(noisyReply)
	second, err2 := Validate(noisyReply)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("expected identical results, got %s and %s", a, b)
	}
}

func TestValidateActionIsCaseSensitive(t *testing.T) {
	_, err := Validate(`{"action":"buy","confidence":0.5,"reasoning":"","probabilities":{"short":0.2,"neutral":0.3,"long":0.5}}`)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(verr.Fields, []string{"action"}) {
		t.Fatalf("expected action field, got %+v", verr.Fields)
	}
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"no action", `{"confidence":0.5,"probabilities":{"short":0.2,"neutral":0.3,"long":0.5}}`, "action"},
		{"no confidence", `{"action":"SELL","probabilities":{"short":0.2,"neutral":0.3,"long":0.5}}`, "confidence"},
		{"null confidence", `{"action":"SELL","confidence":null,"probabilities":{"short":0.2,"neutral":0.3,"long":0.5}}`, "confidence"},
		{"no probabilities", `{"action":"SELL","confidence":0.5}`, "probabilities"},
		{"no long", `{"action":"SELL","confidence":0.5,"probabilities":{"short":0.2,"neutral":0.3}}`, "probabilities.long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %s in %+v", tt.field, verr.Fields)
			}
		})
	}
}

func TestValidateRejectsNonNumeric(t *testing.T) {
	_, err := Validate(`{"action":"HOLD","confidence":"high","probabilities":{"short":0.2,"neutral":0.3,"long":0.5}}`)
	if err == nil || !strings.Contains(err.Error(), "decode analysis json") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestValidateAcceptsNumericStrings(t *testing.T) {
	got, err := Validate(`{"action":"HOLD","confidence":"0.6","reasoning":"r","probabilities":{"short":"0.2","neutral":0.3,"long":0.5}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 0.6 || got.Probabilities.Short != 0.2 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateClampsConfidence(t *testing.T) {
	got, err := Validate(`{"action":"BUY","confidence":1.7,"probabilities":{"short":0.1,"neutral":0.1,"long":0.8}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected clamped confidence 1, got %v", got.Confidence)
	}

	got, err = Validate(`{"action":"BUY","confidence":-0.2,"probabilities":{"short":0.1,"neutral":0.1,"long":0.8}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 0 {
		t.Fatalf("expected clamped confidence 0, got %v", got.Confidence)
	}
}

func TestValidateRenormalizesProbabilities(t *testing.T) {
	got, err := Validate(`{"action":"SELL","confidence":0.7,"probabilities":{"short":2,"neutral":1,"long":1}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// short clamps to 1 before renormalizing over a sum of 3
	if math.Abs(got.Probabilities.Sum()-1) > sumEpsilon {
		t.Fatalf("expected probabilities to sum to 1, got %v", got.Probabilities.Sum())
	}
	if math.Abs(got.Probabilities.Short-1.0/3) > 1e-9 {
		t.Fatalf("unexpected short probability %v", got.Probabilities.Short)
	}

	got, err = Validate(`{"action":"SELL","confidence":0.7,"probabilities":{"short":0.2,"neutral":0.2,"long":0.2}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.Probabilities.Neutral-1.0/3) > 1e-9 {
		t.Fatalf("expected equal thirds, got %+v", got.Probabilities)
	}
}

func TestValidateLeavesNearSimplexUntouched(t *testing.T) {
	got, err := Validate(`{"action":"HOLD","confidence":0.5,"probabilities":{"short":0.33,"neutral":0.34,"long":0.33}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Probabilities != (domain.Probabilities{Short: 0.33, Neutral: 0.34, Long: 0.33}) {
		t.Fatalf("expected probabilities unchanged, got %+v", got.Probabilities)
	}
}

func TestValidateRejectsZeroProbabilities(t *testing.T) {
	_, err := Validate(`{"action":"HOLD","confidence":0.5,"probabilities":{"short":0,"neutral":-1,"long":0}}`)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
