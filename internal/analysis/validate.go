package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"freeco-signals/internal/domain"
)

// ErrNoJSON means the reply had no brace-delimited substring.
var ErrNoJSON = errors.New("no JSON object found in response")

// sumEpsilon is the tolerance before a probability triple is renormalized.
const sumEpsilon = 1e-6

// ValidationError reports a structurally invalid analysis result.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid analysis result: " + e.Reason
	}
	return fmt.Sprintf("invalid analysis result: %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// numeric accepts a JSON number or a numeric string.
type numeric float64

func (n *numeric) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %s", string(b))
	}
	*n = numeric(f)
	return nil
}

type rawProbabilities struct {
	Short   *numeric `json:"short" validate:"required"`
	Neutral *numeric `json:"neutral" validate:"required"`
	Long    *numeric `json:"long" validate:"required"`
}

type rawResult struct {
	Action        string            `json:"action" validate:"required,oneof=BUY SELL HOLD"`
	Confidence    *numeric          `json:"confidence" validate:"required"`
	Reasoning     string            `json:"reasoning"`
	Probabilities *rawProbabilities `json:"probabilities" validate:"required"`
}

// Extract returns the substring from the first '{' through the last '}'.
func Extract(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// Validate extracts, decodes and checks a provider reply. Confidence and each
// probability are clamped to [0,1]; the triple is renormalized when its sum is
// off by more than sumEpsilon. It is a pure function of raw.
func Validate(raw string) (domain.AnalysisResult, error) {
	body, err := Extract(raw)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	var parsed rawResult
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analysis json: %w", err)
	}

	if err := validate.Struct(parsed); err != nil {
		return domain.AnalysisResult{}, toValidationError(err)
	}

	probs := domain.Probabilities{
		Short:   clamp01(float64(*parsed.Probabilities.Short)),
		Neutral: clamp01(float64(*parsed.Probabilities.Neutral)),
		Long:    clamp01(float64(*parsed.Probabilities.Long)),
	}
	sum := probs.Sum()
	if sum == 0 {
		return domain.AnalysisResult{}, &ValidationError{
			Fields: []string{"probabilities"},
			Reason: "all probabilities are zero",
		}
	}
	if math.Abs(sum-1) > sumEpsilon {
		probs = domain.Probabilities{
			Short:   probs.Short / sum,
			Neutral: probs.Neutral / sum,
			Long:    probs.Long / sum,
		}
	}

	return domain.AnalysisResult{
		Action:        domain.Action(parsed.Action),
		Confidence:    clamp01(float64(*parsed.Confidence)),
		Reasoning:     parsed.Reasoning,
		Probabilities: probs,
	}, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Reason: err.Error()}
	}

	fields := make([]string, 0, len(verrs))
	tags := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.TrimPrefix(fe.Namespace(), "rawResult."))
		tags = append(tags, fe.Tag())
	}
	return &ValidationError{
		Fields: fields,
		Reason: "failed " + strings.Join(tags, ", "),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
