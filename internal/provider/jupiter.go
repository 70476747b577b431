package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

const DefaultSlippageBps = 50

var ErrNoWallet = errors.New("wallet public key not configured")

// JupiterQuote pairs the exposed fields with the raw body required by /swap.
type JupiterQuote struct {
	domain.Quote
	Raw json.RawMessage
}

type SwapResult struct {
	Transaction          string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// JupiterClient wraps the Jupiter swap v1 quote and swap endpoints. Swap only
// builds an unsigned transaction for the configured wallet.
type JupiterClient struct {
	httpClient *http.Client
	baseURL    string
	wallet     string
	tracer     trace.Tracer
}

func NewJupiterClient(tracer trace.Tracer, baseURL, wallet string, httpClient *http.Client) *JupiterClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &JupiterClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		wallet:     wallet,
		tracer:     tracer,
	}
}

func (c *JupiterClient) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (JupiterQuote, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.quote")
	defer span.End()

	if slippageBps <= 0 {
		slippageBps = DefaultSlippageBps
	}
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return JupiterQuote{}, fmt.Errorf("build quote request: %w", err)
	}
	raw, err := c.do(req)
	if err != nil {
		span.RecordError(err)
		return JupiterQuote{}, fmt.Errorf("jupiter quote: %w", err)
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return JupiterQuote{}, fmt.Errorf("decode quote: %w", err)
	}
	if quote.OutAmount == "" {
		return JupiterQuote{}, errors.New("jupiter quote: empty outAmount")
	}
	return JupiterQuote{Quote: quote, Raw: raw}, nil
}

func (c *JupiterClient) Swap(ctx context.Context, quote JupiterQuote) (SwapResult, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.swap")
	defer span.End()

	if c.wallet == "" {
		return SwapResult{}, ErrNoWallet
	}

	payload, err := json.Marshal(map[string]any{
		"quoteResponse":    quote.Raw,
		"userPublicKey":    c.wallet,
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return SwapResult{}, fmt.Errorf("encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return SwapResult{}, fmt.Errorf("build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		span.RecordError(err)
		return SwapResult{}, fmt.Errorf("jupiter swap: %w", err)
	}

	var result SwapResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return SwapResult{}, fmt.Errorf("decode swap: %w", err)
	}
	if result.Transaction == "" {
		return SwapResult{}, errors.New("jupiter swap: empty transaction")
	}
	return result, nil
}

func (c *JupiterClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
