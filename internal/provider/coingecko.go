package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider reads spot price, 24h volume and 24h change from /simple/price.
type CoinGeckoProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	coinID     string
	vsCurrency string
	tracer     trace.Tracer
}

type CoinGeckoOption func(*CoinGeckoProvider)

func WithCoinGeckoBaseURL(u string) CoinGeckoOption {
	return func(p *CoinGeckoProvider) { p.baseURL = u }
}

func WithCoinGeckoAPIKey(key string) CoinGeckoOption {
	return func(p *CoinGeckoProvider) { p.apiKey = key }
}

func WithCoinGeckoHTTPClient(c *http.Client) CoinGeckoOption {
	return func(p *CoinGeckoProvider) { p.httpClient = c }
}

func NewCoinGeckoProvider(tracer trace.Tracer, coinID, vsCurrency string, opts ...CoinGeckoOption) *CoinGeckoProvider {
	p := &CoinGeckoProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultCoinGeckoURL,
		coinID:     coinID,
		vsCurrency: vsCurrency,
		tracer:     tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSnapshot fetches the current market figures for pair.
func (p *CoinGeckoProvider) GetSnapshot(ctx context.Context, pair string) (domain.MarketSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.simple-price")
	defer span.End()
	span.SetAttributes(attribute.String("coingecko.id", p.coinID))

	q := url.Values{}
	q.Set("ids", p.coinID)
	q.Set("vs_currencies", p.vsCurrency)
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("build coingecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.MarketSnapshot{}, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("coingecko returned status %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return domain.MarketSnapshot{}, err
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("decode coingecko response: %w", err)
	}

	fields, ok := body[p.coinID]
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("coingecko: no data for %s", p.coinID)
	}
	price, ok := fields[p.vsCurrency]
	if !ok || price <= 0 {
		return domain.MarketSnapshot{}, fmt.Errorf("coingecko: no %s price for %s", p.vsCurrency, p.coinID)
	}

	return domain.MarketSnapshot{
		Pair:      pair,
		Price:     price,
		Volume24h: fields[p.vsCurrency+"_24h_vol"],
		Change24h: fields[p.vsCurrency+"_24h_change"],
		Timestamp: time.Now().UTC(),
		Source:    domain.SnapshotSourceLive,
	}, nil
}
