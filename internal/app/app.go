package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/analysis"
	"freeco-signals/internal/cache"
	"freeco-signals/internal/config"
	"freeco-signals/internal/db"
	"freeco-signals/internal/llm"
	"freeco-signals/internal/market"
	"freeco-signals/internal/metrics"
	"freeco-signals/internal/provider"
	"freeco-signals/internal/publish"
	"freeco-signals/internal/repository"
	"freeco-signals/internal/service"
)

var (
	newPostgresPoolFunc = db.NewPostgresPool
	newRedisClientFunc  = cache.NewRedisClient
	newMQTTClientFunc   = publish.NewMQTTClient
	newKafkaSinkFunc    = func(brokers []string, topic string) (publish.Sink, error) {
		return publish.NewKafkaSink(brokers, topic)
	}
)

// Option adjusts how Build wires the shared clients.
type Option func(*buildOptions)

type buildOptions struct {
	clientSuffix string
}

// WithMQTTClientSuffix appends "-suffix" to MQTT_CLIENT_ID. A broker drops the
// older session when a second client connects with the same ID, so every
// binary other than the signal server needs its own suffix.
func WithMQTTClientSuffix(suffix string) Option {
	return func(o *buildOptions) {
		o.clientSuffix = strings.TrimSpace(suffix)
	}
}

// Pipeline holds the clients built once at startup and the services that use them.
// Optional stores are nil when their backend is unavailable.
type Pipeline struct {
	Signals    *service.SignalService
	Trades     *service.TradeService
	SignalRepo *repository.SignalRepository
	Store      *cache.Store

	publisher *publish.Publisher
	pool      *pgxpool.Pool
	redis     *redis.Client
}

// Build constructs the full signal pipeline from cfg. Postgres and Redis are
// optional: connection failures are logged and the pipeline runs without them.
// Only migration failures are returned.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer, recorder *metrics.Recorder, opts ...Option) (*Pipeline, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pipeline{}

	pool, err := newPostgresPoolFunc(ctx, cfg.DatabaseURL)
	switch {
	case errors.Is(err, db.ErrNoDSN):
	case err != nil:
		log.Printf("postgres unavailable, running without signal history: %v", err)
	default:
		p.pool = pool
	}

	var tradeRepo service.TradeRepository
	if p.pool != nil {
		signalRepo := repository.NewSignalRepository(p.pool, tracer)
		if err := signalRepo.RunMigrations(ctx); err != nil {
			p.Close()
			return nil, err
		}
		trades := repository.NewTradeRepository(p.pool, tracer)
		if err := trades.RunMigrations(ctx); err != nil {
			p.Close()
			return nil, err
		}
		p.SignalRepo = signalRepo
		tradeRepo = trades
	}

	if client, err := newRedisClientFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("redis unavailable, running without signal cache: %v", err)
	} else {
		p.redis = client
		p.Store = cache.NewStore(client)
	}

	var snapshots market.SnapshotCache
	if p.Store != nil {
		snapshots = p.Store
	}
	coingecko := provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoID, cfg.CoinGeckoVsCurr,
		provider.WithCoinGeckoAPIKey(cfg.CoinGeckoAPIKey))
	producer := market.NewProducer(tracer, cfg.TradingPair, coingecko, snapshots, recorder)

	primary := newCompleter(tracer, cfg, cfg.Primary)
	secondary := newCompleter(tracer, cfg, cfg.Secondary)
	analyzer := analysis.NewAnalyzer(tracer, recorder, primary, secondary)

	p.publisher = publish.NewPublisher(tracer, recorder, cfg.TargetPct(), buildSinks(cfg, mqttClientID(cfg.MQTTClientID, o.clientSuffix))...)

	p.Signals = service.NewSignalService(tracer, producer, analyzer, p.publisher, service.Settings{
		Pair:      cfg.TradingPair,
		Topic:     cfg.SignalTopic(),
		Providers: configuredProviders(cfg),
		Sinks:     p.publisher.SinkNames(),
		Interval:  cfg.SignalInterval(),
		TargetPct: cfg.TargetPct(),
	}, recorder)
	if p.SignalRepo != nil {
		p.Signals.WithRepository(p.SignalRepo)
	}
	if p.Store != nil {
		p.Signals.WithCache(p.Store)
	}

	jupiter := provider.NewJupiterClient(tracer, cfg.JupiterAPIURL, cfg.WalletPublicKey, nil)
	p.Trades = service.NewTradeService(tracer, jupiter, tradeRepo)

	return p, nil
}

// Close disconnects the sinks first so the broker sees a clean disconnect,
// then releases the stores.
func (p *Pipeline) Close() {
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			log.Printf("error closing publisher: %v", err)
		}
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}
	if p.pool != nil {
		p.pool.Close()
	}
}

func newCompleter(tracer trace.Tracer, cfg *config.Config, pc config.ProviderConfig) llm.Completer {
	return llm.NewOpenAIClient(tracer, llm.Options{
		Name:        pc.Name,
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey,
		Model:       pc.Model,
		Timeout:     cfg.AITimeout(),
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
	})
}

func configuredProviders(cfg *config.Config) []string {
	out := make([]string, 0, 2)
	for _, pc := range []config.ProviderConfig{cfg.Primary, cfg.Secondary} {
		if pc.APIKey != "" {
			out = append(out, pc.Name)
		}
	}
	return out
}

func mqttClientID(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

func buildSinks(cfg *config.Config, clientID string) []publish.Sink {
	sinks := make([]publish.Sink, 0, len(cfg.PublishSinks))
	for _, name := range cfg.PublishSinks {
		switch name {
		case "mqtt":
			client, err := newMQTTClientFunc(publish.MQTTOptions{
				BrokerURL: cfg.BrokerURL(),
				ClientID:  clientID,
			})
			if err != nil {
				log.Printf("MQTT connect failed, will keep retrying: %v", err)
			}
			sinks = append(sinks, publish.NewMQTTSink(client, cfg.SignalTopic()))
		case "kafka":
			sink, err := newKafkaSinkFunc(cfg.KafkaBrokers, cfg.KafkaTopic)
			if err != nil {
				log.Printf("kafka sink disabled: %v", err)
				continue
			}
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
