package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrNoProvider is returned by Validate when neither AI provider has a credential.
var ErrNoProvider = errors.New("no AI provider credential configured: set NOVITA_API_KEY or MINIMAX_API_KEY")

const topicSuffix = "freeco_chf/ML_SIGNALS"

type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

type Config struct {
	MQTTBroker      string
	MQTTPort        int
	MQTTTopicPrefix string
	MQTTClientID    string

	Primary       ProviderConfig
	Secondary     ProviderConfig
	AITimeoutSecs int
	AIMaxTokens   int
	AITemperature float64

	TradingPair        string
	CoinGeckoID        string
	CoinGeckoVsCurr    string
	CoinGeckoAPIKey    string
	SignalIntervalSecs int
	MinProfitThreshold float64

	PublishSinks []string
	KafkaBrokers []string
	KafkaTopic   string

	DatabaseURL         string
	SignalRetentionDays int
	RedisURL            string
	TelegramBotToken    string
	HTTPPort            int

	JupiterAPIURL   string
	WalletPublicKey string

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
	// MCPSignalServerURL, when set, makes the MCP server trigger cycles on the
	// signal server instead of running its own.
	MCPSignalServerURL string
}

func Load() *Config {
	cfg := &Config{
		MQTTBroker:       strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTTopicPrefix:  strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")),
		MQTTClientID:     strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID")),
		CoinGeckoAPIKey:  os.Getenv("COINGECKO_API_KEY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WalletPublicKey:  strings.TrimSpace(os.Getenv("WALLET_PUBLIC_KEY")),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.MQTTBroker == "" {
		cfg.MQTTBroker = "localhost"
	}
	cfg.MQTTPort = envInt("MQTT_PORT", 1883)
	if cfg.MQTTTopicPrefix == "" {
		cfg.MQTTTopicPrefix = "hbot/predictions"
	}
	cfg.MQTTTopicPrefix = strings.TrimRight(cfg.MQTTTopicPrefix, "/")
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = "freeco-signal-generator"
	}

	cfg.Primary = ProviderConfig{
		Name:    "deepseek",
		BaseURL: envString("DEEPSEEK_API_URL", "https://api.novita.ai/openai/v1"),
		APIKey:  strings.TrimSpace(os.Getenv("NOVITA_API_KEY")),
		Model:   envString("DEEPSEEK_MODEL", "deepseek/deepseek-r1"),
	}
	cfg.Secondary = ProviderConfig{
		Name:    "minimax",
		BaseURL: envString("MINIMAX_API_URL", "https://api.minimax.io/v1"),
		APIKey:  strings.TrimSpace(os.Getenv("MINIMAX_API_KEY")),
		Model:   envString("MINIMAX_MODEL", "MiniMax-M2"),
	}
	if cfg.Primary.APIKey == "" {
		log.Println("Warning: NOVITA_API_KEY not set, primary provider disabled")
	}
	if cfg.Secondary.APIKey == "" {
		log.Println("Warning: MINIMAX_API_KEY not set, secondary provider disabled")
	}

	cfg.AITimeoutSecs = envInt("AI_TIMEOUT_SECS", 30)
	cfg.AIMaxTokens = envInt("AI_MAX_TOKENS", 1000)

	cfg.AITemperature = 0.7
	if v := strings.TrimSpace(os.Getenv("AI_TEMPERATURE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 && n <= 2 {
			cfg.AITemperature = n
		}
	}

	cfg.TradingPair = envString("TRADING_PAIR", "FREECO/CHF")
	cfg.CoinGeckoID = envString("COINGECKO_ID", "freeco-dao")
	cfg.CoinGeckoVsCurr = strings.ToLower(envString("COINGECKO_VS", "chf"))
	cfg.SignalIntervalSecs = envInt("SIGNAL_INTERVAL_SECS", 60)

	cfg.MinProfitThreshold = 0.5
	if v := strings.TrimSpace(os.Getenv("MIN_PROFIT_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.MinProfitThreshold = n
		}
	}

	cfg.PublishSinks = parseSinks(os.Getenv("PUBLISH_SINKS"))
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = envString("KAFKA_TOPIC", "freeco.ml_signals")
	if hasSink(cfg.PublishSinks, "kafka") && len(cfg.KafkaBrokers) == 0 {
		log.Println("Warning: kafka sink requested but KAFKA_BROKERS not set, dropping kafka sink")
		cfg.PublishSinks = withoutSink(cfg.PublishSinks, "kafka")
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, signal history limited to redis")
	}
	cfg.SignalRetentionDays = envInt("SIGNAL_RETENTION_DAYS", 30)
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}

	cfg.HTTPPort = envInt("PORT", 8080)
	cfg.JupiterAPIURL = strings.TrimRight(envString("JUPITER_API_URL", "https://api.jup.ag/swap/v1"), "/")

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")
	cfg.MCPHTTPBind = envString("MCP_HTTP_BIND", "127.0.0.1")
	cfg.MCPHTTPPort = envInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = envInt("MCP_REQUEST_TIMEOUT_SECS", 5)
	cfg.MCPRateLimitPerMin = envInt("MCP_RATE_LIMIT_PER_MIN", 60)
	cfg.MCPSignalServerURL = strings.TrimRight(strings.TrimSpace(os.Getenv("MCP_SIGNAL_SERVER_URL")), "/")

	return cfg
}

// Validate reports configuration that makes the pipeline unusable.
func (c *Config) Validate() error {
	if c.Primary.APIKey == "" && c.Secondary.APIKey == "" {
		return ErrNoProvider
	}
	return nil
}

// SignalTopic is the fixed prediction topic for the configured prefix.
func (c *Config) SignalTopic() string {
	return c.MQTTTopicPrefix + "/" + topicSuffix
}

func (c *Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

func (c *Config) SignalInterval() time.Duration {
	return time.Duration(c.SignalIntervalSecs) * time.Second
}

func (c *Config) SignalRetention() time.Duration {
	return time.Duration(c.SignalRetentionDays) * 24 * time.Hour
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSecs) * time.Second
}

// TargetPct converts the percent threshold into the fraction carried by signals.
func (c *Config) TargetPct() float64 {
	return c.MinProfitThreshold / 100
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseSinks(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"mqtt"}
	}

	out := make([]string, 0, 2)
	seen := make(map[string]struct{}, 2)
	for _, part := range splitList(raw) {
		sink := strings.ToLower(part)
		if sink != "mqtt" && sink != "kafka" {
			log.Printf("Warning: unsupported publish sink %q ignored", part)
			continue
		}
		if _, ok := seen[sink]; ok {
			continue
		}
		seen[sink] = struct{}{}
		out = append(out, sink)
	}
	if len(out) == 0 {
		return []string{"mqtt"}
	}
	return out
}

func hasSink(sinks []string, name string) bool {
	for _, s := range sinks {
		if s == name {
			return true
		}
	}
	return false
}

func withoutSink(sinks []string, name string) []string {
	out := make([]string, 0, len(sinks))
	for _, s := range sinks {
		if s != name {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"mqtt"}
	}
	return out
}
