package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// Timezone used to resolve time-of-day deadlines
	Timezone *time.Location

	// Browser origins allowed to call the API with credentials; "*" allows any origin without them
	AllowedOrigins []string

	Casdoor     CasdoorConfig
	Kafka       KafkaConfig
	ChangeFeed  ChangeFeedConfig
	Refresh     RefreshConfig
	Aggregation AggregationConfig
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether domain events should go to Kafka
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ChangeFeedConfig struct {
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

type RefreshConfig struct {
	HODDebounce     time.Duration
	DefaultDebounce time.Duration
}

// AggregationConfig tunes the option-count sort heuristic and the legacy text match
type AggregationConfig struct {
	AchievementKeywords []string `yaml:"achievement_keywords"`
	NumberWords         []string `yaml:"number_words"`
	LegacyTextMatch     bool     `yaml:"legacy_text_match"`
}

var DefaultAchievementKeywords = []string{
	"how many", "number of", "problems solved", "questions answered",
	"score", "points", "marks", "grade", "level", "difficulty",
	"problems", "questions", "tasks", "assignments", "exercises",
}

var DefaultNumberWords = []string{
	"none", "zero", "one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten",
}

// DefaultAggregationConfig returns the built-in heuristic settings
func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{
		AchievementKeywords: append([]string(nil), DefaultAchievementKeywords...),
		NumberWords:         append([]string(nil), DefaultNumberWords...),
		LegacyTextMatch:     true,
	}
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() (*Config, error) {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERTIFICATE"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "poll-events"),
		},
		ChangeFeed: ChangeFeedConfig{
			Channel:              getEnv("CHANGEFEED_CHANNEL", "poll_changes"),
			MinReconnectInterval: getDuration("CHANGEFEED_MIN_RECONNECT", 10*time.Second),
			MaxReconnectInterval: getDuration("CHANGEFEED_MAX_RECONNECT", time.Minute),
		},
		Refresh: RefreshConfig{
			HODDebounce:     getDuration("HOD_REFRESH_DEBOUNCE", time.Second),
			DefaultDebounce: getDuration("REFRESH_DEBOUNCE", 0),
		},
		Aggregation: DefaultAggregationConfig(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	if path := os.Getenv("AGGREGATION_CONFIG"); path != "" {
		agg, err := LoadAggregationConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Aggregation = agg
	}

	return cfg, nil
}

// LoadAggregationConfig reads a YAML file; omitted keys keep their defaults
func LoadAggregationConfig(path string) (AggregationConfig, error) {
	agg := DefaultAggregationConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return agg, fmt.Errorf("failed to read aggregation config: %w", err)
	}

	var file struct {
		AchievementKeywords []string `yaml:"achievement_keywords"`
		NumberWords         []string `yaml:"number_words"`
		LegacyTextMatch     *bool    `yaml:"legacy_text_match"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return agg, fmt.Errorf("failed to parse aggregation config: %w", err)
	}

	if len(file.AchievementKeywords) > 0 {
		agg.AchievementKeywords = file.AchievementKeywords
	}
	if len(file.NumberWords) > 0 {
		agg.NumberWords = file.NumberWords
	}
	if file.LegacyTextMatch != nil {
		agg.LegacyTextMatch = *file.LegacyTextMatch
	}

	return agg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are milliseconds
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
