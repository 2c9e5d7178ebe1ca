package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfolio-chat/internal/integrations/chatapi"
	"portfolio-chat/internal/usecase"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// MaxHistoryLimit is the most messages the chat history may hold at rest.
const MaxHistoryLimit = usecase.DefaultHistoryLimit

// ValidateHistoryLimit accepts limits from 1 to MaxHistoryLimit.
func ValidateHistoryLimit(n int) error {
	if n < 1 || n > MaxHistoryLimit {
		return fmt.Errorf("%d is outside 1..%d", n, MaxHistoryLimit)
	}
	return nil
}

// Config aggregates the client settings.
type Config struct {
	Chat  ChatConfig
	Store StoreConfig
	Log   LogConfig
	// ParamPrefix enables endpoint lookup in SSM when set.
	ParamPrefix string
}

// ChatConfig describes how replies are produced.
type ChatConfig struct {
	Host              string
	LocalBaseURL      string
	ProductionBaseURL string
	FallbackURLs      []string
	Offline           bool
	RequestTimeout    time.Duration
	ThinkDelay        time.Duration
	FocusDelay        time.Duration
	Welcome           string
	HistoryLimit      int
}

// PrimaryBaseURL applies the local/production selection to Host.
func (c ChatConfig) PrimaryBaseURL() string {
	return chatapi.ResolveBaseURL(c.Host, c.LocalBaseURL, c.ProductionBaseURL)
}

// Endpoints returns the ordered chat endpoint candidates.
func (c ChatConfig) Endpoints() []string {
	return chatapi.Candidates(c.PrimaryBaseURL(), c.FallbackURLs...)
}

// StoreConfig selects the persisted state backend.
type StoreConfig struct {
	Backend     string
	Path        string
	Table       string
	Namespace   string
	RedisAddr   string
	RedisPrefix string

	// PathFromEnv records that Path came from STORE_PATH rather than the
	// backend default.
	PathFromEnv bool
}

// LogConfig describes where diagnostics go.
type LogConfig struct {
	File  string
	Level slog.Level
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}
	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}
	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Chat:        chat,
		Store:       store,
		Log:         logCfg,
		ParamPrefix: strings.TrimSpace(os.Getenv("PARAM_PREFIX")),
	}, nil
}

func loadChatConfig() (ChatConfig, error) {
	host := strings.TrimSpace(os.Getenv("CHAT_HOST"))
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}

	production := getEnvOrDefault("CHAT_PRODUCTION_BASE_URL", chatapi.DefaultProductionBaseURL)

	// "none" disables the fallback attempt.
	fallbacks := []string{production}
	if raw := strings.TrimSpace(os.Getenv("CHAT_FALLBACK_URLS")); raw != "" {
		fallbacks = nil
		if !strings.EqualFold(raw, "none") {
			fallbacks = splitList(raw)
		}
	}

	offline, err := parseBoolEnv("CHAT_OFFLINE", false)
	if err != nil {
		return ChatConfig{}, err
	}
	timeout, err := parseDurationEnv("CHAT_REQUEST_TIMEOUT", 0)
	if err != nil {
		return ChatConfig{}, err
	}
	think, err := parseDurationEnv("CHAT_THINK_DELAY", 600*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	focus, err := parseDurationEnv("CHAT_FOCUS_DELAY", 150*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	limit, err := parseIntEnv("CHAT_HISTORY_LIMIT", MaxHistoryLimit)
	if err != nil {
		return ChatConfig{}, err
	}
	if err := ValidateHistoryLimit(limit); err != nil {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_HISTORY_LIMIT value: %w", err)
	}

	return ChatConfig{
		Host:              host,
		LocalBaseURL:      getEnvOrDefault("CHAT_LOCAL_BASE_URL", chatapi.DefaultLocalBaseURL),
		ProductionBaseURL: production,
		FallbackURLs:      fallbacks,
		Offline:           offline,
		RequestTimeout:    timeout,
		ThinkDelay:        think,
		FocusDelay:        focus,
		Welcome:           strings.TrimSpace(os.Getenv("CHAT_WELCOME")),
		HistoryLimit:      limit,
	}, nil
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendFile))
	cfg := StoreConfig{
		Backend:     backend,
		Path:        strings.TrimSpace(os.Getenv("STORE_PATH")),
		Table:       strings.TrimSpace(os.Getenv("STATE_TABLE")),
		Namespace:   strings.TrimSpace(os.Getenv("STORE_NAMESPACE")),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPrefix: getEnvOrDefault("REDIS_PREFIX", "portfolio-chat:"),
	}
	cfg.PathFromEnv = cfg.Path != ""
	if err := cfg.Normalize(); err != nil {
		return StoreConfig{}, err
	}
	return cfg, nil
}

// Normalize validates the backend choice and fills in the default path.
// It is called again after command-line flags override the environment.
func (c *StoreConfig) Normalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if c.Path == "" {
			c.Path = defaultStateDir()
		}
	case BackendSQLite:
		if c.Path == "" {
			c.Path = filepath.Join(defaultStateDir(), "state.db")
		}
	case BackendDynamoDB:
		if c.Table == "" {
			return errors.New("STATE_TABLE is required for the dynamodb store backend")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND value %q", c.Backend)
	}
	return nil
}

func loadLogConfig() (LogConfig, error) {
	var level slog.Level
	raw := getEnvOrDefault("CHAT_LOG_LEVEL", "info")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return LogConfig{}, fmt.Errorf("invalid CHAT_LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{
		File:  strings.TrimSpace(os.Getenv("CHAT_LOG_FILE")),
		Level: level,
	}, nil
}

func defaultStateDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "portfolio-chat")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "portfolio-chat")
	}
	return filepath.Join(os.TempDir(), "portfolio-chat")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
