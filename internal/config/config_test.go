package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/integrations/chatapi"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHAT_HOST", "CHAT_LOCAL_BASE_URL", "CHAT_FALLBACK_URLS", "CHAT_PRODUCTION_BASE_URL", "CHAT_OFFLINE",
		"CHAT_REQUEST_TIMEOUT", "CHAT_THINK_DELAY", "CHAT_FOCUS_DELAY", "CHAT_WELCOME",
		"CHAT_HISTORY_LIMIT", "STORE_BACKEND", "STORE_PATH", "STATE_TABLE", "STORE_NAMESPACE",
		"REDIS_ADDR", "REDIS_PREFIX", "PARAM_PREFIX", "CHAT_LOG_FILE", "CHAT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HOST", "nafhan.github.io")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, chatapi.DefaultProductionBaseURL, cfg.Chat.PrimaryBaseURL())
	require.Equal(t, []string{chatapi.DefaultProductionBaseURL + "/chat"}, cfg.Chat.Endpoints())
	require.False(t, cfg.Chat.Offline)
	require.Zero(t, cfg.Chat.RequestTimeout)
	require.Equal(t, 600*time.Millisecond, cfg.Chat.ThinkDelay)
	require.Equal(t, 150*time.Millisecond, cfg.Chat.FocusDelay)
	require.Equal(t, 10, cfg.Chat.HistoryLimit)

	require.Equal(t, BackendFile, cfg.Store.Backend)
	require.Equal(t, filepath.Join("/tmp/xdg", "portfolio-chat"), cfg.Store.Path)
	require.Equal(t, slog.LevelInfo, cfg.Log.Level)
	require.Empty(t, cfg.ParamPrefix)
}

func TestLoad_LocalHostUsesLocalThenProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HOST", "localhost")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{
		chatapi.DefaultLocalBaseURL + "/chat",
		chatapi.DefaultProductionBaseURL + "/chat",
	}, cfg.Chat.Endpoints())
}

func TestLoad_ExplicitFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HOST", "example.org")
	t.Setenv("CHAT_PRODUCTION_BASE_URL", "https://primary.test")
	t.Setenv("CHAT_FALLBACK_URLS", "https://backup-a.test, ,https://backup-b.test/chat")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://primary.test/chat",
		"https://backup-a.test/chat",
		"https://backup-b.test/chat",
	}, cfg.Chat.Endpoints())
}

func TestLoad_FallbacksDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HOST", "localhost")
	t.Setenv("CHAT_FALLBACK_URLS", "none")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{chatapi.DefaultLocalBaseURL + "/chat"}, cfg.Chat.Endpoints())
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"CHAT_OFFLINE":         "maybe",
		"CHAT_REQUEST_TIMEOUT": "soon",
		"CHAT_THINK_DELAY":     "-1s",
		"CHAT_HISTORY_LIMIT":   "0",
		"STORE_BACKEND":        "floppy",
		"CHAT_LOG_LEVEL":       "loud",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_HistoryLimitAboveCapRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HISTORY_LIMIT", "11")
	_, err := Load()
	require.ErrorContains(t, err, "CHAT_HISTORY_LIMIT")

	t.Setenv("CHAT_HISTORY_LIMIT", "4")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Chat.HistoryLimit)
}

func TestValidateHistoryLimit(t *testing.T) {
	require.NoError(t, ValidateHistoryLimit(1))
	require.NoError(t, ValidateHistoryLimit(MaxHistoryLimit))
	require.Error(t, ValidateHistoryLimit(0))
	require.Error(t, ValidateHistoryLimit(MaxHistoryLimit+1))
}

func TestLoad_StorePathOrigin(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Store.PathFromEnv)

	t.Setenv("STORE_PATH", "/srv/chat")
	cfg, err = Load()
	require.NoError(t, err)
	require.True(t, cfg.Store.PathFromEnv)
	require.Equal(t, "/srv/chat", cfg.Store.Path)
}

func TestStoreConfig_Normalize(t *testing.T) {
	c := StoreConfig{Backend: " DynamoDB "}
	require.Error(t, c.Normalize())

	c = StoreConfig{Backend: "dynamodb", Table: "chat-state"}
	require.NoError(t, c.Normalize())
	require.Equal(t, BackendDynamoDB, c.Backend)

	c = StoreConfig{Backend: "sqlite", Path: "/var/lib/chat.db"}
	require.NoError(t, c.Normalize())
	require.Equal(t, "/var/lib/chat.db", c.Path)
}
