package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVICE_NAME", "ENV", "LOG_LEVEL", "CARDLOCK_PORT", "HTTP_BODY_LIMIT",
		"CHECK_RATE_PER_SECOND", "CHECK_BURST", "CHECK_MAX_KEYS", "CHECK_IDLE_TTL", "KNOWN_READERS",
		"CREDENTIALS_SOURCE", "AWS_REGION", "CREDENTIALS_SECRET_NAME", "CACHE_TTL",
		"NATS_URL", "ACCESS_SUBJECT", "REDIS_ADDR", "REDIS_DB", "RECENT_EVENTS_LIMIT",
		"DATABASE_URL", "PG_MAX_CONNS",
		"WIFI_SSID", "WIFI_PASS", "APP_KEY", "APP_SECRET", "LOCK_ID", "SWITCH_ID", "AUTHORIZED_CARDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "cardlock", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 9030, cfg.Port)
	assert.Equal(t, 64*1024, cfg.HTTPBodyLimit)
	assert.Equal(t, 2, cfg.CheckRatePerSecond)
	assert.Equal(t, 5, cfg.CheckBurst)
	assert.Equal(t, 1024, cfg.CheckMaxKeys)
	assert.Equal(t, 10*time.Minute, cfg.CheckIdleTTL)
	assert.Nil(t, cfg.KnownReaders)
	assert.Equal(t, SourceEnv, cfg.CredentialsSource)
	assert.Equal(t, "dev/cardlock/credentials", cfg.SecretName)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "evt.access.decision.v1", cfg.AccessSubject)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 100, cfg.RecentEventsLimit)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.WiFiSSID)
	assert.Nil(t, cfg.AuthorizedCards)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "prod")
	t.Setenv("CARDLOCK_PORT", "8080")
	t.Setenv("CREDENTIALS_SOURCE", "aws")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("WIFI_SSID", "office-net")
	t.Setenv("WIFI_PASS", "correct-horse-battery")
	t.Setenv("APP_KEY", "key")
	t.Setenv("APP_SECRET", "secret")
	t.Setenv("LOCK_ID", "lock-5f1a")
	t.Setenv("SWITCH_ID", "switch-77c2")
	t.Setenv("AUTHORIZED_CARDS", "5474E900,3ED70805,93936A14")
	t.Setenv("KNOWN_READERS", "front-door, back-door")
	t.Setenv("CHECK_MAX_KEYS", "64")

	cfg := Load()

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "prod/cardlock/credentials", cfg.SecretName)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, SourceAWS, cfg.CredentialsSource)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "office-net", cfg.WiFiSSID)
	assert.Equal(t, "correct-horse-battery", cfg.WiFiPassword)
	assert.Equal(t, "lock-5f1a", cfg.LockID)
	assert.Equal(t, "switch-77c2", cfg.SwitchID)
	assert.Equal(t, []string{"5474E900", "3ED70805", "93936A14"}, cfg.AuthorizedCards)
	assert.Equal(t, []string{"front-door", "back-door"}, cfg.KnownReaders)
	assert.Equal(t, 64, cfg.CheckMaxKeys)
}

func TestLoad_ExplicitSecretName(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDENTIALS_SECRET_NAME", "door/front")

	assert.Equal(t, "door/front", Load().SecretName)
}
