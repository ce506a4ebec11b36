package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Checker-Finance/cardlock/pkg/config"
)

// Credential sources.
const (
	SourceEnv = "env"
	SourceAWS = "aws"
)

// Config holds the runtime configuration for a cardlock instance.
// Deployment credentials can come from the environment (and a git-ignored .env)
// or from AWS Secrets Manager, selected by CredentialsSource.
type Config struct {
	ServiceName string // e.g. "cardlock"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.
	Port        int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	CheckRatePerSecond int // card checks per reader per second
	CheckBurst         int
	CheckMaxKeys       int           // limiter buckets kept before sharing one overflow bucket
	CheckIdleTTL       time.Duration // idle buckets are dropped after this
	KnownReaders       []string      // X-Reader-ID values trusted as throttle keys

	CredentialsSource string // "env" | "aws"
	AWSRegion         string
	SecretName        string        // Secrets Manager secret holding the credential table
	CacheTTL          time.Duration // TTL for the resolved table
	CleanupFreq       time.Duration

	NATSURL       string
	AccessSubject string // subject for access decision events

	RedisAddr         string
	RedisDB           int
	RedisPass         string
	RecentEventsLimit int

	DatabaseURL         string // empty disables the Postgres audit log
	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration

	// Credential table values for CredentialsSource == "env".
	WiFiSSID        string
	WiFiPassword    string
	AppKey          string
	AppSecret       string
	LockID          string
	SwitchID        string
	AuthorizedCards []string
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	env := pkgconfig.GetEnv("ENV", "dev")
	cfg := &Config{
		ServiceName:      pkgconfig.GetEnv("SERVICE_NAME", "cardlock"),
		Env:              env,
		LogLevel:         pkgconfig.GetEnv("LOG_LEVEL", "info"),
		Port:             pkgconfig.GetEnvInt("CARDLOCK_PORT", 9030),
		HTTPReadTimeout:  pkgconfig.GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: pkgconfig.GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:  pkgconfig.GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    pkgconfig.GetEnvInt("HTTP_BODY_LIMIT", 64*1024),

		CheckRatePerSecond: pkgconfig.GetEnvInt("CHECK_RATE_PER_SECOND", 2),
		CheckBurst:         pkgconfig.GetEnvInt("CHECK_BURST", 5),
		CheckMaxKeys:       pkgconfig.GetEnvInt("CHECK_MAX_KEYS", 1024),
		CheckIdleTTL:       pkgconfig.GetEnvDuration("CHECK_IDLE_TTL", 10*time.Minute),
		KnownReaders:       pkgconfig.GetEnvList("KNOWN_READERS", nil),

		CredentialsSource: pkgconfig.GetEnv("CREDENTIALS_SOURCE", SourceEnv),
		AWSRegion:         pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		SecretName:        pkgconfig.GetEnv("CREDENTIALS_SECRET_NAME", fmt.Sprintf("%s/cardlock/credentials", env)),
		CacheTTL:          pkgconfig.GetEnvDuration("CACHE_TTL", 24*time.Hour),
		CleanupFreq:       pkgconfig.GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),

		NATSURL:       pkgconfig.GetEnv("NATS_URL", "nats://localhost:4222"),
		AccessSubject: pkgconfig.GetEnv("ACCESS_SUBJECT", "evt.access.decision.v1"),

		RedisAddr:         pkgconfig.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass:         pkgconfig.GetEnv("REDIS_PASS", ""),
		RecentEventsLimit: pkgconfig.GetEnvInt("RECENT_EVENTS_LIMIT", 100),

		DatabaseURL:         pkgconfig.GetEnv("DATABASE_URL", ""),
		PGMaxConns:          pkgconfig.GetEnvInt("PG_MAX_CONNS", 5),
		PGMinConns:          pkgconfig.GetEnvInt("PG_MIN_CONNS", 1),
		PGMaxConnLifetime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: pkgconfig.GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),

		WiFiSSID:        pkgconfig.GetEnv("WIFI_SSID", ""),
		WiFiPassword:    pkgconfig.GetEnv("WIFI_PASS", ""),
		AppKey:          pkgconfig.GetEnv("APP_KEY", ""),
		AppSecret:       pkgconfig.GetEnv("APP_SECRET", ""),
		LockID:          pkgconfig.GetEnv("LOCK_ID", ""),
		SwitchID:        pkgconfig.GetEnv("SWITCH_ID", ""),
		AuthorizedCards: pkgconfig.GetEnvList("AUTHORIZED_CARDS", nil),
	}

	return cfg
}
