package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/internal/config"
	"github.com/Checker-Finance/cardlock/internal/metrics"
	pkgconfig "github.com/Checker-Finance/cardlock/pkg/config"
	"github.com/Checker-Finance/cardlock/pkg/credentials"
	pkgsecrets "github.com/Checker-Finance/cardlock/pkg/secrets"
)

// ErrEmptySecret is returned when the secret store hands back no data.
var ErrEmptySecret = errors.New("empty secret")

// Source supplies the credential table of this deployment.
type Source interface {
	Load(ctx context.Context) (credentials.Table, error)
}

// EnvSource builds the table from values read by config.Load.
type EnvSource struct {
	cfg *config.Config
}

// NewEnvSource returns a source reading the credential values of cfg.
func NewEnvSource(cfg *config.Config) *EnvSource {
	return &EnvSource{cfg: cfg}
}

// Load builds the table from cfg. It never fails; empty values are left for
// validation to report.
func (s *EnvSource) Load(_ context.Context) (credentials.Table, error) {
	return credentials.New(credentials.Params{
		WiFiSSID:        s.cfg.WiFiSSID,
		WiFiPassword:    s.cfg.WiFiPassword,
		AppKey:          s.cfg.AppKey,
		AppSecret:       s.cfg.AppSecret,
		LockID:          s.cfg.LockID,
		SwitchID:        s.cfg.SwitchID,
		AuthorizedCards: s.cfg.AuthorizedCards,
	}), nil
}

// Resolver loads the credential table from a secret store, caching the
// parsed table locally to reduce API calls.
type Resolver struct {
	logger     *zap.Logger
	secretName string
	provider   pkgsecrets.Provider
	cache      *pkgsecrets.Cache[credentials.Table]
}

// NewResolver constructs a resolver for one secret.
func NewResolver(
	logger *zap.Logger,
	secretName string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[credentials.Table],
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger:     logger,
		secretName: secretName,
		provider:   provider,
		cache:      cache,
	}
}

func (r *Resolver) cacheKey() string {
	return strings.ToLower(r.secretName)
}

// Load fetches or returns the cached table.
func (r *Resolver) Load(ctx context.Context) (credentials.Table, error) {
	key := r.cacheKey()

	if tbl, ok := r.cache.Get(key); ok {
		metrics.IncCacheHit("hit")
		return tbl, nil
	}
	metrics.IncCacheHit("miss")

	secretMap, err := r.provider.GetSecret(ctx, r.secretName)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", r.secretName),
			zap.Error(err))
		metrics.IncError("secrets", "fetch_failed")
		return credentials.Table{}, fmt.Errorf("resolve credential table: %w", err)
	}

	tbl, err := ParseSecret(secretMap)
	if err != nil {
		metrics.IncError("secrets", "parse_failed")
		return credentials.Table{}, fmt.Errorf("parse secret %q: %w", r.secretName, err)
	}

	r.cache.Put(key, tbl)

	r.logger.Info("secrets.table_resolved",
		zap.String("key", r.secretName),
		zap.Int("num_authorized_cards", tbl.NumAuthorizedCards()),
	)
	return tbl, nil
}

// ParseSecret maps a secret of the form
// {"wifi_ssid": ..., "authorized_cards": "5474E900,3ED70805"} onto a table.
// Missing keys become empty values.
func ParseSecret(m map[string]string) (credentials.Table, error) {
	if m == nil {
		return credentials.Table{}, ErrEmptySecret
	}
	return credentials.New(credentials.Params{
		WiFiSSID:        m[credentials.FieldWiFiSSID],
		WiFiPassword:    m[credentials.FieldWiFiPassword],
		AppKey:          m[credentials.FieldAppKey],
		AppSecret:       m[credentials.FieldAppSecret],
		LockID:          m[credentials.FieldLockID],
		SwitchID:        m[credentials.FieldSwitchID],
		AuthorizedCards: pkgconfig.SplitList(m[credentials.FieldAuthorizedCards], nil),
	}), nil
}

// NewSource picks the credential source named by cfg.CredentialsSource.
// provider and cache are only used for the aws source.
func NewSource(
	cfg *config.Config,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[credentials.Table],
	logger *zap.Logger,
) (Source, error) {
	switch cfg.CredentialsSource {
	case config.SourceEnv, "":
		return NewEnvSource(cfg), nil
	case config.SourceAWS:
		if provider == nil {
			return nil, fmt.Errorf("credentials source %q requires a secrets provider", cfg.CredentialsSource)
		}
		return NewResolver(logger, cfg.SecretName, provider, cache), nil
	default:
		return nil, fmt.Errorf("unknown credentials source %q", cfg.CredentialsSource)
	}
}
